package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/teemow/plannr/internal/logging"
)

// apiError is an error with the HTTP status it should be reported with.
// Message is shown to the client as is.
type apiError struct {
	Status  int
	Message string
	Cause   error
}

func (e *apiError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *apiError) Unwrap() error {
	return e.Cause
}

func badRequest(msg string, cause error) *apiError {
	return &apiError{Status: http.StatusBadRequest, Message: msg, Cause: cause}
}

func unauthorized(msg string) *apiError {
	return &apiError{Status: http.StatusUnauthorized, Message: msg}
}

// errorResponse is the body of every error reply.
type errorResponse struct {
	Error string `json:"error"`
}

// handlerFunc is an http handler that reports failures by returning them.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// handle adapts h to http.Handler. An *apiError is written with its status
// and message; anything else becomes a 500 without leaking details.
func (s *Server) handle(h handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := h(w, r)
		if err == nil {
			return
		}

		var apiErr *apiError
		if errors.As(err, &apiErr) {
			s.logger.Debug("Request rejected",
				"path", r.URL.Path,
				logging.Status(http.StatusText(apiErr.Status)),
				logging.Err(err))
			writeError(w, apiErr.Status, apiErr.Message)
			return
		}

		s.logger.Error("Request failed", "path", r.URL.Path, logging.Err(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Failed to write response", logging.Err(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
