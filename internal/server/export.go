package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/teemow/plannr/internal/calendar"
	"github.com/teemow/plannr/internal/events"
	"github.com/teemow/plannr/internal/export"
	"github.com/teemow/plannr/internal/instrumentation"
	"github.com/teemow/plannr/internal/logging"
)

// eventsRequest is the body of /export, /calendar and PUT /syllabi.
type eventsRequest struct {
	Events json.RawMessage `json:"events"`
}

// decodeEvents reads an {"events": [...]} body. A missing or null list is
// an empty list; any invalid event fails the whole request.
func decodeEvents(w http.ResponseWriter, r *http.Request) ([]events.Event, error) {
	var req eventsRequest
	if err := decodeBody(w, r, &req); err != nil {
		return nil, err
	}

	raw := bytes.TrimSpace(req.Events)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []events.Event{}, nil
	}

	list, err := events.DecodeList(raw)
	if err != nil {
		return nil, badRequest(err.Error(), nil)
	}
	return list, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return &apiError{Status: http.StatusRequestEntityTooLarge, Message: "request body too large"}
		case errors.Is(err, io.EOF):
			return badRequest("request body is required", nil)
		default:
			return badRequest("invalid request body", err)
		}
	}
	return nil
}

// requireEmail returns the email query parameter.
func requireEmail(r *http.Request) (string, error) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		return "", badRequest("email query parameter is required", nil)
	}
	return email, nil
}

// requireAuthenticated returns the email of a user that has a stored grant.
func (s *Server) requireAuthenticated(r *http.Request) (string, error) {
	email, err := requireEmail(r)
	if err != nil {
		return "", err
	}

	blob, err := s.users.FetchCredential(r.Context(), email)
	if err != nil {
		return "", fmt.Errorf("failed to load credentials: %w", err)
	}
	if blob == nil || *blob == "" {
		return "", unauthorized("not authenticated")
	}
	return email, nil
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) error {
	email, err := s.requireAuthenticated(r)
	if err != nil {
		return err
	}

	ctx, span := instrumentation.StartSpan(r.Context(), "export.encode",
		instrumentation.NewSpanAttributeBuilder().WithUser(email).WithFormat(r.URL.Query().Get("format")).Build()...)
	defer span.End()

	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return badRequest(err.Error(), nil)
	}

	list, err := decodeEvents(w, r)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return err
	}

	data, err := export.Encode(list, format)
	if err != nil {
		s.metrics.RecordExport(ctx, string(format), instrumentation.StatusError, email)
		instrumentation.SetSpanError(span, err)
		if errors.Is(err, export.ErrNoEvents) || errors.Is(err, export.ErrUnsupportedFormat) {
			return badRequest(err.Error(), nil)
		}
		return err
	}
	s.metrics.RecordExport(ctx, string(format), instrumentation.StatusSuccess, email)
	instrumentation.AddSpanEvent(span, "encoded", instrumentation.NewSpanAttributeBuilder().WithEventCount(len(list)).Build()...)
	instrumentation.SetSpanSuccess(span)

	s.logger.Debug("Exported events", logging.UserHash(email), logging.Format(string(format)), logging.Count(len(list)))

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.Filename()))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
	return nil
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) error {
	email, err := requireEmail(r)
	if err != nil {
		return err
	}

	list, err := decodeEvents(w, r)
	if err != nil {
		return err
	}

	report, err := s.calendar.Sync(r.Context(), email, list)
	switch {
	case errors.Is(err, calendar.ErrUnauthenticated):
		return unauthorized("not authenticated")
	case err != nil:
		return badRequest(err.Error(), nil)
	}

	writeJSON(w, http.StatusOK, report)
	return nil
}
