package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/teemow/plannr/internal/events"
	"github.com/teemow/plannr/internal/instrumentation"
	"github.com/teemow/plannr/internal/logging"
	"github.com/teemow/plannr/internal/store"
)

type syllabiResponse struct {
	Events []events.Event `json:"events"`
}

type savedResponse struct {
	Count int `json:"count"`
}

type extractRequest struct {
	Text string `json:"text"`
}

type extractResponse struct {
	Events   []events.Event    `json:"events"`
	Rejected []events.Rejected `json:"rejected"`
}

func (s *Server) handleSaveSyllabi(w http.ResponseWriter, r *http.Request) error {
	email, err := s.requireAuthenticated(r)
	if err != nil {
		return err
	}

	list, err := decodeEvents(w, r)
	if err != nil {
		return err
	}

	blob, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to encode syllabi: %w", err)
	}

	event := instrumentation.NewAccountEvent(instrumentation.ActionSyllabiUpdate, email).WithSpanContext(r.Context())
	err = s.users.UpdateSyllabi(r.Context(), email, string(blob))
	s.audit.Log(event.Complete(err))
	if err != nil {
		return fmt.Errorf("failed to save syllabi: %w", err)
	}

	s.logger.Info("Saved syllabi", logging.UserHash(email), logging.Count(len(list)))
	writeJSON(w, http.StatusOK, savedResponse{Count: len(list)})
	return nil
}

func (s *Server) handleGetSyllabi(w http.ResponseWriter, r *http.Request) error {
	email, err := s.requireAuthenticated(r)
	if err != nil {
		return err
	}

	user, err := s.users.FetchUser(r.Context(), email)
	if errors.Is(err, store.ErrNotFound) {
		return unauthorized("not authenticated")
	}
	if err != nil {
		return fmt.Errorf("failed to load syllabi: %w", err)
	}

	resp := syllabiResponse{Events: []events.Event{}}
	if user.Syllabi != nil && *user.Syllabi != "" {
		list, err := events.DecodeList([]byte(*user.Syllabi))
		if err != nil {
			return fmt.Errorf("stored syllabi are unreadable: %w", err)
		}
		resp.Events = list
	}

	writeJSON(w, http.StatusOK, resp)
	return nil
}

// handleExtract runs the extraction collaborator over free text and keeps
// only the candidates that form valid events.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) error {
	if s.extractor == nil {
		return &apiError{Status: http.StatusNotImplemented, Message: "event extraction is not configured"}
	}

	var req extractRequest
	if err := decodeBody(w, r, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Text) == "" {
		return badRequest("text is required", nil)
	}

	candidates, err := s.extractor.Extract(r.Context(), req.Text)
	if err != nil {
		return &apiError{Status: http.StatusBadGateway, Message: "event extraction failed", Cause: err}
	}

	valid, rejected := events.FromCandidates(candidates)
	if rejected == nil {
		rejected = []events.Rejected{}
	}

	s.logger.Debug("Extracted events",
		logging.Count(len(valid)),
		"rejected", len(rejected))

	writeJSON(w, http.StatusOK, extractResponse{Events: valid, Rejected: rejected})
	return nil
}
