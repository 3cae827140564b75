package server

import (
	"fmt"
	"net/http"

	"github.com/teemow/plannr/internal/oauth"
)

func (s *Server) handleAuthBegin(w http.ResponseWriter, r *http.Request) error {
	target, err := s.handshake.Begin()
	if err != nil {
		return fmt.Errorf("failed to start sign-in: %w", err)
	}
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
	return nil
}

// handleAuthCallback always answers with a redirect to the app, carrying
// either the signed-in identity or the reason the sign-in failed.
func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := make(map[string]string, 2)
	if errParam := q.Get("error"); errParam != "" {
		// The user declined consent or Google reported a failure. The
		// state is still consumed so it cannot be replayed.
		_, _ = s.handshake.Complete(r.Context(), "", q.Get("state"))
		params["error"] = "Authorization denied: " + errParam
	} else {
		identity, err := s.handshake.Complete(r.Context(), q.Get("code"), q.Get("state"))
		if err != nil {
			params["error"] = oauth.UserMessage(err)
		} else {
			params["email"] = identity.Email
			params["name"] = identity.Name
		}
	}

	http.Redirect(w, r, s.appRedirect(params), http.StatusTemporaryRedirect)
}

// appRedirect returns the app callback URL with params added to its query.
func (s *Server) appRedirect(params map[string]string) string {
	u := *s.appCallback
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
