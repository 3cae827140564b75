package calendar

import (
	"context"
	"errors"
	"fmt"

	"github.com/teemow/plannr/internal/events"
	"github.com/teemow/plannr/internal/google"
)

// ErrUnauthenticated is returned when the user has no usable stored grant.
var ErrUnauthenticated = errors.New("user is not authenticated with Google")

// SyncError reports the event whose insert aborted a sync run.
type SyncError struct {
	Index int
	Title string
	Cause error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("failed to create event %d (%q): %v", e.Index, e.Title, e.Cause)
}

func (e *SyncError) Unwrap() error {
	return e.Cause
}

// Created is one event that was inserted remotely.
type Created struct {
	Title    string `json:"title"`
	Date     string `json:"date"`
	RemoteID string `json:"id"`
}

// Report is the result of a successful sync run.
type Report struct {
	Count  int       `json:"count"`
	Events []Created `json:"events"`
}

// Session inserts events on behalf of one user.
type Session interface {
	// InsertAllDay creates an all-day entry for ev and returns its remote ID.
	InsertAllDay(ctx context.Context, ev events.Event) (string, error)

	// RefreshedGrant returns the grant renewed during the session, if any.
	RefreshedGrant() (*google.Grant, bool)
}

// Connector opens sessions against the remote calendar.
type Connector interface {
	Connect(ctx context.Context, grant *google.Grant) (Session, error)
}

// CredentialStore is the subset of the user store the engine needs.
type CredentialStore interface {
	FetchCredential(ctx context.Context, email string) (*string, error)
	UpdateCredential(ctx context.Context, email, blob string) error
	UpdateCalendar(ctx context.Context, email, blob string) error
}
