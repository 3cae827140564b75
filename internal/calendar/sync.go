package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/plannr/internal/events"
	"github.com/teemow/plannr/internal/google"
	"github.com/teemow/plannr/internal/instrumentation"
	"github.com/teemow/plannr/internal/logging"
)

// EngineConfig holds the collaborators of an Engine.
type EngineConfig struct {
	Store     CredentialStore
	Connector Connector

	// Optional
	Metrics *instrumentation.Metrics
	Audit   *instrumentation.AuditLogger
	Logger  *slog.Logger
}

// Engine syncs event lists into users' calendars.
type Engine struct {
	store     CredentialStore
	connector Connector
	metrics   *instrumentation.Metrics
	audit     *instrumentation.AuditLogger
	logger    *slog.Logger
}

// NewEngine creates an Engine from config.
func NewEngine(config EngineConfig) (*Engine, error) {
	if config.Store == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	if config.Connector == nil {
		return nil, fmt.Errorf("calendar connector is required")
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		store:     config.Store,
		connector: config.Connector,
		metrics:   config.Metrics,
		audit:     config.Audit,
		logger:    logging.WithComponent(logger, "calendar_sync"),
	}, nil
}

// Sync inserts list into the calendar of email, one event at a time and in
// order. Nothing is contacted unless the user has a stored grant.
func (e *Engine) Sync(ctx context.Context, email string, list []events.Event) (*Report, error) {
	ctx, span := instrumentation.StartSpan(ctx, "calendar.sync",
		instrumentation.NewSpanAttributeBuilder().WithUser(email).WithEventCount(len(list)).Build()...)
	defer span.End()

	report, err := e.sync(ctx, email, list)

	created := 0
	status := instrumentation.StatusSuccess
	if report != nil {
		created = report.Count
	}
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	e.metrics.RecordSync(ctx, status, email, created)

	if errors.Is(err, ErrUnauthenticated) {
		e.logger.Info("Sync refused, no usable grant", logging.UserHash(email))
		return nil, err
	}
	e.audit.Log(instrumentation.NewAccountEvent(instrumentation.ActionCalendarSync, email).WithSpanContext(ctx).Complete(err))
	if err != nil {
		e.logger.Warn("Calendar sync failed", logging.UserHash(email), logging.Err(err))
		return nil, err
	}

	e.logger.Info("Calendar sync completed", logging.UserHash(email), logging.Count(report.Count))
	return report, nil
}

func (e *Engine) sync(ctx context.Context, email string, list []events.Event) (*Report, error) {
	grant, err := e.loadGrant(ctx, email)
	if err != nil {
		return nil, err
	}

	// Nothing to insert: leave the cached report alone.
	if len(list) == 0 {
		return &Report{Events: []Created{}}, nil
	}

	session, err := e.connector.Connect(ctx, grant)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to calendar: %w", err)
	}
	defer e.persistRefreshed(ctx, email, session)

	span := trace.SpanFromContext(ctx)
	report := &Report{Events: make([]Created, 0, len(list))}
	for i, ev := range list {
		if err := ctx.Err(); err != nil {
			return report, &SyncError{Index: i, Title: ev.Title, Cause: err}
		}

		id, err := session.InsertAllDay(ctx, ev)
		if err != nil {
			instrumentation.AddSpanEvent(span, "event.failed",
				instrumentation.NewSpanAttributeBuilder().WithEventIndex(i).Build()...)
			return report, &SyncError{Index: i, Title: ev.Title, Cause: err}
		}
		instrumentation.AddSpanEvent(span, "event.inserted",
			instrumentation.NewSpanAttributeBuilder().WithEventIndex(i).WithRemoteID(id).Build()...)

		report.Events = append(report.Events, Created{
			Title:    ev.Title,
			Date:     ev.DateString(),
			RemoteID: id,
		})
		report.Count++
	}

	e.cacheReport(ctx, email, report)
	return report, nil
}

// loadGrant reads and decodes the stored grant. A missing, empty or
// unreadable blob means the user has to sign in again.
func (e *Engine) loadGrant(ctx context.Context, email string) (*google.Grant, error) {
	if email == "" {
		return nil, ErrUnauthenticated
	}

	blob, err := e.store.FetchCredential(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	if blob == nil || *blob == "" {
		return nil, ErrUnauthenticated
	}

	grant, err := google.DecodeGrant(*blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	if !canInsert(grant) {
		return nil, fmt.Errorf("%w: calendar access was not granted", ErrUnauthenticated)
	}
	return grant, nil
}

// persistRefreshed writes back a grant renewed during the session. Failures
// are logged; the sync result stands.
func (e *Engine) persistRefreshed(ctx context.Context, email string, session Session) {
	grant, ok := session.RefreshedGrant()
	if !ok {
		return
	}

	err := e.storeGrant(ctx, email, grant)
	e.audit.Log(instrumentation.NewAccountEvent(instrumentation.ActionCredentialUpdate, email).WithSpanContext(ctx).Complete(err))
	if err != nil {
		e.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.RefreshFailure)
		e.logger.Warn("Failed to persist refreshed grant", logging.UserHash(email), logging.Err(err))
		return
	}

	e.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.RefreshSuccess)
	e.logger.Debug("Persisted refreshed grant", logging.UserHash(email))
}

func (e *Engine) storeGrant(ctx context.Context, email string, grant *google.Grant) error {
	blob, err := grant.Encode()
	if err != nil {
		return err
	}
	return e.store.UpdateCredential(context.WithoutCancel(ctx), email, blob)
}

// cacheReport stores the last report in the user's calendar column.
func (e *Engine) cacheReport(ctx context.Context, email string, report *Report) {
	data, err := json.Marshal(report)
	if err == nil {
		err = e.store.UpdateCalendar(ctx, email, string(data))
	}
	if err != nil {
		e.logger.Warn("Failed to cache calendar report", logging.UserHash(email), logging.Err(err))
	}
}
