package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/plannr/internal/logging"
)

// Audited account actions.
const (
	ActionHandshake        = "handshake.complete"
	ActionUserCreate       = "user.create"
	ActionUserRemove       = "user.remove"
	ActionCredentialUpdate = "credential.update"
	ActionCalendarSync     = "calendar.sync"
	ActionSyllabiUpdate    = "syllabi.update"
)

// AccountEvent captures a change to a user's account or grant for the audit log.
//
// # Privacy Considerations
//
// UserEmail is PII. It is only written verbatim when the AuditLogger is
// configured with IncludePII; otherwise a hashed identifier is logged.
type AccountEvent struct {
	Action    string
	UserEmail string

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	// Tracing context
	TraceID string
	SpanID  string
}

// NewAccountEvent starts timing an audited action.
// Call Complete when the action finishes.
func NewAccountEvent(action, email string) *AccountEvent {
	return &AccountEvent{
		Action:    action,
		UserEmail: email,
		StartTime: time.Now(),
	}
}

// WithSpanContext extracts trace context from the current span.
func (e *AccountEvent) WithSpanContext(ctx context.Context) *AccountEvent {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.IsValid() {
		e.TraceID = sc.TraceID().String()
		e.SpanID = sc.SpanID().String()
	}
	return e
}

// Complete marks the action as finished. A nil err means success.
func (e *AccountEvent) Complete(err error) *AccountEvent {
	e.Duration = time.Since(e.StartTime)
	e.Success = err == nil
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// Status returns "success" or "error" based on the Success field.
func (e *AccountEvent) Status() string {
	if e.Success {
		return StatusSuccess
	}
	return StatusError
}

// attrs returns the log attributes for the event.
func (e *AccountEvent) attrs(includePII bool) []any {
	args := []any{
		slog.String("action", e.Action),
		slog.String(logging.KeyStatus, e.Status()),
		slog.Duration(logging.KeyDuration, e.Duration),
	}

	if includePII {
		args = append(args, slog.String("user", e.UserEmail))
	} else {
		args = append(args, logging.UserHash(e.UserEmail), logging.Domain(e.UserEmail))
	}

	if e.TraceID != "" {
		args = append(args, slog.String("trace_id", e.TraceID))
	}
	if e.SpanID != "" {
		args = append(args, slog.String("span_id", e.SpanID))
	}
	if e.Error != "" {
		args = append(args, slog.String(logging.KeyError, e.Error))
	}

	return args
}

// AuditLogger writes account events to a dedicated slog stream.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates an AuditLogger. If logger is nil, slog.Default() is used.
func NewAuditLogger(logger *slog.Logger, config AuditConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger.With(slog.String(logging.KeyComponent, "audit")),
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// Log writes e. Failed actions are logged at warn level.
func (al *AuditLogger) Log(e *AccountEvent) {
	if al == nil || !al.enabled || e == nil {
		return
	}

	if e.Success {
		al.logger.Info("account_audit", e.attrs(al.includePII)...)
	} else {
		al.logger.Warn("account_audit", e.attrs(al.includePII)...)
	}
}
