package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/plannr/internal/events"
	"github.com/teemow/plannr/internal/google"
	"github.com/teemow/plannr/internal/instrumentation"
	"github.com/teemow/plannr/internal/logging"
)

// DefaultCalendarID is the user's primary calendar.
const DefaultCalendarID = "primary"

// kindProperty is the private extended property carrying the event kind.
const kindProperty = "plannrKind"

// canInsert reports whether grant allows creating events. Grants that
// recorded no scopes are accepted as-is.
func canInsert(grant *google.Grant) bool {
	if len(grant.Scopes) == 0 {
		return true
	}
	return grant.HasScope(calendar.CalendarEventsScope) || grant.HasScope(calendar.CalendarScope)
}

// GoogleConnector opens Calendar API sessions from stored grants.
type GoogleConnector struct {
	calendarID string
	apiOptions []option.ClientOption
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
}

// ConnectorOption configures a GoogleConnector.
type ConnectorOption func(*GoogleConnector)

// WithAPIOptions passes extra client options to the Calendar service.
func WithAPIOptions(opts ...option.ClientOption) ConnectorOption {
	return func(c *GoogleConnector) {
		c.apiOptions = append(c.apiOptions, opts...)
	}
}

// WithConnectorMetrics records Calendar API calls on m.
func WithConnectorMetrics(m *instrumentation.Metrics) ConnectorOption {
	return func(c *GoogleConnector) {
		c.metrics = m
	}
}

// WithConnectorLogger sets the logger. The default is slog.Default().
func WithConnectorLogger(logger *slog.Logger) ConnectorOption {
	return func(c *GoogleConnector) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewGoogleConnector creates a connector inserting into calendarID.
// An empty calendarID means DefaultCalendarID.
func NewGoogleConnector(calendarID string, opts ...ConnectorOption) *GoogleConnector {
	if calendarID == "" {
		calendarID = DefaultCalendarID
	}
	c := &GoogleConnector{
		calendarID: calendarID,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.WithComponent(c.logger, "calendar")
	return c
}

// Connect implements Connector.
func (c *GoogleConnector) Connect(ctx context.Context, grant *google.Grant) (Session, error) {
	tokens := grant.TokenSource(ctx)

	opts := append([]option.ClientOption{
		option.WithHTTPClient(tokens.HTTPClient(nil)),
	}, c.apiOptions...)

	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	return &googleSession{
		svc:        svc,
		calendarID: c.calendarID,
		tokens:     tokens,
		metrics:    c.metrics,
	}, nil
}

type googleSession struct {
	svc        *calendar.Service
	calendarID string
	tokens     *google.TokenSource
	metrics    *instrumentation.Metrics
}

// InsertAllDay creates the event with start and end set to the same date.
func (s *googleSession) InsertAllDay(ctx context.Context, ev events.Event) (string, error) {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceCalendar, instrumentation.OperationInsert)
	defer span.End()

	date := ev.DateString()
	event := &calendar.Event{
		Summary:     ev.Title,
		Description: ev.Description,
		Start:       &calendar.EventDateTime{Date: date},
		End:         &calendar.EventDateTime{Date: date},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{kindProperty: string(ev.Kind)},
		},
	}

	start := time.Now()
	created, err := s.svc.Events.Insert(s.calendarID, event).Context(ctx).Do()

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	s.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceCalendar, instrumentation.OperationInsert, status, time.Since(start))

	if err != nil {
		instrumentation.SetSpanError(span, err)
		return "", fmt.Errorf("failed to create event: %w", err)
	}

	instrumentation.AddSpanEvent(span, "event.created",
		instrumentation.NewSpanAttributeBuilder().WithRemoteID(created.Id).Build()...)
	instrumentation.SetSpanSuccess(span)
	return created.Id, nil
}

func (s *googleSession) RefreshedGrant() (*google.Grant, bool) {
	return s.tokens.Refreshed()
}
