package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	attrMethod     = "method"
	attrPath       = "path"
	attrStatus     = "status"
	attrOperation  = "operation"
	attrService    = "service"
	attrResult     = "result"
	attrFormat     = "format"
	attrUserDomain = "user_domain"
)

// Metrics provides methods for recording observability metrics.
// The zero value is a valid no-op recorder.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Google API metrics
	googleAPIOperationsTotal   metric.Int64Counter
	googleAPIOperationDuration metric.Float64Histogram

	// OAuth metrics
	oauthHandshakeTotal    metric.Int64Counter
	oauthTokenRefreshTotal metric.Int64Counter
	oauthPendingStates     metric.Int64UpDownCounter

	// Export and sync metrics
	exportsTotal      metric.Int64Counter
	syncRunsTotal     metric.Int64Counter
	syncedEventsTotal metric.Int64Counter

	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The detailedLabels parameter controls whether high-cardinality labels are included.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.googleAPIOperationsTotal, err = meter.Int64Counter(
		"google_api_operations_total",
		metric.WithDescription("Total number of Google API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_operations_total counter: %w", err)
	}

	m.googleAPIOperationDuration, err = meter.Float64Histogram(
		"google_api_operation_duration_seconds",
		metric.WithDescription("Google API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_operation_duration_seconds histogram: %w", err)
	}

	m.oauthHandshakeTotal, err = meter.Int64Counter(
		"oauth_handshake_total",
		metric.WithDescription("Total number of completed OAuth handshakes by result"),
		metric.WithUnit("{handshake}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_handshake_total counter: %w", err)
	}

	m.oauthTokenRefreshTotal, err = meter.Int64Counter(
		"oauth_token_refresh_total",
		metric.WithDescription("Total number of OAuth token refreshes observed during sync"),
		metric.WithUnit("{refresh}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_token_refresh_total counter: %w", err)
	}

	m.oauthPendingStates, err = meter.Int64UpDownCounter(
		"oauth_pending_states",
		metric.WithDescription("Number of issued OAuth states not yet consumed or swept"),
		metric.WithUnit("{state}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_pending_states gauge: %w", err)
	}

	m.exportsTotal, err = meter.Int64Counter(
		"exports_total",
		metric.WithDescription("Total number of event exports by format and status"),
		metric.WithUnit("{export}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create exports_total counter: %w", err)
	}

	m.syncRunsTotal, err = meter.Int64Counter(
		"calendar_sync_runs_total",
		metric.WithDescription("Total number of calendar sync runs by status"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar_sync_runs_total counter: %w", err)
	}

	m.syncedEventsTotal, err = meter.Int64Counter(
		"calendar_synced_events_total",
		metric.WithDescription("Total number of events created in remote calendars"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar_synced_events_total counter: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordGoogleAPIOperation records a Google API operation with service, operation,
// status, and duration.
//
// Parameters:
//   - service: Google service name (oauth, userinfo, calendar)
//   - operation: Operation type (exchange, get, insert)
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the operation
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil || m.googleAPIOperationsTotal == nil || m.googleAPIOperationDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.googleAPIOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.googleAPIOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordHandshake records the outcome of an OAuth callback.
// Result should be one of the Handshake* constants.
func (m *Metrics) RecordHandshake(ctx context.Context, result string) {
	if m == nil || m.oauthHandshakeTotal == nil {
		return // Instrumentation not initialized
	}

	m.oauthHandshakeTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordOAuthTokenRefresh records an OAuth token refresh with result.
// Result should be one of: "success", "failure"
func (m *Metrics) RecordOAuthTokenRefresh(ctx context.Context, result string) {
	if m == nil || m.oauthTokenRefreshTotal == nil {
		return // Instrumentation not initialized
	}

	m.oauthTokenRefreshTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// AddPendingStates adjusts the number of outstanding OAuth states by delta.
func (m *Metrics) AddPendingStates(ctx context.Context, delta int64) {
	if m == nil || m.oauthPendingStates == nil || delta == 0 {
		return // Instrumentation not initialized
	}

	m.oauthPendingStates.Add(ctx, delta)
}

// RecordExport records an export attempt for the given format.
func (m *Metrics) RecordExport(ctx context.Context, format, status, email string) {
	if m == nil || m.exportsTotal == nil {
		return // Instrumentation not initialized
	}

	attrs := m.withUserDomain([]attribute.KeyValue{
		attribute.String(attrFormat, format),
		attribute.String(attrStatus, status),
	}, email)

	m.exportsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSync records a calendar sync run and the number of events it created.
func (m *Metrics) RecordSync(ctx context.Context, status, email string, created int) {
	if m == nil || m.syncRunsTotal == nil || m.syncedEventsTotal == nil {
		return // Instrumentation not initialized
	}

	attrs := m.withUserDomain([]attribute.KeyValue{
		attribute.String(attrStatus, status),
	}, email)

	m.syncRunsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	if created > 0 {
		m.syncedEventsTotal.Add(ctx, int64(created), metric.WithAttributes(attrs...))
	}
}

// withUserDomain appends the user's email domain when detailed labels are enabled.
func (m *Metrics) withUserDomain(attrs []attribute.KeyValue, email string) []attribute.KeyValue {
	if m.detailedLabels && email != "" {
		attrs = append(attrs, attribute.String(attrUserDomain, ExtractUserDomain(email)))
	}
	return attrs
}
