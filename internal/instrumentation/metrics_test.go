package instrumentation

import (
	"context"
	"testing"
	"time"
)

func newTestProvider(t *testing.T, detailed bool) *Provider {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := NewProvider(ctx, Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: "prometheus",
		TracingExporter: "none",
		DetailedLabels:  detailed,
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	return provider
}

func TestMetrics_RecordHTTPRequest(t *testing.T) {
	metrics := newTestProvider(t, false).Metrics()
	if metrics == nil {
		t.Fatal("expected metrics to be non-nil")
	}

	ctx := context.Background()
	metrics.RecordHTTPRequest(ctx, "GET", "/auth/google", 307, 100*time.Millisecond)
	metrics.RecordHTTPRequest(ctx, "POST", "/export", 400, 50*time.Millisecond)
}

func TestMetrics_RecordGoogleAPIOperation(t *testing.T) {
	metrics := newTestProvider(t, false).Metrics()

	ctx := context.Background()
	metrics.RecordGoogleAPIOperation(ctx, ServiceOAuth, OperationExchange, StatusSuccess, 200*time.Millisecond)
	metrics.RecordGoogleAPIOperation(ctx, ServiceUserinfo, OperationGet, StatusError, 500*time.Millisecond)
	metrics.RecordGoogleAPIOperation(ctx, ServiceCalendar, OperationInsert, StatusSuccess, 100*time.Millisecond)
}

func TestMetrics_RecordHandshake(t *testing.T) {
	metrics := newTestProvider(t, false).Metrics()

	ctx := context.Background()
	for _, result := range []string{HandshakeSuccess, HandshakeInvalidState, HandshakeExpiredState, HandshakeExchangeFailed, HandshakeFailure} {
		metrics.RecordHandshake(ctx, result)
	}
	metrics.RecordOAuthTokenRefresh(ctx, RefreshSuccess)
	metrics.AddPendingStates(ctx, 2)
	metrics.AddPendingStates(ctx, -1)
}

func TestMetrics_ExportAndSync(t *testing.T) {
	for _, detailed := range []bool{false, true} {
		metrics := newTestProvider(t, detailed).Metrics()

		ctx := context.Background()
		metrics.RecordExport(ctx, "ics", StatusSuccess, "jane@uni.edu")
		metrics.RecordExport(ctx, "csv", StatusError, "")
		metrics.RecordSync(ctx, StatusSuccess, "jane@uni.edu", 3)
		metrics.RecordSync(ctx, StatusError, "jane@uni.edu", 0)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	ctx := context.Background()

	// Zero value and nil receivers must not panic.
	var zero Metrics
	zero.RecordHTTPRequest(ctx, "GET", "/", 200, time.Millisecond)
	zero.RecordHandshake(ctx, HandshakeSuccess)
	zero.RecordSync(ctx, StatusSuccess, "", 1)

	var m *Metrics
	m.RecordExport(ctx, "ics", StatusSuccess, "")
	m.AddPendingStates(ctx, 1)
	m.RecordGoogleAPIOperation(ctx, ServiceCalendar, OperationInsert, StatusSuccess, time.Millisecond)
}
