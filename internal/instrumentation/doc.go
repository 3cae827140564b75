// Package instrumentation provides OpenTelemetry instrumentation for plannr.
//
// # Metrics
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// Google API Metrics:
//   - google_api_operations_total: Counter of Google API operations by service, operation, status
//   - google_api_operation_duration_seconds: Histogram of Google API operation durations
//
// OAuth Metrics:
//   - oauth_handshake_total: Counter of OAuth callbacks by result
//   - oauth_token_refresh_total: Counter of access token refreshes observed during sync
//   - oauth_pending_states: Number of issued but unconsumed OAuth states
//
// Export and Sync Metrics:
//   - exports_total: Counter of exports by format and status
//   - calendar_sync_runs_total: Counter of sync runs by status
//   - calendar_synced_events_total: Counter of remote events created
//
// # Tracing
//
// Spans are created for Google API calls (google.<service>.<operation>),
// calendar sync runs and exports.
//
// # Audit
//
// AuditLogger records account changes (handshakes, user creation and removal,
// credential updates) with hashed user identifiers unless PII logging is
// explicitly enabled.
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: plannr)
//   - AUDIT_LOGGING_ENABLED, AUDIT_LOGGING_INCLUDE_PII: audit log switches
package instrumentation
