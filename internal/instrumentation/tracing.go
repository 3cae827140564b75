package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the default tracer name for plannr.
const TracerName = "github.com/teemow/plannr"

// Span attribute keys.
const (
	SpanAttrService    = "google.service"
	SpanAttrOperation  = "google.operation"
	SpanAttrUserDomain = "plannr.user_domain"
	SpanAttrEventIndex = "plannr.event_index"
	SpanAttrEventCount = "plannr.event_count"
	SpanAttrFormat     = "plannr.export_format"
	SpanAttrRemoteID   = "plannr.remote_id"
)

// SpanAttributeBuilder helps construct OpenTelemetry span attributes
// with consistent naming.
type SpanAttributeBuilder struct {
	attrs []attribute.KeyValue
}

// NewSpanAttributeBuilder creates a new SpanAttributeBuilder.
func NewSpanAttributeBuilder() *SpanAttributeBuilder {
	return &SpanAttributeBuilder{attrs: make([]attribute.KeyValue, 0, 6)}
}

// WithUser adds the user's email domain. The full address is never recorded.
func (b *SpanAttributeBuilder) WithUser(email string) *SpanAttributeBuilder {
	if email != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrUserDomain, ExtractUserDomain(email)))
	}
	return b
}

// WithEventIndex adds the position of an event within its input list.
func (b *SpanAttributeBuilder) WithEventIndex(i int) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.Int(SpanAttrEventIndex, i))
	return b
}

// WithEventCount adds the number of events handled by an operation.
func (b *SpanAttributeBuilder) WithEventCount(n int) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.Int(SpanAttrEventCount, n))
	return b
}

// WithFormat adds the export format.
func (b *SpanAttributeBuilder) WithFormat(format string) *SpanAttributeBuilder {
	if format != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrFormat, format))
	}
	return b
}

// WithRemoteID adds the identifier assigned by the remote calendar.
func (b *SpanAttributeBuilder) WithRemoteID(id string) *SpanAttributeBuilder {
	if id != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrRemoteID, id))
	}
	return b
}

// Build returns the constructed attributes.
func (b *SpanAttributeBuilder) Build() []attribute.KeyValue {
	return b.attrs
}

// StartSpan starts a new span with the given name and attributes.
// The caller is responsible for ending the span with defer span.End().
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartGoogleAPISpan starts a client span for a Google API call named
// google.<service>.<operation>.
func StartGoogleAPISpan(ctx context.Context, service, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+2)
	allAttrs = append(allAttrs,
		attribute.String(SpanAttrService, service),
		attribute.String(SpanAttrOperation, operation),
	)
	allAttrs = append(allAttrs, attrs...)

	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "google."+service+"."+operation,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// SetSpanError records an error on the span and sets the status to error.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess sets the span status to OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// AddSpanEvent adds an event to the span with optional attributes.
func AddSpanEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// GetTraceID returns the trace ID from the current span in context.
// Returns empty string if no valid span is present.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}

// GetSpanID returns the span ID from the current span in context.
// Returns empty string if no valid span is present.
func GetSpanID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().SpanID().String()
	}
	return ""
}
