package instrumentation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// recordSpans installs a global tracer provider backed by an in-memory recorder.
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	return recorder
}

func TestSpanAttributeBuilder(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithUser("jane@uni.edu").
		WithEventIndex(2).
		WithEventCount(5).
		WithFormat("ics").
		WithRemoteID("evt123").
		Build()

	require.Len(t, attrs, 5)

	attrMap := make(map[string]interface{})
	for _, attr := range attrs {
		attrMap[string(attr.Key)] = attr.Value.AsInterface()
	}

	assert.Equal(t, "uni.edu", attrMap[SpanAttrUserDomain])
	assert.Equal(t, int64(2), attrMap[SpanAttrEventIndex])
	assert.Equal(t, int64(5), attrMap[SpanAttrEventCount])
	assert.Equal(t, "ics", attrMap[SpanAttrFormat])
	assert.Equal(t, "evt123", attrMap[SpanAttrRemoteID])
}

func TestSpanAttributeBuilder_EmptyValues(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithUser("").
		WithFormat("").
		WithRemoteID("").
		Build()

	assert.Empty(t, attrs)
}

func TestStartGoogleAPISpan(t *testing.T) {
	recorder := recordSpans(t)

	_, span := StartGoogleAPISpan(context.Background(), ServiceCalendar, OperationInsert)
	SetSpanSuccess(span)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "google.calendar.insert", ended[0].Name())
	assert.Equal(t, codes.Ok, ended[0].Status().Code)
}

func TestSetSpanError(t *testing.T) {
	recorder := recordSpans(t)

	ctx, span := StartSpan(context.Background(), "test-span")
	assert.NotEmpty(t, GetTraceID(ctx))
	assert.NotEmpty(t, GetSpanID(ctx))

	SetSpanError(span, nil)
	SetSpanError(span, errors.New("test error"))
	AddSpanEvent(span, "retry-skipped")
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "test error", ended[0].Status().Description)
}

func TestSpanIDs_NoSpan(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))
	assert.Empty(t, GetSpanID(ctx))
}
