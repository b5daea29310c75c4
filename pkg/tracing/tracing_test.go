package tracing

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestKafkaHeadersRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	headers := InjectKafkaHeaders(ctx, nil)
	assert.NotEmpty(t, HeaderValue(headers, TraceparentHeader))
	assert.Equal(t, Traceparent(ctx), HeaderValue(headers, TraceparentHeader))

	got := trace.SpanContextFromContext(ExtractKafkaHeaders(context.Background(), headers))
	assert.Equal(t, traceID, got.TraceID())
	assert.Equal(t, spanID, got.SpanID())
}

func TestHeaderValueMissing(t *testing.T) {
	assert.Equal(t, "", HeaderValue([]kafka.Header{{Key: "a", Value: []byte("1")}}, "b"))
}

func TestStripScheme(t *testing.T) {
	assert.Equal(t, "collector:4317", stripScheme("http://collector:4317"))
	assert.Equal(t, "collector:4317", stripScheme("collector:4317"))
}
