package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	prev := Tracer
	Tracer = tp.Tracer("test")
	t.Cleanup(func() { Tracer = prev })
	return exporter
}

func TestContextHelpersRecordOnActiveSpan(t *testing.T) {
	exporter := setupTestTracer(t)

	span, ctx := NewSpan(context.Background(), "moderation.execute_bulk")
	AddTraceAttributesToContext(ctx, attribute.String("moderation.batch_id", "b-1"))
	RecordErrorInContext(ctx, errors.New("batch rolled back"))
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "moderation.execute_bulk", spans[0].Name)
	assert.Contains(t, spans[0].Attributes, attribute.String("moderation.batch_id", "b-1"))
	require.NotEmpty(t, spans[0].Events)
	assert.Equal(t, "exception", spans[0].Events[0].Name)
}

func TestContextHelpersTolerateNoSpan(t *testing.T) {
	// Outside any span these are no-ops on the noop span.
	ctx := context.Background()
	AddTraceAttributesToContext(ctx, attribute.String("k", "v"))
	RecordErrorInContext(ctx, errors.New("ignored"))
}
