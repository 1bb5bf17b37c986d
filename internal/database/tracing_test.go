package database

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newRecordingTracer() (*queryTracer, *tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	return &queryTracer{tracer: provider.Tracer("test")}, recorder, provider
}

func TestQueryTracerEmitsClientSpan(t *testing.T) {
	qt, recorder, _ := newRecordingTracer()

	ctx := qt.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "SELECT 1"})
	qt.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{})

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "postgresql.query", spans[0].Name())
	assert.Equal(t, trace.SpanKindClient, spans[0].SpanKind())

	var statement string
	for _, attr := range spans[0].Attributes() {
		if string(attr.Key) == "db.statement" {
			statement = attr.Value.AsString()
		}
	}
	assert.Equal(t, "SELECT 1", statement)
}

func TestQueryTracerRecordsError(t *testing.T) {
	qt, recorder, _ := newRecordingTracer()

	ctx := qt.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "SELECT 1"})
	qt.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{Err: errors.New("connection reset")})

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestQueryTracerParentsUnderRequestSpan(t *testing.T) {
	qt, recorder, provider := newRecordingTracer()

	ctx, parent := provider.Tracer("test").Start(context.Background(), "GET /v1/listings")

	queryCtx := qt.TraceQueryStart(ctx, nil, pgx.TraceQueryStartData{SQL: "SELECT 1"})
	qt.TraceQueryEnd(queryCtx, nil, pgx.TraceQueryEndData{})
	parent.End()

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, parent.SpanContext().SpanID(), spans[0].Parent().SpanID())
	assert.Equal(t, parent.SpanContext().TraceID(), spans[0].SpanContext().TraceID())
}
