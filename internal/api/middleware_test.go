package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	return recorder
}

func TestTracingMiddlewareInstallsSpanInUserContext(t *testing.T) {
	recorder := installRecorder(t)

	app := fiber.New()
	app.Use(tracingMiddleware())

	var sawSpan bool
	app.Get("/ping", func(c *fiber.Ctx) error {
		// Handlers read c.UserContext(); the span must be there.
		sawSpan = trace.SpanFromContext(c.UserContext()).SpanContext().IsValid()
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, sawSpan)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /ping", spans[0].Name())
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind())

	var status int64
	for _, attr := range spans[0].Attributes() {
		if string(attr.Key) == "http.status_code" {
			status = attr.Value.AsInt64()
		}
	}
	assert.Equal(t, int64(http.StatusOK), status)
}

func TestTracingMiddlewareMarksServerErrors(t *testing.T) {
	recorder := installRecorder(t)

	app := fiber.New()
	app.Use(tracingMiddleware())
	app.Get("/boom", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusInternalServerError).JSON(
			NewErrorResponse("Internal Server Error", ErrCodeInternalError),
		)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}
