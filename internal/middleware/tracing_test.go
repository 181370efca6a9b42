package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"murmur/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := observability.Tracer
	observability.Tracer = tp.Tracer("test")
	t.Cleanup(func() {
		observability.Tracer = prev
		_ = tp.Shutdown(t.Context())
	})
	return sr
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestResourceOf(t *testing.T) {
	tests := map[string]string{
		"/api/posts/:id":        "posts",
		"/api/users/:id/follow": "users",
		"/api/bookmarks":        "bookmarks",
		"/health/ready":         "health",
		"":                      "",
	}
	for route, want := range tests {
		assert.Equal(t, want, resourceOf(route), route)
	}
}

func TestTracingMiddleware(t *testing.T) {
	sr := recordSpans(t)

	app := fiber.New()
	app.Use(TracingMiddleware())
	app.Get("/api/posts/:id", func(c *fiber.Ctx) error {
		c.Locals("userID", uint(7))
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/api/broken", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusServiceUnavailable)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/posts/42", nil))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/broken", nil))
	require.NoError(t, err)
	_ = resp.Body.Close()

	spans := sr.Ended()
	require.Len(t, spans, 2)

	ok := spans[0]
	assert.Equal(t, "GET /api/posts/:id", ok.Name())
	attrs := spanAttrs(ok)
	assert.Equal(t, "posts", attrs[AttrResource].AsString())
	assert.Equal(t, int64(7), attrs[AttrViewerID].AsInt64())
	assert.Equal(t, "/api/posts/:id", attrs["http.route"].AsString())
	assert.Equal(t, int64(200), attrs["http.response.status_code"].AsInt64())
	assert.Equal(t, codes.Unset, ok.Status().Code)

	failed := spans[1]
	assert.Equal(t, "GET /api/broken", failed.Name())
	assert.Equal(t, codes.Error, failed.Status().Code)
	_, hasViewer := spanAttrs(failed)[AttrViewerID]
	assert.False(t, hasViewer)
}
