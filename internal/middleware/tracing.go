package middleware

import (
	"strings"

	"murmur/internal/observability"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// Span attributes describing who and what a request touched.
const (
	AttrResource = attribute.Key("murmur.resource")
	AttrViewerID = attribute.Key("murmur.viewer_id")
)

// resourceOf returns the API resource a route belongs to, "posts" for
// /api/posts/:id.
func resourceOf(route string) string {
	route = strings.TrimPrefix(route, "/api")
	route = strings.TrimPrefix(route, "/")
	resource, _, _ := strings.Cut(route, "/")
	return resource
}

// TracingMiddleware starts a server span per request, continuing any W3C
// trace context in the headers. Once routing has run the span is named
// after the matched route and tagged with the resource and the viewer.
func TracingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := otel.GetTextMapPropagator().Extract(c.UserContext(), propagation.HeaderCarrier(c.GetReqHeaders()))

		method := c.Method()
		ctx, span := observability.Tracer.Start(ctx, method+" "+c.Path(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(method),
				semconv.URLPath(c.Path()),
				semconv.ClientAddress(c.IP()),
				semconv.UserAgentOriginal(c.Get(fiber.HeaderUserAgent)),
			),
		)
		defer span.End()

		traceID := span.SpanContext().TraceID().String()
		c.Locals("traceID", traceID)
		c.Set("X-Trace-ID", traceID)
		if rid, ok := c.Locals("requestid").(string); ok {
			span.SetAttributes(attribute.String("request.id", rid))
		}
		c.SetUserContext(ctx)

		err := c.Next()

		if route := c.Route().Path; route != "" && route != "/" {
			span.SetName(method + " " + route)
			span.SetAttributes(semconv.HTTPRoute(route), AttrResource.String(resourceOf(route)))
		}
		if uid, ok := c.Locals("userID").(uint); ok && uid != 0 {
			span.SetAttributes(AttrViewerID.Int64(int64(uid)))
		}

		status := c.Response().StatusCode()
		span.SetAttributes(semconv.HTTPResponseStatusCode(status))
		switch {
		case err != nil:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		case status >= fiber.StatusInternalServerError:
			span.SetStatus(codes.Error, fiber.ErrInternalServerError.Message)
		}
		return err
	}
}
