package mhttp

import (
	"social-im/internal/pkg/mtrace"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

// Trace opens a server span per request, continuing a remote trace when the
// caller propagated one in the headers.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Request.URL.Path
		propagator := otel.GetTextMapPropagator()
		ctx := propagator.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := mtrace.StartSpan(ctx, name,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(semconv.HTTPServerAttributesFromHTTPRequest(mtrace.TraceName, name, c.Request)...))
		defer mtrace.EndSpan(span)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
