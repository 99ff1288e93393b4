package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracing opens a server span per request through otelgin. The span lands
// on the request context, so later log and database calls join the trace.
// A nil provider disables the middleware.
func Tracing(serviceName string, tp trace.TracerProvider) gin.HandlerFunc {
	if tp == nil {
		return passThrough
	}
	return otelgin.Middleware(serviceName, otelgin.WithTracerProvider(tp))
}

// SpanAttributes adds the request id and, once JWTAuth has run, the
// authenticated email to the current span. It marks 4xx/5xx responses as errors.
func SpanAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}
		if id := GetRequestID(c); id != "" {
			span.SetAttributes(attribute.String("request_id", id))
		}

		c.Next()

		if email := c.GetString(JWTEmailKey); email != "" {
			span.SetAttributes(attribute.String("enduser.id", email))
		}
		if status := c.Writer.Status(); status >= http.StatusBadRequest {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
