package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/auth"
)

// TracingMiddleware returns a middleware that traces HTTP requests using OpenTelemetry
// It wraps the official otelgin middleware and adds custom span attributes
func TracingMiddleware(serviceName string) gin.HandlerFunc {
	base := otelgin.Middleware(serviceName)

	return func(c *gin.Context) {
		base(c)

		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			if user, ok := auth.CurrentUser(c); ok {
				span.SetAttributes(attribute.String("user.id", user.ID.Hex()))
			}

			// Record Gin errors as span events
			if len(c.Errors) > 0 {
				for _, ginErr := range c.Errors {
					if ginErr.Err != nil {
						span.RecordError(ginErr.Err, trace.WithStackTrace(true))
						span.SetStatus(codes.Error, ginErr.Error())
					}
				}
			}
		}
	}
}
