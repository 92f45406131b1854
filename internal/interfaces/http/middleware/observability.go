package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samvit-hq/guardrail/internal/infrastructure/monitoring"
	"github.com/samvit-hq/guardrail/internal/infrastructure/ratelimit"
	"github.com/samvit-hq/guardrail/pkg/constants"
	"github.com/samvit-hq/guardrail/pkg/logger"
)

// RequestID ensures every request carries an identifier, honouring one sent
// by the caller so identifiers survive across service hops. The identifier is
// placed in the request context for log correlation and echoed back in the
// response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Request.Header.Get(constants.HeaderXRequestID)
		if id == "" {
			id = uuid.NewString()
		}

		ctx := context.WithValue(c.Request.Context(), constants.ContextKeyRequestID, id)
		c.Request = c.Request.WithContext(ctx)
		c.Set(string(constants.ContextKeyRequestID), id)
		c.Header(constants.HeaderXRequestID, id)

		c.Next()
	}
}

// Observability starts a trace span per request, records the HTTP metrics
// and writes one access log line when the request completes. Metrics are
// labeled with the route template rather than the raw path to keep
// cardinality bounded.
func Observability(tracing *monitoring.TracingManager, metrics *monitoring.Metrics, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		ctx, span := tracing.StartSpan(c.Request.Context(), c.Request.Method+" "+c.FullPath())
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = "not_found"
		}

		metrics.RecordHTTPRequest(c.Request.Method, path, strconv.Itoa(status), duration.Seconds())

		span.SetAttributes(
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.path", path),
			attribute.Int("http.status_code", status),
			attribute.String("http.client_ip", ratelimit.ClientIP(c.Request)),
		)

		fields := []logger.Field{
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", status),
			logger.Duration("duration", duration),
			logger.String("client_ip", ratelimit.ClientIP(c.Request)),
		}
		if status >= http.StatusInternalServerError {
			log.Error(ctx, "request failed", nil, fields...)
		} else {
			log.Info(ctx, "request completed", fields...)
		}
	}
}
