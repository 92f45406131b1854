package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/samvit-hq/guardrail/internal/domain/models"
	"github.com/samvit-hq/guardrail/pkg/constants"
)

// decisionWriter stamps the rate limit headers just before the response is
// committed. gin flushes headers on the first body write, so stamping any
// later than WriteHeader/Write would silently drop them.
type decisionWriter struct {
	gin.ResponseWriter
	ctx     *gin.Context
	stamped bool
}

func (w *decisionWriter) WriteHeader(code int) {
	w.stamp()
	w.ResponseWriter.WriteHeader(code)
}

func (w *decisionWriter) Write(data []byte) (int, error) {
	w.stamp()
	return w.ResponseWriter.Write(data)
}

func (w *decisionWriter) WriteString(s string) (int, error) {
	w.stamp()
	return w.ResponseWriter.WriteString(s)
}

func (w *decisionWriter) stamp() {
	if w.stamped {
		return
	}
	w.stamped = true

	value, ok := w.ctx.Get(string(constants.ContextKeyDecision))
	if !ok {
		return
	}
	decision, ok := value.(models.Decision)
	if !ok {
		return
	}

	limit, remaining, reset := decision.HeaderValues()
	header := w.ResponseWriter.Header()
	header.Set(constants.HeaderRateLimitLimit, limit)
	header.Set(constants.HeaderRateLimitRemaining, remaining)
	header.Set(constants.HeaderRateLimitReset, reset)
}

// RateLimitHeaders annotates every response that passed through an admission
// gate with the X-RateLimit-* headers, successes and failures alike. Requests
// that never hit a gate are left untouched. Mount it before the gates so the
// wrapped writer is in place when handlers start writing.
func RateLimitHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer = &decisionWriter{ResponseWriter: c.Writer, ctx: c}
		c.Next()
	}
}
