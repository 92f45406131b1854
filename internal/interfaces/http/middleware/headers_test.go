package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/samvit-hq/guardrail/internal/domain/models"
	"github.com/samvit-hq/guardrail/pkg/constants"
)

func withDecision(d models.Decision) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(string(constants.ContextKeyDecision), d)
		c.Next()
	}
}

func TestRateLimitHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)

	decision := models.Decision{Allowed: true, Limit: 10, Remaining: 3, ResetAt: 1700000000}

	t.Run("should stamp the recorded decision onto the response", func(t *testing.T) {
		router := gin.New()
		router.Use(RateLimitHeaders(), withDecision(decision))
		router.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/ping", nil))

		assert.Equal(t, "10", w.Header().Get(constants.HeaderRateLimitLimit))
		assert.Equal(t, "3", w.Header().Get(constants.HeaderRateLimitRemaining))
		assert.Equal(t, "1700000000", w.Header().Get(constants.HeaderRateLimitReset))
	})

	t.Run("should leave responses without a decision untouched", func(t *testing.T) {
		router := gin.New()
		router.Use(RateLimitHeaders())
		router.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/ping", nil))

		assert.Empty(t, w.Header().Get(constants.HeaderRateLimitLimit))
		assert.Empty(t, w.Header().Get(constants.HeaderRateLimitRemaining))
		assert.Empty(t, w.Header().Get(constants.HeaderRateLimitReset))
	})

	t.Run("should stamp when the handler only sets a status", func(t *testing.T) {
		router := gin.New()
		router.Use(RateLimitHeaders(), withDecision(decision))
		router.DELETE("/session", func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("DELETE", "/session", nil))

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "10", w.Header().Get(constants.HeaderRateLimitLimit))
	})

	t.Run("should override values a handler set by hand", func(t *testing.T) {
		router := gin.New()
		router.Use(RateLimitHeaders(), withDecision(decision))
		router.GET("/ping", func(c *gin.Context) {
			c.Header(constants.HeaderRateLimitLimit, "999")
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/ping", nil))

		assert.Equal(t, "10", w.Header().Get(constants.HeaderRateLimitLimit),
			"the recorded decision is the single source of truth")
	})
}
