package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samvit-hq/guardrail/internal/config"
	redisinfra "github.com/samvit-hq/guardrail/internal/infrastructure/redis"
	"github.com/samvit-hq/guardrail/pkg/logger"
)

func newCacheFixture(t *testing.T) (*gin.Engine, *redisinfra.Cache, *miniredis.Miniredis) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache := redisinfra.NewCache(client, &config.CacheConfig{}, logger.NewNoopLogger())
	handler := NewCacheHandler(cache, logger.NewNoopLogger())

	router := gin.New()
	router.GET("/admin/cache/stats", handler.Stats)
	router.POST("/admin/cache/purge", handler.Purge)

	return router, cache, mr
}

func TestCacheStatsEndpoint(t *testing.T) {
	t.Run("should report hit and miss counters", func(t *testing.T) {
		router, cache, _ := newCacheFixture(t)
		ctx := context.Background()

		require.True(t, cache.Set(ctx, "employee:e-1", "cached", time.Minute))
		var out string
		require.True(t, cache.Get(ctx, "employee:e-1", &out))
		require.False(t, cache.Get(ctx, "employee:e-404", &out))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/admin/cache/stats", nil))

		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, float64(1), body["hits"])
		assert.Equal(t, float64(1), body["misses"])
		assert.InDelta(t, 0.5, body["hit_rate"], 0.001)
	})
}

func TestCachePurgeEndpoint(t *testing.T) {
	ctx := context.Background()

	t.Run("should delete the entries matching the pattern", func(t *testing.T) {
		router, cache, _ := newCacheFixture(t)

		require.True(t, cache.Set(ctx, "employee:e-1", "a", time.Minute))
		require.True(t, cache.Set(ctx, "employee:e-2", "b", time.Minute))
		require.True(t, cache.Set(ctx, "payslip:p-1", "c", time.Minute))

		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/admin/cache/purge",
			bytes.NewBufferString(`{"pattern": "employee:*"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(2), decodeBody(t, w)["deleted"])
		assert.False(t, cache.Exists(ctx, "employee:e-1"))
		assert.True(t, cache.Exists(ctx, "payslip:p-1"))
	})

	t.Run("should reject a purge without a pattern", func(t *testing.T) {
		router, _, _ := newCacheFixture(t)

		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/admin/cache/purge", bytes.NewBufferString(`{}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
