package handlers

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samvit-hq/guardrail/internal/config"
	redisinfra "github.com/samvit-hq/guardrail/internal/infrastructure/redis"
	"github.com/samvit-hq/guardrail/pkg/logger"
)

func newHealthFixture(t *testing.T) (*gin.Engine, *redisinfra.Connection, *miniredis.Miniredis) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	host, portStr, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	conn := redisinfra.NewConnection(&config.RedisConfig{Mode: "standalone", Host: host, Port: port}, logger.NewNoopLogger())
	require.NoError(t, conn.Connect())
	t.Cleanup(func() { _ = conn.Close() })

	handler := NewHealthHandler(conn, logger.NewNoopLogger())
	router := gin.New()
	router.GET("/health/live", handler.Liveness)
	router.GET("/health/ready", handler.Readiness)

	return router, conn, mr
}

func TestLiveness(t *testing.T) {
	t.Run("should always answer alive", func(t *testing.T) {
		router, _, mr := newHealthFixture(t)
		mr.Close()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/health/live", nil))

		require.Equal(t, http.StatusOK, w.Code,
			"a store outage must not make the orchestrator restart healthy instances")
		assert.Equal(t, "alive", decodeBody(t, w)["status"])
	})
}

func TestReadiness(t *testing.T) {
	t.Run("should report ready with store details", func(t *testing.T) {
		router, _, _ := newHealthFixture(t)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/health/ready", nil))

		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "ready", body["status"])

		checks, ok := body["checks"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, true, checks["connected"])
	})

	t.Run("should degrade when the store is gone", func(t *testing.T) {
		router, _, mr := newHealthFixture(t)
		mr.Close()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/health/ready", nil))

		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "degraded", body["status"])

		checks, ok := body["checks"].(map[string]interface{})
		require.True(t, ok)
		assert.Contains(t, checks["redis"], "error")
	})
}
