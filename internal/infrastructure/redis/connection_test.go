package redis

import (
	"context"
	"net"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samvit-hq/guardrail/internal/config"
	"github.com/samvit-hq/guardrail/pkg/logger"
)

func configFor(t *testing.T, addr string) *config.RedisConfig {
	t.Helper()

	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	return &config.RedisConfig{Mode: string(ModeStandalone), Host: host, Port: port}
}

func TestConnection(t *testing.T) {
	ctx := context.Background()

	t.Run("should connect and answer pings", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		t.Cleanup(mr.Close)

		conn := NewConnection(configFor(t, mr.Addr()), logger.NewNoopLogger())
		require.NoError(t, conn.Connect())
		t.Cleanup(func() { _ = conn.Close() })

		assert.NotNil(t, conn.Client())
		assert.NoError(t, conn.Ping(ctx))
		assert.True(t, conn.IsConnected())
	})

	t.Run("should keep the client when the server is unreachable", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		addr := mr.Addr()
		mr.Close()

		conn := NewConnection(configFor(t, addr), logger.NewNoopLogger())
		err = conn.Connect()
		require.Error(t, err, "the startup ping cannot succeed")
		t.Cleanup(func() { _ = conn.Close() })

		assert.NotNil(t, conn.Client(), "the pooled client redials on use, so it must survive")
		assert.False(t, conn.IsConnected())
	})

	t.Run("should treat a repeated connect as a no-op", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		t.Cleanup(mr.Close)

		conn := NewConnection(configFor(t, mr.Addr()), logger.NewNoopLogger())
		require.NoError(t, conn.Connect())
		t.Cleanup(func() { _ = conn.Close() })

		first := conn.Client()
		require.NoError(t, conn.Connect())
		assert.Same(t, first, conn.Client())
	})

	t.Run("should reject an unsupported mode", func(t *testing.T) {
		conn := NewConnection(&config.RedisConfig{Mode: "campfire"}, logger.NewNoopLogger())
		err := conn.Connect()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported redis mode")
	})

	t.Run("should require cluster addresses in cluster mode", func(t *testing.T) {
		conn := NewConnection(&config.RedisConfig{Mode: string(ModeCluster)}, logger.NewNoopLogger())
		assert.Error(t, conn.Connect())
	})

	t.Run("should require a master name in sentinel mode", func(t *testing.T) {
		cfg := &config.RedisConfig{
			Mode:          string(ModeSentinel),
			SentinelAddrs: []string{"127.0.0.1:26379"},
		}
		conn := NewConnection(cfg, logger.NewNoopLogger())
		assert.Error(t, conn.Connect())
	})

	t.Run("should release the client on close", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		t.Cleanup(mr.Close)

		conn := NewConnection(configFor(t, mr.Addr()), logger.NewNoopLogger())
		require.NoError(t, conn.Connect())

		require.NoError(t, conn.Close())
		assert.Nil(t, conn.Client())
		assert.NoError(t, conn.Close(), "closing twice stays quiet")
	})
}

func TestHealthCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("should report pool details when healthy", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		t.Cleanup(mr.Close)

		conn := NewConnection(configFor(t, mr.Addr()), logger.NewNoopLogger())
		require.NoError(t, conn.Connect())
		t.Cleanup(func() { _ = conn.Close() })

		health, err := conn.HealthCheck(ctx)
		require.NoError(t, err)
		assert.Equal(t, true, health["connected"])
		assert.Contains(t, health, "latency_ms")
		assert.Contains(t, health, "total_conns")
	})

	t.Run("should surface the failure when the server is gone", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)

		conn := NewConnection(configFor(t, mr.Addr()), logger.NewNoopLogger())
		require.NoError(t, conn.Connect())
		t.Cleanup(func() { _ = conn.Close() })

		mr.Close()

		health, err := conn.HealthCheck(ctx)
		require.Error(t, err)
		assert.Equal(t, false, health["connected"])
		assert.Contains(t, health, "error")
	})

	t.Run("should refuse before connect", func(t *testing.T) {
		conn := NewConnection(&config.RedisConfig{}, logger.NewNoopLogger())

		_, err := conn.HealthCheck(ctx)
		assert.Error(t, err)
		assert.Error(t, conn.Ping(ctx))
	})
}
