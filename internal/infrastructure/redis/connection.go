// Package redis provides the Redis-backed infrastructure of the guardrail
// service: connection management, the token revocation store and the shared
// application cache. It supports standalone, cluster and sentinel deployment
// modes with connection pooling.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/samvit-hq/guardrail/internal/config"
	"github.com/samvit-hq/guardrail/pkg/logger"
)

// ConnectionMode defines the Redis deployment mode.
type ConnectionMode string

const (
	// ModeStandalone represents a single Redis instance.
	ModeStandalone ConnectionMode = "standalone"
	// ModeCluster represents Redis cluster mode.
	ModeCluster ConnectionMode = "cluster"
	// ModeSentinel represents Redis sentinel mode for high availability.
	ModeSentinel ConnectionMode = "sentinel"
)

// Connection manages the Redis client lifecycle and health monitoring.
//
// Connect builds the client and verifies connectivity, but an unreachable
// server does not discard the client: go-redis redials on use, so a service
// started during an outage heals on its own. Callers that need a hard
// liveness answer use Ping or IsConnected.
type Connection struct {
	config *config.RedisConfig
	logger logger.Logger

	mu     sync.RWMutex
	client redis.UniversalClient
}

// NewConnection creates a new Redis connection manager instance.
//
// Parameters:
//   - cfg: Redis configuration
//   - log: Logger instance
//
// Returns:
//   - *Connection: Initialized connection manager
func NewConnection(cfg *config.RedisConfig, log logger.Logger) *Connection {
	return &Connection{
		config: cfg,
		logger: log.WithComponent("redis"),
	}
}

// Connect builds the Redis client for the configured mode and verifies
// connectivity with a ping. Calling it again on an established connection is
// a no-op.
//
// Returns:
//   - error: Construction error, or the ping error when the server is
//     currently unreachable. The client stays usable in the latter case.
func (c *Connection) Connect() error {
	c.mu.Lock()
	if c.client != nil {
		c.mu.Unlock()
		c.logger.Warn(context.Background(), "redis connection already initialized")
		return nil
	}

	c.setDefaults()

	var client redis.UniversalClient
	var err error

	switch ConnectionMode(c.config.Mode) {
	case ModeStandalone:
		client, err = c.connectStandalone()
	case ModeCluster:
		client, err = c.connectCluster()
	case ModeSentinel:
		client, err = c.connectSentinel()
	default:
		c.mu.Unlock()
		return fmt.Errorf("unsupported redis mode: %s", c.config.Mode)
	}

	if err != nil {
		c.mu.Unlock()
		c.logger.Error(context.Background(), "failed to build redis client", err,
			logger.String("mode", c.config.Mode),
		)
		return fmt.Errorf("redis connection failed: %w", err)
	}

	c.client = client
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		c.logger.Warn(ctx, "redis unreachable at startup, continuing degraded",
			logger.String("mode", c.config.Mode),
			logger.Error(err),
		)
		return fmt.Errorf("redis ping failed: %w", err)
	}

	c.logger.Info(ctx, "redis connection established",
		logger.String("mode", c.config.Mode),
		logger.Int("pool_size", c.config.PoolSize),
	)

	return nil
}

// connectStandalone creates a standalone Redis client.
func (c *Connection) connectStandalone() (redis.UniversalClient, error) {
	addr := fmt.Sprintf("%s:%d", c.config.Host, c.config.Port)

	opts := &redis.Options{
		Addr:     addr,
		Password: c.config.Password,
		DB:       c.config.DB,

		PoolSize:        c.config.PoolSize,
		MinIdleConns:    c.config.MinIdleConns,
		ConnMaxIdleTime: c.config.MaxIdleTime,

		DialTimeout:  c.config.DialTimeout,
		ReadTimeout:  c.config.ReadTimeout,
		WriteTimeout: c.config.WriteTimeout,

		MaxRetries:      c.config.MaxRetries,
		MinRetryBackoff: c.config.MinRetryBackoff,
		MaxRetryBackoff: c.config.MaxRetryBackoff,
	}

	if c.config.EnableTLS {
		opts.TLSConfig = c.buildTLSConfig()
	}

	c.logger.Info(context.Background(), "connecting to redis standalone",
		logger.String("addr", addr),
		logger.Int("db", c.config.DB),
	)

	return redis.NewClient(opts), nil
}

// connectCluster creates a Redis cluster client.
func (c *Connection) connectCluster() (redis.UniversalClient, error) {
	if len(c.config.ClusterAddrs) == 0 {
		return nil, fmt.Errorf("cluster addresses not configured")
	}

	opts := &redis.ClusterOptions{
		Addrs:    c.config.ClusterAddrs,
		Password: c.config.Password,

		PoolSize:        c.config.PoolSize,
		MinIdleConns:    c.config.MinIdleConns,
		ConnMaxIdleTime: c.config.MaxIdleTime,

		DialTimeout:  c.config.DialTimeout,
		ReadTimeout:  c.config.ReadTimeout,
		WriteTimeout: c.config.WriteTimeout,

		MaxRetries:      c.config.MaxRetries,
		MinRetryBackoff: c.config.MinRetryBackoff,
		MaxRetryBackoff: c.config.MaxRetryBackoff,
	}

	if c.config.EnableTLS {
		opts.TLSConfig = c.buildTLSConfig()
	}

	c.logger.Info(context.Background(), "connecting to redis cluster",
		logger.Any("addrs", c.config.ClusterAddrs),
	)

	return redis.NewClusterClient(opts), nil
}

// connectSentinel creates a Redis sentinel client for high availability.
func (c *Connection) connectSentinel() (redis.UniversalClient, error) {
	if len(c.config.SentinelAddrs) == 0 {
		return nil, fmt.Errorf("sentinel addresses not configured")
	}
	if c.config.SentinelMaster == "" {
		return nil, fmt.Errorf("sentinel master name not configured")
	}

	opts := &redis.FailoverOptions{
		MasterName:    c.config.SentinelMaster,
		SentinelAddrs: c.config.SentinelAddrs,
		Password:      c.config.Password,
		DB:            c.config.DB,

		PoolSize:        c.config.PoolSize,
		MinIdleConns:    c.config.MinIdleConns,
		ConnMaxIdleTime: c.config.MaxIdleTime,

		DialTimeout:  c.config.DialTimeout,
		ReadTimeout:  c.config.ReadTimeout,
		WriteTimeout: c.config.WriteTimeout,

		MaxRetries:      c.config.MaxRetries,
		MinRetryBackoff: c.config.MinRetryBackoff,
		MaxRetryBackoff: c.config.MaxRetryBackoff,
	}

	if c.config.EnableTLS {
		opts.TLSConfig = c.buildTLSConfig()
	}

	c.logger.Info(context.Background(), "connecting to redis sentinel",
		logger.String("master", c.config.SentinelMaster),
		logger.Any("sentinels", c.config.SentinelAddrs),
	)

	return redis.NewFailoverClient(opts), nil
}

// buildTLSConfig constructs the TLS configuration for secure connections.
func (c *Connection) buildTLSConfig() *tls.Config {
	return &tls.Config{
		InsecureSkipVerify: c.config.InsecureSkipVerify,
	}
}

// setDefaults fills configuration values not set by the loader. Protects
// directly constructed configs, e.g. in tests.
func (c *Connection) setDefaults() {
	if c.config.Mode == "" {
		c.config.Mode = string(ModeStandalone)
	}
	if c.config.Host == "" {
		c.config.Host = "localhost"
	}
	if c.config.Port == 0 {
		c.config.Port = 6379
	}
	if c.config.PoolSize == 0 {
		c.config.PoolSize = 10
	}
	if c.config.MinIdleConns == 0 {
		c.config.MinIdleConns = 2
	}
	if c.config.MaxIdleTime == 0 {
		c.config.MaxIdleTime = 5 * time.Minute
	}
	if c.config.DialTimeout == 0 {
		c.config.DialTimeout = 5 * time.Second
	}
	if c.config.ReadTimeout == 0 {
		c.config.ReadTimeout = 3 * time.Second
	}
	if c.config.WriteTimeout == 0 {
		c.config.WriteTimeout = 3 * time.Second
	}
	if c.config.MaxRetries == 0 {
		c.config.MaxRetries = 3
	}
	if c.config.MinRetryBackoff == 0 {
		c.config.MinRetryBackoff = 8 * time.Millisecond
	}
	if c.config.MaxRetryBackoff == 0 {
		c.config.MaxRetryBackoff = 512 * time.Millisecond
	}
}

// Client returns the Redis client instance, or nil before Connect has built
// one.
func (c *Connection) Client() redis.UniversalClient {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

// Ping checks Redis server connectivity.
//
// Parameters:
//   - ctx: Context for timeout control
//
// Returns:
//   - error: Connectivity check error if any
func (c *Connection) Ping(ctx context.Context) error {
	client := c.Client()
	if client == nil {
		return fmt.Errorf("redis connection not initialized")
	}

	if err := client.Ping(ctx).Err(); err != nil {
		c.logger.Error(ctx, "redis ping failed", err)
		return err
	}

	return nil
}

// HealthCheck performs a comprehensive health check on the Redis connection.
//
// Parameters:
//   - ctx: Context for timeout control
//
// Returns:
//   - map[string]interface{}: Health status details
//   - error: Health check error if any
func (c *Connection) HealthCheck(ctx context.Context) (map[string]interface{}, error) {
	client := c.Client()
	if client == nil {
		return nil, fmt.Errorf("redis connection not initialized")
	}

	health := make(map[string]interface{})

	start := time.Now()
	err := client.Ping(ctx).Err()
	latency := time.Since(start)

	health["connected"] = err == nil
	health["latency_ms"] = latency.Milliseconds()

	if err != nil {
		health["error"] = err.Error()
		return health, err
	}

	stats := client.PoolStats()
	health["pool_hits"] = stats.Hits
	health["pool_misses"] = stats.Misses
	health["pool_timeouts"] = stats.Timeouts
	health["total_conns"] = stats.TotalConns
	health["idle_conns"] = stats.IdleConns
	health["stale_conns"] = stats.StaleConns

	c.logger.Debug(ctx, "redis health check completed",
		logger.Any("connected", health["connected"]),
		logger.Any("latency_ms", health["latency_ms"]),
	)

	return health, nil
}

// IsConnected reports whether the Redis server currently answers pings.
func (c *Connection) IsConnected() bool {
	client := c.Client()
	if client == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return client.Ping(ctx).Err() == nil
}

// Close gracefully closes the Redis connection and releases resources.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		c.logger.Warn(context.Background(), "redis connection not initialized, nothing to close")
		return nil
	}

	if err := c.client.Close(); err != nil {
		c.logger.Error(context.Background(), "failed to close redis connection", err)
		return err
	}

	c.client = nil
	c.logger.Info(context.Background(), "redis connection closed")
	return nil
}
