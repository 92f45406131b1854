package config

import (
	"time"

	"github.com/samvit-hq/guardrail/pkg/constants"
	"github.com/samvit-hq/guardrail/pkg/errors"
)

// Config holds the application's configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Redis      RedisConfig      `mapstructure:"redis"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Log        LogConfig        `mapstructure:"log"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

type RedisConfig struct {
	// Mode selects the deployment topology: standalone, cluster or sentinel.
	Mode     string `mapstructure:"mode"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	ClusterAddrs []string `mapstructure:"cluster_addrs"`

	SentinelAddrs  []string `mapstructure:"sentinel_addrs"`
	SentinelMaster string   `mapstructure:"sentinel_master"`

	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	MaxIdleTime  time.Duration `mapstructure:"max_idle_time"`

	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	MaxRetries      int           `mapstructure:"max_retries"`
	MinRetryBackoff time.Duration `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff time.Duration `mapstructure:"max_retry_backoff"`

	EnableTLS          bool `mapstructure:"enable_tls"`
	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify"`
}

type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Backend selects the limiter implementation: "redis" for the shared
	// store, "local" for the in-process fallback.
	Backend string `mapstructure:"backend"`

	DefaultLimit  int           `mapstructure:"default_limit"`
	DefaultWindow time.Duration `mapstructure:"default_window"`
	Strategy      string        `mapstructure:"strategy"`
	KeyPrefix     string        `mapstructure:"key_prefix"`
	PerUser       bool          `mapstructure:"per_user"`
}

type AuthConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`

	// IdentityRevocationTTL bounds bulk revocation markers. It must cover
	// the longest token lifetime in circulation.
	IdentityRevocationTTL time.Duration `mapstructure:"identity_revocation_ttl"`
}

type CacheConfig struct {
	KeyPrefix  string        `mapstructure:"key_prefix"`
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	ServiceName    string  `mapstructure:"service_name"`
	SamplingRate   float64 `mapstructure:"sampling_rate"`
	Environment    string  `mapstructure:"environment"`
}

type MonitoringConfig struct {
	MetricsEnabled bool `mapstructure:"metrics_enabled"`
	PprofEnabled   bool `mapstructure:"pprof_enabled"`
}

// Validate checks for configuration values that would make the service
// unsafe to start. Values that are merely odd get clamped where they are
// consumed, not here.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.ErrInvalidConfig("server.port", "must be between 1 and 65535")
	}

	switch c.Redis.Mode {
	case "standalone", "cluster", "sentinel":
	default:
		return errors.ErrInvalidConfig("redis.mode", "must be standalone, cluster or sentinel")
	}

	if c.Redis.Mode == "cluster" && len(c.Redis.ClusterAddrs) == 0 {
		return errors.ErrInvalidConfig("redis.cluster_addrs", "required in cluster mode")
	}
	if c.Redis.Mode == "sentinel" {
		if len(c.Redis.SentinelAddrs) == 0 {
			return errors.ErrInvalidConfig("redis.sentinel_addrs", "required in sentinel mode")
		}
		if c.Redis.SentinelMaster == "" {
			return errors.ErrInvalidConfig("redis.sentinel_master", "required in sentinel mode")
		}
	}

	switch c.RateLimit.Backend {
	case "redis", "local":
	default:
		return errors.ErrInvalidConfig("rate_limit.backend", "must be redis or local")
	}

	switch c.RateLimit.Strategy {
	case constants.StrategySlidingWindow, constants.StrategyTokenBucket:
	default:
		return errors.ErrInvalidConfig("rate_limit.strategy", "must be sliding_window or token_bucket")
	}

	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return errors.ErrInvalidConfig("auth.jwt_secret", "required when auth is enabled")
	}

	if c.Tracing.Enabled && c.Tracing.JaegerEndpoint == "" {
		return errors.ErrInvalidConfig("tracing.jaeger_endpoint", "required when tracing is enabled")
	}

	return nil
}
