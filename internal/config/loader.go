package config

import (
	"context"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/samvit-hq/guardrail/pkg/constants"
	"github.com/samvit-hq/guardrail/pkg/errors"
	"github.com/samvit-hq/guardrail/pkg/logger"
)

// LoadConfig loads the configuration from file and environment variables.
// Environment variables use the GUARDRAIL_ prefix with dots replaced by
// underscores, e.g. GUARDRAIL_REDIS_HOST overrides redis.host.
func LoadConfig(log logger.Logger) (*Config, error) {
	cfg, _, err := load(log)
	return cfg, err
}

// LoadConfigAndWatch behaves like LoadConfig and additionally watches the
// config file for changes. Each valid change is re-unmarshalled, re-validated
// and handed to onChange; invalid changes are logged and dropped so a bad
// edit never takes down a running instance.
func LoadConfigAndWatch(log logger.Logger, onChange func(*Config)) (*Config, error) {
	cfg, v, err := load(log)
	if err != nil {
		return nil, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		ctx := context.Background()

		var next Config
		if err := v.Unmarshal(&next); err != nil {
			log.Warn(ctx, "ignoring config change: unmarshal failed",
				logger.String("file", e.Name), logger.Error(err))
			return
		}
		if err := next.Validate(); err != nil {
			log.Warn(ctx, "ignoring config change: validation failed",
				logger.String("file", e.Name), logger.Error(err))
			return
		}

		log.Info(ctx, "configuration reloaded",
			logger.String("file", e.Name), logger.String("op", e.Op.String()))
		if onChange != nil {
			onChange(&next)
		}
	})
	v.WatchConfig()

	return cfg, nil
}

func load(log logger.Logger) (*Config, *viper.Viper, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/guardrail/")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, nil, errors.WrapError(err, constants.ErrCodeInvalidConfig, "failed to read config file")
		}
		log.Info(context.Background(), "no config file found, using defaults and environment")
	} else {
		log.Info(context.Background(), "loaded config file",
			logger.String("file", v.ConfigFileUsed()))
	}

	v.SetEnvPrefix("GUARDRAIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, errors.WrapError(err, constants.ErrCodeInvalidConfig, "failed to unmarshal config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	return &cfg, v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", constants.DefaultShutdownTimeout)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("redis.mode", "standalone")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.max_idle_time", 5*time.Minute)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.min_retry_backoff", 8*time.Millisecond)
	v.SetDefault("redis.max_retry_backoff", 512*time.Millisecond)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.backend", "redis")
	v.SetDefault("rate_limit.default_limit", constants.DefaultRateLimit)
	v.SetDefault("rate_limit.default_window", constants.DefaultRateLimitWindow)
	v.SetDefault("rate_limit.strategy", constants.StrategySlidingWindow)
	v.SetDefault("rate_limit.key_prefix", constants.DefaultRateLimitKeyPrefix)
	v.SetDefault("rate_limit.per_user", false)

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.identity_revocation_ttl", constants.DefaultIdentityRevocationTTL)

	v.SetDefault("cache.key_prefix", constants.DefaultCacheKeyPrefix)
	v.SetDefault("cache.default_ttl", constants.DefaultCacheTTL)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_path", "stdout")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", constants.ServiceName)
	v.SetDefault("tracing.sampling_rate", 0.1)
	v.SetDefault("tracing.environment", "production")

	v.SetDefault("monitoring.metrics_enabled", true)
	v.SetDefault("monitoring.pprof_enabled", false)
}
