package redis

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/samvit-hq/guardrail/internal/config"
	"github.com/samvit-hq/guardrail/internal/domain/service"
	"github.com/samvit-hq/guardrail/pkg/constants"
	"github.com/samvit-hq/guardrail/pkg/logger"
	"github.com/samvit-hq/guardrail/pkg/utils"
)

var _ service.Cache = (*Cache)(nil)

// Cache is the shared application cache. Values are stored as JSON under
// prefixed keys; oversized keys are replaced by a short hash so arbitrary
// caller-built keys cannot blow up the keyspace.
//
// All operations degrade on store failure: reads miss and writes report
// false. Callers treat the cache as an optimization, never as the source of
// truth.
type Cache struct {
	client     redis.UniversalClient
	logger     logger.Logger
	prefix     string
	defaultTTL time.Duration

	group  singleflight.Group
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCache creates a cache on top of the given client.
func NewCache(client redis.UniversalClient, cfg *config.CacheConfig, log logger.Logger) *Cache {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = constants.DefaultCacheKeyPrefix
	}
	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = constants.DefaultCacheTTL
	}

	return &Cache{
		client:     client,
		logger:     log.WithComponent("cache"),
		prefix:     prefix,
		defaultTTL: ttl,
	}
}

// buildKey namespaces a caller key. Keys beyond the length limit are hashed
// to a fixed-size form.
func (c *Cache) buildKey(key string) string {
	if len(key) > constants.LongCacheKeyLimit {
		key = utils.ShortHash(key, 16)
	}
	return c.prefix + ":" + key
}

// Get loads the value under key into dest and reports whether it was found.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) bool {
	data, err := c.client.Get(ctx, c.buildKey(key)).Bytes()
	if err == redis.Nil {
		c.misses.Add(1)
		return false
	}
	if err != nil {
		appErr := ClassifyError(err)
		c.logger.Warn(ctx, "cache read failed",
			logger.String("code", string(appErr.Code())),
			logger.Error(err),
		)
		c.misses.Add(1)
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Warn(ctx, "cache entry is not valid JSON, treating as miss",
			logger.String("key", key),
			logger.Error(err),
		)
		c.misses.Add(1)
		return false
	}

	c.hits.Add(1)
	return true
}

// Set stores value under key for ttl. A non-positive ttl applies the default.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) bool {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn(ctx, "cache value is not serializable",
			logger.String("key", key),
			logger.Error(err),
		)
		return false
	}
	return c.setRaw(ctx, key, data, ttl)
}

func (c *Cache) setRaw(ctx context.Context, key string, data []byte, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	if err := c.client.Set(ctx, c.buildKey(key), data, ttl).Err(); err != nil {
		appErr := ClassifyError(err)
		c.logger.Warn(ctx, "cache write failed",
			logger.String("code", string(appErr.Code())),
			logger.Error(err),
		)
		return false
	}
	return true
}

// Delete removes a single key.
func (c *Cache) Delete(ctx context.Context, key string) bool {
	if err := c.client.Del(ctx, c.buildKey(key)).Err(); err != nil {
		appErr := ClassifyError(err)
		c.logger.Warn(ctx, "cache delete failed",
			logger.String("code", string(appErr.Code())),
			logger.Error(err),
		)
		return false
	}
	return true
}

// DeletePattern removes every key matching a glob pattern and returns how
// many were deleted. The scan is incremental so large keyspaces never block
// the store.
func (c *Cache) DeletePattern(ctx context.Context, pattern string) int {
	match := c.prefix + ":" + pattern

	var deleted int
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, match, constants.CacheScanCount).Result()
		if err != nil {
			appErr := ClassifyError(err)
			c.logger.Warn(ctx, "cache pattern scan failed",
				logger.String("code", string(appErr.Code())),
				logger.String("pattern", pattern),
				logger.Error(err),
			)
			return deleted
		}

		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				appErr := ClassifyError(err)
				c.logger.Warn(ctx, "cache pattern delete failed",
					logger.String("code", string(appErr.Code())),
					logger.Error(err),
				)
				return deleted
			}
			deleted += int(n)
		}

		cursor = next
		if cursor == 0 {
			return deleted
		}
	}
}

// Exists reports whether key is present.
func (c *Cache) Exists(ctx context.Context, key string) bool {
	n, err := c.client.Exists(ctx, c.buildKey(key)).Result()
	if err != nil {
		appErr := ClassifyError(err)
		c.logger.Warn(ctx, "cache existence check failed",
			logger.String("code", string(appErr.Code())),
			logger.Error(err),
		)
		return false
	}
	return n > 0
}

// GetOrSet loads the value under key into dest, invoking load on a miss and
// caching its result. Concurrent misses for the same key collapse into one
// load; load errors propagate without poisoning the cache.
func (c *Cache) GetOrSet(ctx context.Context, key string, ttl time.Duration, load func(ctx context.Context) (interface{}, error), dest interface{}) error {
	var raw json.RawMessage
	if c.Get(ctx, key, &raw) {
		return json.Unmarshal(raw, dest)
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// A concurrent flight may have filled the entry while this caller
		// queued behind it.
		var cached json.RawMessage
		if c.Get(ctx, key, &cached) {
			return []byte(cached), nil
		}

		value, err := load(ctx)
		if err != nil {
			return nil, err
		}

		data, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}

		c.setRaw(ctx, key, data, ttl)
		return data, nil
	})
	if err != nil {
		return err
	}

	return json.Unmarshal(v.([]byte), dest)
}

// Increment atomically adds delta to the counter under key and returns the
// new value.
func (c *Cache) Increment(ctx context.Context, key string, delta int64) (int64, bool) {
	value, err := c.client.IncrBy(ctx, c.buildKey(key), delta).Result()
	if err != nil {
		appErr := ClassifyError(err)
		c.logger.Warn(ctx, "cache increment failed",
			logger.String("code", string(appErr.Code())),
			logger.String("key", key),
			logger.Error(err),
		)
		return 0, false
	}
	return value, true
}

// TTL returns the remaining lifetime of key. Keys without an expiry or not
// present report false.
func (c *Cache) TTL(ctx context.Context, key string) (time.Duration, bool) {
	d, err := c.client.TTL(ctx, c.buildKey(key)).Result()
	if err != nil {
		appErr := ClassifyError(err)
		c.logger.Warn(ctx, "cache ttl lookup failed",
			logger.String("code", string(appErr.Code())),
			logger.Error(err),
		)
		return 0, false
	}
	if d < 0 {
		return 0, false
	}
	return d, true
}

// SetMany stores several values under one ttl in a single round trip.
func (c *Cache) SetMany(ctx context.Context, values map[string]interface{}, ttl time.Duration) bool {
	if len(values) == 0 {
		return true
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	pipe := c.client.Pipeline()
	for key, value := range values {
		data, err := json.Marshal(value)
		if err != nil {
			c.logger.Warn(ctx, "cache value is not serializable",
				logger.String("key", key),
				logger.Error(err),
			)
			return false
		}
		pipe.Set(ctx, c.buildKey(key), data, ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		appErr := ClassifyError(err)
		c.logger.Warn(ctx, "cache bulk write failed",
			logger.String("code", string(appErr.Code())),
			logger.Error(err),
		)
		return false
	}
	return true
}

// GetMany fetches several keys in one MGET. Missing keys are absent from the
// result.
func (c *Cache) GetMany(ctx context.Context, keys []string) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(keys))
	if len(keys) == 0 {
		return out
	}

	fullKeys := make([]string, len(keys))
	for i, key := range keys {
		fullKeys[i] = c.buildKey(key)
	}

	values, err := c.client.MGet(ctx, fullKeys...).Result()
	if err != nil {
		appErr := ClassifyError(err)
		c.logger.Warn(ctx, "cache bulk read failed",
			logger.String("code", string(appErr.Code())),
			logger.Error(err),
		)
		c.misses.Add(uint64(len(keys)))
		return out
	}

	for i, value := range values {
		if value == nil {
			c.misses.Add(1)
			continue
		}
		if s, ok := value.(string); ok {
			out[keys[i]] = json.RawMessage(s)
			c.hits.Add(1)
		}
	}
	return out
}

// Stats reports hit and miss counters since the cache was created.
func (c *Cache) Stats() service.CacheStats {
	hits := c.hits.Load()
	misses := c.misses.Load()

	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}

	return service.CacheStats{
		Hits:    hits,
		Misses:  misses,
		HitRate: rate,
	}
}
