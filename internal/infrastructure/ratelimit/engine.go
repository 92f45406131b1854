package ratelimit

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/samvit-hq/guardrail/internal/domain/models"
	"github.com/samvit-hq/guardrail/internal/domain/service"
	"github.com/samvit-hq/guardrail/internal/infrastructure/monitoring"
	redisinfra "github.com/samvit-hq/guardrail/internal/infrastructure/redis"
	"github.com/samvit-hq/guardrail/pkg/constants"
	"github.com/samvit-hq/guardrail/pkg/logger"
	"github.com/samvit-hq/guardrail/pkg/utils"
)

var _ service.RateLimiter = (*Engine)(nil)

// failOpenPolicy is the degradation decision per store failure class. Every
// class currently admits the request: an unavailable limiter must never turn
// into an unavailable API. script_missing is special-cased before it reaches
// this table — the engine reloads the script and retries once, so only a
// reload that itself failed lands here.
var failOpenPolicy = map[constants.ErrorCode]bool{
	constants.ErrCodeStoreUnreachable: true,
	constants.ErrCodeStoreTimeout:     true,
	constants.ErrCodeScriptMissing:    true,
	constants.ErrCodeStoreInternal:    true,
}

// Engine is the Redis-backed rate limiter. One instance is shared by every
// route; all per-route variation travels in the check arguments.
//
// The engine connects lazily: construction never touches the network, and a
// check against a store that has not come up yet degrades to an allowing
// decision instead of failing the request.
type Engine struct {
	client  redis.UniversalClient
	logger  logger.Logger
	metrics *monitoring.Metrics

	mu        sync.RWMutex
	connected bool
	shas      map[string]string
}

// NewEngine creates a rate limiter on top of the given client. metrics may
// be nil.
func NewEngine(client redis.UniversalClient, log logger.Logger, metrics *monitoring.Metrics) *Engine {
	return &Engine{
		client:  client,
		logger:  log.WithComponent("rate_limiter"),
		metrics: metrics,
		shas:    make(map[string]string),
	}
}

// Connect verifies store connectivity and pre-loads both decision scripts.
// It is idempotent and safe for concurrent use; failures are logged and
// absorbed, leaving the engine to retry on the next check.
func (e *Engine) Connect(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.connected {
		return
	}
	if e.client == nil {
		e.logger.Warn(ctx, "no store client configured, rate limiting disabled")
		return
	}

	if err := e.client.Ping(ctx).Err(); err != nil {
		e.logger.Warn(ctx, "rate limit store unreachable, will retry on next check",
			logger.Error(err),
		)
		return
	}

	for _, script := range []luaScript{slidingWindowScript, tokenBucketScript} {
		sha, err := e.client.ScriptLoad(ctx, script.src).Result()
		if err != nil {
			e.logger.Warn(ctx, "failed to load decision script",
				logger.String("script", script.name),
				logger.Error(err),
			)
			return
		}
		e.shas[script.name] = sha
	}

	e.connected = true
	e.logger.Info(ctx, "rate limiter connected, decision scripts loaded")
}

// ensureConnected reports whether the engine is ready, attempting a connect
// first when it is not.
func (e *Engine) ensureConnected(ctx context.Context) bool {
	e.mu.RLock()
	connected := e.connected
	e.mu.RUnlock()
	if connected {
		return true
	}

	e.Connect(ctx)

	e.mu.RLock()
	connected = e.connected
	e.mu.RUnlock()
	return connected
}

// CheckSlidingWindow records a hit against key and reports whether the
// request fits within limit hits per window. A window below one second is
// treated as one second so the store arithmetic stays integral.
func (e *Engine) CheckSlidingWindow(ctx context.Context, key string, limit int, window time.Duration) models.Decision {
	start := time.Now()
	now := float64(start.UnixNano()) / 1e9

	windowSec := int64(window / time.Second)
	if windowSec < 1 {
		windowSec = 1
	}
	fallbackReset := int64(now) + windowSec

	if !e.ensureConnected(ctx) {
		return e.failOpen(ctx, constants.StrategySlidingWindow, key, limit, fallbackReset,
			constants.ErrCodeStoreUnreachable)
	}

	member := fmt.Sprintf("%.6f:%s", now, uuid.NewString())
	reply, err := e.evalScript(ctx, slidingWindowScript, key, limit, windowSec, now, member)
	if err != nil {
		return e.failOpen(ctx, constants.StrategySlidingWindow, key, limit, fallbackReset,
			redisinfra.ClassifyError(err).Code())
	}

	values, ok := reply.([]interface{})
	if !ok || len(values) < 3 {
		e.logger.Error(ctx, "malformed sliding window reply", nil,
			logger.String("key", key), logger.Any("reply", reply))
		return e.failOpen(ctx, constants.StrategySlidingWindow, key, limit, fallbackReset,
			constants.ErrCodeStoreInternal)
	}

	allowed := utils.ToInt64(values[0], 0) == 1
	remaining := utils.ToInt(values[1], 0)
	if remaining < 0 {
		remaining = 0
	}
	resetAt := utils.ToInt64(values[2], fallbackReset)

	decision := models.Decision{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
	if !allowed {
		retryAfter := resetAt - int64(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		decision.RetryAfter = int(retryAfter)
	}

	e.metrics.ObserveRateLimitCheck(constants.StrategySlidingWindow, time.Since(start).Seconds())
	e.metrics.RecordRateLimitDecision(constants.StrategySlidingWindow, allowed)
	return decision
}

// CheckTokenBucket takes one token from the bucket behind key, refilled at
// refillRate tokens per second up to capacity.
func (e *Engine) CheckTokenBucket(ctx context.Context, key string, capacity int, refillRate float64) models.Decision {
	start := time.Now()
	now := float64(start.UnixNano()) / 1e9

	var drainSec int64
	if refillRate > 0 {
		drainSec = int64(math.Ceil(float64(capacity) / refillRate))
	}
	fallbackReset := int64(now) + drainSec

	if !e.ensureConnected(ctx) {
		return e.failOpen(ctx, constants.StrategyTokenBucket, key, capacity, fallbackReset,
			constants.ErrCodeStoreUnreachable)
	}

	reply, err := e.evalScript(ctx, tokenBucketScript, key, capacity, refillRate, now, 1)
	if err != nil {
		return e.failOpen(ctx, constants.StrategyTokenBucket, key, capacity, fallbackReset,
			redisinfra.ClassifyError(err).Code())
	}

	values, ok := reply.([]interface{})
	if !ok || len(values) < 3 {
		e.logger.Error(ctx, "malformed token bucket reply", nil,
			logger.String("key", key), logger.Any("reply", reply))
		return e.failOpen(ctx, constants.StrategyTokenBucket, key, capacity, fallbackReset,
			constants.ErrCodeStoreInternal)
	}

	allowed := utils.ToInt64(values[0], 0) == 1
	remaining := utils.ToInt(values[1], 0)
	if remaining < 0 {
		remaining = 0
	}
	seconds := utils.ToInt64(values[2], drainSec)

	decision := models.Decision{
		Allowed:   allowed,
		Limit:     capacity,
		Remaining: remaining,
		ResetAt:   int64(now) + seconds,
	}
	if !allowed {
		decision.RetryAfter = int(seconds)
	}

	e.metrics.ObserveRateLimitCheck(constants.StrategyTokenBucket, time.Since(start).Seconds())
	e.metrics.RecordRateLimitDecision(constants.StrategyTokenBucket, allowed)
	return decision
}

// evalScript runs a loaded script by SHA. When the store answers NOSCRIPT
// (cache flushed by a restart or failover) it reloads the script and retries
// exactly once; any further failure is the caller's to classify.
func (e *Engine) evalScript(ctx context.Context, script luaScript, key string, args ...interface{}) (interface{}, error) {
	e.mu.RLock()
	sha := e.shas[script.name]
	e.mu.RUnlock()

	reply, err := e.client.EvalSha(ctx, sha, []string{key}, args...).Result()
	if err == nil || !redisinfra.IsScriptMissing(err) {
		return reply, err
	}

	e.logger.Warn(ctx, "decision script missing from store, reloading",
		logger.String("script", script.name),
	)
	e.metrics.RecordScriptReload()

	sha, loadErr := e.client.ScriptLoad(ctx, script.src).Result()
	if loadErr != nil {
		return nil, loadErr
	}

	e.mu.Lock()
	e.shas[script.name] = sha
	e.mu.Unlock()

	return e.client.EvalSha(ctx, sha, []string{key}, args...).Result()
}

// failOpen produces the allowing decision used when the store cannot answer:
// full budget, reset one period out. The admitted request is counted nowhere,
// which is the accepted cost of keeping the API up while the store is down.
func (e *Engine) failOpen(ctx context.Context, strategy, key string, limit int, resetAt int64, code constants.ErrorCode) models.Decision {
	if !failOpenPolicy[code] {
		// A code outside the table still admits; the error log is the signal
		// that classification and policy have drifted apart.
		e.logger.Error(ctx, "store failure outside degradation policy", nil,
			logger.String("strategy", strategy),
			logger.String("code", string(code)),
		)
	}

	e.logger.Warn(ctx, "rate limit check failed, admitting request",
		logger.String("strategy", strategy),
		logger.String("key", key),
		logger.String("code", string(code)),
	)
	e.metrics.RecordRateLimitFailOpen(strategy, string(code))
	e.metrics.RecordRateLimitDecision(strategy, true)

	return models.Decision{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit,
		ResetAt:   resetAt,
	}
}
