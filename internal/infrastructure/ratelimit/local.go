package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/samvit-hq/guardrail/internal/domain/models"
	"github.com/samvit-hq/guardrail/internal/domain/service"
	"github.com/samvit-hq/guardrail/pkg/constants"
	"github.com/samvit-hq/guardrail/pkg/logger"
)

var _ service.RateLimiter = (*LocalLimiter)(nil)

// LocalLimiter applies the same decision semantics as the Redis engine to
// in-process state. It exists for single-instance deployments and local
// development; with several instances each one enforces its own budget, so
// the effective limit multiplies by the instance count.
//
// Partition state lives in an expiring cache sized by the window (or bucket
// drain time) plus slack, which bounds memory to the set of recently active
// partitions.
type LocalLimiter struct {
	logger logger.Logger
	state  *gocache.Cache
}

// NewLocalLimiter creates an in-process limiter.
func NewLocalLimiter(log logger.Logger) *LocalLimiter {
	return &LocalLimiter{
		logger: log.WithComponent("local_rate_limiter"),
		state:  gocache.New(5*time.Minute, 10*time.Minute),
	}
}

// Connect is a no-op: there is no store to reach and nothing to pre-load.
func (l *LocalLimiter) Connect(ctx context.Context) {}

type localWindow struct {
	mu   sync.Mutex
	hits []float64
}

type localBucket struct {
	mu         sync.Mutex
	tokens     float64
	lastRefill float64
}

// CheckSlidingWindow mirrors the sliding window script against an in-memory
// hit list.
func (l *LocalLimiter) CheckSlidingWindow(ctx context.Context, key string, limit int, window time.Duration) models.Decision {
	now := float64(time.Now().UnixNano()) / 1e9

	windowSec := int64(window / time.Second)
	if windowSec < 1 {
		windowSec = 1
	}
	ttl := time.Duration(windowSec)*time.Second + constants.RateLimitKeyTTLSlack

	w := l.window(key, ttl)
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := now - float64(windowSec)
	kept := w.hits[:0]
	for _, hit := range w.hits {
		if hit > cutoff {
			kept = append(kept, hit)
		}
	}
	w.hits = kept

	count := len(w.hits)
	if count < limit {
		w.hits = append(w.hits, now)
		return models.Decision{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit - count - 1,
			ResetAt:   int64(now) + windowSec,
		}
	}

	resetAt := int64(w.hits[0]) + windowSec
	retryAfter := resetAt - int64(now)
	if retryAfter < 0 {
		retryAfter = 0
	}

	return models.Decision{
		Allowed:    false,
		Limit:      limit,
		Remaining:  0,
		ResetAt:    resetAt,
		RetryAfter: int(retryAfter),
	}
}

// CheckTokenBucket mirrors the token bucket script against an in-memory
// bucket.
func (l *LocalLimiter) CheckTokenBucket(ctx context.Context, key string, capacity int, refillRate float64) models.Decision {
	now := float64(time.Now().UnixNano()) / 1e9

	ttl := constants.RateLimitKeyTTLSlack
	if refillRate > 0 {
		ttl += time.Duration(math.Ceil(float64(capacity)/refillRate)) * time.Second
	}

	b := l.bucket(key, capacity, now, ttl)
	b.mu.Lock()
	defer b.mu.Unlock()

	elapsed := now - b.lastRefill
	b.tokens = math.Min(float64(capacity), b.tokens+elapsed*refillRate)
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--

		var resetIn int64
		if refillRate > 0 {
			resetIn = int64(math.Ceil((float64(capacity) - b.tokens) / refillRate))
		}
		return models.Decision{
			Allowed:   true,
			Limit:     capacity,
			Remaining: int(math.Floor(b.tokens)),
			ResetAt:   int64(now) + resetIn,
		}
	}

	var wait int64
	if refillRate > 0 {
		wait = int64(math.Ceil((1 - b.tokens) / refillRate))
	}
	return models.Decision{
		Allowed:    false,
		Limit:      capacity,
		Remaining:  0,
		ResetAt:    int64(now) + wait,
		RetryAfter: int(wait),
	}
}

// window returns the hit list for key, creating it on first use. The double
// lookup after a failed Add covers the race where two goroutines create the
// same partition at once.
func (l *LocalLimiter) window(key string, ttl time.Duration) *localWindow {
	stateKey := "w:" + key

	if v, ok := l.state.Get(stateKey); ok {
		if w, ok := v.(*localWindow); ok {
			l.state.Set(stateKey, w, ttl)
			return w
		}
	}

	w := &localWindow{}
	if err := l.state.Add(stateKey, w, ttl); err != nil {
		if v, ok := l.state.Get(stateKey); ok {
			if existing, ok := v.(*localWindow); ok {
				return existing
			}
		}
	}
	return w
}

// bucket returns the token bucket for key, creating it full on first use.
func (l *LocalLimiter) bucket(key string, capacity int, now float64, ttl time.Duration) *localBucket {
	stateKey := "b:" + key

	if v, ok := l.state.Get(stateKey); ok {
		if b, ok := v.(*localBucket); ok {
			l.state.Set(stateKey, b, ttl)
			return b
		}
	}

	b := &localBucket{tokens: float64(capacity), lastRefill: now}
	if err := l.state.Add(stateKey, b, ttl); err != nil {
		if v, ok := l.state.Get(stateKey); ok {
			if existing, ok := v.(*localBucket); ok {
				return existing
			}
		}
	}
	return b
}
