// Package service defines the domain-level contracts of the guardrail
// service. Infrastructure packages provide the implementations; interface
// consumers stay decoupled from Redis and from each other.
package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/samvit-hq/guardrail/internal/domain/models"
)

// RateLimiter checks requests against a shared budget. Implementations must
// never fail the caller: when the backing store is unavailable the check
// degrades to an allowing Decision, because refusing service on an internal
// fault would turn every store outage into an API outage.
type RateLimiter interface {
	// Connect prepares the limiter: it verifies store connectivity and
	// pre-loads the decision scripts. It is safe to call repeatedly and
	// from concurrent goroutines; failures are absorbed and retried on the
	// next check.
	Connect(ctx context.Context)

	// CheckSlidingWindow records a hit against key and reports whether the
	// request fits within limit hits per window.
	CheckSlidingWindow(ctx context.Context, key string, limit int, window time.Duration) models.Decision

	// CheckTokenBucket takes one token from the bucket behind key, refilled
	// at refillRate tokens per second up to capacity.
	CheckTokenBucket(ctx context.Context, key string, capacity int, refillRate float64) models.Decision
}

// RevocationStore tracks invalidated credentials. All methods degrade
// gracefully: a store failure reports the operation outcome as false and the
// revocation check as "not revoked", favouring availability over strictness
// for the window of the outage.
type RevocationStore interface {
	// Revoke marks a single credential as invalid until its natural expiry.
	// Credentials already past expiry succeed without touching the store.
	Revoke(ctx context.Context, credential string, expiresAt time.Time) bool

	// IsRevoked reports whether a credential has been revoked.
	IsRevoked(ctx context.Context, credential string) bool

	// RevokeAllForIdentity invalidates every credential issued to identity
	// before now, for ttl.
	RevokeAllForIdentity(ctx context.Context, identity string, ttl time.Duration) bool

	// IsIdentityRevokedSince reports whether a credential issued to identity
	// at issuedAt (Unix seconds) falls under a bulk revocation.
	IsIdentityRevokedSince(ctx context.Context, identity string, issuedAt int64) bool
}

// CacheStats is a point-in-time snapshot of cache effectiveness counters.
type CacheStats struct {
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// Cache is a shared read-through cache for expensive lookups. Like the
// limiter it never propagates store failures: reads miss, writes report
// false, and callers fall back to their source of truth.
type Cache interface {
	// Get loads the value under key into dest and reports whether it was
	// found.
	Get(ctx context.Context, key string, dest interface{}) bool

	// Set stores value under key for ttl. A non-positive ttl applies the
	// configured default.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) bool

	// Delete removes a single key.
	Delete(ctx context.Context, key string) bool

	// DeletePattern removes every key matching a glob pattern and returns
	// how many were deleted.
	DeletePattern(ctx context.Context, pattern string) int

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) bool

	// GetOrSet loads the value under key into dest, invoking load on a miss
	// and caching its result for ttl. Concurrent misses for the same key are
	// collapsed into a single load call.
	GetOrSet(ctx context.Context, key string, ttl time.Duration, load func(ctx context.Context) (interface{}, error), dest interface{}) error

	// Increment atomically adds delta to the counter under key and returns
	// the new value.
	Increment(ctx context.Context, key string, delta int64) (int64, bool)

	// TTL returns the remaining lifetime of key.
	TTL(ctx context.Context, key string) (time.Duration, bool)

	// SetMany stores several values under one ttl in a single round trip.
	SetMany(ctx context.Context, values map[string]interface{}, ttl time.Duration) bool

	// GetMany fetches several keys in one round trip. Missing keys are
	// absent from the result.
	GetMany(ctx context.Context, keys []string) map[string]json.RawMessage

	// Stats reports hit and miss counters since the cache was created.
	Stats() CacheStats
}
