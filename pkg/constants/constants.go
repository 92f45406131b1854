// Package constants defines system-wide constants for the guardrail service.
// This package provides type-safe constant definitions used across all modules.
package constants

import "time"

// ================================================================================
// Service Identity
// ================================================================================

const (
	// ServiceName is the canonical name of this service, used in logs,
	// traces and metric names.
	ServiceName = "guardrail"

	// MetricsNamespace is the Prometheus namespace for all service metrics.
	MetricsNamespace = "guardrail"
)

// ================================================================================
// Redis Key Prefixes
// ================================================================================

const (
	// DefaultRateLimitKeyPrefix prefixes every rate limit partition key.
	// Full key layout: {prefix}:{route}:{identity}.
	DefaultRateLimitKeyPrefix = "rl"

	// TokenRevocationKeyPrefix prefixes revocation entries for individual
	// credentials. The credential hash is appended to it.
	TokenRevocationKeyPrefix = "token:revoked:"

	// IdentityRevocationKeyPrefix prefixes the bulk revocation marker for an
	// identity. The value stored under it is the revocation timestamp.
	IdentityRevocationKeyPrefix = "user:revoked:"

	// DefaultCacheKeyPrefix prefixes all application cache entries.
	DefaultCacheKeyPrefix = "samvit:cache"
)

// ================================================================================
// Identity Resolution
// ================================================================================

const (
	// IdentityPrefixIP marks a partition identity derived from the client
	// network address.
	IdentityPrefixIP = "ip"

	// IdentityPrefixUser marks a partition identity derived from an
	// authenticated user ID.
	IdentityPrefixUser = "user"

	// IdentityUnknown is the identity used when no network address can be
	// determined for the caller.
	IdentityUnknown = "unknown"
)

// ================================================================================
// Rate Limit Strategies
// ================================================================================

const (
	// StrategySlidingWindow counts requests in a rolling window backed by a
	// sorted set.
	StrategySlidingWindow = "sliding_window"

	// StrategyTokenBucket refills a token pool continuously and admits one
	// request per token.
	StrategyTokenBucket = "token_bucket"
)

// ================================================================================
// HTTP Headers
// ================================================================================

const (
	HeaderCFConnectingIP = "CF-Connecting-IP"
	HeaderXForwardedFor  = "X-Forwarded-For"
	HeaderXRealIP        = "X-Real-IP"
	HeaderXRequestID     = "X-Request-ID"
	HeaderAuthorization  = "Authorization"

	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
	HeaderRetryAfter         = "Retry-After"
)

// ================================================================================
// Context Keys
// ================================================================================

// ContextKey is the type for all values this service places into a
// context.Context. A dedicated type avoids collisions with other packages.
type ContextKey string

const (
	ContextKeyRequestID ContextKey = "request_id"
	ContextKeyUserID    ContextKey = "user_id"
	ContextKeyTenantID  ContextKey = "tenant_id"
	ContextKeyClaims    ContextKey = "claims"
	ContextKeyDecision  ContextKey = "rate_limit_decision"
)

// ================================================================================
// Error Codes
// ================================================================================

// ErrorCode identifies a class of failure. Codes are stable strings so callers
// can match on them and metrics can use them as labels.
type ErrorCode string

const (
	// ErrCodeStoreUnreachable indicates the backing store rejected or closed
	// the connection.
	ErrCodeStoreUnreachable ErrorCode = "store_unreachable"

	// ErrCodeStoreTimeout indicates an operation against the backing store
	// exceeded its deadline.
	ErrCodeStoreTimeout ErrorCode = "store_timeout"

	// ErrCodeScriptMissing indicates the store no longer holds a script that
	// was previously loaded (NOSCRIPT).
	ErrCodeScriptMissing ErrorCode = "script_missing"

	// ErrCodeStoreInternal covers any other store-side failure.
	ErrCodeStoreInternal ErrorCode = "store_error"

	ErrCodeRateLimited    ErrorCode = "rate_limit_exceeded"
	ErrCodeUnauthorized   ErrorCode = "unauthorized"
	ErrCodeTokenRevoked   ErrorCode = "token_revoked"
	ErrCodeInvalidRequest ErrorCode = "invalid_request"
	ErrCodeInvalidConfig  ErrorCode = "invalid_config"
	ErrCodeNotFound       ErrorCode = "not_found"
	ErrCodeInternal       ErrorCode = "internal_error"
)

// ================================================================================
// Token Constants
// ================================================================================

const (
	// TokenTypeAccess is the claim value carried by short-lived API tokens.
	TokenTypeAccess = "access"

	// TokenTypeRefresh is the claim value carried by long-lived renewal tokens.
	TokenTypeRefresh = "refresh"

	// BearerPrefix is the expected authorization scheme for API tokens.
	BearerPrefix = "Bearer"
)

// ================================================================================
// Defaults and Tuning
// ================================================================================

const (
	// DefaultRateLimit is the request budget per window when none is
	// configured for a route.
	DefaultRateLimit = 100

	// DefaultRateLimitWindow is the window length when none is configured
	// for a route.
	DefaultRateLimitWindow = 60 * time.Second

	// RateLimitKeyTTLSlack is added on top of the window (or bucket drain
	// time) when expiring limiter state, so keys outlive the period they
	// account for while idle partitions still get reclaimed.
	RateLimitKeyTTLSlack = 10 * time.Second

	// DefaultIdentityRevocationTTL bounds how long a bulk revocation marker
	// is kept. It must cover the longest token lifetime in circulation.
	DefaultIdentityRevocationTTL = 24 * time.Hour

	// DefaultCacheTTL applies to cache entries stored without an explicit
	// expiry.
	DefaultCacheTTL = 5 * time.Minute

	// LongCacheKeyLimit is the length above which cache keys are replaced by
	// a hash to stay within sane Redis key sizes.
	LongCacheKeyLimit = 200

	// CacheScanCount is the COUNT hint used when scanning for keys to
	// invalidate by pattern.
	CacheScanCount = 100

	// DefaultShutdownTimeout bounds graceful server shutdown.
	DefaultShutdownTimeout = 30 * time.Second
)
