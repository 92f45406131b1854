package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/samvit-hq/guardrail/internal/config"
	"github.com/samvit-hq/guardrail/internal/domain/models"
	"github.com/samvit-hq/guardrail/internal/domain/service"
	"github.com/samvit-hq/guardrail/internal/infrastructure/ratelimit"
	"github.com/samvit-hq/guardrail/pkg/constants"
	apperrors "github.com/samvit-hq/guardrail/pkg/errors"
	"github.com/samvit-hq/guardrail/pkg/logger"
)

// Options configures one admission gate instance. Routes with different
// budgets mount separate gates built from different Options; they can all
// share a single limiter.
type Options struct {
	// Limit is the request budget per window (sliding window) or the bucket
	// capacity (token bucket). Values below 1 are clamped to 1: a
	// misconfigured budget should pinch the route, not crash it or let
	// everything through.
	Limit int

	// Window is the period the budget applies to. For token buckets it only
	// sets the refill rate: Limit tokens per Window, or 1 token/second when
	// the window is zero.
	Window time.Duration

	// PerUser partitions by authenticated user when one is present,
	// falling back to the client address otherwise.
	PerUser bool

	// Strategy selects the algorithm; unknown values fall back to the
	// sliding window.
	Strategy string

	// KeyPrefix namespaces this gate's partition keys.
	KeyPrefix string
}

// OptionsFromConfig derives gate options from the service configuration.
func OptionsFromConfig(cfg *config.RateLimitConfig) Options {
	return Options{
		Limit:     cfg.DefaultLimit,
		Window:    cfg.DefaultWindow,
		PerUser:   cfg.PerUser,
		Strategy:  cfg.Strategy,
		KeyPrefix: cfg.KeyPrefix,
	}
}

// RateLimit creates the admission gate middleware. Each request is checked
// against the budget for its partition (route + caller identity); denied
// requests are answered 429 with the standard rate limit headers, admitted
// ones proceed with the Decision attached for the annotation layer.
func RateLimit(limiter service.RateLimiter, opts Options, log logger.Logger) gin.HandlerFunc {
	if opts.Limit < 1 {
		opts.Limit = 1
	}
	if opts.Strategy != constants.StrategyTokenBucket {
		opts.Strategy = constants.StrategySlidingWindow
	}
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = constants.DefaultRateLimitKeyPrefix
	}

	return func(c *gin.Context) {
		identity := resolveIdentity(c, opts.PerUser)
		key := ratelimit.BuildKey(opts.KeyPrefix, c.Request.URL.Path, identity)

		var decision models.Decision
		if opts.Strategy == constants.StrategyTokenBucket {
			refillRate := 1.0
			if opts.Window > 0 {
				refillRate = float64(opts.Limit) / opts.Window.Seconds()
			}
			decision = limiter.CheckTokenBucket(c.Request.Context(), key, opts.Limit, refillRate)
		} else {
			decision = limiter.CheckSlidingWindow(c.Request.Context(), key, opts.Limit, opts.Window)
		}

		c.Set(string(constants.ContextKeyDecision), decision)

		if !decision.Allowed {
			log.Warn(c.Request.Context(), "rate limit exceeded",
				logger.String("key", key),
				logger.Int("limit", decision.Limit),
				logger.Int("retry_after", decision.RetryAfter),
			)

			limit, remaining, reset := decision.HeaderValues()
			c.Header(constants.HeaderRateLimitLimit, limit)
			c.Header(constants.HeaderRateLimitRemaining, remaining)
			c.Header(constants.HeaderRateLimitReset, reset)
			c.Header(constants.HeaderRetryAfter, strconv.Itoa(decision.RetryAfter))

			appErr := apperrors.ErrRateLimitExceeded(c.Request.URL.Path, decision.Limit)
			c.AbortWithStatusJSON(appErr.HTTPStatus(), apperrors.ToErrorResponse(appErr))
			return
		}

		c.Next()
	}
}

// resolveIdentity picks the partition identity for a request. Authenticated
// traffic partitions by user so limits follow accounts across addresses;
// anonymous traffic partitions by address.
func resolveIdentity(c *gin.Context, perUser bool) string {
	if perUser {
		if userID := c.GetString(string(constants.ContextKeyUserID)); userID != "" {
			return ratelimit.UserIdentity(userID)
		}
	}
	return ratelimit.IPIdentity(ratelimit.ClientIP(c.Request))
}
