package grpc

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"google.golang.org/grpc"
	grpcCodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/samvit-hq/guardrail/internal/config"
	"github.com/samvit-hq/guardrail/internal/domain/models"
	"github.com/samvit-hq/guardrail/internal/domain/service"
	"github.com/samvit-hq/guardrail/internal/infrastructure/ratelimit"
	"github.com/samvit-hq/guardrail/pkg/constants"
	"github.com/samvit-hq/guardrail/pkg/logger"
)

// Metadata keys consulted by the admission interceptor. Internal services
// forward the authenticated user and original client address under these
// keys; absent both, the peer address partitions the traffic.
const (
	metadataUserID       = "x-user-id"
	metadataForwardedFor = "x-forwarded-for"
)

// InterceptorChain bundles the unary server interceptors offered to internal
// RPC consumers: panic recovery, request logging and rate limit admission.
// The admission decision comes from the same limiter the HTTP gates use, so
// a caller shares one budget across both transports.
type InterceptorChain struct {
	log     logger.Logger
	limiter service.RateLimiter
	cfg     config.RateLimitConfig
}

// NewInterceptorChain creates the chain. cfg is copied so later config
// reloads do not race in-flight checks.
func NewInterceptorChain(cfg *config.RateLimitConfig, limiter service.RateLimiter, log logger.Logger) *InterceptorChain {
	chain := &InterceptorChain{
		log:     log,
		limiter: limiter,
		cfg:     *cfg,
	}
	if chain.cfg.DefaultLimit < 1 {
		chain.cfg.DefaultLimit = 1
	}
	if chain.cfg.KeyPrefix == "" {
		chain.cfg.KeyPrefix = constants.DefaultRateLimitKeyPrefix
	}
	return chain
}

// UnaryRecoveryInterceptor converts handler panics into Internal errors
// instead of taking the whole server down.
func (ic *InterceptorChain) UnaryRecoveryInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				ic.log.Error(ctx, "grpc handler panic recovered", fmt.Errorf("%v", r),
					logger.String("method", info.FullMethod),
				)
				err = status.Errorf(grpcCodes.Internal, "internal server error")
			}
		}()

		return handler(ctx, req)
	}
}

// UnaryLoggingInterceptor writes one log line per completed RPC.
func (ic *InterceptorChain) UnaryLoggingInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()

		resp, err := handler(ctx, req)

		code := grpcCodes.OK
		if err != nil {
			if st, ok := status.FromError(err); ok {
				code = st.Code()
			} else {
				code = grpcCodes.Unknown
			}
		}

		ic.log.Info(ctx, "grpc request completed",
			logger.String("method", info.FullMethod),
			logger.String("status", code.String()),
			logger.Duration("duration", time.Since(start)),
		)

		return resp, err
	}
}

// UnaryRateLimitInterceptor admits or rejects each RPC against the caller's
// budget. Denials surface as ResourceExhausted with the retry hint in the
// message; limiter failures never reject, the limiter fails open internally.
func (ic *InterceptorChain) UnaryRateLimitInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		identity := identityFromContext(ctx)
		key := ratelimit.BuildKey(ic.cfg.KeyPrefix, info.FullMethod, identity)

		var decision models.Decision
		if ic.cfg.Strategy == constants.StrategyTokenBucket {
			refillRate := 1.0
			if ic.cfg.DefaultWindow > 0 {
				refillRate = float64(ic.cfg.DefaultLimit) / ic.cfg.DefaultWindow.Seconds()
			}
			decision = ic.limiter.CheckTokenBucket(ctx, key, ic.cfg.DefaultLimit, refillRate)
		} else {
			decision = ic.limiter.CheckSlidingWindow(ctx, key, ic.cfg.DefaultLimit, ic.cfg.DefaultWindow)
		}

		if !decision.Allowed {
			ic.log.Warn(ctx, "rate limit exceeded",
				logger.String("key", key),
				logger.String("method", info.FullMethod),
				logger.Int("retry_after", decision.RetryAfter),
			)
			return nil, status.Errorf(
				grpcCodes.ResourceExhausted,
				"rate limit exceeded; retry after %d seconds",
				decision.RetryAfter,
			)
		}

		return handler(ctx, req)
	}
}

// ChainUnaryInterceptors assembles the full chain as a server option, in
// recovery, logging, admission order.
func (ic *InterceptorChain) ChainUnaryInterceptors() grpc.ServerOption {
	return grpc.ChainUnaryInterceptor(
		ic.UnaryRecoveryInterceptor(),
		ic.UnaryLoggingInterceptor(),
		ic.UnaryRateLimitInterceptor(),
	)
}

// identityFromContext resolves the partition identity of an RPC caller, most
// trusted source first.
func identityFromContext(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ids := md.Get(metadataUserID); len(ids) > 0 && ids[0] != "" {
			return ratelimit.UserIdentity(ids[0])
		}
		if forwarded := md.Get(metadataForwardedFor); len(forwarded) > 0 {
			if ip := strings.TrimSpace(strings.Split(forwarded[0], ",")[0]); ip != "" {
				return ratelimit.IPIdentity(ip)
			}
		}
	}

	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		addr := p.Addr.String()
		if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
			return ratelimit.IPIdentity(host)
		}
		if addr != "" {
			return ratelimit.IPIdentity(addr)
		}
	}

	return ratelimit.IPIdentity(constants.IdentityUnknown)
}
