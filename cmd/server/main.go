package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/samvit-hq/guardrail/internal/config"
	"github.com/samvit-hq/guardrail/internal/domain/service"
	"github.com/samvit-hq/guardrail/internal/infrastructure/monitoring"
	"github.com/samvit-hq/guardrail/internal/infrastructure/ratelimit"
	redisinfra "github.com/samvit-hq/guardrail/internal/infrastructure/redis"
	httpiface "github.com/samvit-hq/guardrail/internal/interfaces/http"
	"github.com/samvit-hq/guardrail/internal/interfaces/http/handlers"
	"github.com/samvit-hq/guardrail/pkg/logger"
)

func main() {
	ctx := context.Background()

	// Logger for startup, replaced once the configuration is known.
	startupLogger, err := monitoring.NewZapLogger(&config.LogConfig{
		Level: "info", Format: "json", OutputPath: "stderr",
	})
	if err != nil {
		log.Fatalf("failed to create startup logger: %v", err)
	}

	// The watcher validates config edits as they land; changes apply on the
	// next restart, but a broken edit is reported immediately instead of at
	// the next boot.
	cfg, err := config.LoadConfigAndWatch(startupLogger, nil)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	appLogger, err := monitoring.NewZapLogger(&cfg.Log)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}

	tracing, err := monitoring.NewTracingManager(cfg, appLogger)
	if err != nil {
		appLogger.Fatal(ctx, "failed to initialize tracing", err)
	}

	metrics := monitoring.NewMetrics()

	conn := redisinfra.NewConnection(&cfg.Redis, appLogger)
	if err := conn.Connect(); err != nil {
		// Admission fails open, so a store outage at boot must not prevent
		// startup. The pooled client redials once the store returns.
		appLogger.Warn(ctx, "store unavailable at startup, continuing degraded",
			logger.Error(err))
	}

	var limiter service.RateLimiter
	switch cfg.RateLimit.Backend {
	case "local":
		limiter = ratelimit.NewLocalLimiter(appLogger)
	default:
		limiter = ratelimit.NewEngine(conn.Client(), appLogger, metrics)
	}
	limiter.Connect(ctx)

	revocations := redisinfra.NewRevocationStore(conn.Client(), appLogger)
	cache := redisinfra.NewCache(conn.Client(), &cfg.Cache, appLogger)

	healthHandler := handlers.NewHealthHandler(conn, appLogger)
	revocationHandler := handlers.NewRevocationHandler(revocations, cfg.Auth.IdentityRevocationTTL, metrics, appLogger)
	cacheHandler := handlers.NewCacheHandler(cache, appLogger)

	router := httpiface.NewRouter(
		cfg, appLogger,
		limiter, revocations, metrics, tracing,
		healthHandler, revocationHandler, cacheHandler,
	)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error {
		return router.Start()
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return router.Stop(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		appLogger.Error(ctx, "server exited with error", err)
	}

	cleanupCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := tracing.Shutdown(cleanupCtx); err != nil {
		appLogger.Warn(ctx, "tracing shutdown failed", logger.Error(err))
	}
	if err := conn.Close(); err != nil {
		appLogger.Warn(ctx, "store connection close failed", logger.Error(err))
	}

	appLogger.Info(ctx, "shutdown complete")
}
