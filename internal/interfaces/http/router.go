package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/samvit-hq/guardrail/internal/config"
	"github.com/samvit-hq/guardrail/internal/domain/service"
	"github.com/samvit-hq/guardrail/internal/infrastructure/monitoring"
	"github.com/samvit-hq/guardrail/internal/interfaces/http/handlers"
	"github.com/samvit-hq/guardrail/internal/interfaces/http/middleware"
	"github.com/samvit-hq/guardrail/pkg/constants"
	"github.com/samvit-hq/guardrail/pkg/logger"
)

// Router wires the middleware chain, handlers and HTTP server together.
type Router struct {
	engine *gin.Engine
	server *http.Server

	cfg         *config.Config
	log         logger.Logger
	limiter     service.RateLimiter
	revocations service.RevocationStore
	metrics     *monitoring.Metrics
	tracing     *monitoring.TracingManager

	healthHandler     *handlers.HealthHandler
	revocationHandler *handlers.RevocationHandler
	cacheHandler      *handlers.CacheHandler
}

// NewRouter creates the router. All dependencies are injected; the router
// owns only the gin engine and the HTTP server lifecycle.
func NewRouter(
	cfg *config.Config,
	log logger.Logger,
	limiter service.RateLimiter,
	revocations service.RevocationStore,
	metrics *monitoring.Metrics,
	tracing *monitoring.TracingManager,
	healthHandler *handlers.HealthHandler,
	revocationHandler *handlers.RevocationHandler,
	cacheHandler *handlers.CacheHandler,
) *Router {
	switch cfg.Server.Mode {
	case gin.ReleaseMode, gin.TestMode:
		gin.SetMode(cfg.Server.Mode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	return &Router{
		engine:            gin.New(),
		cfg:               cfg,
		log:               log,
		limiter:           limiter,
		revocations:       revocations,
		metrics:           metrics,
		tracing:           tracing,
		healthHandler:     healthHandler,
		revocationHandler: revocationHandler,
		cacheHandler:      cacheHandler,
	}
}

// Engine exposes the underlying gin engine, mainly for tests.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// SetupRoutes mounts the middleware chain and all routes. The annotation
// middleware is installed before the API group so its wrapped writer is in
// place when the gates attach their decisions.
func (r *Router) SetupRoutes() {
	r.engine.Use(gin.Recovery())
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.Observability(r.tracing, r.metrics, r.log))
	r.engine.Use(cors.New(r.corsConfig()))
	r.engine.Use(middleware.RateLimitHeaders())

	health := r.engine.Group("/health")
	{
		health.GET("/live", r.healthHandler.Liveness)
		health.GET("/ready", r.healthHandler.Readiness)
	}

	if r.cfg.Monitoring.MetricsEnabled {
		r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	if r.cfg.Monitoring.PprofEnabled {
		pprof.Register(r.engine)
	}

	v1 := r.engine.Group("/api/v1")
	if r.cfg.RateLimit.Enabled {
		v1.Use(middleware.RateLimit(r.limiter, middleware.OptionsFromConfig(&r.cfg.RateLimit), r.log))
	}
	{
		// Minimal endpoint for callers probing their own budget: it burns a
		// request like any other and comes back annotated.
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong"})
		})

		admin := v1.Group("/admin")
		if r.cfg.Auth.Enabled {
			admin.Use(middleware.RequireAuth(&r.cfg.Auth, r.revocations, r.log))
		}
		{
			revocations := admin.Group("/revocations")
			revocations.POST("/token", r.revocationHandler.RevokeToken)
			revocations.POST("/identity", r.revocationHandler.RevokeIdentity)
			revocations.POST("/check", r.revocationHandler.CheckCredential)
			revocations.GET("/identity/:identity", r.revocationHandler.CheckIdentity)

			cache := admin.Group("/cache")
			cache.GET("/stats", r.cacheHandler.Stats)
			cache.POST("/purge", r.cacheHandler.Purge)
		}
	}

	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":             string(constants.ErrCodeNotFound),
			"error_description": "The requested resource was not found",
		})
	})
}

func (r *Router) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", constants.HeaderAuthorization, constants.HeaderXRequestID},
		ExposeHeaders: []string{
			constants.HeaderXRequestID,
			constants.HeaderRateLimitLimit,
			constants.HeaderRateLimitRemaining,
			constants.HeaderRateLimitReset,
			constants.HeaderRetryAfter,
		},
		MaxAge: 12 * time.Hour,
	}

	// Wildcard origins and credentials are mutually exclusive in CORS; pick
	// whichever the deployment configured.
	origins := r.cfg.Server.CORSOrigins
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}

// Start mounts the routes and serves until the listener fails or Stop is
// called. It blocks; run it on its own goroutine.
func (r *Router) Start() error {
	r.SetupRoutes()

	addr := fmt.Sprintf("%s:%d", r.cfg.Server.Host, r.cfg.Server.Port)
	r.server = &http.Server{
		Addr:           addr,
		Handler:        r.engine,
		ReadTimeout:    r.cfg.Server.ReadTimeout,
		WriteTimeout:   r.cfg.Server.WriteTimeout,
		IdleTimeout:    r.cfg.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	r.log.Info(context.Background(), "starting HTTP server", logger.String("address", addr))

	if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully, letting in-flight requests finish
// until ctx expires.
func (r *Router) Stop(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	r.log.Info(ctx, "stopping HTTP server")
	return r.server.Shutdown(ctx)
}
