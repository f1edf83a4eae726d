package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"dnsgate/internal/admin"
	"dnsgate/internal/chain"
	"dnsgate/internal/config"
	"dnsgate/internal/constants"
	"dnsgate/internal/logger"
	"dnsgate/internal/rules"
	"dnsgate/pkg/health"
	"dnsgate/pkg/metrics"
	"dnsgate/pkg/middleware"
	"dnsgate/pkg/ratelimit"
	"dnsgate/pkg/retry"
	"dnsgate/pkg/tracing"
)

type App struct {
	config         *config.Config
	logger         logger.Logger
	registry       *chain.Registry
	kvClient       *redis.Client
	server         *http.Server
	router         *gin.Engine
	tracerProvider *tracing.TracerProvider
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	return &App{
		config:   cfg,
		logger:   log,
		registry: chain.NewRegistry(),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.initKeyValueStore(ctx); err != nil {
		return fmt.Errorf("failed to initialize key-value store: %w", err)
	}

	if err := a.initRouter(); err != nil {
		return fmt.Errorf("failed to initialize router: %w", err)
	}

	if err := a.initServer(); err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	tp, err := tracing.Init(a.config.Tracing, "ruleengine-service")
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	return nil
}

func (a *App) initKeyValueStore(ctx context.Context) error {
	if !a.config.KeyValue.Enabled {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%d", a.config.KeyValue.Host, a.config.KeyValue.Port),
		Password:    a.config.KeyValue.Password,
		DB:          a.config.KeyValue.DB,
		DialTimeout: constants.KeyValueDialTimeout,
	})

	policy := retry.DefaultPolicy()
	policy.MaxElapsedTime = time.Minute

	err := retry.Retry(ctx, policy, func() error {
		pingCtx, cancel := context.WithTimeout(ctx, constants.KeyValueDialTimeout)
		defer cancel()
		return client.Ping(pingCtx).Err()
	})
	if err != nil {
		return fmt.Errorf("key-value store unreachable: %w", err)
	}

	a.kvClient = client
	a.logger.InfowCtx(ctx, "Key-value store connected",
		"host", a.config.KeyValue.Host, "port", a.config.KeyValue.Port)
	return nil
}

func (a *App) initRouter() error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if a.config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware("ruleengine-service"))
	}

	router.Use(middleware.RecoveryMiddleware(a.logger))
	router.Use(middleware.LoggerMiddleware(a.logger))
	router.Use(middleware.RequestIDMiddleware())

	if a.config.AdminRateLimit.Enabled {
		rateLimitConfig := ratelimit.DefaultConfig()
		if a.config.AdminRateLimit.RPS > 0 {
			rateLimitConfig.RPS = a.config.AdminRateLimit.RPS
		}
		if a.config.AdminRateLimit.Burst > 0 {
			rateLimitConfig.Burst = a.config.AdminRateLimit.Burst
		}
		router.Use(ratelimit.Middleware(rateLimitConfig))
		a.logger.InfowCtx(context.Background(), "Rate limiting enabled",
			"rps", rateLimitConfig.RPS, "burst", rateLimitConfig.Burst)
	}

	opts := []admin.ServiceOption{
		admin.WithRateLimitDefaults(a.config.Engine.RateLimit),
	}
	if a.kvClient != nil {
		opts = append(opts, admin.WithKeyValueClient(a.kvClient))
	}

	svc := admin.NewService(a.registry, a.logger, opts...)

	handler := admin.NewHandler(svc, a.logger)
	handler.RegisterRoutes(router)

	metrics.RegisterChainMetrics()
	metrics.RegisterRateLimitMetrics()
	metrics.RegisterAdminMetrics()
	if a.kvClient != nil {
		metrics.RegisterKeyValueMetrics()
	}

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewChainsChecker(a.registry.Names(), func(name string) bool {
		_, ok := a.registry.Chain(name)
		return ok
	}))
	if a.kvClient != nil {
		healthRegistry.Register(health.NewRedisChecker(a.kvClient))
	}

	router.GET("/health", func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a.router = router
	return nil
}

func (a *App) initServer() error {
	readTimeout := constants.HTTPReadTimeout
	if a.config.Server.ReadTimeoutSeconds > 0 {
		readTimeout = time.Duration(a.config.Server.ReadTimeoutSeconds) * time.Second
	}
	writeTimeout := constants.HTTPWriteTimeout
	if a.config.Server.WriteTimeoutSeconds > 0 {
		writeTimeout = time.Duration(a.config.Server.WriteTimeoutSeconds) * time.Second
	}

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  constants.HTTPIdleTimeout,
	}
	return nil
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.InfowCtx(ctx, "Server listening", "port", a.config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.runMaintenance(gCtx)
	})

	g.Go(func() error {
		<-gCtx.Done()
		return a.Shutdown(ctx)
	})

	return g.Wait()
}

// runMaintenance periodically expires stale state held by rules that
// accumulate it, such as timed IP sets.
func (a *App) runMaintenance(ctx context.Context) error {
	ticker := time.NewTicker(constants.MaintenanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for _, name := range a.registry.Names() {
				c, ok := a.registry.Chain(name)
				if !ok {
					continue
				}
				for _, entry := range c.Snapshot() {
					if m, ok := entry.Rule.(rules.Maintainer); ok {
						m.Cleanup()
					}
				}
			}
		}
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.InfowCtx(ctx, "Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()

	var errs []error

	if a.server != nil {
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
		}
	}

	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
		}
	}

	if a.kvClient != nil {
		if err := a.kvClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("key-value client close error: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	a.logger.InfowCtx(ctx, "Server exited successfully")
	return nil
}
