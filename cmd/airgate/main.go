package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"airgate/internal/airtable"
	"airgate/internal/api"
	"airgate/internal/cache"
	"airgate/internal/config"
	"airgate/internal/gateway"
	"airgate/internal/logger"
	"airgate/internal/models"
	"airgate/internal/observability"
	"airgate/internal/ratelimit"
	"airgate/internal/version"
)

var (
	configFile  = flag.String("config", "", "Path to configuration file")
	showVersion = flag.Bool("version", false, "Print version information and exit")
)

func main() {
	flag.Parse()

	ver := version.GetInfo()
	if *showVersion {
		fmt.Println(ver.String())
		return
	}

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize structured logging
	log, closer, err := logger.Setup(cfg.Logging, ver)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	if closer != nil {
		defer closer.Close()
	}
	slog.SetDefault(log)

	// Initialize observability (OpenTelemetry)
	otelProvider, err := observability.Setup(cfg.Metrics, cfg.Observability, ver)
	if err != nil {
		slog.Error("Failed to initialize observability", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := otelProvider.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shutdown observability", "error", err)
		}
	}()

	// One Redis connection serves both the cache and the rate limiter
	// when either is configured with the redis backend.
	var redisClient *redis.Client
	if usesRedis(cfg) {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		defer redisClient.Close()
	}

	// Initialize the cache store
	store, err := initializeCache(cfg, redisClient)
	if err != nil {
		slog.Error("Failed to initialize cache", "error", err)
		os.Exit(1)
	}
	if store != nil {
		defer store.Close()
	}

	// Initialize the upstream rate limit gate
	gate, err := initializeGate(cfg, redisClient, log)
	if err != nil {
		slog.Error("Failed to initialize rate limiter", "error", err)
		os.Exit(1)
	}
	if gate != nil {
		defer gate.Close()
	}

	// Compose the gateway service
	client := airtable.NewHTTPClient(cfg.Upstream)
	service := gateway.NewService(client, store, gate, cache.TTLsFromConfig(cfg.Cache.TTL), log)

	// Wrap the gateway with instrumentation if metrics are enabled
	var activeService gateway.API = service
	if cfg.Metrics.Enabled {
		instrumented, err := observability.NewInstrumentedGateway(service)
		if err != nil {
			slog.Error("Failed to create instrumented gateway", "error", err)
			os.Exit(1)
		}
		activeService = instrumented
	}

	// Initialize HTTP handlers
	handlers := api.NewHandlers(activeService, ver)

	// Setup routes with middleware
	routeOpts := []api.RouteOption{}
	if cfg.Observability.Tracing.Enabled {
		routeOpts = append(routeOpts, api.WithOTelMiddleware(cfg.Observability.ServiceName))
	}

	// Initialize the inbound client rate limiter if enabled
	if cfg.RateLimit.Client.Enabled {
		clientLimiter := ratelimit.NewClientLimiter(
			cfg.RateLimit.Client.RequestsPerMinute,
			cfg.RateLimit.Client.BurstSize,
			cfg.RateLimit.CleanupInterval,
		)
		defer clientLimiter.Close()

		routeOpts = append(routeOpts, api.WithClientRateLimiter(clientLimiter))
	}

	router := api.SetupRoutes(handlers, cfg, routeOpts...)

	// Start metrics server if enabled
	var metricsServer *observability.MetricsServer
	if cfg.Metrics.Enabled {
		metricsServer = observability.NewMetricsServer(cfg.Metrics.Port, cfg.Metrics.Path, otelProvider)
		go func() {
			if err := metricsServer.Start(); err != nil && err != http.ErrServerClosed {
				slog.Error("Metrics server failed", "error", err)
			}
		}()
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Starting server", "addr", server.Addr, "version", ver.Version)

		var err error
		if cfg.Server.TLSEnabled {
			slog.Info("Starting HTTPS server with TLS")
			err = server.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			slog.Info("Starting HTTP server")
			err = server.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			slog.Error("Metrics server forced to shutdown", "error", err)
		}
	}

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server shutdown complete")
}

// usesRedis reports whether any component needs the shared Redis connection.
func usesRedis(cfg *models.Config) bool {
	return (cfg.Cache.Enabled && cfg.Cache.Backend == models.BackendRedis) ||
		(cfg.RateLimit.Enabled && cfg.RateLimit.Backend == models.BackendRedis)
}

// initializeCache creates the cache store based on configuration. A nil
// store means caching is disabled and the gateway proxies every read.
func initializeCache(cfg *models.Config, redisClient *redis.Client) (cache.Store, error) {
	if !cfg.Cache.Enabled {
		slog.Info("Caching disabled")
		return nil, nil
	}

	switch cfg.Cache.Backend {
	case models.BackendMemory:
		slog.Info("Using in-memory cache",
			"cleanup_interval", cfg.Cache.Memory.CleanupInterval)
		return cache.NewMemoryStore(cfg.Cache.Memory.CleanupInterval), nil
	case models.BackendRedis:
		slog.Info("Using Redis cache", "addr", cfg.Redis.Addr)
		return cache.NewRedisStore(redisClient)
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", cfg.Cache.Backend)
	}
}

// initializeGate creates the dual-ceiling rate limit gate based on
// configuration. A nil gate means every operation is admitted.
func initializeGate(cfg *models.Config, redisClient *redis.Client, log *slog.Logger) (*ratelimit.Gate, error) {
	if !cfg.RateLimit.Enabled {
		slog.Info("Upstream rate limiting disabled")
		return nil, nil
	}

	rl := cfg.RateLimit
	switch rl.Backend {
	case models.BackendMemory:
		slog.Info("Using in-memory rate limiter",
			"global_limit", rl.GlobalLimit, "global_window", rl.GlobalWindow,
			"base_limit", rl.BaseLimit, "base_window", rl.BaseWindow)
		global := ratelimit.NewMemoryLimiter(rl.GlobalLimit, rl.GlobalWindow, rl.CleanupInterval)
		base := ratelimit.NewMemoryLimiter(rl.BaseLimit, rl.BaseWindow, rl.CleanupInterval)
		return ratelimit.NewGate(global, base, log), nil
	case models.BackendRedis:
		slog.Info("Using Redis rate limiter", "addr", cfg.Redis.Addr)
		global, err := ratelimit.NewRedisLimiter(redisClient, "ratelimit:global", rl.GlobalLimit, rl.GlobalWindow)
		if err != nil {
			return nil, err
		}
		base, err := ratelimit.NewRedisLimiter(redisClient, "ratelimit:base", rl.BaseLimit, rl.BaseWindow)
		if err != nil {
			return nil, err
		}
		return ratelimit.NewGate(global, base, log), nil
	default:
		return nil, fmt.Errorf("unsupported rate limit backend: %s", rl.Backend)
	}
}
