// Package main is the entrypoint for the reportstore API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/courtsidedata/reportstore/internal/api"
	"github.com/courtsidedata/reportstore/internal/api/handler"
	mw "github.com/courtsidedata/reportstore/internal/api/middleware"
	"github.com/courtsidedata/reportstore/internal/api/response"
	"github.com/courtsidedata/reportstore/internal/cache"
	"github.com/courtsidedata/reportstore/internal/config"
	"github.com/courtsidedata/reportstore/internal/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env, "job_ttl", cfg.Jobs.TTL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create stores
	jobStore := store.NewPostgresStore(pool, cfg.Jobs.TTL)

	cacheStore, err := cache.New(ctx, pool, cache.TTLs{
		MerchantNames:    cfg.Cache.MerchantNameTTL,
		AIInsights:       cfg.Cache.AIInsightTTL,
		SnowflakeResults: cfg.Cache.QueryResultTTL,
		Logos:            cfg.Cache.LogoTTL,
	})
	if err != nil {
		return fmt.Errorf("create cache store: %w", err)
	}

	// 5. Optional Redis for rate limiting
	var (
		redisClient *redis.Client
		rateLimit   *mw.RateLimit
	)
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		rateLimit = mw.NewRateLimit(redisClient, 120)
		slog.Info("redis connected, rate limiting enabled")
	}

	// 6. Start background sweepers
	go sweepJobs(ctx, jobStore, cfg.Jobs.CleanupInterval)
	go sweepCache(ctx, cacheStore, cfg.Cache.CleanupInterval)

	// 7. Build router with dependencies
	deps := api.Dependencies{
		RateLimit: rateLimit,

		HealthHandler:      healthHandler(jobStore, cacheStore, redisClient),
		CreateJobHandler:   handler.NewCreateJobHandler(jobStore),
		GetJobHandler:      handler.NewGetJobHandler(jobStore),
		UpdateJobHandler:   handler.NewUpdateJobHandler(jobStore),
		ListJobsHandler:    handler.NewListJobsHandler(jobStore),
		JobStatsHandler:    handler.NewJobStatsHandler(jobStore),
		CacheStatsHandler:  handler.NewCacheStatsHandler(cacheStore),
		CleanupJobsHandler: handler.NewCleanupJobsHandler(jobStore),
		CleanCacheHandler:  handler.NewCleanCacheHandler(cacheStore),
		PurgeCacheHandler:  handler.NewPurgeCacheHandler(cacheStore),
	}

	router := api.NewRouter(deps)

	// 8. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// sweepJobs periodically deletes expired job records.
func sweepJobs(ctx context.Context, s store.Store, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.CleanupExpiredJobs(ctx); n > 0 {
				slog.Info("swept expired jobs", "deleted", n)
			}
		}
	}
}

// sweepCache periodically deletes expired cache entries across all namespaces.
func sweepCache(ctx context.Context, c *cache.Store, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.CleanExpired(ctx)
		}
	}
}

type pinger interface {
	Ping(ctx context.Context) error
}

// healthHandler checks database and (when configured) Redis connectivity.
func healthHandler(s pinger, c pinger, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}
		if redisClient != nil {
			checks["redis"] = "ok"
			if err := redisClient.Ping(r.Context()).Err(); err != nil {
				checks["redis"] = "degraded"
			}
		}

		degraded := false
		for _, v := range checks {
			if v != "ok" {
				degraded = true
			}
		}
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
