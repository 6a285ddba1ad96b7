package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/courtsidedata/reportstore/internal/config"
)

const (
	connectAttempts   = 3
	connectRetryDelay = 2 * time.Second
)

// Connect builds the shared connection pool. Construction is retried a fixed
// number of times with a fixed delay because the database often comes up a
// beat after the service on managed platforms; after the last attempt the
// error propagates and startup fails.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}
		lastErr = err

		if attempt == connectAttempts {
			break
		}
		slog.Warn("database connection failed, retrying",
			"attempt", attempt, "max_attempts", connectAttempts, "error", err)
		select {
		case <-time.After(connectRetryDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("connect to database after %d attempts: %w", connectAttempts, lastErr)
}
