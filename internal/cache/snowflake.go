package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/courtsidedata/reportstore/pkg/models"
)

// GetQueryResult looks up a cached warehouse result set by query template
// and bind parameters.
func (s *Store) GetQueryResult(ctx context.Context, queryTemplate string, params map[string]any) (models.QueryResult, bool) {
	key := QueryKey(queryTemplate, params)

	var result models.QueryResult
	err := s.pool.QueryRow(ctx,
		`SELECT result_data, row_count, query_duration_ms
		 FROM cache_snowflake_results
		 WHERE cache_key = $1 AND expires_at > NOW()`, key,
	).Scan(&result.Rows, &result.RowCount, &result.DurationMS)
	if errors.Is(err, pgx.ErrNoRows) {
		s.recordMisses(ctx, models.NamespaceSnowflakeResults, 1)
		return models.QueryResult{}, false
	}
	if err != nil {
		slog.Error("get query result", "query_template", queryTemplate, "error", err)
		return models.QueryResult{}, false
	}

	s.touch(ctx, models.NamespaceSnowflakeResults, []string{key})
	s.recordHits(ctx, models.NamespaceSnowflakeResults, 1)
	slog.Debug("query result cache hit", "query_template", queryTemplate, "row_count", result.RowCount)
	return result, true
}

// SetQueryResult caches a warehouse result set. rows must be a JSON array;
// durationMS records the original query's execution time when known.
func (s *Store) SetQueryResult(ctx context.Context, queryTemplate, viewName string, rows json.RawMessage, rowCount int, durationMS *int, ttl time.Duration, params map[string]any) error {
	key := QueryKey(queryTemplate, params)
	expiresAt := time.Now().UTC().Add(ttl)

	_, err := s.pool.Exec(ctx,
		`INSERT INTO cache_snowflake_results
		   (cache_key, query_template, view_name, result_data, row_count, query_duration_ms, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (cache_key) DO UPDATE SET
		   result_data = EXCLUDED.result_data,
		   row_count = EXCLUDED.row_count,
		   query_duration_ms = EXCLUDED.query_duration_ms,
		   expires_at = EXCLUDED.expires_at,
		   last_accessed = NOW()`,
		key, queryTemplate, viewName, rows, rowCount, durationMS, expiresAt)
	if err != nil {
		return fmt.Errorf("set query result: %w", err)
	}

	slog.Info("cached query result", "query_template", queryTemplate, "view_name", viewName,
		"row_count", rowCount, "ttl", ttl)
	return nil
}
