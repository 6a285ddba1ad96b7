package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/courtsidedata/reportstore/pkg/models"
)

// EnsureToday inserts today's statistics row for every namespace if absent.
// Idempotent; called once at construction so the first increment of a
// process run always has a row to land on.
func (s *Store) EnsureToday(ctx context.Context) error {
	for _, ns := range models.Namespaces {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO cache_statistics (cache_type, date, hits, misses)
			 VALUES ($1, CURRENT_DATE, 0, 0)
			 ON CONFLICT (cache_type, date) DO NOTHING`, ns)
		if err != nil {
			return fmt.Errorf("ensure statistics for %s: %w", ns, err)
		}
	}
	return nil
}

// recordHits adds n to today's hit counter for a namespace. The increment is
// a single atomic statement; the upsert also covers the date rolling over
// mid-process. Best effort.
func (s *Store) recordHits(ctx context.Context, namespace string, n int) {
	if n <= 0 {
		return
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO cache_statistics (cache_type, date, hits, misses)
		 VALUES ($1, CURRENT_DATE, $2, 0)
		 ON CONFLICT (cache_type, date)
		 DO UPDATE SET hits = cache_statistics.hits + EXCLUDED.hits`, namespace, n)
	if err != nil {
		slog.Warn("record cache hits", "namespace", namespace, "error", err)
	}
}

// recordMisses adds n to today's miss counter for a namespace. Best effort.
func (s *Store) recordMisses(ctx context.Context, namespace string, n int) {
	if n <= 0 {
		return
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO cache_statistics (cache_type, date, hits, misses)
		 VALUES ($1, CURRENT_DATE, 0, $2)
		 ON CONFLICT (cache_type, date)
		 DO UPDATE SET misses = cache_statistics.misses + EXCLUDED.misses`, namespace, n)
	if err != nil {
		slog.Warn("record cache misses", "namespace", namespace, "error", err)
	}
}
