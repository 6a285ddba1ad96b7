// Package cache implements the Postgres-backed, multi-namespace TTL cache
// shared by the report pipeline. Four namespaces (merchant names, AI
// insights, warehouse query results, logos) each get their own table but
// share key derivation, upsert, batch-lookup, and hit/miss statistics
// mechanics.
//
// Reads are best-effort: a miss is not an error, and an underlying database
// failure on a read path is logged and surfaced as a miss so the pipeline
// falls back to recomputing the value. Expired rows are invisible to reads
// (lazy expiry) and physically removed by CleanExpired (eager expiry).
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/courtsidedata/reportstore/pkg/models"
)

// Default TTLs per namespace, used when the corresponding TTLs field is
// unset.
const (
	DefaultMerchantNameTTL = 30 * 24 * time.Hour
	DefaultAIInsightTTL    = 7 * 24 * time.Hour
	DefaultQueryResultTTL  = 24 * time.Hour
	DefaultLogoTTL         = 60 * 24 * time.Hour
)

// TTLs holds the per-namespace write TTLs. Zero fields fall back to the
// package defaults.
type TTLs struct {
	MerchantNames    time.Duration
	AIInsights       time.Duration
	SnowflakeResults time.Duration
	Logos            time.Duration
}

// ForNamespace returns the TTL for one namespace, applying defaults for
// unset fields. Unknown namespaces return 0.
func (t TTLs) ForNamespace(namespace string) time.Duration {
	pick := func(configured, fallback time.Duration) time.Duration {
		if configured > 0 {
			return configured
		}
		return fallback
	}
	switch namespace {
	case models.NamespaceMerchantNames:
		return pick(t.MerchantNames, DefaultMerchantNameTTL)
	case models.NamespaceAIInsights:
		return pick(t.AIInsights, DefaultAIInsightTTL)
	case models.NamespaceSnowflakeResults:
		return pick(t.SnowflakeResults, DefaultQueryResultTTL)
	case models.NamespaceLogos:
		return pick(t.Logos, DefaultLogoTTL)
	}
	return 0
}

var namespaceTables = map[string]string{
	models.NamespaceMerchantNames:    "cache_merchant_names",
	models.NamespaceAIInsights:       "cache_ai_insights",
	models.NamespaceSnowflakeResults: "cache_snowflake_results",
	models.NamespaceLogos:            "cache_logos",
}

var tableNamespaces = map[string]string{}

func init() {
	for ns, table := range namespaceTables {
		tableNamespaces[table] = ns
	}
}

// Store is the cache data access layer. Safe for concurrent use; every
// operation borrows a connection from the pool for its duration only.
type Store struct {
	pool *pgxpool.Pool
	ttls TTLs
}

// New creates a cache Store and seeds today's statistics rows for every
// namespace.
func New(ctx context.Context, pool *pgxpool.Pool, ttls TTLs) (*Store, error) {
	s := &Store{pool: pool, ttls: ttls}
	if err := s.EnsureToday(ctx); err != nil {
		return nil, fmt.Errorf("ensure cache statistics: %w", err)
	}
	return s, nil
}

// DefaultTTL returns the configured write TTL for a namespace. Callers pass
// it to the Set operations unless they need a custom expiry; an explicit ttl
// of zero or less writes an already-expired entry.
func (s *Store) DefaultTTL(namespace string) time.Duration {
	return s.ttls.ForNamespace(namespace)
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// touch bumps hit bookkeeping for matched keys in one statement. Best
// effort: hit counts are advisory telemetry, so failures only log.
func (s *Store) touch(ctx context.Context, namespace string, keys []string) {
	if len(keys) == 0 {
		return
	}
	table := namespaceTables[namespace]
	_, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET hit_count = hit_count + 1, last_accessed = NOW() WHERE cache_key = ANY($1)`, table),
		keys)
	if err != nil {
		slog.Warn("update cache hit bookkeeping", "namespace", namespace, "error", err)
	}
}

// CleanExpired sweeps every namespace table for expired rows and returns
// per-namespace deletion counts. Never fails; on error it logs and returns
// whatever it has.
func (s *Store) CleanExpired(ctx context.Context) map[string]int {
	cleaned := map[string]int{}

	rows, err := s.pool.Query(ctx, `SELECT table_name, deleted_count FROM clean_expired_cache()`)
	if err != nil {
		slog.Error("clean expired cache entries", "error", err)
		return cleaned
	}
	defer rows.Close()

	total := 0
	for rows.Next() {
		var (
			table string
			count int
		)
		if err := rows.Scan(&table, &count); err != nil {
			slog.Error("scan cache cleanup row", "error", err)
			return cleaned
		}
		ns, ok := tableNamespaces[table]
		if !ok {
			ns = table
		}
		cleaned[ns] = count
		total += count
	}
	if err := rows.Err(); err != nil {
		slog.Error("clean expired cache entries", "error", err)
	}

	if total > 0 {
		slog.Info("cleaned expired cache entries", "total", total)
	}
	return cleaned
}

// Purge removes every row in one namespace, expired or not.
func (s *Store) Purge(ctx context.Context, namespace string) (int, error) {
	table, ok := namespaceTables[namespace]
	if !ok {
		return 0, fmt.Errorf("unknown cache namespace %q", namespace)
	}
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s`, table))
	if err != nil {
		return 0, fmt.Errorf("purge %s: %w", namespace, err)
	}
	purged := int(tag.RowsAffected())
	slog.Info("purged cache namespace", "namespace", namespace, "count", purged)
	return purged, nil
}

// GetStats merges today's hit/miss counters with whole-table size and
// engagement rollups, keyed by namespace. Returns whatever it could gather
// on error.
func (s *Store) GetStats(ctx context.Context) map[string]models.CacheStats {
	stats := map[string]models.CacheStats{}

	rows, err := s.pool.Query(ctx,
		`SELECT cache_type, hits, misses FROM cache_statistics WHERE date = CURRENT_DATE`)
	if err != nil {
		slog.Error("get cache statistics", "error", err)
		return stats
	}
	for rows.Next() {
		var (
			ns           string
			hits, misses int
		)
		if err := rows.Scan(&ns, &hits, &misses); err != nil {
			rows.Close()
			slog.Error("scan cache statistics", "error", err)
			return stats
		}
		entry := models.CacheStats{Hits: hits, Misses: misses, Total: hits + misses}
		if entry.Total > 0 {
			entry.HitRate = float64(hits) / float64(entry.Total) * 100
		}
		stats[ns] = entry
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		slog.Error("get cache statistics", "error", err)
		return stats
	}

	rollups, err := s.pool.Query(ctx, `SELECT cache_type, entries, total_hits, avg_hits, space_mb FROM get_cache_stats()`)
	if err != nil {
		slog.Error("get cache rollups", "error", err)
		return stats
	}
	defer rollups.Close()
	for rollups.Next() {
		var (
			ns                 string
			entries, totalHits int
			avgHits, spaceMB   float64
		)
		if err := rollups.Scan(&ns, &entries, &totalHits, &avgHits, &spaceMB); err != nil {
			slog.Error("scan cache rollup", "error", err)
			return stats
		}
		entry := stats[ns]
		entry.Entries = entries
		entry.TotalHits = totalHits
		entry.AvgHitsPerEntry = avgHits
		entry.SpaceMB = spaceMB
		stats[ns] = entry
	}
	if err := rollups.Err(); err != nil {
		slog.Error("get cache rollups", "error", err)
	}
	return stats
}
