package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/courtsidedata/reportstore/pkg/models"
)

// GetMerchantName looks up the standardized form of a raw merchant name.
// On a miss the raw name echoes back unchanged so callers can use the result
// either way.
func (s *Store) GetMerchantName(ctx context.Context, rawName string) (models.MerchantName, bool) {
	key := MerchantKey(rawName)
	m := models.MerchantName{Raw: rawName, Standardized: rawName}

	err := s.pool.QueryRow(ctx,
		`SELECT standardized_name, confidence_score
		 FROM cache_merchant_names
		 WHERE cache_key = $1 AND expires_at > NOW()`, key,
	).Scan(&m.Standardized, &m.Confidence)
	if errors.Is(err, pgx.ErrNoRows) {
		s.recordMisses(ctx, models.NamespaceMerchantNames, 1)
		return m, false
	}
	if err != nil {
		slog.Error("get merchant name", "raw_name", rawName, "error", err)
		return m, false
	}

	s.touch(ctx, models.NamespaceMerchantNames, []string{key})
	s.recordHits(ctx, models.NamespaceMerchantNames, 1)
	m.Hit = true
	return m, true
}

// GetMerchantNamesBatch resolves many raw names with two statements total:
// one fetch over the whole batch and one hit-count bump for the matched
// keys. Every requested name appears in the result, misses echoing the raw
// name. This is the hot path when standardizing hundreds of merchants per
// report.
func (s *Store) GetMerchantNamesBatch(ctx context.Context, rawNames []string) map[string]models.MerchantName {
	results := make(map[string]models.MerchantName, len(rawNames))
	if len(rawNames) == 0 {
		return results
	}

	keys := make([]string, 0, len(rawNames))
	for _, raw := range rawNames {
		results[raw] = models.MerchantName{Raw: raw, Standardized: raw}
		keys = append(keys, MerchantKey(raw))
	}

	rows, err := s.pool.Query(ctx,
		`SELECT cache_key, standardized_name, confidence_score
		 FROM cache_merchant_names
		 WHERE cache_key = ANY($1) AND expires_at > NOW()`, keys)
	if err != nil {
		slog.Error("batch get merchant names", "batch_size", len(rawNames), "error", err)
		return results
	}

	type cached struct {
		name       string
		confidence float64
	}
	found := map[string]cached{}
	for rows.Next() {
		var (
			key string
			c   cached
		)
		if err := rows.Scan(&key, &c.name, &c.confidence); err != nil {
			rows.Close()
			slog.Error("scan merchant name row", "error", err)
			return results
		}
		found[key] = c
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		slog.Error("batch get merchant names", "error", err)
		return results
	}

	hitKeys := make([]string, 0, len(found))
	hits := 0
	for _, raw := range rawNames {
		key := MerchantKey(raw)
		c, ok := found[key]
		if !ok {
			continue
		}
		results[raw] = models.MerchantName{Raw: raw, Standardized: c.name, Confidence: c.confidence, Hit: true}
		hits++
	}
	for key := range found {
		hitKeys = append(hitKeys, key)
	}
	s.touch(ctx, models.NamespaceMerchantNames, hitKeys)
	s.recordHits(ctx, models.NamespaceMerchantNames, hits)
	s.recordMisses(ctx, models.NamespaceMerchantNames, len(rawNames)-hits)

	slog.Debug("merchant name batch lookup",
		"batch_size", len(rawNames), "hits", hits)
	return results
}

// SetMerchantName upserts a raw -> standardized mapping. Writing the same
// mapping twice leaves one row; value, confidence, source, and expiry are
// refreshed on overwrite while accumulated hit counts survive.
func (s *Store) SetMerchantName(ctx context.Context, rawName, standardized string, confidence float64, source string, ttl time.Duration) error {
	key := MerchantKey(rawName)
	expiresAt := time.Now().UTC().Add(ttl)

	_, err := s.pool.Exec(ctx,
		`INSERT INTO cache_merchant_names (cache_key, standardized_name, confidence_score, source, expires_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (cache_key) DO UPDATE SET
		   standardized_name = EXCLUDED.standardized_name,
		   confidence_score = EXCLUDED.confidence_score,
		   source = EXCLUDED.source,
		   expires_at = EXCLUDED.expires_at,
		   last_accessed = NOW()`,
		key, standardized, confidence, source, expiresAt)
	if err != nil {
		return fmt.Errorf("set merchant name: %w", err)
	}
	return nil
}
