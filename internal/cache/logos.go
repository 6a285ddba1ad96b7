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

// GetLogo looks up a cached logo URL for a merchant. A hit with Found=false
// means a previous lookup established that no logo exists; callers should
// not retry the upstream provider in that case.
func (s *Store) GetLogo(ctx context.Context, merchantName string) (models.Logo, bool) {
	key := LogoKey(merchantName)

	var logo models.Logo
	err := s.pool.QueryRow(ctx,
		`SELECT logo_url, logo_found
		 FROM cache_logos
		 WHERE cache_key = $1 AND expires_at > NOW()`, key,
	).Scan(&logo.URL, &logo.Found)
	if errors.Is(err, pgx.ErrNoRows) {
		s.recordMisses(ctx, models.NamespaceLogos, 1)
		return models.Logo{}, false
	}
	if err != nil {
		slog.Error("get logo", "merchant_name", merchantName, "error", err)
		return models.Logo{}, false
	}

	s.touch(ctx, models.NamespaceLogos, []string{key})
	s.recordHits(ctx, models.NamespaceLogos, 1)
	logo.Hit = true
	return logo, true
}

// GetLogosBatch resolves many merchant logos with two statements total, the
// same shape as GetMerchantNamesBatch. Every requested name appears in the
// result map; Hit distinguishes a cache miss from a cached negative lookup.
func (s *Store) GetLogosBatch(ctx context.Context, merchantNames []string) map[string]models.Logo {
	results := make(map[string]models.Logo, len(merchantNames))
	if len(merchantNames) == 0 {
		return results
	}

	keys := make([]string, 0, len(merchantNames))
	for _, name := range merchantNames {
		results[name] = models.Logo{}
		keys = append(keys, LogoKey(name))
	}

	rows, err := s.pool.Query(ctx,
		`SELECT cache_key, logo_url, logo_found
		 FROM cache_logos
		 WHERE cache_key = ANY($1) AND expires_at > NOW()`, keys)
	if err != nil {
		slog.Error("batch get logos", "batch_size", len(merchantNames), "error", err)
		return results
	}

	found := map[string]models.Logo{}
	for rows.Next() {
		var (
			key  string
			logo models.Logo
		)
		if err := rows.Scan(&key, &logo.URL, &logo.Found); err != nil {
			rows.Close()
			slog.Error("scan logo row", "error", err)
			return results
		}
		found[key] = logo
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		slog.Error("batch get logos", "error", err)
		return results
	}

	hitKeys := make([]string, 0, len(found))
	hits := 0
	for _, name := range merchantNames {
		logo, ok := found[LogoKey(name)]
		if !ok {
			continue
		}
		logo.Hit = true
		results[name] = logo
		hits++
	}
	for key := range found {
		hitKeys = append(hitKeys, key)
	}
	s.touch(ctx, models.NamespaceLogos, hitKeys)
	s.recordHits(ctx, models.NamespaceLogos, hits)
	s.recordMisses(ctx, models.NamespaceLogos, len(merchantNames)-hits)

	return results
}

// SetLogo caches a logo lookup result. A nil logoURL records the negative
// result so the upstream provider is not asked again until the entry
// expires.
func (s *Store) SetLogo(ctx context.Context, merchantName string, logoURL *string, source string, ttl time.Duration) error {
	key := LogoKey(merchantName)
	expiresAt := time.Now().UTC().Add(ttl)

	_, err := s.pool.Exec(ctx,
		`INSERT INTO cache_logos (cache_key, logo_url, logo_found, source, expires_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (cache_key) DO UPDATE SET
		   logo_url = EXCLUDED.logo_url,
		   logo_found = EXCLUDED.logo_found,
		   source = EXCLUDED.source,
		   expires_at = EXCLUDED.expires_at,
		   last_accessed = NOW()`,
		key, logoURL, logoURL != nil, source, expiresAt)
	if err != nil {
		return fmt.Errorf("set logo: %w", err)
	}

	slog.Info("cached logo lookup", "merchant_name", merchantName, "found", logoURL != nil)
	return nil
}
