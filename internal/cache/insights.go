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

// GetAIInsight looks up a cached AI response by prompt template and the
// context it was generated from. Key derivation is deterministic over the
// context, so argument ordering at the call site does not matter.
func (s *Store) GetAIInsight(ctx context.Context, promptTemplate string, promptCtx map[string]any) (models.AIInsight, bool) {
	key := InsightKey(promptTemplate, promptCtx)

	var insight models.AIInsight
	err := s.pool.QueryRow(ctx,
		`SELECT response_data, model_used, tokens_used
		 FROM cache_ai_insights
		 WHERE cache_key = $1 AND expires_at > NOW()`, key,
	).Scan(&insight.Response, &insight.Model, &insight.Tokens)
	if errors.Is(err, pgx.ErrNoRows) {
		s.recordMisses(ctx, models.NamespaceAIInsights, 1)
		return models.AIInsight{}, false
	}
	if err != nil {
		slog.Error("get ai insight", "prompt_template", promptTemplate, "error", err)
		return models.AIInsight{}, false
	}

	s.touch(ctx, models.NamespaceAIInsights, []string{key})
	s.recordHits(ctx, models.NamespaceAIInsights, 1)
	slog.Debug("ai insight cache hit", "prompt_template", promptTemplate)
	return insight, true
}

// SetAIInsight caches a structured AI response along with generation
// metadata. response must be a valid JSON document.
func (s *Store) SetAIInsight(ctx context.Context, promptTemplate, insightType string, response json.RawMessage, modelUsed string, tokensUsed *int, ttl time.Duration, promptCtx map[string]any) error {
	key := InsightKey(promptTemplate, promptCtx)
	expiresAt := time.Now().UTC().Add(ttl)

	_, err := s.pool.Exec(ctx,
		`INSERT INTO cache_ai_insights
		   (cache_key, prompt_template, insight_type, response_data, model_used, tokens_used, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (cache_key) DO UPDATE SET
		   response_data = EXCLUDED.response_data,
		   model_used = EXCLUDED.model_used,
		   tokens_used = EXCLUDED.tokens_used,
		   expires_at = EXCLUDED.expires_at,
		   last_accessed = NOW()`,
		key, promptTemplate, insightType, response, modelUsed, tokensUsed, expiresAt)
	if err != nil {
		return fmt.Errorf("set ai insight: %w", err)
	}

	slog.Info("cached ai insight", "prompt_template", promptTemplate, "ttl", ttl)
	return nil
}
