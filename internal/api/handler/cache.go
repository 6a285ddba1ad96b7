package handler

import (
	"context"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/courtsidedata/reportstore/internal/api/response"
	"github.com/courtsidedata/reportstore/pkg/models"
)

// CacheStore defines the cache maintenance operations the handlers depend on.
type CacheStore interface {
	GetStats(ctx context.Context) map[string]models.CacheStats
	CleanExpired(ctx context.Context) map[string]int
	Purge(ctx context.Context, namespace string) (int, error)
}

// NewCacheStatsHandler returns an http.HandlerFunc for GET /api/v1/cache/stats.
func NewCacheStatsHandler(cache CacheStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, cache.GetStats(r.Context()))
	}
}

// NewCleanCacheHandler returns an http.HandlerFunc for POST /api/v1/admin/cache/clean.
func NewCleanCacheHandler(cache CacheStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, map[string]any{"deleted": cache.CleanExpired(r.Context())})
	}
}

// NewPurgeCacheHandler returns an http.HandlerFunc for
// POST /api/v1/admin/cache/{namespace}/purge.
func NewPurgeCacheHandler(cache CacheStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		namespace := chi.URLParam(r, "namespace")
		if !slices.Contains(models.Namespaces, namespace) {
			response.Error(w, http.StatusBadRequest, "INVALID_NAMESPACE",
				"Unknown cache namespace", map[string]any{"valid": models.Namespaces})
			return
		}

		deleted, err := cache.Purge(r.Context(), namespace)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to purge cache namespace", nil)
			return
		}

		response.JSON(w, map[string]any{
			"namespace": namespace,
			"deleted":   deleted,
		})
	}
}
