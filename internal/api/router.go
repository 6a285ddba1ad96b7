package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/courtsidedata/reportstore/internal/api/middleware"
	"github.com/courtsidedata/reportstore/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	RateLimit *mw.RateLimit

	HealthHandler      http.HandlerFunc
	CreateJobHandler   http.HandlerFunc
	GetJobHandler      http.HandlerFunc
	UpdateJobHandler   http.HandlerFunc
	ListJobsHandler    http.HandlerFunc
	JobStatsHandler    http.HandlerFunc
	CacheStatsHandler  http.HandlerFunc
	CleanupJobsHandler http.HandlerFunc
	CleanCacheHandler  http.HandlerFunc
	PurgeCacheHandler  http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	if deps.RateLimit != nil {
		r.Use(deps.RateLimit.Limit)
	}

	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	r.Post("/api/v1/jobs", orNotImplemented(deps.CreateJobHandler))
	r.Get("/api/v1/jobs", orNotImplemented(deps.ListJobsHandler))
	r.Get("/api/v1/jobs/stats", orNotImplemented(deps.JobStatsHandler))
	r.Get("/api/v1/jobs/{jobID}", orNotImplemented(deps.GetJobHandler))
	r.Patch("/api/v1/jobs/{jobID}", orNotImplemented(deps.UpdateJobHandler))

	r.Get("/api/v1/cache/stats", orNotImplemented(deps.CacheStatsHandler))

	r.Post("/api/v1/admin/jobs/cleanup", orNotImplemented(deps.CleanupJobsHandler))
	r.Post("/api/v1/admin/cache/clean", orNotImplemented(deps.CleanCacheHandler))
	r.Post("/api/v1/admin/cache/{namespace}/purge", orNotImplemented(deps.PurgeCacheHandler))

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
