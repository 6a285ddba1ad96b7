package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/courtsidedata/reportstore/internal/api/response"
	"github.com/courtsidedata/reportstore/internal/store"
	"github.com/courtsidedata/reportstore/pkg/models"
)

const maxListLimit = 500

// JobStore defines the job operations the handlers depend on.
type JobStore interface {
	CreateJob(ctx context.Context, ownerKey string, options map[string]any) (uuid.UUID, error)
	GetJob(ctx context.Context, jobID uuid.UUID) (*models.Job, error)
	UpdateJob(ctx context.Context, jobID uuid.UUID, fields map[string]any) (bool, error)
	ListRecentJobs(ctx context.Context, limit int) []models.JobSummary
	CleanupExpiredJobs(ctx context.Context) int
	GetJobStats(ctx context.Context) models.JobStats
}

// NewCreateJobHandler returns an http.HandlerFunc for POST /api/v1/jobs.
func NewCreateJobHandler(jobs JobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			OwnerKey string         `json:"owner_key"`
			Options  map[string]any `json:"options"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		if req.OwnerKey == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "owner_key is required", nil)
			return
		}

		jobID, err := jobs.CreateJob(r.Context(), req.OwnerKey, req.Options)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to create job", nil)
			return
		}

		response.Created(w, map[string]any{
			"job_id": jobID,
			"status": models.JobStatusPending,
		})
	}
}

// NewGetJobHandler returns an http.HandlerFunc for GET /api/v1/jobs/{jobID}.
func NewGetJobHandler(jobs JobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID must be a valid UUID", nil)
			return
		}

		job, err := jobs.GetJob(r.Context(), jobID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		response.JSON(w, job)
	}
}

// NewUpdateJobHandler returns an http.HandlerFunc for PATCH /api/v1/jobs/{jobID}.
// The request body is a flat object of fields to update; fields outside the
// allowed set are ignored.
func NewUpdateJobHandler(jobs JobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID must be a valid UUID", nil)
			return
		}

		var fields map[string]any
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		updated, err := jobs.UpdateJob(r.Context(), jobID, fields)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to update job", nil)
			return
		}

		response.JSON(w, map[string]any{
			"job_id":  jobID,
			"updated": updated,
		})
	}
}

// NewListJobsHandler returns an http.HandlerFunc for GET /api/v1/jobs.
func NewListJobsHandler(jobs JobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 100
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be a positive integer", nil)
				return
			}
			limit = n
		}
		if limit > maxListLimit {
			limit = maxListLimit
		}

		summaries := jobs.ListRecentJobs(r.Context(), limit)
		response.Collection(w, summaries, response.PaginationMeta{
			Page:    1,
			Limit:   limit,
			Total:   len(summaries),
			HasNext: false,
		})
	}
}

// NewJobStatsHandler returns an http.HandlerFunc for GET /api/v1/jobs/stats.
func NewJobStatsHandler(jobs JobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, jobs.GetJobStats(r.Context()))
	}
}

// NewCleanupJobsHandler returns an http.HandlerFunc for POST /api/v1/admin/jobs/cleanup.
func NewCleanupJobsHandler(jobs JobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deleted := jobs.CleanupExpiredJobs(r.Context())
		response.JSON(w, map[string]any{"deleted": deleted})
	}
}
