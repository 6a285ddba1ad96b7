// Package store persists jobs in Postgres. Writes the caller must observe
// (CreateJob, UpdateJob) propagate errors; read-and-report operations
// (listings, sweeps, stats) log failures and degrade to safe defaults so a
// polling front end never sees a 500 just because one query hiccuped.
//
// The store does not detect worker death: a job whose worker crashed without
// a final failed update stays at its last recorded progress until it expires.
// Arbitrating that is the orchestration layer's responsibility.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/courtsidedata/reportstore/pkg/models"
)

var ErrNotFound = errors.New("resource not found")

// Store is the job data access interface. All job table operations go
// through here.
type Store interface {
	Ping(ctx context.Context) error

	// CreateJob inserts a new pending job and returns its generated ID.
	// Write failures propagate to the caller.
	CreateJob(ctx context.Context, ownerKey string, options map[string]any) (uuid.UUID, error)

	// GetJob returns a full snapshot of one job, or ErrNotFound.
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)

	// UpdateJob applies a sparse set of allow-listed fields to a job.
	// Unknown fields are dropped; an empty resulting set is a no-op that
	// reports false. Returns true iff a row was modified.
	UpdateJob(ctx context.Context, id uuid.UUID, fields map[string]any) (bool, error)

	// ListRecentJobs returns non-expired jobs, newest first, as reduced
	// projections. Returns an empty slice on error.
	ListRecentJobs(ctx context.Context, limit int) []models.JobSummary

	// CleanupExpiredJobs physically deletes expired jobs and returns the
	// number removed. Returns 0 on error.
	CleanupExpiredJobs(ctx context.Context) int

	// GetJobStats returns status counts over non-expired jobs. Returns the
	// zero value on error.
	GetJobStats(ctx context.Context) models.JobStats
}
