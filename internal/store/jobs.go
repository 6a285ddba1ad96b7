package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/courtsidedata/reportstore/pkg/models"
)

const defaultListLimit = 100

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool   *pgxpool.Pool
	jobTTL time.Duration
}

// NewPostgresStore creates a new PostgresStore. jobTTL governs how long new
// jobs stay visible before the expiry sweep may remove them.
func NewPostgresStore(pool *pgxpool.Pool, jobTTL time.Duration) *PostgresStore {
	if jobTTL <= 0 {
		jobTTL = 24 * time.Hour
	}
	return &PostgresStore{pool: pool, jobTTL: jobTTL}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) CreateJob(ctx context.Context, ownerKey string, options map[string]any) (uuid.UUID, error) {
	id := uuid.New()

	status := models.JobStatusPending
	if v, ok := options["status"].(string); ok && models.ValidJobStatus(v) {
		status = v
	}
	message := "Initializing..."
	if v, ok := options["message"].(string); ok && v != "" {
		message = v
	}

	optionsJSON, err := json.Marshal(options)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode job options: %w", err)
	}

	expiresAt := time.Now().UTC().Add(s.jobTTL)
	_, err = s.pool.Exec(ctx,
		`INSERT INTO jobs (job_id, owner_key, status, message, options, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id, ownerKey, status, message, optionsJSON, expiresAt)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create job: %w", err)
	}

	slog.Info("created job", "job_id", id, "owner_key", ownerKey)
	return id, nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var j models.Job
	err := s.pool.QueryRow(ctx,
		`SELECT job_id, owner_key, status, progress, message, error, result, options,
		        output_file, output_dir, created_at, updated_at, completed_at, expires_at
		 FROM jobs WHERE job_id = $1`, id,
	).Scan(&j.JobID, &j.OwnerKey, &j.Status, &j.Progress, &j.Message, &j.Error,
		&j.Result, &j.Options, &j.OutputFile, &j.OutputDir,
		&j.CreatedAt, &j.UpdatedAt, &j.CompletedAt, &j.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		// Read path backs a polling endpoint; degrade to not-found but keep
		// the cause in the chain for diagnostics.
		slog.Error("get job", "job_id", id, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return &j, nil
}

// updatableJobFields maps UpdateJob field names to jobs columns. Fields not
// listed here are silently dropped.
var updatableJobFields = map[string]string{
	"status":       "status",
	"progress":     "progress",
	"message":      "message",
	"error":        "error",
	"result":       "result",
	"output_file":  "output_file",
	"output_dir":   "output_dir",
	"completed_at": "completed_at",
}

func (s *PostgresStore) UpdateJob(ctx context.Context, id uuid.UUID, fields map[string]any) (bool, error) {
	var (
		setClauses []string
		args       = []any{id}
	)
	for name, value := range fields {
		col, ok := updatableJobFields[name]
		if !ok {
			continue
		}
		arg, ok := convertJobField(id, name, value)
		if !ok {
			continue
		}
		args = append(args, arg)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if len(setClauses) == 0 {
		return false, nil
	}

	query := "UPDATE jobs SET " + strings.Join(setClauses, ", ") + " WHERE job_id = $1"
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update job: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// convertJobField coerces an incoming field value to its storable form.
// Returns ok=false for values that should be skipped (e.g. malformed
// timestamps) without failing the whole update.
func convertJobField(id uuid.UUID, name string, value any) (any, bool) {
	switch name {
	case "status":
		v, ok := value.(string)
		if !ok || !models.ValidJobStatus(v) {
			slog.Warn("skipping invalid status in job update", "job_id", id, "value", value)
			return nil, false
		}
		return v, true
	case "progress":
		var p int
		switch v := value.(type) {
		case int:
			p = v
		case int64:
			p = int(v)
		case float64: // JSON numbers decode as float64
			p = int(v)
		default:
			slog.Warn("skipping non-numeric progress in job update", "job_id", id, "value", value)
			return nil, false
		}
		if p < 0 || p > 100 {
			slog.Warn("skipping out-of-range progress in job update", "job_id", id, "value", p)
			return nil, false
		}
		return p, true
	case "result":
		encoded, err := json.Marshal(value)
		if err != nil {
			slog.Warn("skipping unencodable result in job update", "job_id", id, "error", err)
			return nil, false
		}
		return encoded, true
	case "completed_at":
		switch v := value.(type) {
		case time.Time:
			return v, true
		case string:
			ts, err := time.Parse(time.RFC3339, v)
			if err != nil {
				slog.Warn("skipping malformed completed_at in job update", "job_id", id, "value", v)
				return nil, false
			}
			return ts, true
		}
		slog.Warn("skipping malformed completed_at in job update", "job_id", id, "value", value)
		return nil, false
	default:
		return value, true
	}
}

func (s *PostgresStore) ListRecentJobs(ctx context.Context, limit int) []models.JobSummary {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.pool.Query(ctx,
		`SELECT job_id, owner_key, status, progress, message, created_at
		 FROM jobs
		 WHERE expires_at > NOW()
		 ORDER BY created_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		slog.Error("list recent jobs", "error", err)
		return []models.JobSummary{}
	}
	defer rows.Close()

	jobs := []models.JobSummary{}
	for rows.Next() {
		var j models.JobSummary
		if err := rows.Scan(&j.JobID, &j.OwnerKey, &j.Status, &j.Progress, &j.Message, &j.CreatedAt); err != nil {
			slog.Error("scan job summary", "error", err)
			return []models.JobSummary{}
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		slog.Error("list recent jobs", "error", err)
		return []models.JobSummary{}
	}
	return jobs
}

func (s *PostgresStore) CleanupExpiredJobs(ctx context.Context) int {
	tag, err := s.pool.Exec(ctx, `DELETE FROM jobs WHERE expires_at < NOW()`)
	if err != nil {
		slog.Error("cleanup expired jobs", "error", err)
		return 0
	}
	deleted := int(tag.RowsAffected())
	if deleted > 0 {
		slog.Info("cleaned up expired jobs", "count", deleted)
	}
	return deleted
}

func (s *PostgresStore) GetJobStats(ctx context.Context) models.JobStats {
	var stats models.JobStats
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE status = 'completed'),
		        COUNT(*) FILTER (WHERE status = 'failed'),
		        COUNT(*) FILTER (WHERE status = 'running'),
		        COUNT(*) FILTER (WHERE status = 'pending')
		 FROM jobs
		 WHERE expires_at > NOW()`,
	).Scan(&stats.Total, &stats.Completed, &stats.Failed, &stats.Running, &stats.Pending)
	if err != nil {
		slog.Error("get job stats", "error", err)
		return models.JobStats{}
	}
	return stats
}
