package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// ValidJobStatus reports whether s is one of the known job statuses.
func ValidJobStatus(s string) bool {
	switch s {
	case JobStatusPending, JobStatusRunning, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

// Job is a durable record of one long-running report build. The front end
// creates it at submission time, the worker mutates status/progress/message
// as it goes, and polling clients read snapshots until a terminal status.
// Jobs past expires_at are invisible to listings and eventually swept.
type Job struct {
	JobID       uuid.UUID       `db:"job_id"       json:"job_id"`
	OwnerKey    string          `db:"owner_key"    json:"owner_key"`
	Status      string          `db:"status"       json:"status"`
	Progress    int             `db:"progress"     json:"progress"`
	Message     *string         `db:"message"      json:"message,omitempty"`
	Error       *string         `db:"error"        json:"error,omitempty"`
	Result      json.RawMessage `db:"result"       json:"result,omitempty"`
	Options     json.RawMessage `db:"options"      json:"options,omitempty"`
	OutputFile  *string         `db:"output_file"  json:"output_file,omitempty"`
	OutputDir   *string         `db:"output_dir"   json:"output_dir,omitempty"`
	CreatedAt   time.Time       `db:"created_at"   json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"   json:"updated_at"`
	CompletedAt *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
	ExpiresAt   time.Time       `db:"expires_at"   json:"expires_at"`
}

// JobSummary is the reduced projection returned by listings: no options,
// no result payload.
type JobSummary struct {
	JobID     uuid.UUID `db:"job_id"     json:"job_id"`
	OwnerKey  string    `db:"owner_key"  json:"owner_key"`
	Status    string    `db:"status"     json:"status"`
	Progress  int       `db:"progress"   json:"progress"`
	Message   *string   `db:"message"    json:"message,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// JobStats are aggregate counts over non-expired jobs, grouped by status.
type JobStats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Running   int `json:"running"`
	Pending   int `json:"pending"`
}
