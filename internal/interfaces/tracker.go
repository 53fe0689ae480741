package interfaces

import (
	"time"

	"github.com/ternarybob/peto/internal/models"
)

// ActivityLogger is the append-only activity log every agent reports to.
type ActivityLogger interface {
	// LogActivity mints a row id and timestamp, echoes to the terminal and
	// appends the record to durable storage.
	LogActivity(activityType, details string, status models.ActivityStatus, agent, jobID string)

	// GetActivities returns all records, optionally filtered by type.
	GetActivities(typeFilter ...string) ([]models.ActivityRecord, error)

	// GetRecent returns records within the trailing window, filtered by type
	// list and status. Empty filters match everything.
	GetRecent(window time.Duration, typeFilter []string, statusFilter models.ActivityStatus) ([]models.ActivityRecord, error)
}

// JobRecorder persists job application outcomes to the platform CSV.
type JobRecorder interface {
	RecordJob(posting models.JobPosting) error
}
