package models

import (
	"time"
)

// TaskStatus is the lifecycle state of a managed task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusTimeout   TaskStatus = "timeout"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// IsTerminal reports whether the status is sticky: no task may leave a
// terminal state.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusTimeout, TaskStatusCancelled:
		return true
	}
	return false
}

// Recognised named task types for name-based dispatch. Reserved types are
// recognised but have no consumer yet; the manager logs and drops them.
const (
	TaskTypeJobSearch        = "job_search"
	TaskTypeCaptcha          = "captcha"
	TaskTypeStateRestoration = "state_restoration" // Reserved
	TaskTypeRecovery         = "recovery"          // Reserved
	TaskTypeVerification     = "verification"      // Reserved
)

// Task is one unit of managed asynchronous work.
// Lifecycle: created -> pending -> running -> terminal.
type Task struct {
	ID          string     `json:"task_id"`
	Type        string     `json:"type,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Status      TaskStatus `json:"status"`
	Result      any        `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Snapshot returns a copy safe to hand to callers while the manager keeps
// mutating the original under its lock.
func (t *Task) Snapshot() Task {
	copied := *t
	return copied
}
