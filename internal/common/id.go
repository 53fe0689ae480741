package common

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewRowID mints a unique identifier for an activity record.
func NewRowID() string {
	return uuid.New().String()
}

// NewTaskID mints a task identifier. The creation timestamp prefix keeps ids
// sortable in listings; the uuid suffix guarantees uniqueness for tasks
// created within the same second.
func NewTaskID() string {
	return fmt.Sprintf("%s-%s", time.Now().Format("20060102150405"), uuid.New().String()[:8])
}

// NewJobID mints an internal job identifier for postings whose platform id is
// missing.
func NewJobID() string {
	return "job-" + uuid.New().String()
}
