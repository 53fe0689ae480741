// Package models defines the core data structures shared across agents,
// the tracker and the task manager.
package models

import "time"

// ActivityStatus is the outcome tag of one activity record.
type ActivityStatus string

const (
	ActivityStatusSuccess   ActivityStatus = "success"
	ActivityStatusError     ActivityStatus = "error"
	ActivityStatusFailed    ActivityStatus = "failed"
	ActivityStatusInfo      ActivityStatus = "info"
	ActivityStatusCreated   ActivityStatus = "created"
	ActivityStatusCancelled ActivityStatus = "cancelled"
	ActivityStatusTimeout   ActivityStatus = "timeout"
)

// ActivityRecord is one immutable row in the activity log. Written append-only,
// never mutated.
type ActivityRecord struct {
	RowID     string         `json:"row_id" csv:"row_id"`
	Timestamp time.Time      `json:"timestamp" csv:"timestamp"`
	AgentName string         `json:"agent_name" csv:"agent_name"`
	JobID     string         `json:"job_id" csv:"job_id"` // Possibly empty
	Type      string         `json:"type" csv:"type"`     // Short tag, e.g. "navigation", "task", "session"
	Details   string         `json:"details" csv:"details"`
	Status    ActivityStatus `json:"status" csv:"status"`
}

// ActivityCategory is a UI-facing grouping of activity types.
type ActivityCategory string

const (
	CategoryAll         ActivityCategory = "ALL"
	CategoryNavigation  ActivityCategory = "Navigation"
	CategoryData        ActivityCategory = "Data"
	CategorySystem      ActivityCategory = "System"
	CategoryAgents      ActivityCategory = "Agents"
	CategoryErrorsOnly  ActivityCategory = "Errors Only"
	CategorySuccessOnly ActivityCategory = "Success Only"
)
