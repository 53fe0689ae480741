package models

// ApplicationStatus records how a job posting was handled.
type ApplicationStatus string

const (
	ApplicationStatusApplied    ApplicationStatus = "applied"
	ApplicationStatusRedirected ApplicationStatus = "redirected"
	ApplicationStatusSkipped    ApplicationStatus = "skipped"
	ApplicationStatusFailed     ApplicationStatus = "failed"
)

// JobPosting is one job listing extracted by a platform agent. Title and
// company must be non-empty; every other field tolerates absence.
type JobPosting struct {
	JobID             string            `json:"job_id"` // Platform id, or internally minted when missing
	JobTitle          string            `json:"job_title"`
	Company           string            `json:"company"`
	Location          string            `json:"location"`
	Description       string            `json:"description,omitempty"`
	IsEasyApply       bool              `json:"is_easy_apply"`
	RecruiterName     string            `json:"recruiter_name,omitempty"`
	RecruiterLink     string            `json:"recruiter_link,omitempty"`
	ExternalApplyLink string            `json:"external_apply_link,omitempty"`
	ApplicationStatus ApplicationStatus `json:"application_status"`
}
