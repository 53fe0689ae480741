package models

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// WorkMode is a preferred working arrangement.
type WorkMode string

const (
	WorkModeOnsite   WorkMode = "onsite"
	WorkModeRemote   WorkMode = "remote"
	WorkModeHybrid   WorkMode = "hybrid"
	WorkModeFlexible WorkMode = "flexible"
)

// ValidWorkMode reports whether m is one of the recognised modes.
func ValidWorkMode(m WorkMode) bool {
	switch m {
	case WorkModeOnsite, WorkModeRemote, WorkModeHybrid, WorkModeFlexible:
		return true
	}
	return false
}

// JobPreferences holds the operator's search preferences.
type JobPreferences struct {
	Titles    []string   `json:"titles"`
	Locations []string   `json:"locations"`
	WorkModes []WorkMode `json:"work_modes"`
}

// UserProfile is one operator profile in the profile store.
// Invariant: UpdatedAt >= CreatedAt.
type UserProfile struct {
	UserID         string         `json:"user_id" validate:"required"`
	FullName       string         `json:"full_name"`
	Email          string         `json:"email" validate:"omitempty,email"`
	Phone          string         `json:"phone"`
	JobPreferences JobPreferences `json:"job_preferences"`

	CurrentCVPath string     `json:"current_cv_path,omitempty"`
	CVLastUpdated *time.Time `json:"cv_last_updated,omitempty"`
	ParsedCVData  *CVRecord  `json:"parsed_cv_data,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var profileValidator = validator.New()

// Validate checks structural invariants and email format.
func (p *UserProfile) Validate() error {
	if err := profileValidator.Struct(p); err != nil {
		return fmt.Errorf("profile validation failed: %w", err)
	}
	if p.UpdatedAt.Before(p.CreatedAt) {
		return fmt.Errorf("profile %s: updated_at precedes created_at", p.UserID)
	}
	for _, m := range p.JobPreferences.WorkModes {
		if !ValidWorkMode(m) {
			return fmt.Errorf("profile %s: unknown work mode %q", p.UserID, m)
		}
	}
	return nil
}
