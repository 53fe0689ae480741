// Package profiles persists operator profiles and job preferences.
package profiles

import (
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/models"
)

// Update carries partial changes for Store.Update. Nil fields are left
// untouched; set fields replace the stored value.
type Update struct {
	FullName       *string
	Email          *string
	Phone          *string
	JobPreferences *models.JobPreferences
}

// Store is the user-profile persistence contract. Implementations serialise
// all mutations through a per-store lock and refresh updated_at on every
// change.
type Store interface {
	Create(profile *models.UserProfile) (*models.UserProfile, error)
	Get(userID string) (*models.UserProfile, bool, error)
	Update(userID string, update Update) (*models.UserProfile, error)
	Delete(userID string) (bool, error)
	UpdateCVInfo(userID string, cvPath string, data *models.CVRecord) (*models.UserProfile, error)
	List() ([]*models.UserProfile, error)
}

// NewStore builds the backend selected by configuration.
func NewStore(config *common.ProfilesConfig, logger arbor.ILogger) (Store, error) {
	switch config.Backend {
	case "", "json":
		return NewJSONStore(config.Dir, logger)
	case "csv":
		return NewCSVStore(config.Dir, logger)
	default:
		return nil, fmt.Errorf("%w: unknown profiles backend %q", common.ErrConfigInvalid, config.Backend)
	}
}

// applyUpdate merges the delta into a copy of the stored profile and stamps
// updated_at. The copy is validated before it replaces the original.
func applyUpdate(stored *models.UserProfile, update Update, now time.Time) (*models.UserProfile, error) {
	merged := *stored
	if update.FullName != nil {
		merged.FullName = *update.FullName
	}
	if update.Email != nil {
		merged.Email = *update.Email
	}
	if update.Phone != nil {
		merged.Phone = *update.Phone
	}
	if update.JobPreferences != nil {
		merged.JobPreferences = *update.JobPreferences
	}
	merged.UpdatedAt = now

	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// prepareCreate stamps timestamps on a copy of the incoming profile and
// validates it.
func prepareCreate(profile *models.UserProfile, now time.Time) (*models.UserProfile, error) {
	created := *profile
	created.CreatedAt = now
	created.UpdatedAt = now

	if err := created.Validate(); err != nil {
		return nil, err
	}
	return &created, nil
}

// applyCVInfo records the CV linkage fields and stamps both cv_last_updated
// and updated_at.
func applyCVInfo(stored *models.UserProfile, cvPath string, data *models.CVRecord, now time.Time) *models.UserProfile {
	merged := *stored
	merged.CurrentCVPath = cvPath
	stamp := now
	merged.CVLastUpdated = &stamp
	merged.ParsedCVData = data
	merged.UpdatedAt = now
	return &merged
}
