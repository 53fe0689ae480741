package profiles

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/models"
)

// JSONStore keeps one <user_id>.json file per profile under its directory.
// The files carry the full record including parsed CV data.
type JSONStore struct {
	dir    string
	logger arbor.ILogger
	now    func() time.Time

	mu sync.Mutex
}

// NewJSONStore creates the directory if needed and returns the store.
func NewJSONStore(dir string, logger arbor.ILogger) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating profiles directory: %w", err)
	}
	return &JSONStore{dir: dir, logger: logger, now: time.Now}, nil
}

func (s *JSONStore) path(userID string) string {
	return filepath.Join(s.dir, userID+".json")
}

// Create writes a new profile file. Existing user IDs are rejected.
func (s *JSONStore) Create(profile *models.UserProfile) (*models.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path(profile.UserID)); err == nil {
		return nil, fmt.Errorf("profile %s already exists", profile.UserID)
	}

	created, err := prepareCreate(profile, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.write(created); err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", created.UserID).Msg("Profile created")
	return created, nil
}

// Get loads one profile. The boolean reports existence.
func (s *JSONStore) Get(userID string) (*models.UserProfile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(userID)
}

// Update merges the delta into the stored profile and persists it.
func (s *JSONStore) Update(userID string, update Update) (*models.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok, err := s.read(userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: profile %s", common.ErrFileNotFound, userID)
	}

	merged, err := applyUpdate(stored, update, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.write(merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// Delete removes the profile file. Returns false when it never existed.
func (s *JSONStore) Delete(userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(userID))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("deleting profile %s: %w", userID, err)
	}

	s.logger.Info().Str("user_id", userID).Msg("Profile deleted")
	return true, nil
}

// UpdateCVInfo records the CV linkage on the profile.
func (s *JSONStore) UpdateCVInfo(userID string, cvPath string, data *models.CVRecord) (*models.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok, err := s.read(userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: profile %s", common.ErrFileNotFound, userID)
	}

	merged := applyCVInfo(stored, cvPath, data, s.now())
	if err := s.write(merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// List returns all stored profiles ordered by user ID.
func (s *JSONStore) List() ([]*models.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing profiles directory: %w", err)
	}

	var profiles []*models.UserProfile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		userID := strings.TrimSuffix(entry.Name(), ".json")
		profile, ok, err := s.read(userID)
		if err != nil {
			return nil, err
		}
		if ok {
			profiles = append(profiles, profile)
		}
	}

	sort.Slice(profiles, func(i, j int) bool { return profiles[i].UserID < profiles[j].UserID })
	return profiles, nil
}

func (s *JSONStore) read(userID string) (*models.UserProfile, bool, error) {
	data, err := os.ReadFile(s.path(userID))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: profile %s: %v", common.ErrFileUnreadable, userID, err)
	}

	var profile models.UserProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, false, fmt.Errorf("%w: profile %s: %v", common.ErrFileUnreadable, userID, err)
	}
	return &profile, true, nil
}

func (s *JSONStore) write(profile *models.UserProfile) error {
	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding profile %s: %w", profile.UserID, err)
	}
	if err := os.WriteFile(s.path(profile.UserID), data, 0644); err != nil {
		return fmt.Errorf("writing profile %s: %w", profile.UserID, err)
	}
	return nil
}
