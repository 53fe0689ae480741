package profiles

import (
	"encoding/csv"
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

const csvFilename = "profiles.csv"

var csvHeader = []string{
	"user_id", "full_name", "email", "phone",
	"titles", "locations", "work_modes",
	"current_cv_path", "cv_last_updated",
	"created_at", "updated_at",
}

// CSVStore keeps every profile as one row of profiles.csv. List fields are
// joined with semicolons; parsed CV data is held in memory only since it has
// no flat representation.
type CSVStore struct {
	path   string
	logger arbor.ILogger
	now    func() time.Time

	mu       sync.Mutex
	profiles map[string]*models.UserProfile
}

// NewCSVStore loads profiles.csv from dir, creating the directory if needed.
func NewCSVStore(dir string, logger arbor.ILogger) (*CSVStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating profiles directory: %w", err)
	}

	store := &CSVStore{
		path:     filepath.Join(dir, csvFilename),
		logger:   logger,
		now:      time.Now,
		profiles: make(map[string]*models.UserProfile),
	}
	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

// Create adds a new row. Existing user IDs are rejected.
func (s *CSVStore) Create(profile *models.UserProfile) (*models.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.profiles[profile.UserID]; exists {
		return nil, fmt.Errorf("profile %s already exists", profile.UserID)
	}

	created, err := prepareCreate(profile, s.now())
	if err != nil {
		return nil, err
	}

	s.profiles[created.UserID] = created
	if err := s.flush(); err != nil {
		delete(s.profiles, created.UserID)
		return nil, err
	}

	s.logger.Info().Str("user_id", created.UserID).Msg("Profile created")
	return created, nil
}

// Get returns the stored profile. The boolean reports existence.
func (s *CSVStore) Get(userID string) (*models.UserProfile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.profiles[userID]
	if !ok {
		return nil, false, nil
	}
	copied := *profile
	return &copied, true, nil
}

// Update merges the delta and rewrites the file.
func (s *CSVStore) Update(userID string, update Update) (*models.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("%w: profile %s", common.ErrFileNotFound, userID)
	}

	merged, err := applyUpdate(stored, update, s.now())
	if err != nil {
		return nil, err
	}

	s.profiles[userID] = merged
	if err := s.flush(); err != nil {
		s.profiles[userID] = stored
		return nil, err
	}
	return merged, nil
}

// Delete removes the row. Returns false when it never existed.
func (s *CSVStore) Delete(userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.profiles[userID]
	if !ok {
		return false, nil
	}

	delete(s.profiles, userID)
	if err := s.flush(); err != nil {
		s.profiles[userID] = stored
		return false, err
	}

	s.logger.Info().Str("user_id", userID).Msg("Profile deleted")
	return true, nil
}

// UpdateCVInfo records the CV linkage on the profile row.
func (s *CSVStore) UpdateCVInfo(userID string, cvPath string, data *models.CVRecord) (*models.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("%w: profile %s", common.ErrFileNotFound, userID)
	}

	merged := applyCVInfo(stored, cvPath, data, s.now())
	s.profiles[userID] = merged
	if err := s.flush(); err != nil {
		s.profiles[userID] = stored
		return nil, err
	}
	return merged, nil
}

// List returns all profiles ordered by user ID.
func (s *CSVStore) List() ([]*models.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles := make([]*models.UserProfile, 0, len(s.profiles))
	for _, profile := range s.profiles {
		copied := *profile
		profiles = append(profiles, &copied)
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].UserID < profiles[j].UserID })
	return profiles, nil
}

func (s *CSVStore) load() error {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", common.ErrFileUnreadable, s.path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", common.ErrFileUnreadable, s.path, err)
	}

	for i, row := range rows {
		if i == 0 || len(row) < len(csvHeader) {
			continue
		}
		profile, err := rowToProfile(row)
		if err != nil {
			s.logger.Warn().Err(err).Int("row", i).Msg("Skipping malformed profile row")
			continue
		}
		s.profiles[profile.UserID] = profile
	}
	return nil
}

// flush rewrites the whole file under the store lock.
func (s *CSVStore) flush() error {
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("writing %s: %w", s.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("writing %s: %w", s.path, err)
	}

	ids := make([]string, 0, len(s.profiles))
	for id := range s.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if err := w.Write(profileToRow(s.profiles[id])); err != nil {
			return fmt.Errorf("writing %s: %w", s.path, err)
		}
	}

	w.Flush()
	return w.Error()
}

func profileToRow(p *models.UserProfile) []string {
	modes := make([]string, len(p.JobPreferences.WorkModes))
	for i, m := range p.JobPreferences.WorkModes {
		modes[i] = string(m)
	}
	cvUpdated := ""
	if p.CVLastUpdated != nil {
		cvUpdated = p.CVLastUpdated.Format(time.RFC3339)
	}
	return []string{
		p.UserID, p.FullName, p.Email, p.Phone,
		strings.Join(p.JobPreferences.Titles, ";"),
		strings.Join(p.JobPreferences.Locations, ";"),
		strings.Join(modes, ";"),
		p.CurrentCVPath, cvUpdated,
		p.CreatedAt.Format(time.RFC3339),
		p.UpdatedAt.Format(time.RFC3339),
	}
}

func rowToProfile(row []string) (*models.UserProfile, error) {
	createdAt, err := time.Parse(time.RFC3339, row[9])
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	updatedAt, err := time.Parse(time.RFC3339, row[10])
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	profile := &models.UserProfile{
		UserID:   row[0],
		FullName: row[1],
		Email:    row[2],
		Phone:    row[3],
		JobPreferences: models.JobPreferences{
			Titles:    splitList(row[4]),
			Locations: splitList(row[5]),
			WorkModes: splitModes(row[6]),
		},
		CurrentCVPath: row[7],
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
	}
	if row[8] != "" {
		cvUpdated, err := time.Parse(time.RFC3339, row[8])
		if err != nil {
			return nil, fmt.Errorf("parsing cv_last_updated: %w", err)
		}
		profile.CVLastUpdated = &cvUpdated
	}
	return profile, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ";")
}

func splitModes(s string) []models.WorkMode {
	parts := splitList(s)
	if parts == nil {
		return nil
	}
	modes := make([]models.WorkMode, len(parts))
	for i, p := range parts {
		modes[i] = models.WorkMode(p)
	}
	return modes
}
