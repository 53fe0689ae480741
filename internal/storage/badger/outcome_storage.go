package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/peto/internal/interfaces"
	"github.com/ternarybob/peto/internal/models"
)

// storedOutcomes is the persisted form of one action's outcome window.
type storedOutcomes struct {
	Action   string                 `badgerhold:"key"`
	Outcomes []models.OutcomeRecord `json:"outcomes"`
}

// OutcomeStorage implements the OutcomeStorage interface for Badger.
type OutcomeStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewOutcomeStorage creates a new OutcomeStorage instance.
func NewOutcomeStorage(db *BadgerDB, logger arbor.ILogger) interfaces.OutcomeStorage {
	return &OutcomeStorage{
		db:     db,
		logger: logger,
	}
}

// SaveOutcomes replaces the persisted window for one action.
func (s *OutcomeStorage) SaveOutcomes(ctx context.Context, action string, outcomes []models.OutcomeRecord) error {
	record := storedOutcomes{Action: action, Outcomes: outcomes}
	if err := s.db.Store().Upsert(action, &record); err != nil {
		return fmt.Errorf("failed to save outcomes for %s: %w", action, err)
	}
	return nil
}

// LoadOutcomes returns all persisted outcome windows keyed by action.
func (s *OutcomeStorage) LoadOutcomes(ctx context.Context) (map[string][]models.OutcomeRecord, error) {
	var stored []storedOutcomes
	if err := s.db.Store().Find(&stored, &badgerhold.Query{}); err != nil {
		return nil, fmt.Errorf("failed to load outcomes: %w", err)
	}
	result := make(map[string][]models.OutcomeRecord, len(stored))
	for _, rec := range stored {
		result[rec.Action] = rec.Outcomes
	}
	return result, nil
}
