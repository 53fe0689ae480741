package badger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/peto/internal/interfaces"
	"github.com/ternarybob/peto/internal/models"
)

// TelemetryStorage implements the TelemetryStorage interface for Badger.
type TelemetryStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewTelemetryStorage creates a new TelemetryStorage instance.
func NewTelemetryStorage(db *BadgerDB, logger arbor.ILogger) interfaces.TelemetryStorage {
	return &TelemetryStorage{
		db:     db,
		logger: logger,
	}
}

// SaveEvent persists one telemetry event, minting an id when absent.
func (s *TelemetryStorage) SaveEvent(ctx context.Context, event *models.TelemetryEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if err := s.db.Store().Upsert(event.ID, event); err != nil {
		return fmt.Errorf("failed to save telemetry event: %w", err)
	}
	return nil
}

// ListEvents returns up to limit events of the given type, insertion order.
// An empty type matches all events.
func (s *TelemetryStorage) ListEvents(ctx context.Context, eventType string, limit int) ([]models.TelemetryEvent, error) {
	var events []models.TelemetryEvent
	query := &badgerhold.Query{}
	if eventType != "" {
		query = badgerhold.Where("Type").Eq(eventType)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := s.db.Store().Find(&events, query); err != nil {
		return nil, fmt.Errorf("failed to list telemetry events: %w", err)
	}
	return events, nil
}
