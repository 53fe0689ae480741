package interfaces

import (
	"context"

	"github.com/ternarybob/peto/internal/models"
)

// TelemetryStorage persists telemetry events.
type TelemetryStorage interface {
	SaveEvent(ctx context.Context, event *models.TelemetryEvent) error
	ListEvents(ctx context.Context, eventType string, limit int) ([]models.TelemetryEvent, error)
}

// OutcomeStorage persists learning-pipeline outcomes so heuristics survive
// restarts.
type OutcomeStorage interface {
	SaveOutcomes(ctx context.Context, action string, outcomes []models.OutcomeRecord) error
	LoadOutcomes(ctx context.Context) (map[string][]models.OutcomeRecord, error)
}

// StorageManager owns the badger connection and hands out typed storages.
type StorageManager interface {
	TelemetryStorage() TelemetryStorage
	OutcomeStorage() OutcomeStorage
	Close() error
}
