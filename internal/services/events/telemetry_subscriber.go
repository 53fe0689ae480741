package events

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/interfaces"
	"github.com/ternarybob/peto/internal/models"
)

// RegisterTelemetrySubscriber persists published events through the storage
// backend. Registered only when telemetry is enabled.
func RegisterTelemetrySubscriber(service interfaces.EventService, storage interfaces.TelemetryStorage, logger arbor.ILogger) error {
	handler := func(ctx context.Context, event interfaces.Event) error {
		return storage.SaveEvent(ctx, &models.TelemetryEvent{
			Type:      string(event.Type),
			Timestamp: event.Timestamp,
			Payload:   event.Payload,
		})
	}

	for _, eventType := range []interfaces.EventType{
		interfaces.EventTaskTransition,
		interfaces.EventConfidenceScored,
		interfaces.EventJobOutcome,
		interfaces.EventSessionState,
	} {
		if err := service.Subscribe(eventType, handler); err != nil {
			return err
		}
	}

	logger.Debug().Msg("Telemetry subscriber registered")
	return nil
}
