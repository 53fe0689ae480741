package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger.
type Manager struct {
	db        *BadgerDB
	telemetry interfaces.TelemetryStorage
	outcomes  interfaces.OutcomeStorage
	logger    arbor.ILogger
}

// NewManager creates a new Badger storage manager rooted at path.
func NewManager(path string, logger arbor.ILogger) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(path, logger)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:        db,
		telemetry: NewTelemetryStorage(db, logger),
		outcomes:  NewOutcomeStorage(db, logger),
		logger:    logger,
	}

	logger.Info().Str("path", path).Msg("Badger storage manager initialized")

	return manager, nil
}

// TelemetryStorage returns the telemetry storage interface.
func (m *Manager) TelemetryStorage() interfaces.TelemetryStorage {
	return m.telemetry
}

// OutcomeStorage returns the outcome storage interface.
func (m *Manager) OutcomeStorage() interfaces.OutcomeStorage {
	return m.outcomes
}

// Close closes the database connection.
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
