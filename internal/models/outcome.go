package models

import "time"

// OutcomeRecord is one per-action outcome fed to the learning pipeline.
// Confidence is clamped to [0,1] on record so a corrupted value cannot
// propagate into rolling queries.
type OutcomeRecord struct {
	Action     string         `json:"action"`
	Timestamp  time.Time      `json:"timestamp"`
	Success    bool           `json:"success"`
	Confidence float64        `json:"confidence"`
	Context    map[string]any `json:"context,omitempty"`
}

// TelemetryEvent is one persisted telemetry row.
type TelemetryEvent struct {
	ID        string         `json:"id" badgerhold:"key"`
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}
