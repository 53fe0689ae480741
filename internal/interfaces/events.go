package interfaces

import (
	"context"
	"time"
)

// EventType identifies a published event.
type EventType string

const (
	EventTaskTransition   EventType = "task_transition"
	EventConfidenceScored EventType = "confidence_scored"
	EventJobOutcome       EventType = "job_outcome"
	EventSessionState     EventType = "session_state"
)

// Event is one published event with an opaque payload.
type Event struct {
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// EventHandler consumes one event.
type EventHandler func(ctx context.Context, event Event) error

// EventService is the in-process pub/sub bus used for telemetry.
type EventService interface {
	Subscribe(eventType EventType, handler EventHandler) error
	Publish(ctx context.Context, event Event) error
	PublishSync(ctx context.Context, event Event) error
}
