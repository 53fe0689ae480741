// Package learning records per-action outcomes and scores the confidence of
// proposed actions from historical success rates.
package learning

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/interfaces"
	"github.com/ternarybob/peto/internal/models"
)

// DefaultWindow is the rolling window for success-rate and confidence queries.
const DefaultWindow = 50

// ringBuffer keeps the last capacity outcomes for one action in insertion
// order.
type ringBuffer struct {
	items []models.OutcomeRecord
	next  int
	full  bool
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{items: make([]models.OutcomeRecord, capacity)}
}

func (b *ringBuffer) add(record models.OutcomeRecord) {
	b.items[b.next] = record
	b.next = (b.next + 1) % len(b.items)
	if b.next == 0 {
		b.full = true
	}
}

// last returns up to n most recent outcomes, oldest first.
func (b *ringBuffer) last(n int) []models.OutcomeRecord {
	var ordered []models.OutcomeRecord
	if b.full {
		ordered = append(ordered, b.items[b.next:]...)
		ordered = append(ordered, b.items[:b.next]...)
	} else {
		ordered = append(ordered, b.items[:b.next]...)
	}
	if n < len(ordered) {
		ordered = ordered[len(ordered)-n:]
	}
	return ordered
}

// Pipeline is the in-memory outcome store. Outcomes are kept per action name
// in insertion order; rolling queries take the last window items.
type Pipeline struct {
	mu       sync.RWMutex
	outcomes map[string]*ringBuffer
	capacity int
	storage  interfaces.OutcomeStorage // Optional persistence backend
	logger   arbor.ILogger
}

// NewPipeline creates a pipeline with ring buffers sized to capacity. A nil
// storage disables Save/Load.
func NewPipeline(capacity int, storage interfaces.OutcomeStorage, logger arbor.ILogger) *Pipeline {
	if capacity < DefaultWindow {
		capacity = DefaultWindow
	}
	return &Pipeline{
		outcomes: make(map[string]*ringBuffer),
		capacity: capacity,
		storage:  storage,
		logger:   logger,
	}
}

// Record appends one outcome for the action. Confidence is clamped to [0,1].
// The call has no side effects beyond the in-memory append and a log line.
func (p *Pipeline) Record(action string, success bool, confidence float64, context map[string]any) {
	record := models.OutcomeRecord{
		Action:     action,
		Timestamp:  time.Now(),
		Success:    success,
		Confidence: Clamp(confidence),
		Context:    context,
	}

	p.mu.Lock()
	buf, ok := p.outcomes[action]
	if !ok {
		buf = newRingBuffer(p.capacity)
		p.outcomes[action] = buf
	}
	buf.add(record)
	p.mu.Unlock()

	p.logger.Debug().
		Str("action", action).
		Bool("success", success).
		Float64("confidence", record.Confidence).
		Msg("Outcome recorded")
}

// SuccessRate returns the fraction of successes over the last window
// outcomes for the action, or 0.0 with no data.
func (p *Pipeline) SuccessRate(action string, window int) float64 {
	recent := p.recent(action, window)
	if len(recent) == 0 {
		return 0.0
	}
	successes := 0
	for _, r := range recent {
		if r.Success {
			successes++
		}
	}
	return float64(successes) / float64(len(recent))
}

// AverageConfidence returns the mean confidence over the last window
// outcomes for the action, or 0.0 with no data.
func (p *Pipeline) AverageConfidence(action string, window int) float64 {
	recent := p.recent(action, window)
	if len(recent) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, r := range recent {
		sum += r.Confidence
	}
	return sum / float64(len(recent))
}

// HasData reports whether any outcome exists for the action.
func (p *Pipeline) HasData(action string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	buf, ok := p.outcomes[action]
	return ok && (buf.full || buf.next > 0)
}

// UpdateHeuristics is reserved for future heuristic tuning per action.
func (p *Pipeline) UpdateHeuristics(action string) {
	p.logger.Debug().Str("action", action).Msg("UpdateHeuristics is reserved")
}

// Save persists the current buffers through the storage backend.
func (p *Pipeline) Save(ctx context.Context) error {
	if p.storage == nil {
		return nil
	}
	p.mu.RLock()
	snapshot := make(map[string][]models.OutcomeRecord, len(p.outcomes))
	for action, buf := range p.outcomes {
		snapshot[action] = buf.last(p.capacity)
	}
	p.mu.RUnlock()

	for action, outcomes := range snapshot {
		if err := p.storage.SaveOutcomes(ctx, action, outcomes); err != nil {
			return err
		}
	}
	return nil
}

// Load restores persisted outcomes into fresh buffers.
func (p *Pipeline) Load(ctx context.Context) error {
	if p.storage == nil {
		return nil
	}
	stored, err := p.storage.LoadOutcomes(ctx)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for action, outcomes := range stored {
		buf := newRingBuffer(p.capacity)
		for _, o := range outcomes {
			o.Confidence = Clamp(o.Confidence)
			buf.add(o)
		}
		p.outcomes[action] = buf
	}
	return nil
}

func (p *Pipeline) recent(action string, window int) []models.OutcomeRecord {
	if window <= 0 {
		window = DefaultWindow
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	buf, ok := p.outcomes[action]
	if !ok {
		return nil
	}
	return buf.last(window)
}

// Clamp bounds a confidence value to [0,1].
func Clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
