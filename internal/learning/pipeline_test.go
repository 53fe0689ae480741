package learning

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/models"
)

// memoryOutcomeStorage is an in-memory OutcomeStorage backend.
type memoryOutcomeStorage struct {
	mu    sync.Mutex
	saved map[string][]models.OutcomeRecord
}

func (s *memoryOutcomeStorage) SaveOutcomes(ctx context.Context, action string, outcomes []models.OutcomeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saved == nil {
		s.saved = make(map[string][]models.OutcomeRecord)
	}
	s.saved[action] = append([]models.OutcomeRecord(nil), outcomes...)
	return nil
}

func (s *memoryOutcomeStorage) LoadOutcomes(ctx context.Context) (map[string][]models.OutcomeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved, nil
}

func newTestPipeline() *Pipeline {
	return NewPipeline(DefaultWindow, nil, common.GetLogger())
}

func TestPipeline_EmptyQueriesReturnZero(t *testing.T) {
	p := newTestPipeline()
	assert.Equal(t, 0.0, p.SuccessRate("click_apply", DefaultWindow))
	assert.Equal(t, 0.0, p.AverageConfidence("click_apply", DefaultWindow))
	assert.False(t, p.HasData("click_apply"))
}

func TestPipeline_SuccessRate(t *testing.T) {
	p := newTestPipeline()
	for i := 0; i < 3; i++ {
		p.Record("search", true, 0.8, nil)
	}
	p.Record("search", false, 0.4, nil)

	assert.InDelta(t, 0.75, p.SuccessRate("search", DefaultWindow), 1e-9)
	assert.InDelta(t, 0.7, p.AverageConfidence("search", DefaultWindow), 1e-9)
}

func TestPipeline_RollingWindow(t *testing.T) {
	p := newTestPipeline()
	// 60 failures followed by 50 successes: a window of 50 sees only
	// successes.
	for i := 0; i < 60; i++ {
		p.Record("apply", false, 0.1, nil)
	}
	for i := 0; i < 50; i++ {
		p.Record("apply", true, 0.9, nil)
	}

	assert.Equal(t, 1.0, p.SuccessRate("apply", 50))
	assert.InDelta(t, 0.9, p.AverageConfidence("apply", 50), 1e-9)

	// A smaller window is also honoured.
	assert.Equal(t, 1.0, p.SuccessRate("apply", 10))
}

func TestPipeline_ClampsCorruptedConfidence(t *testing.T) {
	p := newTestPipeline()
	p.Record("extract", true, 4.2, nil)
	p.Record("extract", true, -1.0, nil)

	avg := p.AverageConfidence("extract", DefaultWindow)
	assert.InDelta(t, 0.5, avg, 1e-9)
}

func TestPipeline_SaveLoadRoundTrip(t *testing.T) {
	storage := &memoryOutcomeStorage{}
	recorded := NewPipeline(DefaultWindow, storage, common.GetLogger())
	for i := 0; i < 3; i++ {
		recorded.Record("search", true, 0.8, nil)
	}
	recorded.Record("search", false, 0.4, nil)
	recorded.Record("apply", true, 0.9, map[string]any{"route": "easy_apply"})
	require.NoError(t, recorded.Save(context.Background()))

	restored := NewPipeline(DefaultWindow, storage, common.GetLogger())
	require.NoError(t, restored.Load(context.Background()))

	assert.True(t, restored.HasData("search"))
	assert.True(t, restored.HasData("apply"))
	assert.InDelta(t, 0.75, restored.SuccessRate("search", DefaultWindow), 1e-9)
	assert.InDelta(t, 0.7, restored.AverageConfidence("search", DefaultWindow), 1e-9)
	assert.InDelta(t, 0.9, restored.AverageConfidence("apply", DefaultWindow), 1e-9)
}

func TestPipeline_LoadClampsStoredConfidence(t *testing.T) {
	storage := &memoryOutcomeStorage{
		saved: map[string][]models.OutcomeRecord{
			"extract": {{Action: "extract", Success: true, Confidence: 7.5}},
		},
	}
	p := NewPipeline(DefaultWindow, storage, common.GetLogger())
	require.NoError(t, p.Load(context.Background()))
	assert.InDelta(t, 1.0, p.AverageConfidence("extract", DefaultWindow), 1e-9)
}

func TestPipeline_SaveLoadWithoutStorageAreNoOps(t *testing.T) {
	p := newTestPipeline()
	require.NoError(t, p.Save(context.Background()))
	require.NoError(t, p.Load(context.Background()))
	assert.False(t, p.HasData("search"))
}

func TestRingBuffer_Ordering(t *testing.T) {
	b := newRingBuffer(3)
	for i := 0; i < 5; i++ {
		b.add(outcomeWithConfidence(float64(i)))
	}
	last := b.last(3)
	assert.Len(t, last, 3)
	assert.Equal(t, 2.0, last[0].Confidence)
	assert.Equal(t, 4.0, last[2].Confidence)
}
