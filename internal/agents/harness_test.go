package agents

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/interfaces"
	"github.com/ternarybob/peto/internal/learning"
	"github.com/ternarybob/peto/internal/models"
)

// memoryTracker records activity in memory for assertions.
type memoryTracker struct {
	mu      sync.Mutex
	records []models.ActivityRecord
}

func (t *memoryTracker) LogActivity(activityType, details string, status models.ActivityStatus, agent, jobID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = append(t.records, models.ActivityRecord{
		RowID:     common.NewRowID(),
		Timestamp: time.Now(),
		AgentName: agent,
		JobID:     jobID,
		Type:      activityType,
		Details:   details,
		Status:    status,
	})
}

func (t *memoryTracker) GetActivities(typeFilter ...string) ([]models.ActivityRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(typeFilter) == 0 {
		return append([]models.ActivityRecord(nil), t.records...), nil
	}
	var out []models.ActivityRecord
	for _, r := range t.records {
		for _, f := range typeFilter {
			if r.Type == f {
				out = append(out, r)
				break
			}
		}
	}
	return out, nil
}

func (t *memoryTracker) GetRecent(window time.Duration, typeFilter []string, statusFilter models.ActivityStatus) ([]models.ActivityRecord, error) {
	return t.GetActivities(typeFilter...)
}

func (t *memoryTracker) hasEntry(activityType, detailsSubstring string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range t.records {
		if r.Type == activityType && strings.Contains(r.Details, detailsSubstring) {
			return true
		}
	}
	return false
}

// memoryJobs records platform CSV rows in memory.
type memoryJobs struct {
	mu   sync.Mutex
	rows []models.JobPosting
}

func (j *memoryJobs) RecordJob(posting models.JobPosting) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.rows = append(j.rows, posting)
	return nil
}

// failingProvider errors a fixed number of times before succeeding.
type failingProvider struct {
	mu       sync.Mutex
	failures int
	calls    int
	response string
}

func (p *failingProvider) GenerateContent(ctx context.Context, req *interfaces.CompletionRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.calls <= p.failures {
		return "", common.ErrLLMUnavailable
	}
	return p.response, nil
}
func (p *failingProvider) Name() string { return "failing" }
func (p *failingProvider) Close() error { return nil }

// recordingPrompter returns canned responses and counts prompts.
type recordingPrompter struct {
	mu        sync.Mutex
	responses []string
	prompts   []string
}

func (p *recordingPrompter) Prompt(message string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts = append(p.prompts, message)
	if len(p.responses) == 0 {
		return "", nil
	}
	response := p.responses[0]
	p.responses = p.responses[1:]
	return response, nil
}

// scriptedSolver returns a canned solution and can mutate test state on each
// call via onSolve.
type scriptedSolver struct {
	mu       sync.Mutex
	solution string
	err      error
	calls    int
	onSolve  func()
}

func (s *scriptedSolver) Solve(ctx context.Context, image []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.onSolve != nil {
		s.onSolve()
	}
	return s.solution, s.err
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}

func fastPacer() *common.Pacer {
	return common.NewPacer(time.Millisecond, 2*time.Millisecond)
}

func testNavAgent(page interfaces.Page, tracker interfaces.ActivityLogger, controls *common.Controls) *NavigationAgent {
	return NewNavigationAgent(page, tracker, controls, fastPacer(), NavigationConfig{
		MaxRetries:     3,
		BaseRetryDelay: 20 * time.Millisecond,
		BackoffFactor:  2.0,
		MaxWait:        time.Second,
		ElementTimeout: 100 * time.Millisecond,
	}, common.GetLogger())
}

func testScorer() *learning.Scorer {
	pipeline := learning.NewPipeline(learning.DefaultWindow, nil, common.GetLogger())
	return learning.NewScorer(pipeline, nil, nil, common.GetLogger())
}
