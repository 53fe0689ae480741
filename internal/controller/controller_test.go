package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/models"
	"github.com/ternarybob/peto/internal/tasks"
)

type memoryTracker struct {
	mu      sync.Mutex
	records []models.ActivityRecord
}

func (t *memoryTracker) LogActivity(activityType, details string, status models.ActivityStatus, agent, jobID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = append(t.records, models.ActivityRecord{
		RowID: common.NewRowID(), Timestamp: time.Now(),
		AgentName: agent, JobID: jobID, Type: activityType, Details: details, Status: status,
	})
}

func (t *memoryTracker) GetActivities(typeFilter ...string) ([]models.ActivityRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]models.ActivityRecord(nil), t.records...), nil
}

func (t *memoryTracker) GetRecent(window time.Duration, typeFilter []string, statusFilter models.ActivityStatus) ([]models.ActivityRecord, error) {
	return t.GetActivities()
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

func (t *memoryTracker) countEntries(activityType, detailsSubstring string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	count := 0
	for _, r := range t.records {
		if r.Type == activityType && strings.Contains(r.Details, detailsSubstring) {
			count++
		}
	}
	return count
}

// fakePlatform serves scripted search results per attempt and records the
// form data it was handed.
type fakePlatform struct {
	mu       sync.Mutex
	errs     []error
	attempts int
	formData map[string]string
	posting  *models.JobPosting
	applyErr error
	applied  []string
}

func (p *fakePlatform) SearchJobsAndApply(ctx context.Context, jobTitle, location string, formData map[string]string) ([]models.JobPosting, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts++
	p.formData = formData
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return []models.JobPosting{{JobID: "job-1", JobTitle: jobTitle, Location: location}}, nil
}

func (p *fakePlatform) ApplyToJobURL(ctx context.Context, jobURL string, formData map[string]string) (*models.JobPosting, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applied = append(p.applied, jobURL)
	p.formData = formData
	if p.applyErr != nil {
		return nil, p.applyErr
	}
	if p.posting != nil {
		return p.posting, nil
	}
	return &models.JobPosting{JobID: "job-1", ApplicationStatus: models.ApplicationStatusApplied}, nil
}

type fakeCV struct {
	validateErr error
	prepareErr  error
	prepared    []string
}

func (c *fakeCV) ValidateForUpload(path string) error { return c.validateErr }

func (c *fakeCV) PrepareCV(ctx context.Context, path string) (string, *models.CVRecord, error) {
	c.prepared = append(c.prepared, path)
	if c.prepareErr != nil {
		return "", nil, c.prepareErr
	}
	return "raw text", &models.CVRecord{RawText: "raw text", Filename: "cv.pdf"}, nil
}

type harness struct {
	controller *Controller
	tracker    *memoryTracker
	platform   *fakePlatform
	cv         *fakeCV
	controls   *common.Controls
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	tracker := &memoryTracker{}
	platform := &fakePlatform{}
	cv := &fakeCV{}
	controls := common.NewControls()

	config := common.DefaultConfig()
	config.System.RetryDelaySec = 0.02
	config.Tasks.TaskTimeoutSec = 5
	config.Tasks.QueueCheckIntervalMS = 5

	manager := tasks.NewManager(&config.Tasks, tracker, nil, common.GetLogger())

	controller := New(Deps{
		Tracker:   tracker,
		Controls:  controls,
		Tasks:     manager,
		Platforms: map[string]PlatformAgent{"linkedin": platform},
		CV:        cv,
		FormData:  map[string]string{"phone": "555-0100"},
		Config:    config,
		Logger:    common.GetLogger(),
	})
	return &harness{controller: controller, tracker: tracker, platform: platform, cv: cv, controls: controls}
}

func TestStartSession_LogsOnEveryCall(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.controller.StartSession(context.Background()))
	require.NoError(t, h.controller.StartSession(context.Background()))

	assert.Equal(t, 2, h.tracker.countEntries("session", "started"))
	status := h.controller.SessionStatus()
	require.NotNil(t, status.StartedAt)
	assert.False(t, status.Stopped)
}

func TestEndSession_StopsControls(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.controller.EndSession(context.Background()))

	assert.True(t, h.controls.Stopped())
	assert.True(t, h.tracker.hasEntry("session", "ended"))
}

func TestRunPlatformFlow_RetriesThenSucceeds(t *testing.T) {
	h := newHarness(t)
	h.platform.errs = []error{errors.New("transient DOM failure"), nil}

	start := time.Now()
	outcomes, err := h.controller.RunPlatformFlow(context.Background(), "linkedin", "Engineer", "Remote")
	require.NoError(t, err)

	assert.Equal(t, 2, h.platform.attempts)
	require.Len(t, outcomes, 1)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond, "retry must wait the base delay")
	assert.True(t, h.tracker.hasEntry("job_search_apply", "Flow failed (attempt 1/3)"))
	assert.True(t, h.tracker.hasEntry("job_search_apply", "completed, 1 listings processed"))
}

func TestRunPlatformFlow_ExhaustionPropagatesLastError(t *testing.T) {
	h := newHarness(t)
	lastErr := errors.New("still broken")
	h.platform.errs = []error{errors.New("broken"), errors.New("broken again"), lastErr}

	_, err := h.controller.RunPlatformFlow(context.Background(), "linkedin", "Engineer", "Remote")
	assert.ErrorIs(t, err, lastErr)
	assert.Equal(t, 3, h.platform.attempts)
	assert.True(t, h.tracker.hasEntry("job_search_apply", "Giving up after 3 attempts"))
}

func TestRunPlatformFlow_LoggedOutAbortsWithoutRetry(t *testing.T) {
	h := newHarness(t)
	h.platform.errs = []error{fmt.Errorf("%w: session expired", common.ErrLoggedOut)}

	_, err := h.controller.RunPlatformFlow(context.Background(), "linkedin", "Engineer", "Remote")
	assert.ErrorIs(t, err, common.ErrLoggedOut)
	assert.Equal(t, 1, h.platform.attempts)
	assert.True(t, h.tracker.hasEntry("job_search_apply", "Aborting without retry"))
}

func TestRunPlatformFlow_CaptchaAbortsWithoutRetry(t *testing.T) {
	h := newHarness(t)
	h.platform.errs = []error{fmt.Errorf("%w: challenge presented", common.ErrCaptchaRequired)}

	_, err := h.controller.RunPlatformFlow(context.Background(), "linkedin", "Engineer", "Remote")
	assert.ErrorIs(t, err, common.ErrCaptchaRequired)
	assert.Equal(t, 1, h.platform.attempts)
}

func TestRunPlatformFlow_NonRetryableTaxonomyAbortsWithoutRetry(t *testing.T) {
	h := newHarness(t)
	h.platform.errs = []error{fmt.Errorf("%w: .bmp", common.ErrUnsupportedFormat)}

	_, err := h.controller.RunPlatformFlow(context.Background(), "linkedin", "Engineer", "Remote")
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
	assert.Equal(t, 1, h.platform.attempts, "every non-retryable taxonomy error must abort on the first attempt")
	assert.True(t, h.tracker.hasEntry("job_search_apply", "Aborting without retry"))
}

func TestRunPlatformFlow_UnknownPlatform(t *testing.T) {
	h := newHarness(t)

	_, err := h.controller.RunPlatformFlow(context.Background(), "glassdoor", "Engineer", "Remote")
	assert.ErrorIs(t, err, common.ErrConfigInvalid)
	assert.Equal(t, 0, h.platform.attempts)
}

func TestRunPlatformFlow_PauseBlocksUntilResume(t *testing.T) {
	h := newHarness(t)
	h.controller.PauseSession(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := h.controller.RunPlatformFlow(context.Background(), "linkedin", "Engineer", "Remote")
		done <- err
	}()

	select {
	case <-done:
		t.Fatal("flow ran while paused")
	case <-time.After(150 * time.Millisecond):
	}

	h.controller.ResumeSession(context.Background())
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("flow did not resume")
	}
	assert.True(t, h.tracker.hasEntry("session", "paused"))
	assert.True(t, h.tracker.hasEntry("session", "resumed"))
}

func TestRunSearch_CompletesThroughTaskManager(t *testing.T) {
	h := newHarness(t)

	outcomes, err := h.controller.RunSearch(context.Background(), "linkedin", "Engineer", "Remote")
	require.NoError(t, err)
	require.Len(t, outcomes, 1)

	assert.True(t, h.tracker.hasEntry("task", "completed"))
	assert.True(t, h.tracker.hasEntry("job_search_apply", "completed, 1 listings processed"))
	assert.Empty(t, h.controller.SessionStatus().CurrentTask)
}

func TestApplyToJob_PreparesCVAndForwardsPath(t *testing.T) {
	h := newHarness(t)

	posting, err := h.controller.ApplyToJob(context.Background(), "https://example.com/jobs/1", "/tmp/cv.pdf")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusApplied, posting.ApplicationStatus)

	assert.Equal(t, []string{"/tmp/cv.pdf"}, h.cv.prepared)
	assert.Equal(t, "/tmp/cv.pdf", h.platform.formData["cv_path"])
	assert.Equal(t, "555-0100", h.platform.formData["phone"], "configured form defaults carry through")
	assert.True(t, h.tracker.hasEntry("cv", "Prepared CV"))
	assert.True(t, h.tracker.hasEntry("job_apply", "finished with status applied"))
}

func TestApplyToJob_RejectedCVStopsBeforeApplying(t *testing.T) {
	h := newHarness(t)
	h.cv.validateErr = fmt.Errorf("%w: cv.pdf", common.ErrFileTooLarge)

	_, err := h.controller.ApplyToJob(context.Background(), "https://example.com/jobs/1", "/tmp/cv.pdf")
	assert.ErrorIs(t, err, common.ErrFileTooLarge)
	assert.Empty(t, h.platform.applied)
	assert.True(t, h.tracker.hasEntry("cv", "CV rejected for upload"))
}

func TestApplyToJob_NoCVPathSkipsParsing(t *testing.T) {
	h := newHarness(t)

	_, err := h.controller.ApplyToJob(context.Background(), "https://example.com/jobs/1", "")
	require.NoError(t, err)
	assert.Empty(t, h.cv.prepared)
	_, hasPath := h.platform.formData["cv_path"]
	assert.False(t, hasPath)
}
