// Package controller owns the session lifecycle and drives whole
// search-and-apply flows with retry, pause propagation and task dispatch.
package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/interfaces"
	"github.com/ternarybob/peto/internal/models"
	"github.com/ternarybob/peto/internal/tasks"
)

const controllerName = "controller"

// PlatformAgent is the per-platform flow surface the controller dispatches to.
type PlatformAgent interface {
	SearchJobsAndApply(ctx context.Context, jobTitle, location string, formData map[string]string) ([]models.JobPosting, error)
	ApplyToJobURL(ctx context.Context, jobURL string, formData map[string]string) (*models.JobPosting, error)
}

// CVPreparer validates and parses a résumé ahead of a direct application.
type CVPreparer interface {
	PrepareCV(ctx context.Context, path string) (string, *models.CVRecord, error)
	ValidateForUpload(path string) error
}

// Deps carries everything the controller needs. Agents never hold a reference
// back to the controller; shared state travels through Controls and the
// tracker only.
type Deps struct {
	Tracker   interfaces.ActivityLogger
	Controls  *common.Controls
	Tasks     *tasks.Manager
	Platforms map[string]PlatformAgent
	CV        CVPreparer              // Optional
	Events    interfaces.EventService // Optional
	FormData  map[string]string       // Defaults for platform form fields
	Config    *common.Config
	Logger    arbor.ILogger
}

// Status is a point-in-time snapshot of the session.
type Status struct {
	StartedAt   *time.Time
	Paused      bool
	Stopped     bool
	CurrentTask string
	ActiveTasks []models.Task
}

// Controller owns the agents and the task manager for one session.
type Controller struct {
	tracker   interfaces.ActivityLogger
	controls  *common.Controls
	tasks     *tasks.Manager
	platforms map[string]PlatformAgent
	cv        CVPreparer
	events    interfaces.EventService
	formData  map[string]string
	logger    arbor.ILogger

	maxRetries    int
	baseDelay     time.Duration
	backoffFactor float64

	mu          sync.Mutex
	startedAt   *time.Time
	currentTask string
}

// New wires a controller from its dependencies.
func New(deps Deps) *Controller {
	maxRetries := deps.Config.System.MaxRetries
	if maxRetries <= 0 {
		maxRetries = common.DefaultMaxRetries
	}
	return &Controller{
		tracker:       deps.Tracker,
		controls:      deps.Controls,
		tasks:         deps.Tasks,
		platforms:     deps.Platforms,
		cv:            deps.CV,
		events:        deps.Events,
		formData:      deps.FormData,
		logger:        deps.Logger,
		maxRetries:    maxRetries,
		baseDelay:     deps.Config.System.RetryDelay(),
		backoffFactor: common.DefaultBackoffFactor,
	}
}

// StartSession marks the session started. A repeated call logs another start
// rather than failing.
func (c *Controller) StartSession(ctx context.Context) error {
	now := time.Now()
	c.mu.Lock()
	c.startedAt = &now
	c.mu.Unlock()

	c.tracker.LogActivity("session", "started", models.ActivityStatusSuccess, controllerName, "")
	c.logger.Info().Str("started_at", now.Format(time.RFC3339)).Msg("Session started")
	c.publishSessionState(ctx, "started")
	return nil
}

// EndSession stops the session. Browser ownership is external; the controller
// only relinquishes its agents.
func (c *Controller) EndSession(ctx context.Context) error {
	c.controls.Stop()
	c.tracker.LogActivity("session", "ended", models.ActivityStatusInfo, controllerName, "")
	c.logger.Info().Msg("Session ended")
	c.publishSessionState(ctx, "ended")
	return nil
}

// PauseSession raises the shared pause flag. Agents suspend at their next
// cooperative point.
func (c *Controller) PauseSession(ctx context.Context) {
	c.controls.Pause()
	c.tracker.LogActivity("session", "paused", models.ActivityStatusInfo, controllerName, "")
	c.publishSessionState(ctx, "paused")
}

// ResumeSession clears the pause flag.
func (c *Controller) ResumeSession(ctx context.Context) {
	c.controls.Resume()
	c.tracker.LogActivity("session", "resumed", models.ActivityStatusInfo, controllerName, "")
	c.publishSessionState(ctx, "resumed")
}

// SessionStatus reports the session snapshot for the status verb.
func (c *Controller) SessionStatus() Status {
	c.mu.Lock()
	startedAt := c.startedAt
	currentTask := c.currentTask
	c.mu.Unlock()

	return Status{
		StartedAt:   startedAt,
		Paused:      c.controls.Paused(),
		Stopped:     c.controls.Stopped(),
		CurrentTask: currentTask,
		ActiveTasks: c.tasks.Active(),
	}
}

// RunPlatformFlow executes the whole search-and-apply sequence for a platform
// with a bounded retry loop. Logged-out and CAPTCHA conditions abort without
// retrying; other failures back off and try again.
func (c *Controller) RunPlatformFlow(ctx context.Context, platform, jobTitle, location string) ([]models.JobPosting, error) {
	agent, ok := c.platforms[platform]
	if !ok {
		err := fmt.Errorf("%w: unknown platform %q", common.ErrConfigInvalid, platform)
		c.tracker.LogActivity("job_search_apply", err.Error(), models.ActivityStatusError, controllerName, "")
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := c.controls.WaitIfPaused(ctx); err != nil {
			return nil, err
		}

		outcomes, err := agent.SearchJobsAndApply(ctx, jobTitle, location, c.formData)
		if err == nil {
			c.tracker.LogActivity("job_search_apply",
				fmt.Sprintf("Search %q in %q completed, %d listings processed", jobTitle, location, len(outcomes)),
				models.ActivityStatusSuccess, controllerName, "")
			return outcomes, nil
		}
		lastErr = err

		if !common.IsRetryable(err) {
			c.tracker.LogActivity("job_search_apply",
				fmt.Sprintf("Aborting without retry: %v", err),
				models.ActivityStatusError, controllerName, "")
			c.logger.Error().Err(err).Str("platform", platform).Msg("Flow aborted, operator action required")
			return nil, err
		}

		c.tracker.LogActivity("job_search_apply",
			fmt.Sprintf("Flow failed (attempt %d/%d): %v", attempt, c.maxRetries, err),
			models.ActivityStatusError, controllerName, "")

		if attempt < c.maxRetries {
			wait := common.BackoffSchedule(attempt-1, c.baseDelay, c.backoffFactor)
			c.logger.Warn().Err(err).
				Int("attempt", attempt).
				Str("next_try_in", wait.String()).
				Msg("Search and apply flow failed, retrying")
			if err := common.SleepContext(ctx, wait); err != nil {
				return nil, err
			}
		}
	}

	c.tracker.LogActivity("job_search_apply",
		fmt.Sprintf("Giving up after %d attempts: %v", c.maxRetries, lastErr),
		models.ActivityStatusFailed, controllerName, "")
	return nil, lastErr
}

// RunSearch runs the platform flow as a managed task so the run is bounded by
// the task timeout and visible through the task log.
func (c *Controller) RunSearch(ctx context.Context, platform, jobTitle, location string) ([]models.JobPosting, error) {
	task := c.tasks.Create(models.TaskTypeJobSearch, func(ctx context.Context) (any, error) {
		return c.RunPlatformFlow(ctx, platform, jobTitle, location)
	})

	c.mu.Lock()
	c.currentTask = task.ID
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.currentTask = ""
		c.mu.Unlock()
	}()

	result, err := c.tasks.Run(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	outcomes, _ := result.([]models.JobPosting)
	return outcomes, nil
}

// ApplyToJob drives a single posting by URL. When a résumé path is given it is
// validated and parsed first so the upload handler can use it.
func (c *Controller) ApplyToJob(ctx context.Context, jobURL, cvPath string) (*models.JobPosting, error) {
	agent, ok := c.platforms["linkedin"]
	if !ok {
		return nil, fmt.Errorf("%w: no platform agent configured", common.ErrConfigInvalid)
	}

	formData := make(map[string]string, len(c.formData)+1)
	for k, v := range c.formData {
		formData[k] = v
	}

	if cvPath != "" {
		if c.cv == nil {
			return nil, fmt.Errorf("%w: cv parsing is not configured", common.ErrConfigInvalid)
		}
		if err := c.cv.ValidateForUpload(cvPath); err != nil {
			c.tracker.LogActivity("cv", fmt.Sprintf("CV rejected for upload: %v", err), models.ActivityStatusError, controllerName, "")
			return nil, err
		}
		_, record, err := c.cv.PrepareCV(ctx, cvPath)
		if err != nil {
			c.tracker.LogActivity("cv", fmt.Sprintf("CV parse failed: %v", err), models.ActivityStatusError, controllerName, "")
			return nil, err
		}
		formData["cv_path"] = cvPath
		c.tracker.LogActivity("cv", fmt.Sprintf("Prepared CV %s", record.Filename), models.ActivityStatusSuccess, controllerName, "")
	}

	posting, err := agent.ApplyToJobURL(ctx, jobURL, formData)
	if err != nil {
		c.tracker.LogActivity("job_apply", fmt.Sprintf("Direct application to %s failed: %v", jobURL, err), models.ActivityStatusError, controllerName, "")
		return nil, err
	}

	c.tracker.LogActivity("job_apply",
		fmt.Sprintf("Direct application to %s finished with status %s", jobURL, posting.ApplicationStatus),
		models.ActivityStatusSuccess, controllerName, posting.JobID)
	return posting, nil
}

func (c *Controller) publishSessionState(ctx context.Context, state string) {
	if c.events == nil {
		return
	}
	c.mu.Lock()
	var startedAt string
	if c.startedAt != nil {
		startedAt = c.startedAt.Format(time.RFC3339)
	}
	c.mu.Unlock()

	_ = c.events.Publish(ctx, interfaces.Event{
		Type:      interfaces.EventSessionState,
		Timestamp: time.Now(),
		Payload: map[string]any{
			"state":      state,
			"started_at": startedAt,
			"paused":     c.controls.Paused(),
			"stopped":    c.controls.Stopped(),
		},
	})
}
