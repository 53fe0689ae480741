// Package app wires the application components together: storage, tracking,
// services, browser, agents and the controller.
package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/agents"
	"github.com/ternarybob/peto/internal/browser"
	"github.com/ternarybob/peto/internal/captcha"
	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/controller"
	"github.com/ternarybob/peto/internal/cv"
	"github.com/ternarybob/peto/internal/interfaces"
	"github.com/ternarybob/peto/internal/learning"
	"github.com/ternarybob/peto/internal/profiles"
	"github.com/ternarybob/peto/internal/services/events"
	"github.com/ternarybob/peto/internal/services/llm"
	"github.com/ternarybob/peto/internal/services/scheduler"
	badgerstore "github.com/ternarybob/peto/internal/storage/badger"
	"github.com/ternarybob/peto/internal/tasks"
	"github.com/ternarybob/peto/internal/tracker"
)

// App holds all application components and dependencies.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager
	EventService   interfaces.EventService

	Tracker *tracker.ActivityLog
	Jobs    *tracker.JobsCSV

	LLMProvider   interfaces.LLMProvider
	CaptchaSolver interfaces.CaptchaSolver
	CVParser      *cv.Parser
	Profiles      profiles.Store

	Pipeline *learning.Pipeline
	Scorer   *learning.Scorer

	Session *browser.Session
	Page    *browser.Page

	Controls    *common.Controls
	TaskManager *tasks.Manager
	Controller  *controller.Controller
	Scheduler   *scheduler.Scheduler
}

// New initializes the application with all dependencies. The prompter handles
// operator input for manual CAPTCHA solving and required-field fallbacks.
func New(ctx context.Context, config *common.Config, prompter interfaces.Prompter, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config:   config,
		Logger:   logger,
		Controls: common.NewControls(),
	}

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if err := app.initTracking(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize tracking: %w", err)
	}
	if err := app.initServices(ctx, prompter); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	if err := app.initBrowser(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize browser: %w", err)
	}
	app.initAgents(prompter)

	logger.Info().Msg("Application initialized")
	return app, nil
}

func (a *App) initStorage() error {
	if !a.Config.Telemetry.Enabled {
		return nil
	}

	path := a.Config.Telemetry.StoragePath
	if path == "" {
		path = filepath.Join(a.Config.System.DataDir, "telemetry")
	}
	manager, err := badgerstore.NewManager(path, a.Logger)
	if err != nil {
		return err
	}
	a.StorageManager = manager
	return nil
}

func (a *App) initTracking() error {
	activityLog, err := tracker.NewActivityLog(filepath.Join(a.Config.System.DataDir, "logs"), a.Config.Tracker.MaxFileSizeBytes, a.Logger)
	if err != nil {
		return err
	}
	a.Tracker = activityLog

	jobs, err := tracker.NewJobsCSV(a.Config.System.DataDir, a.Logger)
	if err != nil {
		return err
	}
	a.Jobs = jobs
	return nil
}

func (a *App) initServices(ctx context.Context, prompter interfaces.Prompter) error {
	a.EventService = events.NewService(a.Logger)
	if a.StorageManager != nil {
		if err := events.RegisterTelemetrySubscriber(a.EventService, a.StorageManager.TelemetryStorage(), a.Logger); err != nil {
			return err
		}
	}

	provider, err := llm.NewProvider(ctx, a.Config, a.Logger)
	if err != nil {
		return err
	}
	a.LLMProvider = provider

	switch a.Config.Captcha.Handler {
	case "external":
		solver, err := captcha.NewExternalSolver(&a.Config.Captcha, a.Logger)
		if err != nil {
			return err
		}
		a.CaptchaSolver = solver
	default:
		a.CaptchaSolver = captcha.NewManualSolver(a.Config.System.DataDir, prompter, a.Logger)
	}

	a.CVParser = cv.NewParser(&a.Config.CV, a.LLMProvider, a.Logger)

	store, err := profiles.NewStore(&a.Config.Profiles, a.Logger)
	if err != nil {
		return err
	}
	a.Profiles = store

	var outcomes interfaces.OutcomeStorage
	if a.StorageManager != nil {
		outcomes = a.StorageManager.OutcomeStorage()
	}
	a.Pipeline = learning.NewPipeline(learning.DefaultWindow, outcomes, a.Logger)
	if err := a.Pipeline.Load(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to load persisted outcomes, starting empty")
	}
	a.Scorer = learning.NewScorer(a.Pipeline, a.LLMProvider, a.EventService, a.Logger)

	a.TaskManager = tasks.NewManager(&a.Config.Tasks, a.Tracker, a.EventService, a.Logger)
	return nil
}

func (a *App) initBrowser() error {
	session, err := browser.NewSession(&a.Config.Browser, a.Logger)
	if err != nil {
		return err
	}
	a.Session = session

	page, err := session.NewPage()
	if err != nil {
		return err
	}
	a.Page = page
	return nil
}

func (a *App) initAgents(prompter interfaces.Prompter) {
	linkedin := &a.Config.Platform.LinkedIn
	pacer := common.NewPacer(linkedin.MinDelay(), linkedin.MaxDelay())
	dataDir := a.Config.System.DataDir

	nav := agents.NewNavigationAgent(a.Page, a.Tracker, a.Controls, pacer, agents.NavigationConfig{
		MaxRetries:     linkedin.MaxRetries,
		BaseRetryDelay: a.Config.System.RetryDelay(),
		ElementTimeout: linkedin.ElementTimeout(),
	}, a.Logger)

	filler := agents.NewFormFiller(a.Page, a.Tracker, a.Controls, pacer, a.LLMProvider, prompter,
		dataDir, linkedin.ElementTimeout(), false, a.Logger)

	credentials := agents.NewCredentialsAgent(a.Page, a.Tracker, a.CaptchaSolver, a.Controls, pacer,
		dataDir, linkedin.ElementTimeout(), a.Logger)

	linkedInAgent := agents.NewLinkedInAgent(a.Page, nav, filler, credentials, a.Tracker, a.Jobs,
		a.Scorer, a.EventService, a.Controls, pacer, linkedin, a.Logger)

	formData := map[string]string{}
	if linkedin.Email != "" {
		formData["email"] = linkedin.Email
	}

	a.Controller = controller.New(controller.Deps{
		Tracker:   a.Tracker,
		Controls:  a.Controls,
		Tasks:     a.TaskManager,
		Platforms: map[string]controller.PlatformAgent{"linkedin": linkedInAgent},
		CV:        a.CVParser,
		Events:    a.EventService,
		FormData:  formData,
		Config:    a.Config,
		Logger:    a.Logger,
	})

	a.Scheduler = scheduler.New(a.Config.Schedules, a.Controller, a.Tracker, a.Logger)
}

// Close releases all resources in reverse initialization order. Learning
// outcomes are flushed before the storage backend goes away.
func (a *App) Close() {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.Pipeline != nil {
		if err := a.Pipeline.Save(context.Background()); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to persist outcomes")
		}
	}
	if a.Session != nil {
		if err := a.Session.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Browser session close failed")
		}
	}
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Storage close failed")
		}
	}
}
