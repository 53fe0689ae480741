package agents

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/interfaces"
	"github.com/ternarybob/peto/internal/models"
)

const credentialsAgentName = "credentials_agent"

// CredentialsAgent verifies the session and resolves CAPTCHA challenges
// through the configured solver.
type CredentialsAgent struct {
	page     interfaces.Page
	tracker  interfaces.ActivityLogger
	solver   interfaces.CaptchaSolver
	controls *common.Controls
	pacer    *common.Pacer
	logger   arbor.ILogger

	dataDir        string
	elementTimeout time.Duration
}

// NewCredentialsAgent wires the agent to its page and solver.
func NewCredentialsAgent(page interfaces.Page, tracker interfaces.ActivityLogger, solver interfaces.CaptchaSolver, controls *common.Controls, pacer *common.Pacer, dataDir string, elementTimeout time.Duration, logger arbor.ILogger) *CredentialsAgent {
	if elementTimeout <= 0 {
		elementTimeout = 10 * time.Second
	}
	return &CredentialsAgent{
		page:           page,
		tracker:        tracker,
		solver:         solver,
		controls:       controls,
		pacer:          pacer,
		logger:         logger,
		dataDir:        dataDir,
		elementTimeout: elementTimeout,
	}
}

// HandleCaptcha waits for the challenge element, captures it and hands the
// image to the solver. Absence of the element returns an empty solution with
// no error.
func (a *CredentialsAgent) HandleCaptcha(ctx context.Context, captchaSelector string) (string, error) {
	if a.solver == nil {
		return "", fmt.Errorf("%w: no solver configured", common.ErrSolverUnavailable)
	}
	if err := a.controls.WaitIfPaused(ctx); err != nil {
		return "", err
	}
	if err := a.pacer.Wait(ctx); err != nil {
		return "", err
	}

	present, err := a.page.Exists(ctx, captchaSelector, a.elementTimeout)
	if err != nil {
		return "", err
	}
	if !present {
		return "", nil
	}

	a.tracker.LogActivity("captcha", "CAPTCHA element detected", models.ActivityStatusInfo, credentialsAgentName, "")

	image, err := a.captureElement(ctx, captchaSelector)
	if err != nil {
		a.tracker.LogActivity("captcha", fmt.Sprintf("Failed to capture CAPTCHA: %v", err), models.ActivityStatusError, credentialsAgentName, "")
		return "", err
	}

	solution, err := a.solver.Solve(ctx, image)
	if err != nil {
		a.tracker.LogActivity("captcha", fmt.Sprintf("CAPTCHA solve failed: %v", err), models.ActivityStatusError, credentialsAgentName, "")
		return "", err
	}

	a.tracker.LogActivity("captcha", "CAPTCHA solved", models.ActivityStatusSuccess, credentialsAgentName, "")
	return solution, nil
}

// captureElement screenshots the challenge into a scratch file and returns
// its bytes. The file never outlives the call.
func (a *CredentialsAgent) captureElement(ctx context.Context, selector string) ([]byte, error) {
	if err := os.MkdirAll(a.dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	path := filepath.Join(a.dataDir, fmt.Sprintf("captcha_capture_%s.png", uuid.New().String()))

	if err := a.page.ScreenshotElement(ctx, selector, path); err != nil {
		return nil, err
	}
	defer os.Remove(path)

	return os.ReadFile(path)
}

// VerifyLoginStatus reports whether the logged-in indicator is present.
func (a *CredentialsAgent) VerifyLoginStatus(ctx context.Context, successSelector string) (bool, error) {
	if err := a.controls.WaitIfPaused(ctx); err != nil {
		return false, err
	}
	return a.page.Exists(ctx, successSelector, a.elementTimeout)
}

// LoginToPlatform is reserved; sessions are expected to be pre-authenticated
// through the browser profile. It only confirms the state.
func (a *CredentialsAgent) LoginToPlatform(ctx context.Context, successSelector string) error {
	loggedIn, err := a.VerifyLoginStatus(ctx, successSelector)
	if err != nil {
		return err
	}
	if !loggedIn {
		a.tracker.LogActivity("session", "User is logged out, re-login required.", models.ActivityStatusError, credentialsAgentName, "")
		return common.ErrLoggedOut
	}
	return nil
}
