// Package agents contains the browser-facing actors: generic navigation,
// form filling, credential/CAPTCHA handling and the platform flows.
package agents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/interfaces"
	"github.com/ternarybob/peto/internal/models"
)

const navigationAgentName = "navigation_agent"

// NavigationAgent performs stateless page interactions with human pacing.
// Every public action waits out a pause and draws a delay before touching
// the page.
type NavigationAgent struct {
	page     interfaces.Page
	tracker  interfaces.ActivityLogger
	controls *common.Controls
	pacer    *common.Pacer
	logger   arbor.ILogger

	maxRetries     int
	baseRetryDelay time.Duration
	backoffFactor  float64
	maxWait        time.Duration
	elementTimeout time.Duration
}

// NavigationConfig carries the agent's timing knobs.
type NavigationConfig struct {
	MaxRetries     int
	BaseRetryDelay time.Duration
	BackoffFactor  float64
	MaxWait        time.Duration
	ElementTimeout time.Duration
}

// NewNavigationAgent wires the agent to its page and collaborators.
func NewNavigationAgent(page interfaces.Page, tracker interfaces.ActivityLogger, controls *common.Controls, pacer *common.Pacer, config NavigationConfig, logger arbor.ILogger) *NavigationAgent {
	if config.MaxRetries <= 0 {
		config.MaxRetries = common.DefaultMaxRetries
	}
	if config.BackoffFactor <= 0 {
		config.BackoffFactor = common.DefaultBackoffFactor
	}
	if config.BaseRetryDelay <= 0 {
		config.BaseRetryDelay = time.Second
	}
	if config.MaxWait <= 0 {
		config.MaxWait = 30 * time.Second
	}
	if config.ElementTimeout <= 0 {
		config.ElementTimeout = 10 * time.Second
	}
	return &NavigationAgent{
		page:           page,
		tracker:        tracker,
		controls:       controls,
		pacer:          pacer,
		logger:         logger,
		maxRetries:     config.MaxRetries,
		baseRetryDelay: config.BaseRetryDelay,
		backoffFactor:  config.BackoffFactor,
		maxWait:        config.MaxWait,
		elementTimeout: config.ElementTimeout,
	}
}

// begin is the cooperative head of every public action: observe pause, then
// pace like a human.
func (a *NavigationAgent) begin(ctx context.Context) error {
	if err := a.controls.WaitIfPaused(ctx); err != nil {
		return err
	}
	return a.pacer.Wait(ctx)
}

// NavigateTo loads the URL with retries. Each attempt is time-boxed; an
// attempt that merely overruns the box logs and proceeds, while hard
// navigation failures retry on the backoff schedule.
func (a *NavigationAgent) NavigateTo(ctx context.Context, url string) error {
	if err := a.begin(ctx); err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt < a.maxRetries; attempt++ {
		if attempt > 0 {
			wait := common.BackoffSchedule(attempt-1, a.baseRetryDelay, a.backoffFactor)
			if err := common.SleepContext(ctx, wait); err != nil {
				return err
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, a.maxWait)
		err := a.page.Navigate(attemptCtx, url)
		cancel()

		if err == nil {
			a.tracker.LogActivity("navigation", fmt.Sprintf("Navigated to %s", url), models.ActivityStatusSuccess, navigationAgentName, "")
			return nil
		}
		if errors.Is(err, common.ErrNavigationTimeout) && ctx.Err() == nil {
			a.tracker.LogActivity("navigation", fmt.Sprintf("Navigation to %s overran its window, proceeding", url), models.ActivityStatusInfo, navigationAgentName, "")
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		lastErr = err
		a.tracker.LogActivity("navigation",
			fmt.Sprintf("Navigation to %s failed (attempt %d/%d): %v", url, attempt+1, a.maxRetries, err),
			models.ActivityStatusError, navigationAgentName, "")
	}

	return lastErr
}

// Click reports whether the element was found and clicked.
func (a *NavigationAgent) Click(ctx context.Context, selector string) (bool, error) {
	if err := a.begin(ctx); err != nil {
		return false, err
	}

	if err := a.page.Click(ctx, selector); err != nil {
		if errors.Is(err, common.ErrElementNotFound) {
			a.tracker.LogActivity("click", fmt.Sprintf("Element %s not found", selector), models.ActivityStatusError, navigationAgentName, "")
			return false, nil
		}
		return false, err
	}

	a.tracker.LogActivity("click", fmt.Sprintf("Clicked %s", selector), models.ActivityStatusSuccess, navigationAgentName, "")
	return true, nil
}

// Type enters text, clearing the control first unless told otherwise.
func (a *NavigationAgent) Type(ctx context.Context, selector, text string, clearFirst bool) (bool, error) {
	if err := a.begin(ctx); err != nil {
		return false, err
	}

	var err error
	if clearFirst {
		err = a.page.Fill(ctx, selector, text)
	} else {
		err = a.page.Type(ctx, selector, text)
	}
	if err != nil {
		if errors.Is(err, common.ErrElementNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ExtractText returns the element's visible text, empty when absent.
func (a *NavigationAgent) ExtractText(ctx context.Context, selector string) (string, error) {
	if err := a.begin(ctx); err != nil {
		return "", err
	}

	text, err := a.page.Text(ctx, selector)
	if errors.Is(err, common.ErrElementNotFound) {
		return "", nil
	}
	return text, err
}

// WaitForText polls until the element's text contains expected.
func (a *NavigationAgent) WaitForText(ctx context.Context, selector, expected string, timeout time.Duration) (bool, error) {
	return a.WaitForCondition(ctx, func(ctx context.Context) (bool, error) {
		text, err := a.page.Text(ctx, selector)
		if errors.Is(err, common.ErrElementNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return containsFold(text, expected), nil
	}, timeout, common.PollInterval)
}

// WaitForCondition polls fn until it reports true or the timeout elapses.
func (a *NavigationAgent) WaitForCondition(ctx context.Context, fn func(ctx context.Context) (bool, error), timeout, poll time.Duration) (bool, error) {
	if err := a.begin(ctx); err != nil {
		return false, err
	}
	if timeout <= 0 {
		timeout = a.elementTimeout
	}
	if poll <= 0 {
		poll = common.PollInterval
	}

	deadline := time.Now().Add(timeout)
	for {
		ok, err := fn(ctx)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		if err := common.SleepContext(ctx, poll); err != nil {
			return false, err
		}
	}
}

// ScrollToBottom steps down the page, pausing between steps and observing
// pause/cancellation each iteration.
func (a *NavigationAgent) ScrollToBottom(ctx context.Context, step int, pause time.Duration) error {
	if err := a.begin(ctx); err != nil {
		return err
	}
	if step <= 0 {
		step = 400
	}

	previous := -1.0
	for {
		if err := a.controls.WaitIfPaused(ctx); err != nil {
			return err
		}
		if err := a.page.ScrollBy(ctx, step); err != nil {
			return err
		}
		if err := common.SleepContext(ctx, pause); err != nil {
			return err
		}

		var position float64
		if err := a.page.Evaluate(ctx, `window.scrollY + window.innerHeight`, &position); err != nil {
			return err
		}
		if position <= previous {
			return nil
		}
		previous = position
	}
}

func (a *NavigationAgent) ScrollToElement(ctx context.Context, selector string) error {
	if err := a.begin(ctx); err != nil {
		return err
	}
	return a.page.ScrollIntoView(ctx, selector)
}

func (a *NavigationAgent) Screenshot(ctx context.Context, path string) error {
	if err := a.begin(ctx); err != nil {
		return err
	}
	if err := a.page.Screenshot(ctx, path); err != nil {
		return err
	}
	a.tracker.LogActivity("screenshot", fmt.Sprintf("Saved screenshot to %s", path), models.ActivityStatusSuccess, navigationAgentName, "")
	return nil
}

// ElementPresent reports DOM presence within the timeout without raising on
// absence.
func (a *NavigationAgent) ElementPresent(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	if err := a.begin(ctx); err != nil {
		return false, err
	}
	if timeout <= 0 {
		timeout = a.elementTimeout
	}
	return a.page.Exists(ctx, selector, timeout)
}

// EvaluateScript runs JS and returns the decoded value.
func (a *NavigationAgent) EvaluateScript(ctx context.Context, js string) (any, error) {
	if err := a.begin(ctx); err != nil {
		return nil, err
	}
	var result any
	if err := a.page.Evaluate(ctx, js, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ExtractLinks collects the href attributes of all elements matching the
// selector (anchors by default).
func (a *NavigationAgent) ExtractLinks(ctx context.Context, selector string) ([]string, error) {
	if err := a.begin(ctx); err != nil {
		return nil, err
	}
	if selector == "" {
		selector = "a"
	}

	js := fmt.Sprintf(
		`Array.from(document.querySelectorAll(%q)).map(el => el.href || "").filter(href => href !== "")`,
		selector)
	var links []string
	if err := a.page.Evaluate(ctx, js, &links); err != nil {
		return nil, err
	}
	return links, nil
}

// SwitchToIframe points subsequent actions into the frame. Frame context is
// single level; switching again replaces it.
func (a *NavigationAgent) SwitchToIframe(ctx context.Context, selector string) error {
	if err := a.begin(ctx); err != nil {
		return err
	}
	if err := a.page.SwitchToFrame(ctx, selector); err != nil {
		return err
	}
	a.tracker.LogActivity("iframe", fmt.Sprintf("Switched into frame %s", selector), models.ActivityStatusSuccess, navigationAgentName, "")
	return nil
}

// SwitchBackToMainFrame restores the root document.
func (a *NavigationAgent) SwitchBackToMainFrame() {
	a.page.SwitchToMainFrame()
	a.tracker.LogActivity("iframe", "Switched back to main frame", models.ActivityStatusSuccess, navigationAgentName, "")
}

func (a *NavigationAgent) DragAndDrop(ctx context.Context, sourceSelector, targetSelector string) error {
	if err := a.begin(ctx); err != nil {
		return err
	}
	return a.page.DragAndDrop(ctx, sourceSelector, targetSelector)
}

// AcceptCookies clicks a consent button when present. Absence is not an
// error.
func (a *NavigationAgent) AcceptCookies(ctx context.Context, selector string) (bool, error) {
	if err := a.begin(ctx); err != nil {
		return false, err
	}

	present, err := a.page.Exists(ctx, selector, 2*time.Second)
	if err != nil || !present {
		return false, err
	}
	if err := a.page.Click(ctx, selector); err != nil {
		if errors.Is(err, common.ErrElementNotFound) {
			return false, nil
		}
		return false, err
	}
	a.tracker.LogActivity("click", "Accepted cookie banner", models.ActivityStatusSuccess, navigationAgentName, "")
	return true, nil
}

// Pause suspends new public actions until Resume.
func (a *NavigationAgent) Pause() { a.controls.Pause() }

// Resume clears the pause flag.
func (a *NavigationAgent) Resume() { a.controls.Resume() }
