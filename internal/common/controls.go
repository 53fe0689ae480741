package common

import (
	"context"
	"sync"
	"time"
)

// PollInterval is the cadence at which cooperative waits (pause checks, task
// slot waits, CAPTCHA polling fallbacks) wake up.
const PollInterval = 100 * time.Millisecond

// Controls is the shared pause/stop token handed to every agent through its
// Deps. Pause is cooperative: agents call WaitIfPaused at the head of each
// public action and suspend until resumed. Cancellation still travels through
// the context, never through this flag.
type Controls struct {
	mu      sync.RWMutex
	paused  bool
	stopped bool
}

// NewControls creates an unpaused, unstopped control token.
func NewControls() *Controls {
	return &Controls{}
}

// Pause sets the pause flag. Already-in-flight atomic operations may finish;
// no agent starts new work until Resume.
func (c *Controls) Pause() {
	c.mu.Lock()
	c.paused = true
	c.mu.Unlock()
}

// Resume clears the pause flag.
func (c *Controls) Resume() {
	c.mu.Lock()
	c.paused = false
	c.mu.Unlock()
}

// Stop marks the session stopped. Sticky.
func (c *Controls) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()
}

// Paused reports the pause flag.
func (c *Controls) Paused() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.paused
}

// Stopped reports the stop flag.
func (c *Controls) Stopped() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stopped
}

// WaitIfPaused blocks in PollInterval increments while the pause flag is set.
// Cancellation during pause is observed and returned.
func (c *Controls) WaitIfPaused(ctx context.Context) error {
	for c.Paused() {
		if err := SleepContext(ctx, PollInterval); err != nil {
			return err
		}
	}
	return ctx.Err()
}
