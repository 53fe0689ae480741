package common

import (
	"context"
	"math"
	"math/rand"
	"time"

	"golang.org/x/time/rate"
)

// BackoffSchedule returns the wait before the k-th retry (0-indexed):
// base * factor^attempt. Expressed as a pure function so the retry series is
// directly testable.
func BackoffSchedule(attempt int, base time.Duration, factor float64) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	return time.Duration(float64(base) * math.Pow(factor, float64(attempt)))
}

// SleepContext sleeps for d or until the context is cancelled, returning the
// context error on early wakeup.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Pacer inserts human-like delays between browser interactions: a rate
// limiter floor plus a uniform random jitter in [min, max].
type Pacer struct {
	min     time.Duration
	max     time.Duration
	limiter *rate.Limiter
	rng     *rand.Rand
}

// NewPacer creates a pacer for the given delay bounds. The limiter caps the
// steady-state action rate at one action per min delay.
func NewPacer(min, max time.Duration) *Pacer {
	if min <= 0 {
		min = 300 * time.Millisecond
	}
	if max < min {
		max = min
	}
	return &Pacer{
		min:     min,
		max:     max,
		limiter: rate.NewLimiter(rate.Every(min), 1),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Wait blocks for a randomised human-like interval, honouring cancellation.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	jitter := p.min
	if p.max > p.min {
		jitter += time.Duration(p.rng.Int63n(int64(p.max - p.min)))
	}
	return SleepContext(ctx, jitter)
}

// Delay returns one sample of the pacing distribution without sleeping.
func (p *Pacer) Delay() time.Duration {
	if p.max <= p.min {
		return p.min
	}
	return p.min + time.Duration(p.rng.Int63n(int64(p.max-p.min)))
}
