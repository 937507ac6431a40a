package modeladapter

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy retries a backend call with exponential backoff and jitter when
// it fails with a *RateLimitError. Every other error propagates immediately.
// The policy is an explicit object passed into the call path rather than a
// wrapper hidden around it, so callers can see and test the schedule.
type RetryPolicy struct {
	MaxAttempts int           // Total dispatch attempts, including the first (default 3).
	BaseDelay   time.Duration // Initial backoff delay (default 1s).
	MaxElapsed  time.Duration // Overall ceiling across attempts and sleeps (default 60s).

	// nowFunc is used for testing; defaults to time.Now.
	nowFunc func() time.Time
	// sleepFunc is used for testing; defaults to a context-aware sleep.
	sleepFunc func(ctx context.Context, d time.Duration) error
	// randFunc returns a random float64 in [0,1); used for jitter. Defaults to rand.Float64.
	randFunc func() float64
}

// NewRetryPolicy creates a policy with the given limits. Non-positive values
// fall back to the defaults.
func NewRetryPolicy(maxAttempts int, baseDelay, maxElapsed time.Duration) *RetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	if maxElapsed <= 0 {
		maxElapsed = 60 * time.Second
	}

	return &RetryPolicy{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		MaxElapsed:  maxElapsed,
		nowFunc:     time.Now,
		sleepFunc:   contextSleep,
		randFunc:    rand.Float64,
	}
}

// DefaultRetryPolicy returns the standard policy: 3 attempts, 1s base delay,
// 60s overall ceiling.
func DefaultRetryPolicy() *RetryPolicy {
	return NewRetryPolicy(3, time.Second, 60*time.Second)
}

// SetNowFunc overrides the time source (for testing).
func (p *RetryPolicy) SetNowFunc(fn func() time.Time) { p.nowFunc = fn }

// SetSleepFunc overrides the sleep function (for testing).
func (p *RetryPolicy) SetSleepFunc(fn func(ctx context.Context, d time.Duration) error) {
	p.sleepFunc = fn
}

// SetRandFunc overrides the random number generator (for testing).
func (p *RetryPolicy) SetRandFunc(fn func() float64) { p.randFunc = fn }

// contextSleep sleeps for d or until ctx is cancelled.
func contextSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// jitter applies ±25% random jitter to a duration.
func (p *RetryPolicy) jitter(d time.Duration) time.Duration {
	factor := 0.75 + p.randFunc()*0.5
	return time.Duration(float64(d) * factor)
}

// Do invokes fn, retrying on rate-limit errors until the attempt or elapsed
// budget is exhausted. The last error is returned unchanged so callers can
// still inspect it with errors.As.
func (p *RetryPolicy) Do(ctx context.Context, fn func() error) error {
	start := p.nowFunc()

	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		var rle *RateLimitError
		if !errors.As(err, &rle) {
			return err
		}

		if attempt+1 >= p.MaxAttempts {
			return err
		}

		// Backoff: BaseDelay * 2^attempt, but honor Retry-After if larger.
		backoff := p.jitter(max(
			p.BaseDelay*time.Duration(math.Pow(2, float64(attempt))),
			rle.RetryAfter,
		))

		if p.nowFunc().Sub(start)+backoff > p.MaxElapsed {
			return err
		}

		if sleepErr := p.sleepFunc(ctx, backoff); sleepErr != nil {
			return sleepErr
		}
	}
}
