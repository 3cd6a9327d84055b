package llm

import (
	"context"
	"time"
)

const (
	defaultRetryAttempts  = 5
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
)

// Clock abstracts waiting between attempts so retry schedules can be tested
// without real sleeps.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock sleeps on the wall clock and aborts early when ctx is done.
type RealClock struct{}

func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
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

// RetryPolicy describes how many times a call is attempted and how long to
// wait between attempts. Retryable decides whether an error is transient; a nil
// predicate means IsTransient.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Retryable   func(error) bool
}

// DefaultRetryPolicy returns the 5 attempt, 1s base, 10s cap schedule.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: defaultRetryAttempts,
		BaseDelay:   defaultRetryBaseDelay,
		MaxDelay:    defaultRetryMaxDelay,
		Retryable:   IsTransient,
	}
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}

// Delay returns the wait before the attempt following the given 1-based
// attempt: base, base*2, base*4, ... capped at MaxDelay.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		return 0
	}
	if attempt <= 0 {
		attempt = 1
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultRetryMaxDelay
	}
	delay := base
	for i := 1; i < attempt; i++ {
		if delay > maxDelay/2 {
			delay = maxDelay
			break
		}
		delay *= 2
	}
	return p.capDelay(delay)
}

func (p RetryPolicy) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultRetryMaxDelay
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

func (p RetryPolicy) retryable(err error) bool {
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return IsTransient(err)
}

// Run calls fn until it succeeds, returns a non-retryable error, or the
// attempt ceiling is reached. A retry-after hint carried by the error (see
// RetryAfter) replaces the computed backoff, still capped at MaxDelay. Run
// returns the number of attempts made alongside the last error.
func (p RetryPolicy) Run(ctx context.Context, clock Clock, fn func(ctx context.Context, attempt int) error) (int, error) {
	if clock == nil {
		clock = RealClock{}
	}
	attempts := p.attempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return attempt - 1, lastErr
			}
			return attempt - 1, err
		}
		err := fn(ctx, attempt)
		if err == nil {
			return attempt, nil
		}
		lastErr = err
		if attempt == attempts || !p.retryable(err) {
			return attempt, err
		}
		if ctx.Err() != nil {
			return attempt, err
		}
		delay := p.Delay(attempt)
		if hint, ok := RetryAfter(err); ok {
			delay = p.capDelay(hint)
		}
		if sleepErr := clock.Sleep(ctx, delay); sleepErr != nil {
			return attempt, lastErr
		}
	}
	return attempts, lastErr
}
