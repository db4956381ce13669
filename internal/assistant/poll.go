package assistant

import (
	"context"
	"errors"
	"time"
)

const (
	defaultPollAttempts = 10
	defaultPollInterval = 1500 * time.Millisecond
)

// errPollExhausted is returned by Poller.Until when the budget runs out.
var errPollExhausted = errors.New("poll attempts exhausted")

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Poller is a bounded retry loop: each attempt waits Interval then runs the
// check, stopping early once the check reports done.
type Poller struct {
	MaxAttempts int
	Interval    time.Duration
	Sleep       SleepFunc
}

// CheckFunc reports whether the awaited condition holds. A non-nil error
// aborts the loop; checks that tolerate an error return (false, nil).
type CheckFunc func(ctx context.Context, attempt int) (bool, error)

// Until runs check up to MaxAttempts times and returns the number of attempts
// made. It returns errPollExhausted when no attempt succeeded, the check's
// error when one aborts the loop, or the context error when ctx ends while
// waiting.
func (p Poller) Until(ctx context.Context, check CheckFunc) (int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultPollAttempts
	}
	interval := p.Interval
	if interval < 0 {
		interval = defaultPollInterval
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := sleep(ctx, interval); err != nil {
			return attempt - 1, err
		}
		done, err := check(ctx, attempt)
		if err != nil {
			return attempt, err
		}
		if done {
			return attempt, nil
		}
	}
	return maxAttempts, errPollExhausted
}

func sleepContext(ctx context.Context, d time.Duration) error {
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
