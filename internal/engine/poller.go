package engine

import (
	"context"
	"time"
)

// PollPolicy bounds the verification loop applied after eventually
// consistent mutations.
type PollPolicy struct {
	// MaxAttempts is the number of predicate calls, at least 1.
	MaxAttempts int
	// Delay is the pause between attempts. There is no pause after the
	// final attempt.
	Delay time.Duration
}

func (p PollPolicy) normalized() PollPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
	return p
}

// WaitUntil calls predicate up to policy.MaxAttempts times, sleeping
// policy.Delay between attempts, and returns true on the first true result.
//
// A predicate error is returned immediately and never retried: it signals a
// hard failure (configuration or API error), distinct from "not yet visible"
// (predicate returns false). Cancellation of ctx interrupts the wait between
// attempts and surfaces as ctx.Err().
func WaitUntil(ctx context.Context, policy PollPolicy, predicate func(context.Context) (bool, error)) (bool, error) {
	policy = policy.normalized()

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		visible, err := predicate(ctx)
		if err != nil {
			return false, err
		}
		if visible {
			return true, nil
		}
		if attempt == policy.MaxAttempts {
			return false, nil
		}

		if policy.Delay > 0 {
			timer := time.NewTimer(policy.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return false, ctx.Err()
			case <-timer.C:
			}
		}
	}
}
