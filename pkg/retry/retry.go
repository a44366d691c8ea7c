// Package retry runs an operation until it succeeds, the attempt budget is
// spent or the context ends.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// BackoffFunc returns the wait before the next attempt, given the 1-based
// number of the attempt that just failed.
type BackoffFunc func(attempt int) time.Duration

// Linear waits step*attempt: 2s, 4s, ... for step = 2s.
func Linear(step time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		return step * time.Duration(attempt)
	}
}

// Policy bounds a retried operation.
type Policy struct {
	Attempts int
	Backoff  BackoffFunc
	// OnRetry, when set, is called after each failed attempt that will be retried.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// DefaultPolicy makes three attempts with 2s, 4s waits between them.
func DefaultPolicy() Policy {
	return Policy{Attempts: 3, Backoff: Linear(2 * time.Second)}
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do calls fn until it returns a nil error, returning the last error once
// the policy is exhausted. Errors wrapped with Permanent stop immediately;
// a cancelled context returns the context's error.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	wait := p.Backoff
	if wait == nil {
		wait = Linear(0)
	}

	schedule := &attemptBackOff{wait: wait}
	var b backoff.BackOff = backoff.WithMaxRetries(schedule, uint64(attempts-1))
	b = backoff.WithContext(b, ctx)

	var attempt int
	op := func() (T, error) {
		attempt++
		return fn(ctx)
	}
	notify := func(err error, d time.Duration) {
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, d)
		}
	}

	return backoff.RetryNotifyWithData(op, b, notify)
}

// attemptBackOff adapts a BackoffFunc to backoff.BackOff.
type attemptBackOff struct {
	wait    BackoffFunc
	attempt int
}

func (a *attemptBackOff) NextBackOff() time.Duration {
	a.attempt++
	return a.wait(a.attempt)
}

func (a *attemptBackOff) Reset() {
	a.attempt = 0
}
