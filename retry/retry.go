// Package retry provides the bounded retry and polling primitives shared
// by the RPC layer and the confirmation loop.
package retry

import (
	"context"
	"errors"
	"time"
)

// Backoff returns the delay before the given zero-based retry attempt.
type Backoff func(attempt int) time.Duration

// Exponential doubles the delay on every attempt, starting at initial.
func Exponential(initial time.Duration) Backoff {
	return func(attempt int) time.Duration {
		d := initial
		for i := 0; i < attempt; i++ {
			d *= 2
		}
		return d
	}
}

// Constant returns the same delay for every attempt.
func Constant(d time.Duration) Backoff {
	return func(int) time.Duration { return d }
}

// Do runs fn up to attempts times, sleeping per the backoff between
// tries, and returns the last error when all attempts fail. Context
// cancellation aborts the wait.
func Do(ctx context.Context, attempts int, backoff Backoff, fn func(context.Context) error) error {
	_, err := DoValue(ctx, attempts, backoff, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoValue is Do for functions that produce a value.
func DoValue[T any](ctx context.Context, attempts int, backoff Backoff, fn func(context.Context) (T, error)) (T, error) {
	var (
		out     T
		lastErr error
	)
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return out, ctx.Err()
			case <-time.After(backoff(attempt - 1)):
			}
		}
		var err error
		out, err = fn(ctx)
		if err == nil {
			return out, nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return out, perm.err
		}
		lastErr = err
	}
	return out, lastErr
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks an error as not worth retrying; Do and DoValue return
// it immediately, unwrapped.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Poll invokes fn at a fixed interval until it reports a terminal result
// or attempts run out. fn returns done=true to stop; an error from fn is
// not terminal and polling continues. The boolean result reports whether
// a terminal result was observed before the budget ran out.
func Poll[T any](ctx context.Context, attempts int, interval time.Duration, fn func(context.Context) (T, bool, error)) (T, bool, error) {
	var out T
	for attempt := 0; attempt < attempts; attempt++ {
		var (
			done bool
			err  error
		)
		out, done, err = fn(ctx)
		if done {
			return out, true, err
		}
		// No sleep after the final attempt.
		if attempt == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return out, false, ctx.Err()
		case <-time.After(interval):
		}
	}
	return out, false, nil
}
