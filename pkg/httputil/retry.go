package httputil

import (
	"context"
	"errors"
	"time"
)

// maxDelay caps the doubling so a long attempt budget never waits minutes.
const maxDelay = 10 * time.Second

// RetryableError marks a failure as transient. [Retry] only repeats calls
// whose error wraps one.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err as a [RetryableError]. Retryable(nil) is nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err wraps a [RetryableError].
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// Retry calls fn until it succeeds, returns a permanent error, or has run
// attempts times. The wait starts at delay and doubles up to maxDelay.
//
// If ctx carries a deadline that the next wait would overrun, Retry gives
// up early and returns the last error from fn, so callers see why the
// fetch failed rather than a bare deadline error.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var err error
	for n := 1; ; n++ {
		if err = fn(); err == nil || !IsRetryable(err) {
			return err
		}
		if n >= attempts || !fits(ctx, delay) {
			return err
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		delay = min(2*delay, maxDelay)
	}
}

// RetryWithBackoff retries three times starting at one second.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return Retry(ctx, 3, time.Second, fn)
}

func fits(ctx context.Context, wait time.Duration) bool {
	deadline, ok := ctx.Deadline()
	return !ok || time.Until(deadline) > wait
}
