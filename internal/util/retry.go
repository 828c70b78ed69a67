package util

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// SleepFunc waits for the given duration or until the context is done.
// Injected so retry behavior is testable without wall-clock delays.
type SleepFunc func(ctx context.Context, d time.Duration) error

// CtxSleep is the production SleepFunc.
func CtxSleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks an error as non-retryable. RetryWithBackoff returns the
// wrapped error immediately without further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// RetryWithBackoff calls fn up to maxRetries+1 times with exponential backoff
// starting at base and doubling each attempt. fn receives the current attempt
// number (0-indexed) and should return nil on success. Errors marked with
// Permanent stop the loop at once. If the context is cancelled,
// RetryWithBackoff returns the context error immediately.
func RetryWithBackoff(ctx context.Context, maxRetries int, base time.Duration, sleep SleepFunc, fn func(attempt int) error) error {
	if sleep == nil {
		sleep = CtxSleep
	}
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}

		// Don't wait after the last attempt
		if attempt == maxRetries {
			break
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := sleep(ctx, base<<attempt); err != nil {
			return err
		}
	}
	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}
