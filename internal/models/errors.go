package models

import (
	"errors"
	"fmt"
)

// ErrRequestTimeout is returned when the request-level budget is exceeded.
var ErrRequestTimeout = errors.New("request timed out")

// AuthError means the platform credentials are invalid or expired. The
// acquisition client never retries these; recovery requires external
// re-credentialing.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// AcquisitionError means the platform could not be reached or kept returning
// unusable responses after all retries. Carries the last underlying cause.
type AcquisitionError struct {
	Attempts int
	Err      error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquisition failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// HandlerError wraps any failure inside a capability handler so the
// dispatcher can tell which capability failed without losing the cause.
type HandlerError struct {
	Capability Capability
	Err        error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("%s handler: %v", e.Capability, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }
