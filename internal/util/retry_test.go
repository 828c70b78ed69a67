package util

import (
	"context"
	"errors"
	"testing"
	"time"
)

// noSleep records requested delays without waiting.
func noSleep(delays *[]time.Duration) SleepFunc {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	var delays []time.Duration
	calls := 0

	err := RetryWithBackoff(context.Background(), 3, time.Second, noSleep(&delays), func(attempt int) error {
		calls++
		if attempt < 2 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}

	want := []time.Duration{time.Second, 2 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("expected %d sleeps, got %d", len(want), len(delays))
	}
	for i, d := range want {
		if delays[i] != d {
			t.Errorf("sleep %d: expected %v, got %v", i, d, delays[i])
		}
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	var delays []time.Duration
	calls := 0
	cause := errors.New("still broken")

	err := RetryWithBackoff(context.Background(), 2, time.Second, noSleep(&delays), func(int) error {
		calls++
		return cause
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if !errors.Is(err, cause) {
		t.Errorf("terminal error should wrap the last cause, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls (initial + 2 retries), got %d", calls)
	}
	// No sleep after the final attempt.
	if len(delays) != 2 {
		t.Errorf("expected 2 sleeps, got %d", len(delays))
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	cause := errors.New("credentials rejected")

	err := RetryWithBackoff(context.Background(), 5, time.Second, nil, func(int) error {
		calls++
		return Permanent(cause)
	})
	if calls != 1 {
		t.Errorf("permanent error must not be retried, got %d calls", calls)
	}
	if err != cause {
		t.Errorf("expected unwrapped cause, got %v", err)
	}
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	err := RetryWithBackoff(ctx, 5, time.Second, noSleep(new([]time.Duration)), func(int) error {
		calls++
		cancel()
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected no further attempts after cancellation, got %d calls", calls)
	}
}

func TestPermanentNil(t *testing.T) {
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should stay nil")
	}
}
