package retrier

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errTransient = errors.New("transient")

func alwaysRetryable(error) bool { return true }

func fastPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, Multiplier: 2}
}

func TestDelayFor(t *testing.T) {
	policy := DefaultPolicy()

	if got := policy.DelayFor(1); got != time.Second {
		t.Fatalf("DelayFor(1) = %s, want 1s", got)
	}
	if got := policy.DelayFor(2); got != 2*time.Second {
		t.Fatalf("DelayFor(2) = %s, want 2s", got)
	}
	if got := policy.DelayFor(3); got != 4*time.Second {
		t.Fatalf("DelayFor(3) = %s, want 4s", got)
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(), alwaysRetryable, func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestDo_RetriesThenSucceeds(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(), alwaysRetryable, func(context.Context) error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestDo_AttemptBudgetExhausted(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(), alwaysRetryable, func(context.Context) error {
		calls++
		return errTransient
	})
	if !errors.Is(err, errTransient) {
		t.Fatalf("Do = %v, want last error", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want exactly MaxAttempts", calls)
	}
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(), func(error) bool { return false }, func(context.Context) error {
		calls++
		return errTransient
	})
	if !errors.Is(err, errTransient) {
		t.Fatalf("Do = %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, non-retryable error must not be re-attempted", calls)
	}
}

func TestDo_CancelledDuringBackoff(t *testing.T) {
	policy := Policy{MaxAttempts: 3, BaseDelay: time.Minute, Multiplier: 2}
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- Do(ctx, policy, alwaysRetryable, func(context.Context) error {
			calls++
			return errTransient
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Do = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Do did not return after cancellation during backoff")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 before cancellation", calls)
	}
}

func TestDo_ZeroAttemptsTreatedAsOne(t *testing.T) {
	calls := 0
	_ = Do(context.Background(), Policy{}, alwaysRetryable, func(context.Context) error {
		calls++
		return errTransient
	})
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}
