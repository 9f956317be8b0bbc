package retrier

import (
	"context"
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

// Policy controls how failed upstream calls are re-issued.
type Policy struct {
	// MaxAttempts counts the initial call plus retries.
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Multiplier:  2,
	}
}

// DelayFor returns the wait before retry n (1-indexed):
// BaseDelay * Multiplier^(n-1).
func (p Policy) DelayFor(retry int) time.Duration {
	if retry < 1 {
		retry = 1
	}
	return time.Duration(float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(retry-1)))
}

// Do runs op until it succeeds, the attempt budget is spent, or a
// non-retryable error occurs. The backoff wait aborts on context
// cancellation. The last error is returned on exhaustion.
func Do(ctx context.Context, policy Policy, retryable func(error) bool, op func(context.Context) error) error {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !retryable(lastErr) || attempt == policy.MaxAttempts {
			return lastErr
		}

		delay := policy.DelayFor(attempt)
		logrus.WithError(lastErr).Debugf("[RETRIER] Attempt %d/%d failed, retrying in %s",
			attempt, policy.MaxAttempts, delay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}
