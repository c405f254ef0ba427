package analysis

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// RetryPolicy is an exponential backoff: Attempts tries in total, sleeping
// InitialDelay after the first failure and doubling each time.
type RetryPolicy struct {
	Attempts     int
	InitialDelay time.Duration
}

// DefaultRetryPolicy is three attempts starting at one second
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, InitialDelay: time.Second}

// Retry runs fn until it succeeds, the attempts are exhausted or ctx ends.
// The last error is returned.
func Retry(ctx context.Context, p RetryPolicy, op string, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.InitialDelay

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if attempt == attempts {
			slog.Error("retries exhausted", "op", op, "attempts", attempts, "error", err)
			break
		}

		slog.Info("retrying after failure", "op", op, "attempt", attempt, "delay", delay, "error", err)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
	return err
}
