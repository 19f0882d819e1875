package chain

import (
	"context"
	"errors"
	"time"

	"evmAdapter/internal/storage"
)

// withRetry runs fn until it succeeds, the retries are used up, or the error
// is one a retry cannot fix. The delay doubles after every attempt.
func withRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delay := baseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries || permanent(err) {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}

// permanent reports errors that another attempt would return again: index
// and header misses, and a cancelled or expired caller context, whose
// deadline also bounds every later attempt.
func permanent(err error) bool {
	return errors.Is(err, storage.ErrNotFound) ||
		errors.Is(err, errHeaderNotFound) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
