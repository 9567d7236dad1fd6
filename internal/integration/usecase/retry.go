package usecase

import (
	"context"
	"errors"
	"time"

	integrationdomain "flowdesk-backend/internal/integration/domain"
)

const (
	// callTimeout bounds every individual provider call, distinct from any
	// caller-imposed deadline.
	callTimeout = 30 * time.Second

	maxAttempts    = 3
	initialBackoff = 500 * time.Millisecond
)

// withRetry runs fn with a per-call timeout, retrying transient failures
// with exponential backoff up to maxAttempts. Rate-limit errors wait for
// the provider's advertised retry-after delay instead of the backoff curve.
// Non-retryable errors surface immediately.
func withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := initialBackoff
	var err error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := backoff
			var rl *integrationdomain.RateLimitedError
			if errors.As(err, &rl) && rl.RetryAfter > 0 {
				delay = rl.RetryAfter
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			backoff *= 2
		}

		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		err = fn(callCtx)
		cancel()

		if err == nil || !integrationdomain.IsRetryable(err) {
			return err
		}
	}
	return err
}
