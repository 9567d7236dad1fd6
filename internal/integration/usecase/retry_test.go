package usecase

import (
	"context"
	"testing"
	"time"

	integrationdomain "flowdesk-backend/internal/integration/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRetryStopsOnNonRetryable(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), func(ctx context.Context) error {
		calls++
		return &integrationdomain.ProviderRejectedError{StatusCode: 400, Reason: "bad request"}
	})

	var rejected *integrationdomain.ProviderRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, 1, calls)
}

func TestWithRetryRecoversFromRateLimit(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return &integrationdomain.RateLimitedError{RetryAfter: 5 * time.Millisecond}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestWithRetryGivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), func(ctx context.Context) error {
		calls++
		return &integrationdomain.RateLimitedError{RetryAfter: time.Millisecond}
	})

	var rl *integrationdomain.RateLimitedError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, maxAttempts, calls)
}

func TestWithRetryHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := withRetry(ctx, func(callCtx context.Context) error {
		calls++
		cancel()
		return integrationdomain.ErrProviderUnavailable
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
