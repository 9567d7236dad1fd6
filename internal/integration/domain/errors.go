package domain

import (
	"errors"
	"fmt"
	"time"
)

// Error taxonomy for the integration core. Handshake and credential errors
// abort the whole operation; per-item errors during batch sync are isolated
// into the SyncRun's failure list.
var (
	// ErrNotConnected indicates no credential exists for the provider.
	ErrNotConnected = errors.New("integration: provider not connected")

	// ErrReauthorizationRequired indicates the refresh token is no longer
	// usable and the user must go through the consent flow again.
	ErrReauthorizationRequired = errors.New("integration: reauthorization required")

	// ErrProviderUnavailable indicates a transient network or 5xx failure.
	// Calls failing with it are retried with bounded backoff.
	ErrProviderUnavailable = errors.New("integration: provider unavailable")

	// ErrInvalidOrExpiredState indicates the OAuth state token was expired,
	// already used, or otherwise unverifiable. No exchange is attempted.
	ErrInvalidOrExpiredState = errors.New("integration: invalid or expired state")

	// ErrExchangeFailed indicates the provider rejected the code exchange.
	ErrExchangeFailed = errors.New("integration: authorization code exchange failed")

	// ErrSyncAlreadyInProgress indicates a sync of the same kind is already
	// running for this user and provider.
	ErrSyncAlreadyInProgress = errors.New("integration: sync already in progress")
)

// ProviderRejectedError is a 4xx business-rule rejection from a provider.
// It is item-scoped and not retryable.
type ProviderRejectedError struct {
	StatusCode int
	Reason     string
}

func (e *ProviderRejectedError) Error() string {
	return fmt.Sprintf("integration: provider rejected request (%d): %s", e.StatusCode, e.Reason)
}

// RateLimitedError reports a provider rate-limit response together with the
// advertised retry-after delay.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("integration: rate limited, retry after %s", e.RetryAfter)
}

// IsRetryable reports whether an error is worth retrying at the single-call
// level. Rejections and credential errors are not.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrProviderUnavailable) {
		return true
	}
	var rl *RateLimitedError
	return errors.As(err, &rl)
}
