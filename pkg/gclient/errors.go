package gclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	integrationdomain "flowdesk-backend/internal/integration/domain"

	"google.golang.org/api/googleapi"
)

// WrapError folds a Google API error into the integration error taxonomy:
// 401 means the credential is dead, 429 carries the advertised retry-after,
// 5xx is transient, and remaining 4xx are item-scoped rejections.
func WrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", integrationdomain.ErrProviderUnavailable, err)
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		// Transport-level failure.
		return fmt.Errorf("%w: %v", integrationdomain.ErrProviderUnavailable, err)
	}

	switch {
	case gerr.Code == http.StatusUnauthorized:
		return integrationdomain.ErrReauthorizationRequired
	case gerr.Code == http.StatusTooManyRequests:
		return &integrationdomain.RateLimitedError{RetryAfter: retryAfterFromHeader(gerr)}
	case gerr.Code >= 500:
		return fmt.Errorf("%w: %v", integrationdomain.ErrProviderUnavailable, err)
	default:
		return &integrationdomain.ProviderRejectedError{StatusCode: gerr.Code, Reason: gerr.Message}
	}
}

func retryAfterFromHeader(gerr *googleapi.Error) time.Duration {
	if gerr.Header != nil {
		if v := gerr.Header.Get("Retry-After"); v != "" {
			if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
				return time.Duration(secs) * time.Second
			}
		}
	}
	return 0
}
