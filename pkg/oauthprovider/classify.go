package oauthprovider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	integrationdomain "flowdesk-backend/internal/integration/domain"

	"golang.org/x/oauth2"
)

// classifyTokenError folds oauth2 endpoint failures into the integration
// error taxonomy. invalid_grant-class responses mean the refresh token is
// dead and the user must reauthorize; 5xx and transport failures are
// transient.
func classifyTokenError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return integrationdomain.ErrProviderUnavailable
	}

	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		switch rerr.ErrorCode {
		case "invalid_grant", "invalid_token":
			return integrationdomain.ErrReauthorizationRequired
		}
		if rerr.Response != nil {
			code := rerr.Response.StatusCode
			if code == http.StatusUnauthorized {
				return integrationdomain.ErrReauthorizationRequired
			}
			if code >= 500 || code == http.StatusTooManyRequests {
				return integrationdomain.ErrProviderUnavailable
			}
			return &integrationdomain.ProviderRejectedError{StatusCode: code, Reason: rerr.ErrorCode}
		}
	}

	// Anything else is a transport-level failure.
	return fmt.Errorf("%w: %v", integrationdomain.ErrProviderUnavailable, err)
}
