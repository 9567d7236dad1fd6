package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	integrationdomain "flowdesk-backend/internal/integration/domain"
	"flowdesk-backend/internal/integration/repository"

	"golang.org/x/sync/singleflight"
)

// refreshWindow is the safety margin before expiry within which Get
// refreshes the access token instead of handing it out.
const refreshWindow = 2 * time.Minute

// Vault owns IntegrationCredential rows. Other components read credentials
// and trigger refresh only through it, never mutating tokens directly.
type Vault struct {
	creds repository.CredentialRepository
	oauth map[integrationdomain.Provider]ProviderOAuth
	group singleflight.Group
}

// NewVault creates a new Vault over the credential store and the
// per-provider OAuth clients.
func NewVault(creds repository.CredentialRepository, oauth map[integrationdomain.Provider]ProviderOAuth) *Vault {
	return &Vault{creds: creds, oauth: oauth}
}

// Get returns a currently valid credential for (user, provider),
// transparently refreshing when the access token expires within the safety
// window. Concurrent refreshes for the same pair collapse into a single
// in-flight provider call.
func (v *Vault) Get(ctx context.Context, userID string, provider integrationdomain.Provider) (*integrationdomain.IntegrationCredential, error) {
	cred, err := v.creds.GetByUserAndProvider(userID, provider)
	if err != nil {
		return nil, fmt.Errorf("unable to load credential: %w", err)
	}
	if cred == nil || cred.Status == integrationdomain.StatusDisconnected {
		return nil, integrationdomain.ErrNotConnected
	}
	if cred.Status == integrationdomain.StatusRevoked {
		// No point attempting another refresh until the user reauthorizes.
		return nil, integrationdomain.ErrReauthorizationRequired
	}
	if !v.needsRefresh(cred) {
		return cred, nil
	}

	key := userID + "|" + string(provider)
	result, err, _ := v.group.Do(key, func() (interface{}, error) {
		return v.refresh(ctx, userID, provider)
	})
	if err != nil {
		return nil, err
	}
	return result.(*integrationdomain.IntegrationCredential), nil
}

func (v *Vault) needsRefresh(cred *integrationdomain.IntegrationCredential) bool {
	// A zero expiry means the provider issued a non-expiring token.
	if cred.ExpiresAt.IsZero() {
		return false
	}
	return time.Until(cred.ExpiresAt) < refreshWindow
}

// refresh runs under the single-flight group; every awaiting caller gets
// this call's outcome.
func (v *Vault) refresh(ctx context.Context, userID string, provider integrationdomain.Provider) (*integrationdomain.IntegrationCredential, error) {
	// Re-read inside the flight: an earlier caller may already have
	// refreshed while we were queued on the group.
	cred, err := v.creds.GetByUserAndProvider(userID, provider)
	if err != nil {
		return nil, fmt.Errorf("unable to load credential: %w", err)
	}
	if cred == nil || cred.Status == integrationdomain.StatusDisconnected {
		return nil, integrationdomain.ErrNotConnected
	}
	if cred.Status == integrationdomain.StatusRevoked {
		return nil, integrationdomain.ErrReauthorizationRequired
	}
	if !v.needsRefresh(cred) {
		return cred, nil
	}

	if cred.RefreshToken == "" {
		// Nothing to refresh with; the token is as good as revoked.
		if err := v.creds.UpdateStatus(userID, provider, integrationdomain.StatusExpired); err != nil {
			log.Printf("[Vault] unable to mark credential expired: %v", err)
		}
		return nil, integrationdomain.ErrReauthorizationRequired
	}

	client, ok := v.oauth[provider]
	if !ok {
		return nil, fmt.Errorf("no oauth client registered for provider %s", provider)
	}

	var tokens *integrationdomain.TokenSet
	err = withRetry(ctx, func(callCtx context.Context) error {
		var refreshErr error
		tokens, refreshErr = client.Refresh(callCtx, cred.RefreshToken)
		return refreshErr
	})
	if err != nil {
		if errors.Is(err, integrationdomain.ErrReauthorizationRequired) {
			// invalid_grant class: the refresh token is dead.
			if statusErr := v.creds.UpdateStatus(userID, provider, integrationdomain.StatusRevoked); statusErr != nil {
				log.Printf("[Vault] unable to mark credential revoked: %v", statusErr)
			}
			return nil, integrationdomain.ErrReauthorizationRequired
		}
		return nil, integrationdomain.ErrProviderUnavailable
	}

	return v.Store(userID, provider, tokens)
}

// Store upserts a credential after a successful exchange or refresh,
// overwriting scope and expiry. A refresh response without a new refresh
// token keeps the stored one.
func (v *Vault) Store(userID string, provider integrationdomain.Provider, tokens *integrationdomain.TokenSet) (*integrationdomain.IntegrationCredential, error) {
	existing, err := v.creds.GetByUserAndProvider(userID, provider)
	if err != nil {
		return nil, fmt.Errorf("unable to load credential: %w", err)
	}

	cred := &integrationdomain.IntegrationCredential{
		UserID:       userID,
		Provider:     provider,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    tokens.ExpiresAt,
		Scopes:       strings.Join(tokens.Scopes, " "),
		Status:       integrationdomain.StatusConnected,
	}
	if existing != nil {
		cred.ID = existing.ID
		cred.CreatedAt = existing.CreatedAt
		if cred.RefreshToken == "" {
			cred.RefreshToken = existing.RefreshToken
		}
		if cred.Scopes == "" {
			cred.Scopes = existing.Scopes
		}
	}

	if err := v.creds.Upsert(cred); err != nil {
		return nil, fmt.Errorf("unable to store credential: %w", err)
	}
	return cred, nil
}

// Disconnect attempts a best-effort revoke at the provider, then marks the
// credential disconnected regardless of the revoke outcome.
func (v *Vault) Disconnect(ctx context.Context, userID string, provider integrationdomain.Provider) error {
	cred, err := v.creds.GetByUserAndProvider(userID, provider)
	if err != nil {
		return fmt.Errorf("unable to load credential: %w", err)
	}
	if cred == nil {
		return integrationdomain.ErrNotConnected
	}

	if client, ok := v.oauth[provider]; ok && cred.AccessToken != "" {
		revokeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := client.Revoke(revokeCtx, cred.AccessToken); err != nil {
			log.Printf("[Vault] revoke failed for %s/%s: %v", userID, provider, err)
		}
		cancel()
	}

	return v.creds.UpdateStatus(userID, provider, integrationdomain.StatusDisconnected)
}

// Connected returns the providers the user currently has a usable
// credential for.
func (v *Vault) Connected(userID string) ([]*integrationdomain.IntegrationCredential, error) {
	return v.creds.GetAllByUser(userID)
}
