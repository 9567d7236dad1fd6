package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"time"

	integrationdomain "flowdesk-backend/internal/integration/domain"
	"flowdesk-backend/internal/integration/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// stateTTL is how long an issued state token stays exchangeable.
const stateTTL = 10 * time.Minute

// OAuthFlow drives the three-step authorization handshake for each
// provider: initiate, provider consent, callback exchange. Successful
// exchanges populate the Vault.
type OAuthFlow struct {
	vault       *Vault
	states      repository.OAuthStateRepository
	mappings    repository.MappingRepository
	oauth       map[integrationdomain.Provider]ProviderOAuth
	stateSecret []byte
	frontendURL string
}

// NewOAuthFlow creates a new OAuthFlow coordinator.
func NewOAuthFlow(
	vault *Vault,
	states repository.OAuthStateRepository,
	mappings repository.MappingRepository,
	oauth map[integrationdomain.Provider]ProviderOAuth,
	stateSecret string,
	frontendURL string,
) *OAuthFlow {
	return &OAuthFlow{
		vault:       vault,
		states:      states,
		mappings:    mappings,
		oauth:       oauth,
		stateSecret: []byte(stateSecret),
		frontendURL: frontendURL,
	}
}

// Initiate generates a signed, single-use state token binding the user,
// provider, a nonce and an expiry, and returns the provider consent URL
// embedding it.
func (f *OAuthFlow) Initiate(userID string, provider integrationdomain.Provider, requestedScopes []string) (string, error) {
	client, ok := f.oauth[provider]
	if !ok {
		return "", fmt.Errorf("no oauth client registered for provider %s", provider)
	}

	if err := f.states.DeleteExpired(time.Now()); err != nil {
		// Pruning is housekeeping; a failure must not block the handshake.
		log.Printf("[OAuthFlow] unable to prune expired states: %v", err)
	}

	nonce := uuid.New().String()
	expiresAt := time.Now().Add(stateTTL)

	if err := f.states.Create(&integrationdomain.OAuthState{
		Nonce:     nonce,
		UserID:    userID,
		Provider:  provider,
		ExpiresAt: expiresAt,
	}); err != nil {
		return "", fmt.Errorf("unable to record oauth state: %w", err)
	}

	claims := jwt.MapClaims{
		"user_id":  userID,
		"provider": string(provider),
		"nonce":    nonce,
		"exp":      expiresAt.Unix(),
		"iat":      time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	state, err := token.SignedString(f.stateSecret)
	if err != nil {
		return "", fmt.Errorf("unable to sign state token: %w", err)
	}

	return client.AuthCodeURL(state, requestedScopes), nil
}

// HandleCallback validates and consumes the state token, exchanges the
// authorization code, stores the credential, and returns the redirect
// target for the presentation layer. When the provider reported an error
// (e.g. the user denied consent) no exchange is attempted.
func (f *OAuthFlow) HandleCallback(ctx context.Context, code, state, providerError string) string {
	userID, provider, err := f.consumeState(state)
	if err != nil {
		log.Printf("[OAuthFlow] state validation failed: %v", err)
		return f.redirect("", "error", "invalid_state")
	}

	if providerError != "" {
		log.Printf("[OAuthFlow] provider returned error for %s/%s: %s", userID, provider, providerError)
		return f.redirect(provider, "error", "consent_denied")
	}

	tokens, err := f.exchangeCode(ctx, provider, code)
	if err != nil {
		log.Printf("[OAuthFlow] %v for %s/%s", err, userID, provider)
		return f.redirect(provider, "error", "exchange_failed")
	}

	if _, err := f.vault.Store(userID, provider, tokens); err != nil {
		log.Printf("[OAuthFlow] unable to store credential for %s/%s: %v", userID, provider, err)
		return f.redirect(provider, "error", "storage_failed")
	}

	return f.redirect(provider, "connected", "")
}

// exchangeCode swaps the authorization code for tokens, with retry, and
// tags failures with ErrExchangeFailed so callers can classify them.
func (f *OAuthFlow) exchangeCode(ctx context.Context, provider integrationdomain.Provider, code string) (*integrationdomain.TokenSet, error) {
	client := f.oauth[provider]

	var tokens *integrationdomain.TokenSet
	err := withRetry(ctx, func(callCtx context.Context) error {
		var exchErr error
		tokens, exchErr = client.Exchange(callCtx, code)
		return exchErr
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integrationdomain.ErrExchangeFailed, err)
	}
	return tokens, nil
}

// consumeState verifies the signed state token and marks its nonce used.
// A token is accepted exactly once; replays, expired tokens and unknown
// providers all fail with ErrInvalidOrExpiredState.
func (f *OAuthFlow) consumeState(state string) (string, integrationdomain.Provider, error) {
	token, err := jwt.Parse(state, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return f.stateSecret, nil
	})
	if err != nil || !token.Valid {
		return "", "", integrationdomain.ErrInvalidOrExpiredState
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", integrationdomain.ErrInvalidOrExpiredState
	}
	userID, _ := claims["user_id"].(string)
	providerName, _ := claims["provider"].(string)
	nonce, _ := claims["nonce"].(string)
	provider, known := integrationdomain.ParseProvider(providerName)
	if userID == "" || nonce == "" || !known {
		return "", "", integrationdomain.ErrInvalidOrExpiredState
	}
	if _, ok := f.oauth[provider]; !ok {
		return "", "", integrationdomain.ErrInvalidOrExpiredState
	}

	record, err := f.states.Consume(nonce)
	if err != nil {
		if errors.Is(err, repository.ErrStateConsumed) {
			return "", "", integrationdomain.ErrInvalidOrExpiredState
		}
		return "", "", fmt.Errorf("unable to consume oauth state: %w", err)
	}
	if time.Now().After(record.ExpiresAt) || record.UserID != userID || record.Provider != provider {
		return "", "", integrationdomain.ErrInvalidOrExpiredState
	}

	return userID, provider, nil
}

// Disconnect revokes and disconnects one provider and drops its reference
// mappings so nothing resurrects on a later reconnect.
func (f *OAuthFlow) Disconnect(ctx context.Context, userID string, provider integrationdomain.Provider) error {
	if err := f.vault.Disconnect(ctx, userID, provider); err != nil {
		return err
	}
	if err := f.mappings.DeleteByProvider(userID, provider); err != nil {
		return fmt.Errorf("unable to remove reference mappings: %w", err)
	}
	return nil
}

// DisconnectAll fans Disconnect out across every provider the user has
// ever connected. Individual failures do not stop the fan-out.
func (f *OAuthFlow) DisconnectAll(ctx context.Context, userID string) error {
	creds, err := f.vault.Connected(userID)
	if err != nil {
		return err
	}

	var firstErr error
	for _, cred := range creds {
		if cred.Status == integrationdomain.StatusDisconnected {
			continue
		}
		if err := f.Disconnect(ctx, userID, cred.Provider); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f *OAuthFlow) redirect(provider integrationdomain.Provider, status, reason string) string {
	q := url.Values{}
	if provider != "" {
		q.Set("provider", string(provider))
	}
	q.Set("status", status)
	if reason != "" {
		q.Set("reason", reason)
	}
	return f.frontendURL + "/settings/integrations?" + q.Encode()
}
