package oauthprovider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	integrationdomain "flowdesk-backend/internal/integration/domain"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleRevokeURL = "https://oauth2.googleapis.com/revoke"

// DefaultGoogleScopes covers calendar sync plus mailbox read and send.
var DefaultGoogleScopes = []string{
	"https://www.googleapis.com/auth/calendar.events",
	"https://www.googleapis.com/auth/gmail.readonly",
	"https://www.googleapis.com/auth/gmail.send",
}

// GoogleClient drives Google's OAuth2 endpoints for the hub.
type GoogleClient struct {
	conf *oauth2.Config
}

// NewGoogleClient creates a new GoogleClient.
func NewGoogleClient(clientID, clientSecret, redirectURL string) *GoogleClient {
	return &GoogleClient{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       DefaultGoogleScopes,
		},
	}
}

// AuthCodeURL builds the consent URL. Offline access plus a forced consent
// prompt so Google issues a refresh token even on reconnects.
func (c *GoogleClient) AuthCodeURL(state string, scopes []string) string {
	conf := *c.conf
	if len(scopes) > 0 {
		conf.Scopes = scopes
	}
	return conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

func (c *GoogleClient) Exchange(ctx context.Context, code string) (*integrationdomain.TokenSet, error) {
	tok, err := c.conf.Exchange(ctx, code)
	if err != nil {
		return nil, classifyTokenError(err)
	}
	return tokenSetFromOAuth(tok), nil
}

func (c *GoogleClient) Refresh(ctx context.Context, refreshToken string) (*integrationdomain.TokenSet, error) {
	src := c.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, classifyTokenError(err)
	}
	return tokenSetFromOAuth(tok), nil
}

// Revoke invalidates the token at Google. Google revokes the whole grant
// (access and refresh token) from either one.
func (c *GoogleClient) Revoke(ctx context.Context, accessToken string) error {
	form := url.Values{"token": {accessToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, googleRevokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", integrationdomain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unable to revoke google token: status %d", resp.StatusCode)
	}
	return nil
}

func tokenSetFromOAuth(tok *oauth2.Token) *integrationdomain.TokenSet {
	var scopes []string
	if s, ok := tok.Extra("scope").(string); ok && s != "" {
		scopes = strings.Fields(s)
	}
	return &integrationdomain.TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
		Scopes:       scopes,
	}
}
