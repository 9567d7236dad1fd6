package oauthprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	integrationdomain "flowdesk-backend/internal/integration/domain"

	"golang.org/x/oauth2"
)

const slackRevokeURL = "https://slack.com/api/auth.revoke"

// slackEndpoint is Slack's OAuth v2 endpoint pair.
var slackEndpoint = oauth2.Endpoint{
	AuthURL:  "https://slack.com/oauth/v2/authorize",
	TokenURL: "https://slack.com/api/oauth.v2.access",
}

// DefaultSlackScopes covers channel listing, posting, and history reads.
var DefaultSlackScopes = []string{
	"channels:read",
	"channels:history",
	"chat:write",
}

// SlackClient drives Slack's OAuth2 endpoints. Slack tokens do not expire,
// so the token set carries a zero expiry and no refresh token.
type SlackClient struct {
	conf *oauth2.Config
}

// NewSlackClient creates a new SlackClient.
func NewSlackClient(clientID, clientSecret, redirectURL string) *SlackClient {
	return &SlackClient{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     slackEndpoint,
			Scopes:       DefaultSlackScopes,
		},
	}
}

func (c *SlackClient) AuthCodeURL(state string, scopes []string) string {
	conf := *c.conf
	if len(scopes) > 0 {
		conf.Scopes = scopes
	}
	return conf.AuthCodeURL(state)
}

func (c *SlackClient) Exchange(ctx context.Context, code string) (*integrationdomain.TokenSet, error) {
	tok, err := c.conf.Exchange(ctx, code)
	if err != nil {
		return nil, classifyTokenError(err)
	}
	set := tokenSetFromOAuth(tok)
	if len(set.Scopes) == 0 {
		set.Scopes = c.conf.Scopes
	}
	return set, nil
}

// Refresh is not supported: Slack access tokens are long-lived and carry no
// refresh token, so a dead token always means reauthorization.
func (c *SlackClient) Refresh(ctx context.Context, refreshToken string) (*integrationdomain.TokenSet, error) {
	return nil, integrationdomain.ErrReauthorizationRequired
}

func (c *SlackClient) Revoke(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, slackRevokeURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", integrationdomain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	var body struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("unable to decode revoke response: %w", err)
	}
	if !body.OK {
		return fmt.Errorf("unable to revoke slack token: %s", body.Error)
	}
	return nil
}
