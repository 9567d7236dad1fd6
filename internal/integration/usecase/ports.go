package usecase

import (
	"context"
	"time"

	eventdomain "flowdesk-backend/internal/event/domain"
	integrationdomain "flowdesk-backend/internal/integration/domain"
)

// ProviderOAuth drives the OAuth2 endpoints of one provider. Implementations
// live under pkg/oauthprovider and wrap golang.org/x/oauth2 configs.
type ProviderOAuth interface {
	// AuthCodeURL builds the consent URL embedding the signed state token.
	AuthCodeURL(state string, scopes []string) string
	// Exchange swaps an authorization code for tokens.
	Exchange(ctx context.Context, code string) (*integrationdomain.TokenSet, error)
	// Refresh obtains a fresh access token using the refresh token.
	Refresh(ctx context.Context, refreshToken string) (*integrationdomain.TokenSet, error)
	// Revoke invalidates a token at the provider. Best effort.
	Revoke(ctx context.Context, accessToken string) error
}

// CalendarClient is the remote calendar collaborator.
type CalendarClient interface {
	// ListEvents pages through remote events in [from, to), including
	// cancelled ones so deletions propagate.
	ListEvents(ctx context.Context, accessToken string, from, to time.Time) ([]*integrationdomain.RemoteEvent, error)
	// CreateEvent inserts a remote event and returns its provider id.
	CreateEvent(ctx context.Context, accessToken string, event *eventdomain.Event) (*integrationdomain.RemoteEvent, error)
	// UpdateEvent overwrites a remote event.
	UpdateEvent(ctx context.Context, accessToken, remoteID string, event *eventdomain.Event) (*integrationdomain.RemoteEvent, error)
}

// MailClient is the remote mailbox collaborator.
type MailClient interface {
	// ListRecent returns up to maxResults most recent messages, newest first.
	ListRecent(ctx context.Context, accessToken string, maxResults int) ([]*integrationdomain.MailMessage, error)
	// Send delivers the mail and returns the provider message id.
	Send(ctx context.Context, accessToken string, mail *integrationdomain.OutgoingMail) (string, error)
}

// ChatClient is the chat provider collaborator.
type ChatClient interface {
	// ListChannels returns the channels visible to the connected user.
	ListChannels(ctx context.Context, accessToken string) ([]*integrationdomain.Channel, error)
	// PostMessage posts text to a channel and returns the message timestamp.
	PostMessage(ctx context.Context, accessToken, channelID, text string) (string, error)
	// History returns up to limit recent messages, oldest first. A zero
	// oldest means no lower bound.
	History(ctx context.Context, accessToken, channelID string, limit int, oldest time.Time) ([]*integrationdomain.ChatMessage, error)
}

// Summarizer is the AI collaborator. Failures are treated as hard errors
// for the item in question; no retry contract is assumed.
type Summarizer interface {
	Summarize(ctx context.Context, text, promptPrefix string) (string, error)
	Draft(ctx context.Context, instruction, contextText, tone, format string) (string, error)
}
