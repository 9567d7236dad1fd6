package slackchat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	integrationdomain "flowdesk-backend/internal/integration/domain"

	"github.com/slack-go/slack"
)

const conversationsPageSize = 200

// Service wraps the Slack Web API for the channel messaging gateway.
type Service struct{}

// NewService creates a new Slack service wrapper.
func NewService() *Service {
	return &Service{}
}

// ListChannels pages through conversations.list and returns the public
// channels visible to the connected token.
func (s *Service) ListChannels(ctx context.Context, accessToken string) ([]*integrationdomain.Channel, error) {
	api := slack.New(accessToken)

	var channels []*integrationdomain.Channel
	cursor := ""
	for {
		page, nextCursor, err := api.GetConversationsContext(ctx, &slack.GetConversationsParameters{
			Types:           []string{"public_channel"},
			ExcludeArchived: true,
			Limit:           conversationsPageSize,
			Cursor:          cursor,
		})
		if err != nil {
			return nil, wrapError(err)
		}

		for _, ch := range page {
			channels = append(channels, &integrationdomain.Channel{
				ID:       ch.ID,
				Name:     ch.Name,
				Topic:    ch.Topic.Value,
				IsMember: ch.IsMember,
			})
		}

		cursor = nextCursor
		if cursor == "" {
			break
		}
	}
	return channels, nil
}

// PostMessage posts text to a channel and returns the message timestamp.
func (s *Service) PostMessage(ctx context.Context, accessToken, channelID, text string) (string, error) {
	api := slack.New(accessToken)

	_, ts, err := api.PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false))
	if err != nil {
		return "", wrapError(err)
	}
	return ts, nil
}

// History returns up to limit recent channel messages, oldest first. A zero
// oldest means no lower bound.
func (s *Service) History(ctx context.Context, accessToken, channelID string, limit int, oldest time.Time) ([]*integrationdomain.ChatMessage, error) {
	api := slack.New(accessToken)

	params := &slack.GetConversationHistoryParameters{
		ChannelID: channelID,
		Limit:     limit,
	}
	if !oldest.IsZero() {
		params.Oldest = fmt.Sprintf("%d.000000", oldest.Unix())
	}

	resp, err := api.GetConversationHistoryContext(ctx, params)
	if err != nil {
		return nil, wrapError(err)
	}

	// Slack returns newest first; reverse for chronological order.
	messages := make([]*integrationdomain.ChatMessage, 0, len(resp.Messages))
	for i := len(resp.Messages) - 1; i >= 0; i-- {
		m := resp.Messages[i]
		if m.SubType != "" && m.SubType != "thread_broadcast" {
			// Joins, topic changes and other channel noise.
			continue
		}
		messages = append(messages, &integrationdomain.ChatMessage{
			UserID: m.User,
			Text:   m.Text,
			SentAt: parseSlackTimestamp(m.Timestamp),
		})
	}
	return messages, nil
}

// wrapError folds slack-go errors into the integration taxonomy. Rate
// limits keep the provider's advertised retry-after delay.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", integrationdomain.ErrProviderUnavailable, err)
	}

	var rle *slack.RateLimitedError
	if errors.As(err, &rle) {
		return &integrationdomain.RateLimitedError{RetryAfter: rle.RetryAfter}
	}

	var sce slack.StatusCodeError
	if errors.As(err, &sce) {
		if sce.Code >= 500 {
			return fmt.Errorf("%w: %v", integrationdomain.ErrProviderUnavailable, err)
		}
		return &integrationdomain.ProviderRejectedError{StatusCode: sce.Code, Reason: sce.Status}
	}

	switch err.Error() {
	case "invalid_auth", "token_revoked", "token_expired", "account_inactive", "not_authed":
		return integrationdomain.ErrReauthorizationRequired
	}

	if strings.Contains(err.Error(), "connection") || strings.Contains(err.Error(), "timeout") {
		return fmt.Errorf("%w: %v", integrationdomain.ErrProviderUnavailable, err)
	}
	return &integrationdomain.ProviderRejectedError{StatusCode: 400, Reason: err.Error()}
}

// parseSlackTimestamp converts a Slack "seconds.sequence" timestamp.
func parseSlackTimestamp(ts string) time.Time {
	parts := strings.SplitN(ts, ".", 2)
	secs, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(secs, 0)
}
