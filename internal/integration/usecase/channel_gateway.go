package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	integrationdomain "flowdesk-backend/internal/integration/domain"
	messagedomain "flowdesk-backend/internal/message/domain"
	messagerepo "flowdesk-backend/internal/message/repository"
)

const (
	channelCacheTTL        = 60 * time.Second
	defaultHistoryMessages = 50
	maxHistoryMessages     = 200
)

type channelCacheEntry struct {
	channels  []*integrationdomain.Channel
	fetchedAt time.Time
}

// ChannelGateway lists channels, posts messages, and summarizes recent
// discussion for the chat provider.
type ChannelGateway struct {
	vault    *Vault
	chat     ChatClient
	ai       Summarizer
	messages messagerepo.MessageRepository

	mu    sync.Mutex
	cache map[string]channelCacheEntry
	now   func() time.Time
}

// NewChannelGateway creates a new ChannelGateway.
func NewChannelGateway(vault *Vault, chat ChatClient, ai Summarizer, messages messagerepo.MessageRepository) *ChannelGateway {
	return &ChannelGateway{
		vault:    vault,
		chat:     chat,
		ai:       ai,
		messages: messages,
		cache:    make(map[string]channelCacheEntry),
		now:      time.Now,
	}
}

// ListChannels returns the user's visible channels, served from a short
// per-user cache so repeated UI refreshes do not hammer the provider.
func (g *ChannelGateway) ListChannels(ctx context.Context, userID string) ([]*integrationdomain.Channel, error) {
	g.mu.Lock()
	if entry, ok := g.cache[userID]; ok && g.now().Sub(entry.fetchedAt) < channelCacheTTL {
		g.mu.Unlock()
		return entry.channels, nil
	}
	g.mu.Unlock()

	cred, err := g.vault.Get(ctx, userID, integrationdomain.ProviderSlack)
	if err != nil {
		return nil, err
	}

	var channels []*integrationdomain.Channel
	err = withRetry(ctx, func(callCtx context.Context) error {
		var listErr error
		channels, listErr = g.chat.ListChannels(callCtx, cred.AccessToken)
		return listErr
	})
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	g.cache[userID] = channelCacheEntry{channels: channels, fetchedAt: g.now()}
	g.mu.Unlock()

	return channels, nil
}

// SendMessage posts text to a channel, retrying rate-limit responses after
// the provider's advertised delay, bounded to three attempts in total.
func (g *ChannelGateway) SendMessage(ctx context.Context, userID, channelID, text string) (string, error) {
	cred, err := g.vault.Get(ctx, userID, integrationdomain.ProviderSlack)
	if err != nil {
		return "", err
	}

	var ts string
	err = withRetry(ctx, func(callCtx context.Context) error {
		var postErr error
		ts, postErr = g.chat.PostMessage(callCtx, cred.AccessToken, channelID, text)
		return postErr
	})
	if err != nil {
		return "", err
	}
	return ts, nil
}

// SummarizeChannel fetches up to numMessages recent messages, optionally
// bounded to a timeframe, and runs a single summarization call over the
// whole transcript. Never per-message, to bound AI-service call volume.
func (g *ChannelGateway) SummarizeChannel(ctx context.Context, userID, channelID string, numMessages int, timeframe time.Duration) (string, error) {
	if numMessages <= 0 {
		numMessages = defaultHistoryMessages
	}
	if numMessages > maxHistoryMessages {
		numMessages = maxHistoryMessages
	}

	cred, err := g.vault.Get(ctx, userID, integrationdomain.ProviderSlack)
	if err != nil {
		return "", err
	}

	var oldest time.Time
	if timeframe > 0 {
		oldest = g.now().Add(-timeframe)
	}

	var history []*integrationdomain.ChatMessage
	err = withRetry(ctx, func(callCtx context.Context) error {
		var histErr error
		history, histErr = g.chat.History(callCtx, cred.AccessToken, channelID, numMessages, oldest)
		return histErr
	})
	if err != nil {
		return "", err
	}
	if len(history) == 0 {
		return "", fmt.Errorf("no messages to summarize in channel %s", channelID)
	}

	var transcript strings.Builder
	for _, m := range history {
		fmt.Fprintf(&transcript, "[%s] %s: %s\n", m.SentAt.Format("2006-01-02 15:04"), m.UserID, m.Text)
	}

	summary, err := g.ai.Summarize(ctx, transcript.String(), "Summarize this team chat discussion, highlighting decisions and action items.")
	if err != nil {
		return "", fmt.Errorf("unable to summarize channel: %w", err)
	}

	g.storeSummaryRecord(userID, channelID, history[len(history)-1], summary)

	return summary, nil
}

// storeSummaryRecord mirrors the channel summary as a communication_log
// record. Keyed by the newest message timestamp so re-summarizing an
// unchanged channel does not duplicate the record.
func (g *ChannelGateway) storeSummaryRecord(userID, channelID string, latest *integrationdomain.ChatMessage, summary string) {
	refID := fmt.Sprintf("slack:%s:%d", channelID, latest.SentAt.Unix())

	existing, err := g.messages.FindByExternalRef(userID, refID)
	if err != nil || existing != nil {
		return
	}
	_ = g.messages.Create(&messagedomain.Message{
		UserID:              userID,
		Type:                messagedomain.TypeCommunicationLog,
		Source:              messagedomain.SourceSlack,
		Subject:             fmt.Sprintf("Channel summary: %s", channelID),
		Content:             summary,
		ExternalReferenceID: refID,
		ReceivedAt:          latest.SentAt,
	})
}

// InvalidateChannels drops the cached channel list for a user, called on
// disconnect so a stale list never outlives the credential.
func (g *ChannelGateway) InvalidateChannels(userID string) {
	g.mu.Lock()
	delete(g.cache, userID)
	g.mu.Unlock()
}
