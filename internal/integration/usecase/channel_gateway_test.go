package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	integrationdomain "flowdesk-backend/internal/integration/domain"
	messagedomain "flowdesk-backend/internal/message/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type channelGatewayFixture struct {
	gateway  *ChannelGateway
	chat     *fakeChatClient
	ai       *fakeSummarizer
	messages *fakeMessageRepo
	clock    time.Time
}

func newChannelGatewayFixture() *channelGatewayFixture {
	creds := newFakeCredentialRepo()
	connectedCredential(creds, "u1", integrationdomain.ProviderSlack)
	vault := NewVault(creds, map[integrationdomain.Provider]ProviderOAuth{
		integrationdomain.ProviderSlack: &fakeOAuthClient{},
	})
	chat := &fakeChatClient{
		channels: []*integrationdomain.Channel{
			{ID: "C1", Name: "general", IsMember: true},
			{ID: "C2", Name: "random", IsMember: true},
		},
	}
	ai := &fakeSummarizer{}
	messages := newFakeMessageRepo()
	f := &channelGatewayFixture{
		gateway:  NewChannelGateway(vault, chat, ai, messages),
		chat:     chat,
		ai:       ai,
		messages: messages,
		clock:    time.Now(),
	}
	f.gateway.now = func() time.Time { return f.clock }
	return f
}

func TestListChannelsServedFromCache(t *testing.T) {
	f := newChannelGatewayFixture()

	first, err := f.gateway.ListChannels(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, first, 2)
	assert.Equal(t, 1, f.chat.listCalls)

	second, err := f.gateway.ListChannels(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, second, 2)
	assert.Equal(t, 1, f.chat.listCalls)

	// Past the TTL the provider is asked again.
	f.clock = f.clock.Add(channelCacheTTL + time.Second)
	_, err = f.gateway.ListChannels(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, f.chat.listCalls)
}

func TestListChannelsCacheIsPerUser(t *testing.T) {
	f := newChannelGatewayFixture()
	creds := newFakeCredentialRepo()
	connectedCredential(creds, "u1", integrationdomain.ProviderSlack)
	connectedCredential(creds, "u2", integrationdomain.ProviderSlack)
	f.gateway.vault = NewVault(creds, map[integrationdomain.Provider]ProviderOAuth{
		integrationdomain.ProviderSlack: &fakeOAuthClient{},
	})

	_, err := f.gateway.ListChannels(context.Background(), "u1")
	require.NoError(t, err)
	_, err = f.gateway.ListChannels(context.Background(), "u2")
	require.NoError(t, err)
	assert.Equal(t, 2, f.chat.listCalls)
}

func TestInvalidateChannelsForcesRefetch(t *testing.T) {
	f := newChannelGatewayFixture()

	_, err := f.gateway.ListChannels(context.Background(), "u1")
	require.NoError(t, err)

	f.gateway.InvalidateChannels("u1")

	_, err = f.gateway.ListChannels(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, f.chat.listCalls)
}

func TestSendMessageRetriesAfterRateLimit(t *testing.T) {
	f := newChannelGatewayFixture()
	f.chat.postErrs = []error{&integrationdomain.RateLimitedError{RetryAfter: 10 * time.Millisecond}}

	ts, err := f.gateway.SendMessage(context.Background(), "u1", "C1", "hello")
	require.NoError(t, err)
	assert.NotEmpty(t, ts)
	assert.Equal(t, 2, f.chat.postCalls)
}

func TestSendMessageSurfacesRejection(t *testing.T) {
	f := newChannelGatewayFixture()
	rejection := &integrationdomain.ProviderRejectedError{StatusCode: 404, Reason: "channel_not_found"}
	f.chat.postErrs = []error{rejection}

	_, err := f.gateway.SendMessage(context.Background(), "u1", "C9", "hello")
	var rejected *integrationdomain.ProviderRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "channel_not_found", rejected.Reason)
	assert.Equal(t, 1, f.chat.postCalls)
}

func TestSummarizeChannelSingleAICall(t *testing.T) {
	f := newChannelGatewayFixture()
	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		f.chat.history = append(f.chat.history, &integrationdomain.ChatMessage{
			UserID: fmt.Sprintf("U%d", i),
			Text:   fmt.Sprintf("message %d", i),
			SentAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	summary, err := f.gateway.SummarizeChannel(context.Background(), "u1", "C1", 0, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, summary)
	assert.Equal(t, 1, f.ai.summarizeCount())

	// The whole transcript goes into one prompt, oldest first.
	require.Len(t, f.ai.inputs, 1)
	assert.Contains(t, f.ai.inputs[0], "U0: message 0")
	assert.Contains(t, f.ai.inputs[0], "U3: message 3")
}

func TestSummarizeChannelStoresRecordOnce(t *testing.T) {
	f := newChannelGatewayFixture()
	latest := time.Date(2026, 8, 20, 10, 3, 0, 0, time.UTC)
	f.chat.history = []*integrationdomain.ChatMessage{
		{UserID: "U1", Text: "ship it", SentAt: latest},
	}

	_, err := f.gateway.SummarizeChannel(context.Background(), "u1", "C1", 0, 0)
	require.NoError(t, err)

	refID := fmt.Sprintf("slack:C1:%d", latest.Unix())
	record, err := f.messages.FindByExternalRef("u1", refID)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, messagedomain.TypeCommunicationLog, record.Type)
	assert.Equal(t, messagedomain.SourceSlack, record.Source)

	// Re-summarizing an unchanged channel does not duplicate the record.
	_, err = f.gateway.SummarizeChannel(context.Background(), "u1", "C1", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, f.messages.count())
}

func TestSummarizeChannelHonorsTimeframe(t *testing.T) {
	f := newChannelGatewayFixture()
	f.clock = time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	f.chat.history = []*integrationdomain.ChatMessage{
		{UserID: "U1", Text: "old message", SentAt: f.clock.Add(-3 * time.Hour)},
		{UserID: "U2", Text: "recent message", SentAt: f.clock.Add(-30 * time.Minute)},
	}

	_, err := f.gateway.SummarizeChannel(context.Background(), "u1", "C1", 0, time.Hour)
	require.NoError(t, err)

	require.Len(t, f.ai.inputs, 1)
	assert.Contains(t, f.ai.inputs[0], "recent message")
	assert.NotContains(t, f.ai.inputs[0], "old message")
}

func TestSummarizeChannelEmptyHistory(t *testing.T) {
	f := newChannelGatewayFixture()

	_, err := f.gateway.SummarizeChannel(context.Background(), "u1", "C1", 0, 0)
	require.Error(t, err)
	assert.Equal(t, 0, f.ai.summarizeCount())
	assert.Equal(t, 0, f.messages.count())
}

func TestChannelOpsRequireConnection(t *testing.T) {
	f := newChannelGatewayFixture()
	f.gateway.vault = NewVault(newFakeCredentialRepo(), map[integrationdomain.Provider]ProviderOAuth{})

	_, err := f.gateway.ListChannels(context.Background(), "u1")
	assert.ErrorIs(t, err, integrationdomain.ErrNotConnected)

	_, err = f.gateway.SendMessage(context.Background(), "u1", "C1", "hi")
	assert.ErrorIs(t, err, integrationdomain.ErrNotConnected)
}
