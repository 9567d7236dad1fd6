package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	eventdomain "flowdesk-backend/internal/event/domain"
	integrationdomain "flowdesk-backend/internal/integration/domain"
	"flowdesk-backend/internal/integration/repository"
	messagedomain "flowdesk-backend/internal/message/domain"
)

// In-memory fakes for the repository and provider ports. They mirror the
// gorm implementations' contracts, in particular returning (nil, nil) for
// missing rows.

type fakeCredentialRepo struct {
	mu    sync.Mutex
	creds map[string]*integrationdomain.IntegrationCredential
}

func newFakeCredentialRepo() *fakeCredentialRepo {
	return &fakeCredentialRepo{creds: map[string]*integrationdomain.IntegrationCredential{}}
}

func credKey(userID string, provider integrationdomain.Provider) string {
	return userID + "|" + string(provider)
}

func (r *fakeCredentialRepo) GetByUserAndProvider(userID string, provider integrationdomain.Provider) (*integrationdomain.IntegrationCredential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cred, ok := r.creds[credKey(userID, provider)]
	if !ok {
		return nil, nil
	}
	copied := *cred
	return &copied, nil
}

func (r *fakeCredentialRepo) GetAllByUser(userID string) ([]*integrationdomain.IntegrationCredential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*integrationdomain.IntegrationCredential
	for _, cred := range r.creds {
		if cred.UserID == userID {
			copied := *cred
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeCredentialRepo) Upsert(cred *integrationdomain.IntegrationCredential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cred.ID == "" {
		cred.ID = fmt.Sprintf("cred-%d", len(r.creds)+1)
	}
	copied := *cred
	r.creds[credKey(cred.UserID, cred.Provider)] = &copied
	return nil
}

func (r *fakeCredentialRepo) UpdateStatus(userID string, provider integrationdomain.Provider, status integrationdomain.CredentialStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cred, ok := r.creds[credKey(userID, provider)]
	if !ok {
		return nil
	}
	cred.Status = status
	return nil
}

type fakeOAuthClient struct {
	mu           sync.Mutex
	refreshCalls int
	revokeCalls  int

	exchangeFn func(code string) (*integrationdomain.TokenSet, error)
	refreshFn  func(refreshToken string) (*integrationdomain.TokenSet, error)
	revokeErr  error
}

func (c *fakeOAuthClient) AuthCodeURL(state string, scopes []string) string {
	return "https://provider.example/authorize?state=" + state
}

func (c *fakeOAuthClient) Exchange(ctx context.Context, code string) (*integrationdomain.TokenSet, error) {
	if c.exchangeFn != nil {
		return c.exchangeFn(code)
	}
	return &integrationdomain.TokenSet{
		AccessToken:  "access-" + code,
		RefreshToken: "refresh-" + code,
		ExpiresAt:    time.Now().Add(time.Hour),
		Scopes:       []string{"scope.a"},
	}, nil
}

func (c *fakeOAuthClient) Refresh(ctx context.Context, refreshToken string) (*integrationdomain.TokenSet, error) {
	c.mu.Lock()
	c.refreshCalls++
	c.mu.Unlock()
	if c.refreshFn != nil {
		return c.refreshFn(refreshToken)
	}
	return &integrationdomain.TokenSet{
		AccessToken: "refreshed-access",
		ExpiresAt:   time.Now().Add(time.Hour),
	}, nil
}

func (c *fakeOAuthClient) Revoke(ctx context.Context, accessToken string) error {
	c.mu.Lock()
	c.revokeCalls++
	c.mu.Unlock()
	return c.revokeErr
}

func (c *fakeOAuthClient) refreshCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshCalls
}

type fakeMappingRepo struct {
	mu       sync.Mutex
	mappings map[string]*integrationdomain.ExternalReferenceMapping
	nextID   int

	// upsertErr is returned once by the next Upsert, then cleared.
	upsertErr error
}

func newFakeMappingRepo() *fakeMappingRepo {
	return &fakeMappingRepo{mappings: map[string]*integrationdomain.ExternalReferenceMapping{}}
}

func mappingKey(userID string, provider integrationdomain.Provider, kind integrationdomain.ResourceKind, localID string) string {
	return userID + "|" + string(provider) + "|" + string(kind) + "|" + localID
}

func (r *fakeMappingRepo) GetByLocalID(userID string, provider integrationdomain.Provider, kind integrationdomain.ResourceKind, localID string) (*integrationdomain.ExternalReferenceMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.mappings[mappingKey(userID, provider, kind, localID)]
	if !ok {
		return nil, nil
	}
	copied := *m
	return &copied, nil
}

func (r *fakeMappingRepo) GetByRemoteID(userID string, provider integrationdomain.Provider, kind integrationdomain.ResourceKind, remoteID string) (*integrationdomain.ExternalReferenceMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.mappings {
		if m.UserID == userID && m.Provider == provider && m.ResourceKind == kind && m.RemoteID == remoteID {
			copied := *m
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeMappingRepo) Upsert(mapping *integrationdomain.ExternalReferenceMapping) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		err := r.upsertErr
		r.upsertErr = nil
		return err
	}
	if mapping.ID == "" {
		r.nextID++
		mapping.ID = fmt.Sprintf("map-%d", r.nextID)
	}
	copied := *mapping
	r.mappings[mappingKey(mapping.UserID, mapping.Provider, mapping.ResourceKind, mapping.LocalID)] = &copied
	return nil
}

func (r *fakeMappingRepo) DeleteByProvider(userID string, provider integrationdomain.Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, m := range r.mappings {
		if m.UserID == userID && m.Provider == provider {
			delete(r.mappings, key)
		}
	}
	return nil
}

func (r *fakeMappingRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.mappings)
}

type fakeStateRepo struct {
	mu     sync.Mutex
	states map[string]*integrationdomain.OAuthState
}

func newFakeStateRepo() *fakeStateRepo {
	return &fakeStateRepo{states: map[string]*integrationdomain.OAuthState{}}
}

func (r *fakeStateRepo) Create(state *integrationdomain.OAuthState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *state
	r.states[state.Nonce] = &copied
	return nil
}

func (r *fakeStateRepo) Consume(nonce string) (*integrationdomain.OAuthState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.states[nonce]
	if !ok || state.UsedAt != nil {
		return nil, repository.ErrStateConsumed
	}
	now := time.Now()
	state.UsedAt = &now
	copied := *state
	return &copied, nil
}

func (r *fakeStateRepo) DeleteExpired(before time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for nonce, state := range r.states {
		if state.ExpiresAt.Before(before) {
			delete(r.states, nonce)
		}
	}
	return nil
}

type fakeEventRepo struct {
	mu     sync.Mutex
	events map[string]*eventdomain.Event
	nextID int

	createErr map[string]error
	updates   int
	creates   int
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: map[string]*eventdomain.Event{}}
}

func (r *fakeEventRepo) FindByID(userID, eventID string) (*eventdomain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[eventID]
	if !ok || event.UserID != userID {
		return nil, nil
	}
	copied := *event
	return &copied, nil
}

func (r *fakeEventRepo) FindUpcoming(userID string, after time.Time) ([]*eventdomain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*eventdomain.Event
	for _, event := range r.events {
		if event.UserID == userID && event.StartTime.After(after) && event.Status != eventdomain.StatusCancelled {
			copied := *event
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeEventRepo) Create(event *eventdomain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.createErr[event.Title]; err != nil {
		return err
	}
	if event.ID == "" {
		r.nextID++
		event.ID = fmt.Sprintf("evt-%d", r.nextID)
	}
	now := time.Now()
	event.CreatedAt = now
	event.UpdatedAt = now
	r.creates++
	copied := *event
	r.events[event.ID] = &copied
	return nil
}

func (r *fakeEventRepo) Update(event *eventdomain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event.UpdatedAt = time.Now()
	r.updates++
	copied := *event
	r.events[event.ID] = &copied
	return nil
}

func (r *fakeEventRepo) MarkCancelled(userID, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[eventID]
	if !ok || event.UserID != userID {
		return nil
	}
	event.Status = eventdomain.StatusCancelled
	return nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []*messagedomain.Message
	nextID   int
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{}
}

func (r *fakeMessageRepo) Create(message *messagedomain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if message.ID == "" {
		r.nextID++
		message.ID = fmt.Sprintf("msg-%d", r.nextID)
	}
	copied := *message
	r.messages = append(r.messages, &copied)
	return nil
}

func (r *fakeMessageRepo) FindByExternalRef(userID, externalRefID string) (*messagedomain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.UserID == userID && m.ExternalReferenceID == externalRefID {
			copied := *m
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeMessageRepo) FindRecent(userID string, limit int) ([]*messagedomain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*messagedomain.Message
	for i := len(r.messages) - 1; i >= 0 && len(out) < limit; i-- {
		if r.messages[i].UserID == userID {
			copied := *r.messages[i]
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

type fakeCalendarClient struct {
	mu      sync.Mutex
	remotes []*integrationdomain.RemoteEvent
	creates int
	updates int
	nextID  int

	createErr func(event *eventdomain.Event) error
}

func (c *fakeCalendarClient) ListEvents(ctx context.Context, accessToken string, from, to time.Time) ([]*integrationdomain.RemoteEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*integrationdomain.RemoteEvent, len(c.remotes))
	copy(out, c.remotes)
	return out, nil
}

func (c *fakeCalendarClient) CreateEvent(ctx context.Context, accessToken string, event *eventdomain.Event) (*integrationdomain.RemoteEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.createErr != nil {
		if err := c.createErr(event); err != nil {
			return nil, err
		}
	}
	c.creates++
	c.nextID++
	return &integrationdomain.RemoteEvent{
		ID:      fmt.Sprintf("remote-%d", c.nextID),
		Title:   event.Title,
		Start:   event.StartTime,
		End:     event.EndTime,
		Updated: time.Now(),
	}, nil
}

func (c *fakeCalendarClient) UpdateEvent(ctx context.Context, accessToken, remoteID string, event *eventdomain.Event) (*integrationdomain.RemoteEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updates++
	return &integrationdomain.RemoteEvent{
		ID:      remoteID,
		Title:   event.Title,
		Start:   event.StartTime,
		End:     event.EndTime,
		Updated: time.Now(),
	}, nil
}

type fakeMailClient struct {
	mu       sync.Mutex
	inbox    []*integrationdomain.MailMessage
	sent     []*integrationdomain.OutgoingMail
	lastMax  int
	sendErrs []error
}

func (c *fakeMailClient) ListRecent(ctx context.Context, accessToken string, maxResults int) ([]*integrationdomain.MailMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastMax = maxResults
	out := c.inbox
	if len(out) > maxResults {
		out = out[:maxResults]
	}
	copied := make([]*integrationdomain.MailMessage, len(out))
	copy(copied, out)
	return copied, nil
}

func (c *fakeMailClient) Send(ctx context.Context, accessToken string, mail *integrationdomain.OutgoingMail) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sendErrs) > 0 {
		err := c.sendErrs[0]
		c.sendErrs = c.sendErrs[1:]
		if err != nil {
			return "", err
		}
	}
	c.sent = append(c.sent, mail)
	return fmt.Sprintf("sent-%d", len(c.sent)), nil
}

type fakeChatClient struct {
	mu        sync.Mutex
	channels  []*integrationdomain.Channel
	history   []*integrationdomain.ChatMessage
	listCalls int
	postCalls int
	postErrs  []error
}

func (c *fakeChatClient) ListChannels(ctx context.Context, accessToken string) ([]*integrationdomain.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listCalls++
	out := make([]*integrationdomain.Channel, len(c.channels))
	copy(out, c.channels)
	return out, nil
}

func (c *fakeChatClient) PostMessage(ctx context.Context, accessToken, channelID, text string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.postCalls++
	if len(c.postErrs) > 0 {
		err := c.postErrs[0]
		c.postErrs = c.postErrs[1:]
		if err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("%d.000100", c.postCalls), nil
}

func (c *fakeChatClient) History(ctx context.Context, accessToken, channelID string, limit int, oldest time.Time) ([]*integrationdomain.ChatMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*integrationdomain.ChatMessage
	for _, m := range c.history {
		if !oldest.IsZero() && m.SentAt.Before(oldest) {
			continue
		}
		out = append(out, m)
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type fakeSummarizer struct {
	mu             sync.Mutex
	summarizeCalls int
	draftCalls     int
	inputs         []string
	summarizeErr   func(text string) error
}

func (s *fakeSummarizer) Summarize(ctx context.Context, text, promptPrefix string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summarizeCalls++
	s.inputs = append(s.inputs, text)
	if s.summarizeErr != nil {
		if err := s.summarizeErr(text); err != nil {
			return "", err
		}
	}
	return "summary of: " + firstLine(text), nil
}

func (s *fakeSummarizer) Draft(ctx context.Context, instruction, contextText, tone, format string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draftCalls++
	return "drafted: " + instruction, nil
}

func (s *fakeSummarizer) summarizeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summarizeCalls
}

func firstLine(text string) string {
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			return text[:i]
		}
	}
	return text
}

// connectedCredential seeds a usable google credential expiring well outside
// the refresh window.
func connectedCredential(repo *fakeCredentialRepo, userID string, provider integrationdomain.Provider) {
	_ = repo.Upsert(&integrationdomain.IntegrationCredential{
		UserID:       userID,
		Provider:     provider,
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		ExpiresAt:    time.Now().Add(time.Hour),
		Status:       integrationdomain.StatusConnected,
	})
}
