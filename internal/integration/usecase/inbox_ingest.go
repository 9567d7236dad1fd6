package usecase

import (
	"context"
	"fmt"

	integrationdomain "flowdesk-backend/internal/integration/domain"
	"flowdesk-backend/internal/integration/repository"
	messagedomain "flowdesk-backend/internal/message/domain"
	messagerepo "flowdesk-backend/internal/message/repository"
)

const (
	minIngestResults = 1
	maxIngestResults = 50
)

// InboxIngest pulls recent mailbox messages, summarizes each through the AI
// collaborator, and materializes local Message records via the reference
// map so the same provider message is never ingested twice.
type InboxIngest struct {
	vault       *Vault
	coordinator *SyncCoordinator
	mappings    repository.MappingRepository
	messages    messagerepo.MessageRepository
	mail        MailClient
	ai          Summarizer
}

// NewInboxIngest creates a new InboxIngest pipeline.
func NewInboxIngest(
	vault *Vault,
	coordinator *SyncCoordinator,
	mappings repository.MappingRepository,
	messages messagerepo.MessageRepository,
	mail MailClient,
	ai Summarizer,
) *InboxIngest {
	return &InboxIngest{
		vault:       vault,
		coordinator: coordinator,
		mappings:    mappings,
		messages:    messages,
		mail:        mail,
		ai:          ai,
	}
}

// Ingest fetches up to maxResults recent messages and summarizes the ones
// not seen before. Messages are processed oldest to newest so a resumed run
// after partial failure naturally skips already-ingested items through the
// reference map.
func (p *InboxIngest) Ingest(ctx context.Context, userID string, maxResults int) (*integrationdomain.SyncRun, error) {
	if maxResults < minIngestResults {
		maxResults = minIngestResults
	}
	if maxResults > maxIngestResults {
		maxResults = maxIngestResults
	}

	release, err := p.coordinator.Acquire(userID, integrationdomain.ProviderGoogle, OpInboxIngest)
	if err != nil {
		return nil, err
	}
	defer release()

	cred, err := p.vault.Get(ctx, userID, integrationdomain.ProviderGoogle)
	if err != nil {
		return nil, err
	}

	var fetched []*integrationdomain.MailMessage
	err = withRetry(ctx, func(callCtx context.Context) error {
		var listErr error
		fetched, listErr = p.mail.ListRecent(callCtx, cred.AccessToken, maxResults)
		return listErr
	})
	if err != nil {
		return nil, err
	}

	run := integrationdomain.NewSyncRun(integrationdomain.ProviderGoogle, integrationdomain.DirectionPull)

	// The client returns newest first; walk backwards for oldest-to-newest.
	for i := len(fetched) - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			return run, ctx.Err()
		}
		msg := fetched[i]
		if err := p.ingestOne(ctx, userID, msg, run); err != nil {
			run.RecordFailure(msg.ID, err)
		}
	}
	return run, nil
}

func (p *InboxIngest) ingestOne(ctx context.Context, userID string, msg *integrationdomain.MailMessage, run *integrationdomain.SyncRun) error {
	mapping, err := p.mappings.GetByRemoteID(userID, integrationdomain.ProviderGoogle, integrationdomain.KindMailMessage, msg.ID)
	if err != nil {
		return fmt.Errorf("unable to load mapping: %w", err)
	}
	if mapping != nil {
		// Already ingested; also avoids a redundant AI call.
		run.RecordSkip()
		return nil
	}

	// A Message row without a mapping means an earlier run died between the
	// two writes. Finish the bookkeeping instead of summarizing again.
	existing, err := p.messages.FindByExternalRef(userID, msg.ID)
	if err != nil {
		return fmt.Errorf("unable to check existing record: %w", err)
	}
	if existing != nil {
		if err := p.mappings.Upsert(&integrationdomain.ExternalReferenceMapping{
			UserID:            userID,
			Provider:          integrationdomain.ProviderGoogle,
			ResourceKind:      integrationdomain.KindMailMessage,
			LocalID:           existing.ID,
			RemoteID:          msg.ID,
			RemoteFingerprint: integrationdomain.FingerprintFromTime(msg.ReceivedAt),
		}); err != nil {
			return fmt.Errorf("unable to store mapping: %w", err)
		}
		run.RecordSkip()
		return nil
	}

	body := msg.Body
	if body == "" {
		body = msg.Snippet
	}
	summary, err := p.ai.Summarize(ctx, fmt.Sprintf("Subject: %s\nFrom: %s\n\n%s", msg.Subject, msg.From, body), "")
	if err != nil {
		return fmt.Errorf("unable to summarize message: %w", err)
	}

	record := &messagedomain.Message{
		UserID:              userID,
		Type:                messagedomain.TypeEmailSummary,
		Source:              messagedomain.SourceGmail,
		Subject:             msg.Subject,
		Sender:              msg.From,
		Content:             summary,
		ExternalReferenceID: msg.ID,
		ReceivedAt:          msg.ReceivedAt,
	}
	if err := p.messages.Create(record); err != nil {
		return fmt.Errorf("unable to store message record: %w", err)
	}

	if err := p.mappings.Upsert(&integrationdomain.ExternalReferenceMapping{
		UserID:            userID,
		Provider:          integrationdomain.ProviderGoogle,
		ResourceKind:      integrationdomain.KindMailMessage,
		LocalID:           record.ID,
		RemoteID:          msg.ID,
		RemoteFingerprint: integrationdomain.FingerprintFromTime(msg.ReceivedAt),
	}); err != nil {
		return fmt.Errorf("unable to store mapping: %w", err)
	}

	run.RecordSuccess()
	return nil
}

// Recent lists the newest ingested message records for a user.
func (p *InboxIngest) Recent(userID string, limit int) ([]*messagedomain.Message, error) {
	if limit > maxIngestResults {
		limit = maxIngestResults
	}
	return p.messages.FindRecent(userID, limit)
}

// SendDraft sends the mail through the provider and returns the provider
// message id. No local Message record is created here; that is left to the
// caller so send stays a single clear side effect.
func (p *InboxIngest) SendDraft(ctx context.Context, userID string, mail *integrationdomain.OutgoingMail) (string, error) {
	cred, err := p.vault.Get(ctx, userID, integrationdomain.ProviderGoogle)
	if err != nil {
		return "", err
	}

	var messageID string
	err = withRetry(ctx, func(callCtx context.Context) error {
		var sendErr error
		messageID, sendErr = p.mail.Send(callCtx, cred.AccessToken, mail)
		return sendErr
	})
	if err != nil {
		return "", err
	}
	return messageID, nil
}

// Compose asks the AI collaborator to draft a mail body from an
// instruction. A failure is a hard error; callers decide whether to send.
func (p *InboxIngest) Compose(ctx context.Context, instruction, contextText, tone string) (string, error) {
	return p.ai.Draft(ctx, instruction, contextText, tone, "email")
}
