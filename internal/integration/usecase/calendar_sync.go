package usecase

import (
	"context"
	"fmt"
	"time"

	eventdomain "flowdesk-backend/internal/event/domain"
	eventrepo "flowdesk-backend/internal/event/repository"
	integrationdomain "flowdesk-backend/internal/integration/domain"
	"flowdesk-backend/internal/integration/repository"
)

// pullWindow bounds how far ahead the pull scans the remote calendar.
const pullWindow = 90 * 24 * time.Hour

// CalendarSync reconciles local events against the remote calendar in both
// directions, using the Vault for credentials and the reference map for
// idempotence.
type CalendarSync struct {
	vault       *Vault
	coordinator *SyncCoordinator
	events      eventrepo.EventRepository
	mappings    repository.MappingRepository
	calendar    CalendarClient
}

// NewCalendarSync creates a new CalendarSync engine.
func NewCalendarSync(
	vault *Vault,
	coordinator *SyncCoordinator,
	events eventrepo.EventRepository,
	mappings repository.MappingRepository,
	calendar CalendarClient,
) *CalendarSync {
	return &CalendarSync{
		vault:       vault,
		coordinator: coordinator,
		events:      events,
		mappings:    mappings,
		calendar:    calendar,
	}
}

// SyncToRemote pushes future, non-cancelled local events to the remote
// calendar. Items without a mapping are created remotely; mapped items are
// updated only when the local copy changed since the last sync.
func (s *CalendarSync) SyncToRemote(ctx context.Context, userID string) (*integrationdomain.SyncRun, error) {
	release, err := s.coordinator.Acquire(userID, integrationdomain.ProviderGoogle, OpCalendarSync)
	if err != nil {
		return nil, err
	}
	defer release()

	return s.push(ctx, userID)
}

// SyncFromRemote pulls remote events in a bounded window into the local
// store.
func (s *CalendarSync) SyncFromRemote(ctx context.Context, userID string) (*integrationdomain.SyncRun, error) {
	release, err := s.coordinator.Acquire(userID, integrationdomain.ProviderGoogle, OpCalendarSync)
	if err != nil {
		return nil, err
	}
	defer release()

	return s.pull(ctx, userID)
}

// Sync runs a combined invocation under a single coordinator slot. The pull
// always completes before the push so the pull's writes become the local
// baseline when both sides changed.
func (s *CalendarSync) Sync(ctx context.Context, userID string) (pullRun, pushRun *integrationdomain.SyncRun, err error) {
	release, err := s.coordinator.Acquire(userID, integrationdomain.ProviderGoogle, OpCalendarSync)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	pullRun, err = s.pull(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	pushRun, err = s.push(ctx, userID)
	if err != nil {
		return pullRun, nil, err
	}
	return pullRun, pushRun, nil
}

func (s *CalendarSync) push(ctx context.Context, userID string) (*integrationdomain.SyncRun, error) {
	cred, err := s.vault.Get(ctx, userID, integrationdomain.ProviderGoogle)
	if err != nil {
		return nil, err
	}

	locals, err := s.events.FindUpcoming(userID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("unable to load local events: %w", err)
	}

	run := integrationdomain.NewSyncRun(integrationdomain.ProviderGoogle, integrationdomain.DirectionPush)

	for _, local := range locals {
		if ctx.Err() != nil {
			return run, ctx.Err()
		}
		if err := s.pushOne(ctx, cred.AccessToken, userID, local, run); err != nil {
			run.RecordFailure(local.ID, err)
		}
	}
	return run, nil
}

func (s *CalendarSync) pushOne(ctx context.Context, accessToken, userID string, local *eventdomain.Event, run *integrationdomain.SyncRun) error {
	mapping, err := s.mappings.GetByLocalID(userID, integrationdomain.ProviderGoogle, integrationdomain.KindCalendarEvent, local.ID)
	if err != nil {
		return fmt.Errorf("unable to load mapping: %w", err)
	}

	if mapping == nil {
		var remote *integrationdomain.RemoteEvent
		err := withRetry(ctx, func(callCtx context.Context) error {
			var createErr error
			remote, createErr = s.calendar.CreateEvent(callCtx, accessToken, local)
			return createErr
		})
		if err != nil {
			return err
		}
		if err := s.mappings.Upsert(&integrationdomain.ExternalReferenceMapping{
			UserID:            userID,
			Provider:          integrationdomain.ProviderGoogle,
			ResourceKind:      integrationdomain.KindCalendarEvent,
			LocalID:           local.ID,
			RemoteID:          remote.ID,
			LocalFingerprint:  integrationdomain.FingerprintFromTime(local.UpdatedAt),
			RemoteFingerprint: integrationdomain.FingerprintFromTime(remote.Updated),
		}); err != nil {
			return fmt.Errorf("unable to store mapping: %w", err)
		}
		run.RecordSuccess()
		return nil
	}

	if !local.UpdatedAt.After(integrationdomain.TimeFromFingerprint(mapping.LocalFingerprint)) {
		// Unchanged since last sync, no remote call.
		run.RecordSkip()
		return nil
	}

	var remote *integrationdomain.RemoteEvent
	err = withRetry(ctx, func(callCtx context.Context) error {
		var updateErr error
		remote, updateErr = s.calendar.UpdateEvent(callCtx, accessToken, mapping.RemoteID, local)
		return updateErr
	})
	if err != nil {
		return err
	}

	// The remote revision now reflects this push, so a following pull must
	// not replay it as a remote change.
	mapping.LocalFingerprint = integrationdomain.FingerprintFromTime(local.UpdatedAt)
	mapping.RemoteFingerprint = integrationdomain.FingerprintFromTime(remote.Updated)
	if err := s.mappings.Upsert(mapping); err != nil {
		return fmt.Errorf("unable to refresh mapping: %w", err)
	}
	run.RecordSuccess()
	return nil
}

func (s *CalendarSync) pull(ctx context.Context, userID string) (*integrationdomain.SyncRun, error) {
	cred, err := s.vault.Get(ctx, userID, integrationdomain.ProviderGoogle)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var remotes []*integrationdomain.RemoteEvent
	err = withRetry(ctx, func(callCtx context.Context) error {
		var listErr error
		remotes, listErr = s.calendar.ListEvents(callCtx, cred.AccessToken, now, now.Add(pullWindow))
		return listErr
	})
	if err != nil {
		return nil, err
	}

	run := integrationdomain.NewSyncRun(integrationdomain.ProviderGoogle, integrationdomain.DirectionPull)

	for _, remote := range remotes {
		if ctx.Err() != nil {
			return run, ctx.Err()
		}
		if err := s.pullOne(userID, remote, run); err != nil {
			run.RecordFailure(remote.ID, err)
		}
	}
	return run, nil
}

func (s *CalendarSync) pullOne(userID string, remote *integrationdomain.RemoteEvent, run *integrationdomain.SyncRun) error {
	mapping, err := s.mappings.GetByRemoteID(userID, integrationdomain.ProviderGoogle, integrationdomain.KindCalendarEvent, remote.ID)
	if err != nil {
		return fmt.Errorf("unable to load mapping: %w", err)
	}

	if mapping == nil {
		if remote.Cancelled {
			// Never mirrored locally, nothing to cancel.
			run.RecordSkip()
			return nil
		}
		local := &eventdomain.Event{
			UserID:      userID,
			Title:       remote.Title,
			Description: remote.Description,
			Location:    remote.Location,
			StartTime:   remote.Start,
			EndTime:     remote.End,
			Status:      eventdomain.StatusConfirmed,
		}
		if err := s.events.Create(local); err != nil {
			return fmt.Errorf("unable to create local event: %w", err)
		}
		if err := s.mappings.Upsert(&integrationdomain.ExternalReferenceMapping{
			UserID:            userID,
			Provider:          integrationdomain.ProviderGoogle,
			ResourceKind:      integrationdomain.KindCalendarEvent,
			LocalID:           local.ID,
			RemoteID:          remote.ID,
			LocalFingerprint:  integrationdomain.FingerprintFromTime(local.UpdatedAt),
			RemoteFingerprint: integrationdomain.FingerprintFromTime(remote.Updated),
		}); err != nil {
			return fmt.Errorf("unable to store mapping: %w", err)
		}
		run.RecordSuccess()
		return nil
	}

	if remote.Cancelled {
		// Mark cancelled, never hard-delete; the mapping is retained so a
		// later pull cannot resurrect the event.
		if err := s.events.MarkCancelled(userID, mapping.LocalID); err != nil {
			return fmt.Errorf("unable to cancel local event: %w", err)
		}
		mapping.RemoteFingerprint = integrationdomain.FingerprintFromTime(remote.Updated)
		if err := s.mappings.Upsert(mapping); err != nil {
			return fmt.Errorf("unable to refresh mapping: %w", err)
		}
		run.RecordSuccess()
		return nil
	}

	if !remote.Updated.After(integrationdomain.TimeFromFingerprint(mapping.RemoteFingerprint)) {
		run.RecordSkip()
		return nil
	}

	local, err := s.events.FindByID(userID, mapping.LocalID)
	if err != nil {
		return fmt.Errorf("unable to load local event: %w", err)
	}
	if local == nil {
		// Mapping survived a lost local row; recreate from the remote copy.
		local = &eventdomain.Event{
			ID:     mapping.LocalID,
			UserID: userID,
			Status: eventdomain.StatusConfirmed,
		}
		local.Title = remote.Title
		local.Description = remote.Description
		local.Location = remote.Location
		local.StartTime = remote.Start
		local.EndTime = remote.End
		if err := s.events.Create(local); err != nil {
			return fmt.Errorf("unable to recreate local event: %w", err)
		}
	} else {
		local.Title = remote.Title
		local.Description = remote.Description
		local.Location = remote.Location
		local.StartTime = remote.Start
		local.EndTime = remote.End
		if err := s.events.Update(local); err != nil {
			return fmt.Errorf("unable to update local event: %w", err)
		}
	}

	// Record the write's own timestamp as the local baseline so the next
	// push does not mistake this mirror write for a user edit.
	mapping.LocalFingerprint = integrationdomain.FingerprintFromTime(local.UpdatedAt)
	mapping.RemoteFingerprint = integrationdomain.FingerprintFromTime(remote.Updated)
	if err := s.mappings.Upsert(mapping); err != nil {
		return fmt.Errorf("unable to refresh mapping: %w", err)
	}
	run.RecordSuccess()
	return nil
}
