package usecase

import (
	"sync"

	integrationdomain "flowdesk-backend/internal/integration/domain"
)

// SyncOperation names a kind of sync for coordinator keying.
type SyncOperation string

const (
	OpCalendarSync SyncOperation = "calendar_sync"
	OpInboxIngest  SyncOperation = "inbox_ingest"
)

type syncKey struct {
	userID    string
	provider  integrationdomain.Provider
	operation SyncOperation
}

// SyncCoordinator serializes sync operations per (user, provider,
// operation). A second request for a busy key is rejected immediately
// rather than queued: sync is idempotent and cheap to retry.
type SyncCoordinator struct {
	mu       sync.Mutex
	inflight map[syncKey]struct{}
}

// NewSyncCoordinator creates a new SyncCoordinator.
func NewSyncCoordinator() *SyncCoordinator {
	return &SyncCoordinator{inflight: make(map[syncKey]struct{})}
}

// Acquire reserves the key for the caller. It returns a release func on
// success and ErrSyncAlreadyInProgress when a sync of the same kind is
// already running for this user and provider.
func (c *SyncCoordinator) Acquire(userID string, provider integrationdomain.Provider, operation SyncOperation) (func(), error) {
	key := syncKey{userID: userID, provider: provider, operation: operation}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, busy := c.inflight[key]; busy {
		return nil, integrationdomain.ErrSyncAlreadyInProgress
	}
	c.inflight[key] = struct{}{}

	var once sync.Once
	release := func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.inflight, key)
			c.mu.Unlock()
		})
	}
	return release, nil
}
