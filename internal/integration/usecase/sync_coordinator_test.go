package usecase

import (
	"testing"

	integrationdomain "flowdesk-backend/internal/integration/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinatorRejectsBusyKey(t *testing.T) {
	c := NewSyncCoordinator()

	release, err := c.Acquire("u1", integrationdomain.ProviderGoogle, OpCalendarSync)
	require.NoError(t, err)

	_, err = c.Acquire("u1", integrationdomain.ProviderGoogle, OpCalendarSync)
	assert.ErrorIs(t, err, integrationdomain.ErrSyncAlreadyInProgress)

	release()

	release2, err := c.Acquire("u1", integrationdomain.ProviderGoogle, OpCalendarSync)
	require.NoError(t, err)
	release2()
}

func TestCoordinatorKeysAreIndependent(t *testing.T) {
	c := NewSyncCoordinator()

	r1, err := c.Acquire("u1", integrationdomain.ProviderGoogle, OpCalendarSync)
	require.NoError(t, err)
	defer r1()

	// Same user, different operation.
	r2, err := c.Acquire("u1", integrationdomain.ProviderGoogle, OpInboxIngest)
	require.NoError(t, err)
	defer r2()

	// Different user, same operation.
	r3, err := c.Acquire("u2", integrationdomain.ProviderGoogle, OpCalendarSync)
	require.NoError(t, err)
	defer r3()
}

func TestCoordinatorReleaseIsIdempotent(t *testing.T) {
	c := NewSyncCoordinator()

	release, err := c.Acquire("u1", integrationdomain.ProviderGoogle, OpCalendarSync)
	require.NoError(t, err)

	release()
	release()

	// The double release must not free someone else's slot.
	release2, err := c.Acquire("u1", integrationdomain.ProviderGoogle, OpCalendarSync)
	require.NoError(t, err)
	_, err = c.Acquire("u1", integrationdomain.ProviderGoogle, OpCalendarSync)
	assert.ErrorIs(t, err, integrationdomain.ErrSyncAlreadyInProgress)
	release2()
}
