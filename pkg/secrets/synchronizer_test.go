package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/relatorhq/relator/pkg/provider"
	"github.com/relatorhq/relator/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncVersioning(t *testing.T) {
	em := provider.NewEmulator()
	sync := NewSynchronizer(em)
	ctx := context.Background()

	entry := types.SecretEntry{
		Name:             "etcm-pass",
		Value:            []byte("v1"),
		AccessorIdentity: "runner@project.iam.gserviceaccount.com",
	}

	// N syncs with different values produce N distinct versions
	for i, v := range []string{"v1", "v2", "v3"} {
		entry.Value = []byte(v)
		require.NoError(t, sync.Sync(ctx, entry), "sync %d", i+1)
	}

	versions := em.SecretVersions("etcm-pass")
	require.Len(t, versions, 3)
	assert.Equal(t, []byte("v1"), versions[0])
	assert.Equal(t, []byte("v3"), versions[2])

	// Name was created exactly once, binding regranted every pass
	assert.Equal(t, 1, em.CreateCount(types.KindSecret, "etcm-pass"))
	assert.True(t, em.HasBinding(entry.AccessorIdentity, provider.RoleSecretAccessor, "etcm-pass"))
	assert.Equal(t, 3, em.BindingCount(entry.AccessorIdentity, provider.RoleSecretAccessor, "etcm-pass"))
}

func TestSyncProbeFailureFallsBackToCreate(t *testing.T) {
	em := provider.NewEmulator()
	em.DescribeErr["secret/etcm-user"] = provider.ErrProbeUnavailable

	sync := NewSynchronizer(em)
	entry := types.SecretEntry{
		Name:             "etcm-user",
		Value:            []byte("someone"),
		AccessorIdentity: "runner@project.iam.gserviceaccount.com",
	}

	// First sync creates through the fallback path
	require.NoError(t, sync.Sync(context.Background(), entry))
	// Second sync hits already-exists on create and still appends
	require.NoError(t, sync.Sync(context.Background(), entry))

	assert.Len(t, em.SecretVersions("etcm-user"), 2)
}

func TestSyncCreateFailureIsFatal(t *testing.T) {
	em := provider.NewEmulator()
	bang := errors.New("quota exceeded")
	em.CreateErr["secret/etcm-user"] = bang

	sync := NewSynchronizer(em)
	err := sync.Sync(context.Background(), types.SecretEntry{
		Name:             "etcm-user",
		Value:            []byte("x"),
		AccessorIdentity: "runner@project.iam.gserviceaccount.com",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, bang)
	assert.Contains(t, err.Error(), "etcm-user")
}
