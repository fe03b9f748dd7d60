package trigger

import (
	"context"
	"testing"

	"github.com/relatorhq/relator/pkg/provider"
	"github.com/relatorhq/relator/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spec() types.TriggerSpec {
	return types.TriggerSpec{
		Name:            "pauta-monthly",
		Schedule:        "0 8 1 * *",
		Timezone:        "America/Sao_Paulo",
		TargetService:   "pauta-service",
		TargetURI:       "https://pauta-service-emulated.a.run.app",
		InvokerIdentity: "runner@project.iam.gserviceaccount.com",
	}
}

func TestEnsureCreatesThenUpdates(t *testing.T) {
	em := provider.NewEmulator()
	sched := NewScheduler(em)
	ctx := context.Background()

	require.NoError(t, sched.Ensure(ctx, spec()))
	assert.Equal(t, 1, em.CreateCount(types.KindScheduledTrigger, "pauta-monthly"))

	// Second ensure with the same spec converges via update, no duplicate
	require.NoError(t, sched.Ensure(ctx, spec()))
	assert.Equal(t, 1, em.CreateCount(types.KindScheduledTrigger, "pauta-monthly"))
	assert.Equal(t, 1, em.UpdateCount(types.KindScheduledTrigger, "pauta-monthly"))

	cfg := em.Config(types.KindScheduledTrigger, "pauta-monthly")
	assert.Equal(t, "0 8 1 * *", cfg["schedule"])
	assert.True(t, em.HasBinding("runner@project.iam.gserviceaccount.com", provider.RoleRunInvoker, "pauta-service"))
}

func TestAudienceTracksTargetURI(t *testing.T) {
	em := provider.NewEmulator()
	sched := NewScheduler(em)

	sp := spec()
	require.NoError(t, sched.Ensure(context.Background(), sp))

	cfg := em.Config(types.KindScheduledTrigger, sp.Name)
	assert.Equal(t, sp.TargetURI, cfg["oidc_audience"])
	assert.Equal(t, cfg["uri"], cfg["oidc_audience"])
}

func TestAudienceExplicitOverride(t *testing.T) {
	em := provider.NewEmulator()
	sched := NewScheduler(em)

	sp := spec()
	sp.AudienceOverride = "https://custom-audience.example.com"
	require.NoError(t, sched.Ensure(context.Background(), sp))

	cfg := em.Config(types.KindScheduledTrigger, sp.Name)
	assert.Equal(t, "https://custom-audience.example.com", cfg["oidc_audience"])
	assert.Equal(t, sp.TargetURI, cfg["uri"])
}

func TestEnsureRejectsMissingEndpoint(t *testing.T) {
	em := provider.NewEmulator()
	sched := NewScheduler(em)

	sp := spec()
	sp.TargetURI = ""
	err := sched.Ensure(context.Background(), sp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no endpoint")
	// Nothing was created against the provider
	assert.Equal(t, 0, em.CreateCount(types.KindScheduledTrigger, sp.Name))
}

func TestEnsureProbeUnavailableIsFatal(t *testing.T) {
	em := provider.NewEmulator()
	em.DescribeErr["scheduled-trigger/pauta-monthly"] = provider.ErrProbeUnavailable

	err := NewScheduler(em).Ensure(context.Background(), spec())
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrProbeUnavailable)
	assert.Equal(t, 0, em.CreateCount(types.KindScheduledTrigger, "pauta-monthly"))
}
