package reconciler

import (
	"context"
	"fmt"

	"github.com/relatorhq/relator/pkg/log"
	"github.com/relatorhq/relator/pkg/metrics"
	"github.com/relatorhq/relator/pkg/provider"
	"github.com/relatorhq/relator/pkg/types"
)

// Resource is one reconcilable unit. Ensure converges remote state to the
// desired state and reports the resulting handle; the driving loop stays
// kind-agnostic.
type Resource interface {
	Kind() types.ResourceKind
	Name() string
	Ensure(ctx context.Context) (types.ResourceHandle, error)
}

// descriptorResource is the generic probe-then-create-or-update variant.
// Config is built lazily so a descriptor can reference values that only
// exist once earlier resources are ensured.
type descriptorResource struct {
	provider provider.Provider
	kind     types.ResourceKind
	name     string
	config   func() map[string]string
}

func (d *descriptorResource) Kind() types.ResourceKind { return d.kind }
func (d *descriptorResource) Name() string             { return d.name }

func (d *descriptorResource) Ensure(ctx context.Context) (types.ResourceHandle, error) {
	logger := log.WithResource(string(d.kind), d.name)
	logger.Info().Msg("ensuring resource")

	desc := types.ResourceDescriptor{
		Kind:   d.kind,
		Name:   d.name,
		Config: d.config(),
	}

	presence, err := d.provider.Describe(ctx, d.kind, d.name)
	if err != nil {
		// Ambiguous state must not be guessed: creating against a provider
		// that is merely unreachable would duplicate resources.
		return types.ResourceHandle{}, fmt.Errorf("failed to probe %s %s: %w", d.kind, d.name, err)
	}

	if presence == types.Absent {
		handle, err := d.provider.Create(ctx, desc)
		if err != nil {
			return types.ResourceHandle{}, fmt.Errorf("failed to create %s %s: %w", d.kind, d.name, err)
		}
		metrics.ResourcesEnsured.WithLabelValues(string(d.kind), "created").Inc()
		logger.Info().Msg("resource created")
		return handle, nil
	}

	handle, err := d.provider.Update(ctx, desc)
	if err != nil {
		return types.ResourceHandle{}, fmt.Errorf("failed to update %s %s: %w", d.kind, d.name, err)
	}
	metrics.ResourcesEnsured.WithLabelValues(string(d.kind), "updated").Inc()
	logger.Info().Msg("resource updated")
	return handle, nil
}
