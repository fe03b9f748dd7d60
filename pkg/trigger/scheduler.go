package trigger

import (
	"context"
	"fmt"

	"github.com/relatorhq/relator/pkg/log"
	"github.com/relatorhq/relator/pkg/provider"
	"github.com/relatorhq/relator/pkg/types"
)

// Scheduler ensures a scheduled trigger exists, bound to the deployed
// service endpoint through a signed-identity token.
type Scheduler struct {
	provider provider.Provider
}

// NewScheduler creates a new trigger scheduler
func NewScheduler(p provider.Provider) *Scheduler {
	return &Scheduler{provider: p}
}

// Ensure converges the named trigger to the spec. The invoker identity's
// run-invoke grant on the target service is applied first, then the trigger
// is created or updated by name; both branches reach the same remote state.
//
// The token audience equals TargetURI unless the spec carries an explicit
// override. An audience that drifts from the target URI produces triggers
// that fire and are rejected with auth errors, so the two values are kept
// as one by construction.
func (s *Scheduler) Ensure(ctx context.Context, spec types.TriggerSpec) error {
	if spec.TargetURI == "" {
		return fmt.Errorf("trigger %s: target service %s has no endpoint yet", spec.Name, spec.TargetService)
	}
	logger := log.WithResource(string(types.KindScheduledTrigger), spec.Name)

	if err := s.provider.Bind(ctx, spec.InvokerIdentity, provider.RoleRunInvoker, spec.TargetService); err != nil {
		return fmt.Errorf("failed to grant invoker on service %s: %w", spec.TargetService, err)
	}
	logger.Info().Str("invoker", spec.InvokerIdentity).Msg("invoker binding ensured")

	desc := types.ResourceDescriptor{
		Kind: types.KindScheduledTrigger,
		Name: spec.Name,
		Config: map[string]string{
			"schedule":      spec.Schedule,
			"timezone":      spec.Timezone,
			"uri":           spec.TargetURI,
			"http_method":   "POST",
			"oidc_identity": spec.InvokerIdentity,
			"oidc_audience": spec.Audience(),
		},
	}

	presence, err := s.provider.Describe(ctx, types.KindScheduledTrigger, spec.Name)
	if err != nil {
		return fmt.Errorf("failed to probe trigger %s: %w", spec.Name, err)
	}

	if presence == types.Absent {
		if _, err := s.provider.Create(ctx, desc); err != nil {
			return fmt.Errorf("failed to create trigger %s: %w", spec.Name, err)
		}
		logger.Info().Str("schedule", spec.Schedule).Msg("trigger created")
		return nil
	}

	if _, err := s.provider.Update(ctx, desc); err != nil {
		return fmt.Errorf("failed to update trigger %s: %w", spec.Name, err)
	}
	logger.Info().Str("schedule", spec.Schedule).Msg("trigger updated")
	return nil
}
