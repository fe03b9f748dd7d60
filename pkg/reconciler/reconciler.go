package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/relatorhq/relator/pkg/config"
	"github.com/relatorhq/relator/pkg/log"
	"github.com/relatorhq/relator/pkg/metrics"
	"github.com/relatorhq/relator/pkg/provider"
	"github.com/relatorhq/relator/pkg/secrets"
	"github.com/relatorhq/relator/pkg/storage"
	"github.com/relatorhq/relator/pkg/trigger"
	"github.com/relatorhq/relator/pkg/types"
)

// Environment is the reconciled result handed to the dispatcher and to
// anything that needs the service endpoint.
type Environment struct {
	ServiceURI  string
	TriggerName string
	Handles     []types.ResourceHandle
}

// Reconciler drives the full descriptor set to the desired state in strict
// dependency order. The journal is optional; when present every run leaves
// an audit record.
type Reconciler struct {
	provider provider.Provider
	secrets  *secrets.Synchronizer
	triggers *trigger.Scheduler
	journal  *storage.Journal
}

// New creates a reconciler against the given provider
func New(p provider.Provider, journal *storage.Journal) *Reconciler {
	return &Reconciler{
		provider: p,
		secrets:  secrets.NewSynchronizer(p),
		triggers: trigger.NewScheduler(p),
		journal:  journal,
	}
}

// Apply makes remote state match the environment spec. Resources are
// ensured in dependency order: registry, service identity, secrets,
// deployed service, scheduled trigger. The first unresolvable failure
// aborts the run; later resources are defined in terms of earlier ones, so
// partial retry cannot help. Re-running Apply with an unchanged spec is a
// remote no-op.
func (r *Reconciler) Apply(ctx context.Context, spec *config.EnvironmentSpec, env config.Env) (*Environment, error) {
	logger := log.WithComponent("reconciler")

	// Fail fast on a malformed reference, before any remote call
	imageRef := spec.ImageRef()
	if err := ValidateImageRef(imageRef); err != nil {
		return nil, err
	}

	// Secret values resolve by reference through the environment snapshot;
	// a missing value is a configuration error, also pre-flight
	entries, err := resolveSecretEntries(spec, env)
	if err != nil {
		return nil, err
	}

	run := &types.ReconcileRun{
		ID:        uuid.New().String(),
		StartedAt: time.Now(),
		Resources: 3 + len(spec.Secrets) + 1,
		Status:    types.RunStatusRunning,
	}
	r.recordRun(run)

	timer := metrics.NewTimer()
	result, err := r.apply(ctx, spec, imageRef, entries)
	timer.ObserveDuration(metrics.ReconcileDuration)

	finished := time.Now()
	run.FinishedAt = &finished
	if err != nil {
		run.Status = types.RunStatusFailed
		run.Error = err.Error()
		metrics.ReconcileRunsTotal.WithLabelValues("failed").Inc()
	} else {
		run.Status = types.RunStatusSucceeded
		metrics.ReconcileRunsTotal.WithLabelValues("succeeded").Inc()
	}
	r.recordRun(run)

	if err != nil {
		return nil, err
	}
	logger.Info().Str("service_uri", result.ServiceURI).Msg("environment reconciled")
	return result, nil
}

func (r *Reconciler) apply(ctx context.Context, spec *config.EnvironmentSpec, imageRef string, entries []types.SecretEntry) (*Environment, error) {
	result := &Environment{TriggerName: spec.Trigger.Name}
	identity := spec.IdentityEmail()

	resources := []Resource{
		&descriptorResource{
			provider: r.provider,
			kind:     types.KindRegistry,
			name:     spec.Registry.Name,
			config: func() map[string]string {
				return map[string]string{
					"region": spec.Region,
					"format": "docker",
				}
			},
		},
		&descriptorResource{
			provider: r.provider,
			kind:     types.KindServiceIdentity,
			name:     spec.Identity.Name,
			config: func() map[string]string {
				return map[string]string{
					"display_name": "relator pipeline runner",
				}
			},
		},
	}
	for _, entry := range entries {
		resources = append(resources, &secretResource{sync: r.secrets, entry: entry})
	}
	resources = append(resources,
		&descriptorResource{
			provider: r.provider,
			kind:     types.KindDeployedService,
			name:     spec.Service.Name,
			config: func() map[string]string {
				return serviceConfig(spec, imageRef, identity)
			},
		},
		&triggerResource{
			sched: r.triggers,
			spec: func() types.TriggerSpec {
				return types.TriggerSpec{
					Name:             spec.Trigger.Name,
					Schedule:         spec.Trigger.Schedule,
					Timezone:         spec.Trigger.Timezone,
					TargetService:    spec.Service.Name,
					TargetURI:        result.ServiceURI,
					InvokerIdentity:  identity,
					AudienceOverride: spec.Trigger.AudienceOverride,
				}
			},
		},
	)

	for _, res := range resources {
		handle, err := res.Ensure(ctx)
		if err != nil {
			return nil, fmt.Errorf("reconciliation aborted at %s %s: %w", res.Kind(), res.Name(), err)
		}
		result.Handles = append(result.Handles, handle)

		if res.Kind() == types.KindDeployedService {
			if handle.URI == "" {
				return nil, fmt.Errorf("service %s has no assigned endpoint after deploy", res.Name())
			}
			result.ServiceURI = handle.URI
		}
	}

	return result, nil
}

func (r *Reconciler) recordRun(run *types.ReconcileRun) {
	if r.journal == nil {
		return
	}
	if err := r.journal.SaveReconcileRun(run); err != nil {
		l := log.WithComponent("reconciler")
		l.Warn().Err(err).Msg("failed to record reconcile run")
	}
}

func resolveSecretEntries(spec *config.EnvironmentSpec, env config.Env) ([]types.SecretEntry, error) {
	identity := spec.IdentityEmail()
	entries := make([]types.SecretEntry, 0, len(spec.Secrets))
	for _, sec := range spec.Secrets {
		value, err := env.Require(sec.ValueFrom)
		if err != nil {
			return nil, err
		}
		entries = append(entries, types.SecretEntry{
			Name:             sec.Name,
			Value:            []byte(value),
			AccessorIdentity: identity,
		})
	}
	return entries, nil
}

func serviceConfig(spec *config.EnvironmentSpec, imageRef, identity string) map[string]string {
	cfg := map[string]string{
		"image":           imageRef,
		"region":          spec.Region,
		"service_account": identity,
	}
	if spec.Service.Memory != "" {
		cfg["memory"] = spec.Service.Memory
	}
	if spec.Service.CPU != "" {
		cfg["cpu"] = spec.Service.CPU
	}
	if spec.Service.Timeout != "" {
		cfg["timeout"] = spec.Service.Timeout
	}
	if spec.Service.MaxInstances > 0 {
		cfg["max_instances"] = fmt.Sprintf("%d", spec.Service.MaxInstances)
	}
	for k, v := range spec.Service.Env {
		cfg["env_"+k] = v
	}
	// Secrets reach the service as env references to their latest version,
	// never as literal values
	for _, sec := range spec.Secrets {
		cfg["secret_env_"+sec.ValueFrom] = sec.Name + ":latest"
	}
	return cfg
}

// secretResource adapts the synchronizer to the reconcile loop
type secretResource struct {
	sync  *secrets.Synchronizer
	entry types.SecretEntry
}

func (s *secretResource) Kind() types.ResourceKind { return types.KindSecret }
func (s *secretResource) Name() string             { return s.entry.Name }

func (s *secretResource) Ensure(ctx context.Context) (types.ResourceHandle, error) {
	if err := s.sync.Sync(ctx, s.entry); err != nil {
		return types.ResourceHandle{}, err
	}
	metrics.ResourcesEnsured.WithLabelValues(string(types.KindSecret), "synced").Inc()
	return types.ResourceHandle{Kind: types.KindSecret, Name: s.entry.Name}, nil
}

// triggerResource adapts the trigger scheduler to the reconcile loop. The
// spec closure is evaluated at Ensure time because the target URI only
// exists once the deployed service is ensured.
type triggerResource struct {
	sched *trigger.Scheduler
	spec  func() types.TriggerSpec
}

func (t *triggerResource) Kind() types.ResourceKind { return types.KindScheduledTrigger }
func (t *triggerResource) Name() string             { return t.spec().Name }

func (t *triggerResource) Ensure(ctx context.Context) (types.ResourceHandle, error) {
	spec := t.spec()
	if err := t.sched.Ensure(ctx, spec); err != nil {
		return types.ResourceHandle{}, err
	}
	metrics.ResourcesEnsured.WithLabelValues(string(types.KindScheduledTrigger), "ensured").Inc()
	return types.ResourceHandle{
		Kind: types.KindScheduledTrigger,
		Name: spec.Name,
		URI:  spec.TargetURI,
	}, nil
}
