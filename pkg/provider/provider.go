package provider

import (
	"context"
	"errors"

	"github.com/relatorhq/relator/pkg/types"
)

// Well-known IAM roles granted during reconciliation
const (
	RoleSecretAccessor = "roles/secretmanager.secretAccessor"
	RoleRunInvoker     = "roles/run.invoker"
)

var (
	// ErrProbeUnavailable means presence could not be determined. It must
	// never be collapsed into Absent: guessing would trigger duplicate
	// creation against a provider that is merely unreachable.
	ErrProbeUnavailable = errors.New("provider: probe unavailable")

	// ErrAlreadyExists is returned by Create when the name is taken
	ErrAlreadyExists = errors.New("provider: resource already exists")

	// ErrNotFound is returned by Update and InvokeNow when the named
	// resource does not exist
	ErrNotFound = errors.New("provider: resource not found")
)

// Provider is the reconciliation surface of the cloud platform. All calls
// are synchronous; the caller owns ordering and retry policy.
type Provider interface {
	// Describe reports whether the named resource exists. A reachability
	// failure surfaces as ErrProbeUnavailable, never as Absent.
	Describe(ctx context.Context, kind types.ResourceKind, name string) (types.Presence, error)

	// Create provisions the resource with the descriptor's config
	Create(ctx context.Context, desc types.ResourceDescriptor) (types.ResourceHandle, error)

	// Update applies the descriptor's config to an existing resource.
	// Safe to call when nothing changed (idempotent PUT semantics).
	Update(ctx context.Context, desc types.ResourceDescriptor) (types.ResourceHandle, error)

	// AddSecretVersion appends a new version to an existing secret name
	AddSecretVersion(ctx context.Context, name string, value []byte) error

	// Bind grants role on target to identity, tolerating an existing grant
	Bind(ctx context.Context, identity, role, target string) error

	// InvokeNow fires one out-of-band run of an existing scheduled trigger
	InvokeNow(ctx context.Context, triggerName string) error
}
