package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/relatorhq/relator/pkg/types"
)

// Emulator is an in-memory Provider used by tests and by dry-run deploys.
// It models per-name atomicity the way the real platform does: names are
// unique within a kind, secret writes append versions, bindings are a set.
type Emulator struct {
	mu sync.Mutex

	resources map[string]*emulatedResource
	bindings  map[string]int // "identity|role|target" -> grant count
	invoked   map[string]int // trigger name -> fire-now count

	// DescribeErr forces Describe for the keyed resource to fail, for
	// exercising the probe-unavailable path
	DescribeErr map[string]error
	// CreateErr forces Create for the keyed resource to fail
	CreateErr map[string]error
	// UpdateErr forces Update for the keyed resource to fail
	UpdateErr map[string]error
	// InvokeErr forces InvokeNow for the named trigger to fail
	InvokeErr map[string]error
}

type emulatedResource struct {
	handle  types.ResourceHandle
	config  map[string]string
	creates int
	updates int
	// secret versions, append-only
	versions [][]byte
}

// NewEmulator creates an empty in-memory provider
func NewEmulator() *Emulator {
	return &Emulator{
		resources:   make(map[string]*emulatedResource),
		bindings:    make(map[string]int),
		invoked:     make(map[string]int),
		DescribeErr: make(map[string]error),
		CreateErr:   make(map[string]error),
		UpdateErr:   make(map[string]error),
		InvokeErr:   make(map[string]error),
	}
}

func key(kind types.ResourceKind, name string) string {
	return string(kind) + "/" + name
}

// Describe implements Provider
func (e *Emulator) Describe(_ context.Context, kind types.ResourceKind, name string) (types.Presence, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	k := key(kind, name)
	if err := e.DescribeErr[k]; err != nil {
		return "", err
	}
	if _, ok := e.resources[k]; ok {
		return types.Present, nil
	}
	return types.Absent, nil
}

// Create implements Provider
func (e *Emulator) Create(_ context.Context, desc types.ResourceDescriptor) (types.ResourceHandle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	k := key(desc.Kind, desc.Name)
	if err := e.CreateErr[k]; err != nil {
		return types.ResourceHandle{}, err
	}
	if _, ok := e.resources[k]; ok {
		return types.ResourceHandle{}, fmt.Errorf("%w: %s", ErrAlreadyExists, k)
	}

	res := &emulatedResource{
		handle:  types.ResourceHandle{Kind: desc.Kind, Name: desc.Name},
		config:  cloneConfig(desc.Config),
		creates: 1,
	}
	if desc.Kind == types.KindDeployedService {
		// the platform assigns the endpoint at deploy time
		res.handle.URI = fmt.Sprintf("https://%s-emulated.a.run.app", desc.Name)
	}
	e.resources[k] = res
	return res.handle, nil
}

// Update implements Provider
func (e *Emulator) Update(_ context.Context, desc types.ResourceDescriptor) (types.ResourceHandle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	k := key(desc.Kind, desc.Name)
	if err := e.UpdateErr[k]; err != nil {
		return types.ResourceHandle{}, err
	}
	res, ok := e.resources[k]
	if !ok {
		return types.ResourceHandle{}, fmt.Errorf("%w: %s", ErrNotFound, k)
	}
	res.config = cloneConfig(desc.Config)
	res.updates++
	return res.handle, nil
}

// AddSecretVersion implements Provider
func (e *Emulator) AddSecretVersion(_ context.Context, name string, value []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	res, ok := e.resources[key(types.KindSecret, name)]
	if !ok {
		return fmt.Errorf("%w: secret %s", ErrNotFound, name)
	}
	res.versions = append(res.versions, append([]byte(nil), value...))
	return nil
}

// Bind implements Provider
func (e *Emulator) Bind(_ context.Context, identity, role, target string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.bindings[identity+"|"+role+"|"+target]++
	return nil
}

// InvokeNow implements Provider
func (e *Emulator) InvokeNow(_ context.Context, triggerName string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.InvokeErr[triggerName]; err != nil {
		return err
	}
	if _, ok := e.resources[key(types.KindScheduledTrigger, triggerName)]; !ok {
		return fmt.Errorf("%w: trigger %s", ErrNotFound, triggerName)
	}
	e.invoked[triggerName]++
	return nil
}

// CreateCount reports how many times the named resource was created
func (e *Emulator) CreateCount(kind types.ResourceKind, name string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if res, ok := e.resources[key(kind, name)]; ok {
		return res.creates
	}
	return 0
}

// UpdateCount reports how many times the named resource was updated
func (e *Emulator) UpdateCount(kind types.ResourceKind, name string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if res, ok := e.resources[key(kind, name)]; ok {
		return res.updates
	}
	return 0
}

// Config returns the currently applied config of the named resource
func (e *Emulator) Config(kind types.ResourceKind, name string) map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if res, ok := e.resources[key(kind, name)]; ok {
		return cloneConfig(res.config)
	}
	return nil
}

// SecretVersions returns all stored versions of the named secret
func (e *Emulator) SecretVersions(name string) [][]byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	if res, ok := e.resources[key(types.KindSecret, name)]; ok {
		out := make([][]byte, len(res.versions))
		copy(out, res.versions)
		return out
	}
	return nil
}

// BindingCount reports how many grants exist for the triple. A correctly
// reconciled environment has at most one effective grant; repeated Bind
// calls increment the count so tests can assert idempotent callers.
func (e *Emulator) BindingCount(identity, role, target string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bindings[identity+"|"+role+"|"+target]
}

// HasBinding reports whether the grant triple exists
func (e *Emulator) HasBinding(identity, role, target string) bool {
	return e.BindingCount(identity, role, target) > 0
}

// InvokedCount reports how many times the trigger was fired out-of-band
func (e *Emulator) InvokedCount(triggerName string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.invoked[triggerName]
}

func cloneConfig(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
