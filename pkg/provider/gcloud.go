package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/relatorhq/relator/pkg/types"
)

// CommandRunner executes one gcloud invocation and returns its combined
// output. Implementations return an error for nonzero exits with the
// output preserved in the error string.
type CommandRunner func(ctx context.Context, stdin []byte, args ...string) (string, error)

// GcloudProvider implements Provider by shelling out to the gcloud CLI,
// the same surface an operator provisions with by hand. Every call is
// synchronous; gcloud's own retries and timeouts apply.
type GcloudProvider struct {
	Project string
	Region  string

	run CommandRunner
}

// NewGcloudProvider creates a provider bound to one project and region
func NewGcloudProvider(project, region string) *GcloudProvider {
	return &GcloudProvider{
		Project: project,
		Region:  region,
		run:     execGcloud,
	}
}

// WithRunner overrides the command runner (tests)
func (g *GcloudProvider) WithRunner(r CommandRunner) *GcloudProvider {
	g.run = r
	return g
}

func execGcloud(ctx context.Context, stdin []byte, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "gcloud", args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return out.String(), fmt.Errorf("gcloud %s: %w: %s", args[0], err, strings.TrimSpace(out.String()))
	}
	return out.String(), nil
}

// Describe implements Provider
func (g *GcloudProvider) Describe(ctx context.Context, kind types.ResourceKind, name string) (types.Presence, error) {
	args, err := g.describeArgs(kind, name)
	if err != nil {
		return "", err
	}
	out, err := g.run(ctx, nil, args...)
	if err == nil {
		return types.Present, nil
	}
	// A command that never ran told us nothing about the resource. Only
	// the API's own not-found marker in the command output means Absent.
	var startErr *exec.Error
	if errors.As(err, &startErr) {
		return "", fmt.Errorf("%w: %v", ErrProbeUnavailable, err)
	}
	if isNotFound(out) {
		return types.Absent, nil
	}
	// Cannot tell present from absent: reachability or auth trouble.
	return "", fmt.Errorf("%w: %v", ErrProbeUnavailable, err)
}

func (g *GcloudProvider) describeArgs(kind types.ResourceKind, name string) ([]string, error) {
	switch kind {
	case types.KindRegistry:
		return []string{"artifacts", "repositories", "describe", name,
			"--project", g.Project, "--location", g.Region}, nil
	case types.KindSecret:
		return []string{"secrets", "describe", name, "--project", g.Project}, nil
	case types.KindServiceIdentity:
		return []string{"iam", "service-accounts", "describe", g.identityEmail(name),
			"--project", g.Project}, nil
	case types.KindDeployedService:
		return []string{"run", "services", "describe", name,
			"--project", g.Project, "--region", g.Region}, nil
	case types.KindScheduledTrigger:
		return []string{"scheduler", "jobs", "describe", name,
			"--project", g.Project, "--location", g.Region}, nil
	}
	return nil, fmt.Errorf("unknown resource kind %q", kind)
}

// Create implements Provider
func (g *GcloudProvider) Create(ctx context.Context, desc types.ResourceDescriptor) (types.ResourceHandle, error) {
	return g.ensure(ctx, desc, false)
}

// Update implements Provider
func (g *GcloudProvider) Update(ctx context.Context, desc types.ResourceDescriptor) (types.ResourceHandle, error) {
	return g.ensure(ctx, desc, true)
}

func (g *GcloudProvider) ensure(ctx context.Context, desc types.ResourceDescriptor, update bool) (types.ResourceHandle, error) {
	handle := types.ResourceHandle{Kind: desc.Kind, Name: desc.Name}

	var args []string
	switch desc.Kind {
	case types.KindRegistry:
		if update {
			// Repository config is immutable apart from labels; describe
			// succeeded so the desired state already holds.
			return handle, nil
		}
		args = []string{"artifacts", "repositories", "create", desc.Name,
			"--project", g.Project, "--location", g.Region,
			"--repository-format", desc.Config["format"]}

	case types.KindSecret:
		if update {
			return handle, nil
		}
		args = []string{"secrets", "create", desc.Name,
			"--project", g.Project, "--replication-policy", "automatic"}

	case types.KindServiceIdentity:
		if update {
			return handle, nil
		}
		args = []string{"iam", "service-accounts", "create", desc.Name,
			"--project", g.Project}
		if dn := desc.Config["display_name"]; dn != "" {
			args = append(args, "--display-name", dn)
		}

	case types.KindDeployedService:
		// `run deploy` creates or revises in one call: real PUT semantics
		args = g.deployServiceArgs(desc)

	case types.KindScheduledTrigger:
		verb := "create"
		if update {
			verb = "update"
		}
		args = []string{"scheduler", "jobs", verb, "http", desc.Name,
			"--project", g.Project, "--location", g.Region,
			"--schedule", desc.Config["schedule"],
			"--time-zone", desc.Config["timezone"],
			"--uri", desc.Config["uri"] + "/run",
			"--http-method", desc.Config["http_method"],
			"--oidc-service-account-email", desc.Config["oidc_identity"],
			"--oidc-token-audience", desc.Config["oidc_audience"]}

	default:
		return handle, fmt.Errorf("unknown resource kind %q", desc.Kind)
	}

	out, err := g.run(ctx, nil, args...)
	if err != nil {
		if isAlreadyExists(out) {
			return handle, fmt.Errorf("%w: %s %s", ErrAlreadyExists, desc.Kind, desc.Name)
		}
		return handle, err
	}

	if desc.Kind == types.KindDeployedService {
		uri, err := g.serviceURI(ctx, desc.Name)
		if err != nil {
			return handle, err
		}
		handle.URI = uri
	}
	return handle, nil
}

func (g *GcloudProvider) deployServiceArgs(desc types.ResourceDescriptor) []string {
	args := []string{"run", "deploy", desc.Name,
		"--project", g.Project, "--region", desc.Config["region"],
		"--image", desc.Config["image"],
		"--service-account", desc.Config["service_account"],
		"--no-allow-unauthenticated"}
	if v := desc.Config["memory"]; v != "" {
		args = append(args, "--memory", v)
	}
	if v := desc.Config["cpu"]; v != "" {
		args = append(args, "--cpu", v)
	}
	if v := desc.Config["timeout"]; v != "" {
		args = append(args, "--timeout", v)
	}
	if v := desc.Config["max_instances"]; v != "" {
		args = append(args, "--max-instances", v)
	}

	var envPairs, secretPairs []string
	for k, v := range desc.Config {
		if name, ok := strings.CutPrefix(k, "env_"); ok {
			envPairs = append(envPairs, name+"="+v)
		}
		if name, ok := strings.CutPrefix(k, "secret_env_"); ok {
			secretPairs = append(secretPairs, name+"="+v)
		}
	}
	sort.Strings(envPairs)
	sort.Strings(secretPairs)
	if len(envPairs) > 0 {
		args = append(args, "--set-env-vars", strings.Join(envPairs, ","))
	}
	if len(secretPairs) > 0 {
		args = append(args, "--set-secrets", strings.Join(secretPairs, ","))
	}
	return args
}

func (g *GcloudProvider) serviceURI(ctx context.Context, name string) (string, error) {
	out, err := g.run(ctx, nil, "run", "services", "describe", name,
		"--project", g.Project, "--region", g.Region,
		"--format", "value(status.url)")
	if err != nil {
		return "", fmt.Errorf("failed to read endpoint of service %s: %w", name, err)
	}
	return strings.TrimSpace(out), nil
}

// AddSecretVersion implements Provider
func (g *GcloudProvider) AddSecretVersion(ctx context.Context, name string, value []byte) error {
	_, err := g.run(ctx, value, "secrets", "versions", "add", name,
		"--project", g.Project, "--data-file=-")
	if err != nil {
		return fmt.Errorf("failed to add version to secret %s: %w", name, err)
	}
	return nil
}

// Bind implements Provider. The role selects the IAM surface: secret
// accessor grants bind on the secret, run invoker grants bind on the
// service.
func (g *GcloudProvider) Bind(ctx context.Context, identity, role, target string) error {
	member := "serviceAccount:" + identity
	var args []string
	switch role {
	case RoleSecretAccessor:
		args = []string{"secrets", "add-iam-policy-binding", target,
			"--project", g.Project, "--member", member, "--role", role}
	case RoleRunInvoker:
		args = []string{"run", "services", "add-iam-policy-binding", target,
			"--project", g.Project, "--region", g.Region,
			"--member", member, "--role", role}
	default:
		return fmt.Errorf("unknown binding role %q", role)
	}
	if _, err := g.run(ctx, nil, args...); err != nil {
		return fmt.Errorf("failed to bind %s as %s on %s: %w", identity, role, target, err)
	}
	return nil
}

// InvokeNow implements Provider
func (g *GcloudProvider) InvokeNow(ctx context.Context, triggerName string) error {
	_, err := g.run(ctx, nil, "scheduler", "jobs", "run", triggerName,
		"--project", g.Project, "--location", g.Region)
	if err != nil {
		return fmt.Errorf("failed to run trigger %s: %w", triggerName, err)
	}
	return nil
}

func (g *GcloudProvider) identityEmail(name string) string {
	if strings.Contains(name, "@") {
		return name
	}
	return fmt.Sprintf("%s@%s.iam.gserviceaccount.com", name, g.Project)
}

// isNotFound matches the API's resource-missing markers in command output.
// It is never applied to wrapped Go error strings: an exec failure like
// "executable file not found" must not read as resource absence.
func isNotFound(out string) bool {
	return strings.Contains(out, "NOT_FOUND") || strings.Contains(out, "Cannot find")
}

func isAlreadyExists(out string) bool {
	return strings.Contains(out, "ALREADY_EXISTS") || strings.Contains(out, "already exists")
}
