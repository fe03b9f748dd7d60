package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest is the declarative deployment document applied by `relator deploy`
type Manifest struct {
	APIVersion string           `yaml:"apiVersion"`
	Kind       string           `yaml:"kind"`
	Metadata   ManifestMetadata `yaml:"metadata"`
	Spec       EnvironmentSpec  `yaml:"spec"`
}

type ManifestMetadata struct {
	Name   string            `yaml:"name"`
	Labels map[string]string `yaml:"labels,omitempty"`
}

// EnvironmentSpec describes the full target environment: registry, service
// identity, secret material, the deployed service and its scheduled trigger
type EnvironmentSpec struct {
	Project  string       `yaml:"project"`
	Region   string       `yaml:"region"`
	Registry RegistrySpec `yaml:"registry"`
	Image    ImageSpec    `yaml:"image"`
	Identity IdentitySpec `yaml:"identity"`
	Service  ServiceSpec  `yaml:"service"`
	Secrets  []SecretSpec `yaml:"secrets"`
	Trigger  TriggerSpec  `yaml:"trigger"`
}

type RegistrySpec struct {
	Name string `yaml:"name"`
}

type ImageSpec struct {
	Name string `yaml:"name"`
	Tag  string `yaml:"tag"`
}

type IdentitySpec struct {
	Name string `yaml:"name"`
}

type ServiceSpec struct {
	Name         string            `yaml:"name"`
	Env          map[string]string `yaml:"env,omitempty"`
	Memory       string            `yaml:"memory,omitempty"`
	CPU          string            `yaml:"cpu,omitempty"`
	Timeout      string            `yaml:"timeout,omitempty"`
	MaxInstances int               `yaml:"maxInstances,omitempty"`
}

// SecretSpec names a secret and the environment variable its value is read
// from at deploy time. Values travel by reference, never through the
// manifest itself.
type SecretSpec struct {
	Name      string `yaml:"name"`
	ValueFrom string `yaml:"valueFrom"`
}

type TriggerSpec struct {
	Name             string `yaml:"name"`
	Schedule         string `yaml:"schedule"`
	Timezone         string `yaml:"timezone"`
	AudienceOverride string `yaml:"audienceOverride,omitempty"`
}

// LoadManifest reads and validates a deployment manifest
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Errorf("failed to read manifest %s: %v", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, Errorf("failed to parse manifest %s: %v", path, err)
	}
	if m.Kind != "Environment" {
		return nil, Errorf("manifest %s: unsupported kind %q (want Environment)", path, m.Kind)
	}
	if err := m.Spec.validate(); err != nil {
		return nil, err
	}
	if m.Spec.Image.Tag == "" {
		m.Spec.Image.Tag = "latest"
	}
	if m.Spec.Trigger.Timezone == "" {
		m.Spec.Trigger.Timezone = "America/Sao_Paulo"
	}
	return &m, nil
}

func (s *EnvironmentSpec) validate() error {
	required := []struct {
		name, value string
	}{
		{"spec.project", s.Project},
		{"spec.region", s.Region},
		{"spec.registry.name", s.Registry.Name},
		{"spec.image.name", s.Image.Name},
		{"spec.identity.name", s.Identity.Name},
		{"spec.service.name", s.Service.Name},
		{"spec.trigger.name", s.Trigger.Name},
		{"spec.trigger.schedule", s.Trigger.Schedule},
	}
	for _, r := range required {
		if r.value == "" {
			return Errorf("manifest is missing required field %s", r.name)
		}
	}
	for i, sec := range s.Secrets {
		if sec.Name == "" || sec.ValueFrom == "" {
			return Errorf("manifest secret[%d] needs both name and valueFrom", i)
		}
	}
	return nil
}

// ImageRef composes the full registry image reference for the environment
func (s *EnvironmentSpec) ImageRef() string {
	return fmt.Sprintf("%s-docker.pkg.dev/%s/%s/%s:%s",
		s.Region, s.Project, s.Registry.Name, s.Image.Name, s.Image.Tag)
}

// IdentityEmail is the fully-qualified service account address
func (s *EnvironmentSpec) IdentityEmail() string {
	return fmt.Sprintf("%s@%s.iam.gserviceaccount.com", s.Identity.Name, s.Project)
}
