package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Mode selects where resource events come from.
type Mode string

const (
	// ModeKubernetes watches custom resources through the API server and
	// coordinates replicas with lease-based leader election.
	ModeKubernetes Mode = "kubernetes"

	// ModeFilesystem watches a directory of YAML manifests and promotes the
	// single local process unconditionally. Development only.
	ModeFilesystem Mode = "filesystem"
)

// Duration wraps time.Duration so config files can say "30s" or "5m".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// StewardConfig is the top-level configuration.
type StewardConfig struct {
	// Mode selects the event source; see ModeKubernetes and ModeFilesystem.
	Mode Mode `yaml:"mode"`

	// Namespace scopes the watch. Empty means cluster scope.
	Namespace string `yaml:"namespace,omitempty"`

	// ManifestDir is the directory watched in filesystem mode.
	ManifestDir string `yaml:"manifestDir,omitempty"`

	// IdleInterval is how often the idle callback fires while leading.
	IdleInterval Duration `yaml:"idleInterval"`

	// Lease configures leader election in kubernetes mode.
	Lease LeaseConfig `yaml:"lease"`

	// Metrics configures the metrics endpoint.
	Metrics MetricsConfig `yaml:"metrics"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"logLevel"`
}

// LeaseConfig configures the Lease object replicas contend for.
type LeaseConfig struct {
	Name          string   `yaml:"name"`
	Namespace     string   `yaml:"namespace"`
	Duration      Duration `yaml:"duration,omitempty"`
	RenewDeadline Duration `yaml:"renewDeadline,omitempty"`
	RetryPeriod   Duration `yaml:"retryPeriod,omitempty"`
}

// MetricsConfig configures Prometheus exposition.
type MetricsConfig struct {
	// Enabled turns the HTTP endpoint on.
	Enabled bool `yaml:"enabled"`

	// Address is the listen address, e.g. ":9090".
	Address string `yaml:"address,omitempty"`
}

// Validate reports the first configuration error found.
func (c StewardConfig) Validate() error {
	switch c.Mode {
	case ModeKubernetes, ModeFilesystem:
	default:
		return fmt.Errorf("unknown mode %q, expected %q or %q", c.Mode, ModeKubernetes, ModeFilesystem)
	}

	if c.Mode == ModeFilesystem && c.ManifestDir == "" {
		return fmt.Errorf("filesystem mode requires manifestDir")
	}
	if c.Mode == ModeKubernetes {
		if c.Lease.Name == "" {
			return fmt.Errorf("kubernetes mode requires lease.name")
		}
		if c.Lease.Namespace == "" {
			return fmt.Errorf("kubernetes mode requires lease.namespace")
		}
	}

	if c.IdleInterval.Duration < 0 {
		return fmt.Errorf("idleInterval must not be negative")
	}
	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return fmt.Errorf("metrics.enabled requires metrics.address")
	}

	return nil
}
