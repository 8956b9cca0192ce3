// Package config loads sweep specifications from YAML files. Every
// field has a CLI flag counterpart; flags override file values.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full sweep specification.
type Config struct {
	SMPMax   int      `yaml:"smp_max" json:"smp_max"`
	Trials   int      `yaml:"trials" json:"trials"`
	OutDir   string   `yaml:"out_dir" json:"out_dir"`
	Timeout  Duration `yaml:"timeout" json:"timeout"`
	FailFast bool     `yaml:"fail_fast" json:"fail_fast"`

	Workload Workload `yaml:"workload" json:"workload"`
	Build    Build    `yaml:"build" json:"build"`
	Sampler  Sampler  `yaml:"sampler" json:"sampler"`
}

// Workload is the fixed command measured on every point.
type Workload struct {
	Path string   `yaml:"path" json:"path"`
	Args []string `yaml:"args" json:"args,omitempty"`
}

// Build configures the per-point rebuild of the target artifact.
type Build struct {
	Dir     string   `yaml:"dir" json:"dir"`
	Make    string   `yaml:"make" json:"make"`
	SMPVar  string   `yaml:"smp_var" json:"smp_var"`
	ModeVar string   `yaml:"mode_var" json:"mode_var"`
	Args    []string `yaml:"args" json:"args,omitempty"`
}

// Sampler configures the counter-sampling wrapper.
type Sampler struct {
	Perf   string   `yaml:"perf" json:"perf"`
	Events []string `yaml:"events" json:"events,omitempty"`
}

// Duration decodes YAML strings like "90s" or "5m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}

	*d = Duration(parsed)

	return nil
}

// Default returns a Config with every optional field at its default.
// The bounds and workload path are left zero and must come from the
// file or flags.
func Default() *Config {
	return &Config{
		OutDir: "perflog",
		Build: Build{
			Dir: ".",
		},
	}
}

// Load reads and decodes a YAML sweep specification, applying defaults
// for absent fields. It does not validate; call Validate once flag
// overrides are applied.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the fields the sweep cannot run without.
func (c *Config) Validate() error {
	if c.SMPMax < 1 {
		return fmt.Errorf("smp_max must be >= 1, got %d", c.SMPMax)
	}

	if c.Trials < 1 {
		return fmt.Errorf("trials must be >= 1, got %d", c.Trials)
	}

	if c.Workload.Path == "" {
		return fmt.Errorf("workload path must be set")
	}

	if c.OutDir == "" {
		return fmt.Errorf("output directory must be set")
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0")
	}

	return nil
}
