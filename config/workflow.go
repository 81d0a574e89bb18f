package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// WorkflowConfig represents a complete workflow definition from YAML
type WorkflowConfig struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Variables   map[string]any `yaml:"variables,omitempty"` // Values exposed to step behaviors
	Settings    RunSettings    `yaml:"settings,omitempty"`  // Per-workflow engine overrides
	Steps       []StepConfig   `yaml:"steps"`
}

// RunSettings overrides engine defaults for one workflow
type RunSettings struct {
	TickInterval string `yaml:"tick_interval,omitempty"` // e.g. "250ms"
	MaxDuration  string `yaml:"max_duration,omitempty"`  // e.g. "2m", "0" disables the watchdog
}

// StepConfig represents the configuration of a step from YAML
type StepConfig struct {
	ID           string         `yaml:"id"`
	Name         string         `yaml:"name"`
	StepType     string         `yaml:"step_type"`    // Behavior to attach, defaults to "noop"
	StepConfig   map[string]any `yaml:"step_config"`  // Behavior-specific configuration
	Dependencies []string       `yaml:"dependencies"` // IDs of steps this depends on
}

// TickIntervalDuration parses the tick interval override (0 if unset)
func (r RunSettings) TickIntervalDuration() (time.Duration, error) {
	return parseOptionalDuration("tick_interval", r.TickInterval)
}

// MaxDurationValue parses the watchdog override. The bool is false when unset.
func (r RunSettings) MaxDurationValue() (time.Duration, bool, error) {
	if r.MaxDuration == "" {
		return 0, false, nil
	}
	d, err := parseOptionalDuration("max_duration", r.MaxDuration)
	return d, err == nil, err
}

func parseOptionalDuration(key, value string) (time.Duration, error) {
	if value == "" || value == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("settings.%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("settings.%s: must not be negative, got %s", key, value)
	}
	return d, nil
}

// Parse decodes a workflow definition, rejecting unknown fields
func Parse(data []byte) (*WorkflowConfig, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var cfg WorkflowConfig
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse workflow YAML: %w", err)
	}
	return &cfg, nil
}

// LoadFile reads and parses a workflow definition file
func LoadFile(path string) (*WorkflowConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}
