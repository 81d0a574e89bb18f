package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleWorkflow = `
name: blockchain-verification
description: Simulated block verification
variables:
  threshold: 60
settings:
  tick_interval: 300ms
  max_duration: 2m
steps:
  - id: fetch
    name: Fetch block
    step_type: telemetry
    step_config:
      metrics: [latency_ms]
      min: 10
      max: 90
  - id: verify
    name: Verify signatures
    dependencies: [fetch]
    step_type: fail_at
    step_config:
      progress: "$var:threshold"
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleWorkflow))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Name != "blockchain-verification" {
		t.Errorf("Expected name 'blockchain-verification', got '%s'", cfg.Name)
	}
	if len(cfg.Steps) != 2 {
		t.Fatalf("Expected 2 steps, got %d", len(cfg.Steps))
	}
	if cfg.Variables["threshold"] != 60 {
		t.Errorf("Expected threshold 60, got %v", cfg.Variables["threshold"])
	}

	verify := cfg.Steps[1]
	if verify.StepType != "fail_at" {
		t.Errorf("Expected step_type 'fail_at', got '%s'", verify.StepType)
	}
	if len(verify.Dependencies) != 1 || verify.Dependencies[0] != "fetch" {
		t.Errorf("Unexpected dependencies: %v", verify.Dependencies)
	}
	if verify.StepConfig["progress"] != "$var:threshold" {
		t.Errorf("Unexpected step_config: %v", verify.StepConfig)
	}

	interval, err := cfg.Settings.TickIntervalDuration()
	if err != nil || interval != 300*time.Millisecond {
		t.Errorf("Expected tick interval 300ms, got %v (err %v)", interval, err)
	}
	maxDuration, set, err := cfg.Settings.MaxDurationValue()
	if err != nil || !set || maxDuration != 2*time.Minute {
		t.Errorf("Expected max duration 2m, got %v set=%v (err %v)", maxDuration, set, err)
	}
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte("name: x\nsteps:\n  - id: a\n    type: noop\n"))
	if err == nil {
		t.Fatal("Expected error for unknown field")
	}
	if !strings.Contains(err.Error(), "failed to parse workflow YAML") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestRunSettings_Unset(t *testing.T) {
	var r RunSettings

	interval, err := r.TickIntervalDuration()
	if err != nil || interval != 0 {
		t.Errorf("Expected 0 interval, got %v (err %v)", interval, err)
	}
	_, set, err := r.MaxDurationValue()
	if err != nil || set {
		t.Errorf("Expected unset max duration, got set=%v (err %v)", set, err)
	}

	r.MaxDuration = "0"
	d, set, err := r.MaxDurationValue()
	if err != nil || !set || d != 0 {
		t.Errorf("Expected explicit 0 to disable watchdog, got %v set=%v (err %v)", d, set, err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workflow.yaml")
	if err := os.WriteFile(path, []byte(sampleWorkflow), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Name != "blockchain-verification" {
		t.Errorf("Unexpected name: %s", cfg.Name)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}
