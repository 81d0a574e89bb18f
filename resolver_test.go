package stageflow

import (
	"errors"
	"strings"
	"testing"

	"github.com/simon020286/go-stageflow/models"
)

func def(id string, deps ...string) models.StepDefinition {
	return models.StepDefinition{ID: id, Dependencies: deps}
}

func step(id string, status models.StepStatus, deps ...string) models.Step {
	return models.Step{ID: id, Status: status, Dependencies: deps}
}

func TestIsEligible(t *testing.T) {
	steps := []models.Step{
		step("a", models.StatusCompleted),
		step("b", models.StatusRunning),
		step("c", models.StatusPending, "a"),
		step("d", models.StatusPending, "a", "b"),
		step("e", models.StatusPending),
		step("f", models.StatusPending, "ghost"),
		step("g", models.StatusIdle),
		step("h", models.StatusFailed),
	}

	tests := []struct {
		id       string
		expected bool
	}{
		{"a", false}, // not pending
		{"b", false}, // not pending
		{"c", true},
		{"d", false}, // b is still running
		{"e", true},  // no dependencies
		{"f", false}, // unknown dependency is never satisfied
		{"g", false},
		{"h", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			var target models.Step
			for _, s := range steps {
				if s.ID == tt.id {
					target = s
				}
			}
			got := IsEligible(target, steps)
			if got != tt.expected {
				t.Errorf("IsEligible(%s) = %v, want %v", tt.id, got, tt.expected)
			}
			// Pure function: same answer on every call
			if again := IsEligible(target, steps); again != got {
				t.Errorf("IsEligible(%s) is not deterministic", tt.id)
			}
		})
	}
}

func TestDetectCycle(t *testing.T) {
	tests := []struct {
		name     string
		defs     []models.StepDefinition
		expected bool
	}{
		{"empty", nil, false},
		{"linear", []models.StepDefinition{def("a"), def("b", "a"), def("c", "b")}, false},
		{"diamond", []models.StepDefinition{def("a"), def("b", "a"), def("c", "a"), def("d", "b", "c")}, false},
		{"self loop", []models.StepDefinition{def("a", "a")}, true},
		{"two steps", []models.StepDefinition{def("a", "b"), def("b", "a")}, true},
		{"three steps", []models.StepDefinition{def("x"), def("a", "c"), def("b", "a"), def("c", "b")}, true},
		{"unknown dependency", []models.StepDefinition{def("a", "ghost")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectCycle(tt.defs); got != tt.expected {
				t.Errorf("DetectCycle() = %v, want %v", got, tt.expected)
			}
			if got := DetectCycle(tt.defs); got != tt.expected {
				t.Errorf("DetectCycle() second call = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestValidateDefinition(t *testing.T) {
	tests := []struct {
		name    string
		defs    []models.StepDefinition
		wantErr string
	}{
		{"valid", []models.StepDefinition{def("a"), def("b", "a")}, ""},
		{"empty", nil, "at least one step is required"},
		{"empty id", []models.StepDefinition{def("a"), def(" ")}, "step 1 has an empty id"},
		{"duplicate", []models.StepDefinition{def("a"), def("a")}, "step 'a': duplicate step id"},
		{"unknown dependency", []models.StepDefinition{def("a", "ghost")}, "depends on non-existent step 'ghost'"},
		{"cycle", []models.StepDefinition{def("a", "b"), def("b", "a")}, "circular dependency detected: a -> b -> a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDefinition(tt.defs)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Expected no error, got: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing %q", tt.wantErr)
			}
			if !errors.Is(err, models.ErrInvalidDefinition) {
				t.Errorf("Expected error to wrap ErrInvalidDefinition, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDetectExecutionMode(t *testing.T) {
	if got := detectExecutionMode([]models.StepDefinition{def("a"), def("b")}); got != models.ModeSequential {
		t.Errorf("Expected sequential, got %s", got)
	}
	if got := detectExecutionMode([]models.StepDefinition{def("a"), def("b", "a")}); got != models.ModeDependency {
		t.Errorf("Expected dependency, got %s", got)
	}
}

func TestSelectNext(t *testing.T) {
	t.Run("sequential picks first pending", func(t *testing.T) {
		steps := []models.Step{step("a", models.StatusCompleted), step("b", models.StatusPending), step("c", models.StatusPending)}
		idx, err := selectNext(steps, models.ModeSequential)
		if err != nil || idx != 1 {
			t.Errorf("selectNext = %d, %v; want 1, nil", idx, err)
		}
	})

	t.Run("dependency skips ineligible", func(t *testing.T) {
		steps := []models.Step{
			step("a", models.StatusCompleted),
			step("b", models.StatusPending, "c"),
			step("c", models.StatusPending, "a"),
		}
		idx, err := selectNext(steps, models.ModeDependency)
		if err != nil || idx != 2 {
			t.Errorf("selectNext = %d, %v; want 2, nil", idx, err)
		}
	})

	t.Run("nothing pending", func(t *testing.T) {
		steps := []models.Step{step("a", models.StatusCompleted)}
		idx, err := selectNext(steps, models.ModeDependency)
		if err != nil || idx != -1 {
			t.Errorf("selectNext = %d, %v; want -1, nil", idx, err)
		}
	})

	t.Run("deadlock", func(t *testing.T) {
		steps := []models.Step{
			step("a", models.StatusFailed),
			step("b", models.StatusPending, "a"),
		}
		_, err := selectNext(steps, models.ModeDependency)
		if !errors.Is(err, models.ErrDeadlockDetected) {
			t.Errorf("Expected ErrDeadlockDetected, got %v", err)
		}
	})
}
