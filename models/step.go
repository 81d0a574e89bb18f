package models

import "time"

// StepStatus is the lifecycle status of a workflow step
type StepStatus string

const (
	StatusIdle      StepStatus = "idle"
	StatusPending   StepStatus = "pending"
	StatusRunning   StepStatus = "running"
	StatusCompleted StepStatus = "completed"
	StatusFailed    StepStatus = "failed"
)

// IsTerminal reports whether no further automatic transition leaves this status
func (s StepStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Behavior is the pluggable logic attached to a step.
// The engine never knows what a step "does": it only asks the behavior whether
// the current tick should fail the step and, on completion, what payload to attach.
type Behavior interface {
	// Check is consulted on every tick while the step runs.
	// A non-nil error fails the step (and the whole workflow).
	Check(tc *TickContext) error
	// Result produces the payload attached once the step completes.
	Result(tc *TickContext) (any, error)
}

// StepDefinition is the caller-supplied plain data describing one step
type StepDefinition struct {
	ID           string   // Unique identifier, stable for the definition lifetime
	Name         string   // Human-readable label
	Dependencies []string // IDs that must be completed before this step may run
	Behavior     Behavior // Optional: nil means no injected failure and no payload
}

// Step is the runtime view of a step inside a WorkflowState
type Step struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Status       StepStatus `json:"status"`
	Progress     int        `json:"progress"`
	Dependencies []string   `json:"dependencies,omitempty"`
	Result       any        `json:"result,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	Ticks        int        `json:"ticks"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// Duration returns how long the step ran, 0 if it never finished
func (s Step) Duration() time.Duration {
	if s.StartedAt == nil || s.CompletedAt == nil {
		return 0
	}
	return s.CompletedAt.Sub(*s.StartedAt)
}

// NewStep creates the idle runtime step for a definition
func NewStep(def StepDefinition) Step {
	deps := make([]string, len(def.Dependencies))
	copy(deps, def.Dependencies)
	name := def.Name
	if name == "" {
		name = def.ID
	}
	return Step{
		ID:           def.ID,
		Name:         name,
		Status:       StatusIdle,
		Dependencies: deps,
	}
}
