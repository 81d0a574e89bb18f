package models

import "time"

// Outcome is the aggregate result of a workflow run
type Outcome string

const (
	OutcomeIdle      Outcome = "idle"
	OutcomeRunning   Outcome = "running"
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeTimeout   Outcome = "timeout"
	OutcomeDeadlock  Outcome = "deadlock"
)

// IsTerminal reports whether the run has stopped for good
func (o Outcome) IsTerminal() bool {
	switch o {
	case OutcomeCompleted, OutcomeFailed, OutcomeCancelled, OutcomeTimeout, OutcomeDeadlock:
		return true
	}
	return false
}

// ExecutionMode selects how the next step is picked
type ExecutionMode string

const (
	// ModeSequential runs steps in definition order
	ModeSequential ExecutionMode = "sequential"
	// ModeDependency runs the first pending step whose dependencies are completed
	ModeDependency ExecutionMode = "dependency"
)

// WorkflowState is a snapshot of a workflow run
type WorkflowState struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Mode          ExecutionMode `json:"mode"`
	Steps         []Step        `json:"steps"` // Definition order
	IsRunning     bool          `json:"is_running"`
	CurrentStepID string        `json:"current_step_id,omitempty"`
	StartedAt     *time.Time    `json:"started_at,omitempty"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
	Outcome       Outcome       `json:"outcome"`
	Error         string        `json:"error,omitempty"`
}

// Step returns the step with the given ID
func (s *WorkflowState) Step(id string) (Step, bool) {
	for _, st := range s.Steps {
		if st.ID == id {
			return st, true
		}
	}
	return Step{}, false
}

// CountStatus counts steps with the given status
func (s *WorkflowState) CountStatus(status StepStatus) int {
	n := 0
	for _, st := range s.Steps {
		if st.Status == status {
			n++
		}
	}
	return n
}

// Clone returns a deep copy safe to hand to callers
func (s *WorkflowState) Clone() WorkflowState {
	out := *s
	out.Steps = make([]Step, len(s.Steps))
	for i, st := range s.Steps {
		st.Dependencies = append([]string(nil), st.Dependencies...)
		st.StartedAt = cloneTime(st.StartedAt)
		st.CompletedAt = cloneTime(st.CompletedAt)
		out.Steps[i] = st
	}
	out.StartedAt = cloneTime(s.StartedAt)
	out.CompletedAt = cloneTime(s.CompletedAt)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
