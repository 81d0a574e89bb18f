package models

import (
	"strings"
	"time"
)

// EventType identifies what happened to a workflow
type EventType string

const (
	// Workflow events
	EventWorkflowStarted   EventType = "workflow.started"
	EventWorkflowCompleted EventType = "workflow.completed"
	EventWorkflowFailed    EventType = "workflow.failed"
	EventWorkflowCancelled EventType = "workflow.cancelled"
	EventWorkflowTimeout   EventType = "workflow.timeout"
	EventWorkflowDeadlock  EventType = "workflow.deadlock"
	EventWorkflowReset     EventType = "workflow.reset"

	// Step events
	EventStepStarted   EventType = "step.started"
	EventStepProgress  EventType = "step.progress"
	EventStepCompleted EventType = "step.completed"
	EventStepFailed    EventType = "step.failed"
)

// Event is emitted on every observable state change
type Event struct {
	Type       EventType     `json:"type"`
	Seq        uint64        `json:"seq"` // Per-workflow, strictly increasing
	Timestamp  time.Time     `json:"timestamp"`
	WorkflowID string        `json:"workflow_id"`
	Workflow   string        `json:"workflow"`
	StepID     string        `json:"step_id,omitempty"`
	StepName   string        `json:"step_name,omitempty"`
	Progress   int           `json:"progress,omitempty"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
	Result     any           `json:"result,omitempty"`
}

// EventListener receives events from a workflow handle
type EventListener interface {
	OnEvent(event Event)
}

// EventListenerFunc adapts a function to EventListener
type EventListenerFunc func(event Event)

func (f EventListenerFunc) OnEvent(event Event) {
	f(event)
}

// IsWorkflowEvent reports whether the event concerns the run as a whole
func (t EventType) IsWorkflowEvent() bool {
	return strings.HasPrefix(string(t), "workflow.")
}
