// Package telemetry turns workflow events into OpenTelemetry spans.
package telemetry

import (
	"context"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/simon020286/go-stageflow/models"
)

const (
	// TracerName is the instrumentation scope used by NewListener callers
	TracerName = "github.com/simon020286/go-stageflow"

	WorkflowIDKey   = "stageflow.workflow.id"
	WorkflowNameKey = "stageflow.workflow.name"
	OutcomeKey      = "stageflow.outcome"
	StepIDKey       = "stageflow.step.id"
	StepNameKey     = "stageflow.step.name"
	ProgressKey     = "stageflow.step.progress"

	ProgressEventName = "stageflow.step.progress"
)

// Listener records one root span per run and one child span per step.
// It implements models.EventListener.
type Listener struct {
	tracer trace.Tracer
	parent context.Context

	mu   sync.Mutex
	runs map[string]*runSpans
}

type runSpans struct {
	ctx   context.Context
	root  trace.Span
	steps map[string]trace.Span
}

// NewListener creates a listener. Root spans are children of ctx when it
// carries a span.
func NewListener(ctx context.Context, tracer trace.Tracer) *Listener {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Listener{
		tracer: tracer,
		parent: ctx,
		runs:   make(map[string]*runSpans),
	}
}

// OnEvent implements models.EventListener
func (l *Listener) OnEvent(event models.Event) {
	if l == nil || l.tracer == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	switch event.Type {
	case models.EventWorkflowStarted:
		l.startRun(event)
	case models.EventStepStarted:
		run := l.runs[event.WorkflowID]
		if run == nil {
			return
		}
		_, span := l.tracer.Start(run.ctx, spanName(event.StepName, event.StepID),
			trace.WithTimestamp(event.Timestamp),
			trace.WithAttributes(
				attribute.String(StepIDKey, event.StepID),
				attribute.String(StepNameKey, event.StepName),
			),
		)
		run.steps[event.StepID] = span
	case models.EventStepProgress:
		if span := l.stepSpan(event); span != nil {
			span.AddEvent(ProgressEventName,
				trace.WithTimestamp(event.Timestamp),
				trace.WithAttributes(attribute.Int(ProgressKey, event.Progress)),
			)
		}
	case models.EventStepCompleted:
		if span := l.stepSpan(event); span != nil {
			span.SetAttributes(attribute.Int(ProgressKey, event.Progress))
			span.SetStatus(codes.Ok, "")
			span.End(trace.WithTimestamp(event.Timestamp))
			delete(l.runs[event.WorkflowID].steps, event.StepID)
		}
	case models.EventStepFailed:
		if span := l.stepSpan(event); span != nil {
			recordFailure(span, event.Error)
			span.End(trace.WithTimestamp(event.Timestamp))
			delete(l.runs[event.WorkflowID].steps, event.StepID)
		}
	case models.EventWorkflowCompleted, models.EventWorkflowFailed, models.EventWorkflowCancelled,
		models.EventWorkflowTimeout, models.EventWorkflowDeadlock, models.EventWorkflowReset:
		l.endRun(event)
	}
}

// Open returns the number of runs whose root span has not ended yet
func (l *Listener) Open() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.runs)
}

func (l *Listener) startRun(event models.Event) {
	ctx, root := l.tracer.Start(l.parent, spanName(event.Workflow, "workflow"),
		trace.WithTimestamp(event.Timestamp),
		trace.WithAttributes(
			attribute.String(WorkflowIDKey, event.WorkflowID),
			attribute.String(WorkflowNameKey, event.Workflow),
		),
	)
	l.runs[event.WorkflowID] = &runSpans{ctx: ctx, root: root, steps: make(map[string]trace.Span)}
}

func (l *Listener) endRun(event models.Event) {
	run := l.runs[event.WorkflowID]
	if run == nil {
		return
	}
	delete(l.runs, event.WorkflowID)

	outcome := strings.TrimPrefix(string(event.Type), "workflow.")
	// Steps interrupted by cancel, timeout or reset never see their own terminal event
	for id, span := range run.steps {
		span.SetStatus(codes.Error, "interrupted: "+outcome)
		span.End(trace.WithTimestamp(event.Timestamp))
		delete(run.steps, id)
	}

	run.root.SetAttributes(attribute.String(OutcomeKey, outcome))
	if event.Type == models.EventWorkflowCompleted {
		run.root.SetStatus(codes.Ok, "")
	} else {
		msg := event.Error
		if msg == "" {
			msg = outcome
		}
		recordFailure(run.root, msg)
	}
	run.root.End(trace.WithTimestamp(event.Timestamp))
}

func (l *Listener) stepSpan(event models.Event) trace.Span {
	run := l.runs[event.WorkflowID]
	if run == nil {
		return nil
	}
	return run.steps[event.StepID]
}

func recordFailure(span trace.Span, msg string) {
	msg = strings.TrimSpace(msg)
	span.RecordError(stepError(msg))
	span.SetStatus(codes.Error, msg)
}

type stepError string

func (e stepError) Error() string { return string(e) }

func spanName(name, fallback string) string {
	if strings.TrimSpace(name) == "" {
		return fallback
	}
	return name
}
