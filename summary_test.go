package stageflow

import (
	"reflect"
	"testing"
	"time"

	"github.com/simon020286/go-stageflow/models"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	ts := t0.Add(d)
	return &ts
}

func timedStep(id string, status models.StepStatus, start, end time.Duration) models.Step {
	s := models.Step{ID: id, Status: status, StartedAt: at(start)}
	if status.IsTerminal() {
		s.CompletedAt = at(end)
	}
	return s
}

func completedState(elapsed time.Duration) models.WorkflowState {
	third := elapsed / 3
	return models.WorkflowState{
		ID:      "run-1",
		Name:    "demo",
		Outcome: models.OutcomeCompleted,
		Steps: []models.Step{
			timedStep("a", models.StatusCompleted, 0, third),
			timedStep("b", models.StatusCompleted, third, 2*third),
			timedStep("c", models.StatusCompleted, 2*third, elapsed),
		},
		StartedAt:   at(0),
		CompletedAt: at(elapsed),
	}
}

func TestSummarize_Completed(t *testing.T) {
	s := Summarize(completedState(6*time.Second), 2*time.Second)

	if s.Total != 3 || s.Completed != 3 || s.Failed != 0 || s.Pending != 0 {
		t.Errorf("Unexpected counts: %+v", s)
	}
	if s.Elapsed != 6*time.Second {
		t.Errorf("Elapsed = %v, want 6s", s.Elapsed)
	}
	if s.Efficiency != 100 {
		t.Errorf("Efficiency = %v, want 100", s.Efficiency)
	}
	if s.StepsPerSecond != 0.5 {
		t.Errorf("StepsPerSecond = %v, want 0.5", s.StepsPerSecond)
	}
	if s.MeanStepDuration != 2*time.Second {
		t.Errorf("MeanStepDuration = %v, want 2s", s.MeanStepDuration)
	}
	if s.Outcome != models.OutcomeCompleted || s.WorkflowID != "run-1" || s.Workflow != "demo" {
		t.Errorf("Unexpected identity fields: %+v", s)
	}
}

func TestSummarize_SlowRun(t *testing.T) {
	s := Summarize(completedState(12*time.Second), 2*time.Second)
	if s.Efficiency != 50 {
		t.Errorf("Efficiency = %v, want 50", s.Efficiency)
	}

	s = Summarize(completedState(9*time.Second), 2*time.Second)
	if s.Efficiency != 66.67 {
		t.Errorf("Efficiency = %v, want 66.67", s.Efficiency)
	}
}

func TestSummarize_Failed(t *testing.T) {
	state := models.WorkflowState{
		Outcome: models.OutcomeFailed,
		Error:   "step failed: step 'c': boom",
		Steps: []models.Step{
			timedStep("a", models.StatusCompleted, 0, time.Second),
			timedStep("b", models.StatusCompleted, time.Second, 2*time.Second),
			timedStep("c", models.StatusFailed, 2*time.Second, 3*time.Second),
			{ID: "d", Status: models.StatusPending},
		},
	}

	s := Summarize(state, 2*time.Second)
	if s.Completed != 2 || s.Failed != 1 || s.Pending != 1 {
		t.Errorf("Unexpected counts: %+v", s)
	}
	if s.FailedStep != "c" || s.Error != "step failed: step 'c': boom" {
		t.Errorf("Unexpected failure fields: %+v", s)
	}
	// No elapsed time: only the completed ratio counts
	if s.Elapsed != 0 || s.Efficiency != 50 || s.StepsPerSecond != 0 {
		t.Errorf("Unexpected timing fields: %+v", s)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(models.WorkflowState{}, time.Second)
	if s.Total != 0 || s.Efficiency != 0 {
		t.Errorf("Unexpected summary: %+v", s)
	}
}

func TestSummarize_Deterministic(t *testing.T) {
	state := completedState(7 * time.Second)
	first := Summarize(state, 2*time.Second)
	second := Summarize(state, 2*time.Second)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Summaries differ:\n%+v\n%+v", first, second)
	}
}
