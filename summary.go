package stageflow

import (
	"math"
	"time"

	"github.com/simon020286/go-stageflow/models"
)

// Summary is the display-oriented digest of a finished (or stopped) run.
// It is a pure function of the state: identical states give identical summaries.
type Summary struct {
	WorkflowID       string         `json:"workflow_id"`
	Workflow         string         `json:"workflow"`
	Outcome          models.Outcome `json:"outcome"`
	Total            int            `json:"total"`
	Completed        int            `json:"completed"`
	Failed           int            `json:"failed"`
	Pending          int            `json:"pending"` // Steps that never reached a terminal status
	Elapsed          time.Duration  `json:"elapsed"`
	Efficiency       float64        `json:"efficiency"` // 0..100
	StepsPerSecond   float64        `json:"steps_per_second"`
	MeanStepDuration time.Duration  `json:"mean_step_duration"`
	FailedStep       string         `json:"failed_step,omitempty"`
	Error            string         `json:"error,omitempty"`
	StartedAt        *time.Time     `json:"started_at,omitempty"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty"`
}

// Summarize aggregates a state.
//
// Efficiency is the completed ratio scaled down when the run took longer
// than baselineStep per step:
//
//	100 * completed/total * min(1, baselineStep*total/elapsed)
//
// With a zero elapsed time or baseline only the completed ratio counts.
func Summarize(state models.WorkflowState, baselineStep time.Duration) Summary {
	s := Summary{
		WorkflowID:  state.ID,
		Workflow:    state.Name,
		Outcome:     state.Outcome,
		Total:       len(state.Steps),
		Error:       state.Error,
		StartedAt:   state.StartedAt,
		CompletedAt: state.CompletedAt,
	}

	var stepTime time.Duration
	for _, step := range state.Steps {
		switch step.Status {
		case models.StatusCompleted:
			s.Completed++
			stepTime += step.Duration()
		case models.StatusFailed:
			s.Failed++
			if s.FailedStep == "" {
				s.FailedStep = step.ID
			}
		default:
			s.Pending++
		}
	}

	if state.StartedAt != nil && state.CompletedAt != nil {
		s.Elapsed = state.CompletedAt.Sub(*state.StartedAt)
	}
	if s.Completed > 0 {
		s.MeanStepDuration = stepTime / time.Duration(s.Completed)
	}
	if s.Elapsed > 0 {
		s.StepsPerSecond = round2(float64(s.Completed) / s.Elapsed.Seconds())
	}

	if s.Total == 0 {
		return s
	}
	ratio := float64(s.Completed) / float64(s.Total)
	factor := 1.0
	if s.Elapsed > 0 && baselineStep > 0 {
		expected := baselineStep * time.Duration(s.Total)
		factor = math.Min(1, float64(expected)/float64(s.Elapsed))
	}
	s.Efficiency = round2(100 * ratio * factor)

	return s
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
