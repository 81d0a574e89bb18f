package ui

import (
	"fmt"
	"strconv"
	"time"

	stageflow "github.com/simon020286/go-stageflow"
	"github.com/simon020286/go-stageflow/models"
)

// Summary renders the end-of-run digest
func Summary(s stageflow.Summary) string {
	pairs := []Pair{
		KV("Workflow", Bold(s.Workflow)),
		KV("Run", Muted(s.WorkflowID)),
		KV("Outcome", outcomeLabel(s.Outcome)),
		KV("Steps", fmt.Sprintf("%d/%d completed", s.Completed, s.Total)),
		KV("Elapsed", s.Elapsed.Round(time.Millisecond).String()),
		KV("Efficiency", fmt.Sprintf("%.2f%%", s.Efficiency)),
		KV("Throughput", fmt.Sprintf("%.2f steps/s", s.StepsPerSecond)),
	}
	if s.MeanStepDuration > 0 {
		pairs = append(pairs, KV("Mean step", s.MeanStepDuration.Round(time.Millisecond).String()))
	}
	if s.FailedStep != "" {
		pairs = append(pairs, KV("Failed step", Error(s.FailedStep)))
	}
	if s.Error != "" {
		pairs = append(pairs, KV("Error", s.Error))
	}
	return KeyValues("  ", pairs...)
}

// HistoryTable renders recorded runs, most recent first
func HistoryTable(runs []stageflow.Summary) string {
	rows := make([][]string, 0, len(runs))
	for _, s := range runs {
		finished := "-"
		if s.CompletedAt != nil {
			finished = s.CompletedAt.Local().Format(time.DateTime)
		}
		rows = append(rows, []string{
			shortID(s.WorkflowID),
			s.Workflow,
			string(s.Outcome),
			strconv.Itoa(s.Completed) + "/" + strconv.Itoa(s.Total),
			s.Elapsed.Round(time.Millisecond).String(),
			fmt.Sprintf("%.2f", s.Efficiency),
			finished,
		})
	}
	return Table([]string{"RUN", "WORKFLOW", "OUTCOME", "STEPS", "ELAPSED", "EFFICIENCY", "FINISHED"}, rows)
}

// OutcomeMsg is a one-line verdict for a finished run
func OutcomeMsg(s stageflow.Summary) string {
	switch s.Outcome {
	case models.OutcomeCompleted:
		return SuccessMsg("%s completed in %s", s.Workflow, s.Elapsed.Round(time.Millisecond))
	case models.OutcomeCancelled:
		return WarnMsg("%s cancelled", s.Workflow)
	default:
		return ErrorMsg("%s %s: %s", s.Workflow, s.Outcome, s.Error)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
