package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/simon020286/go-stageflow/models"
)

// Checklist renders workflow runs as a terminal checklist.
// Pending steps are muted, running steps show a progress bar,
// done steps show a checkmark, failed steps show a red x.
// It implements models.EventListener and may follow several runs at once.
type Checklist struct {
	out  io.Writer
	live bool

	mu            sync.Mutex
	runs          []*runView
	renderedLines int
}

type runView struct {
	id      string
	name    string
	outcome models.Outcome
	ended   bool // Set by the terminal or reset event; later step events are stale
	steps   []models.Step
}

// NewChecklist creates a checklist writing to out. When live is false
// nothing is drawn until Flush.
func NewChecklist(out io.Writer, live bool) *Checklist {
	return &Checklist{out: out, live: live}
}

// Track seeds a run from its current state so that pending steps show up
// before their first event.
func (c *Checklist) Track(state models.WorkflowState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	view := c.viewLocked(state.ID)
	if view == nil {
		view = &runView{id: state.ID}
		c.runs = append(c.runs, view)
	}
	view.name = state.Name
	view.outcome = state.Outcome
	view.ended = state.Outcome.IsTerminal()
	view.steps = state.Clone().Steps
	c.drawLocked()
}

// OnEvent implements models.EventListener
func (c *Checklist) OnEvent(event models.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	view := c.viewLocked(event.WorkflowID)
	if view == nil {
		return
	}

	if event.Type.IsWorkflowEvent() {
		switch event.Type {
		case models.EventWorkflowCompleted:
			view.outcome = models.OutcomeCompleted
		case models.EventWorkflowFailed:
			view.outcome = models.OutcomeFailed
		case models.EventWorkflowCancelled:
			view.outcome = models.OutcomeCancelled
		case models.EventWorkflowTimeout:
			view.outcome = models.OutcomeTimeout
		case models.EventWorkflowDeadlock:
			view.outcome = models.OutcomeDeadlock
		case models.EventWorkflowReset:
			view.outcome = models.OutcomeIdle
		case models.EventWorkflowStarted:
			view.outcome = models.OutcomeRunning
		}
		view.ended = event.Type != models.EventWorkflowStarted
		c.drawLocked()
		return
	}
	if view.ended {
		return
	}

	for i := range view.steps {
		step := &view.steps[i]
		if step.ID != event.StepID {
			continue
		}
		step.Progress = event.Progress
		switch event.Type {
		case models.EventStepStarted, models.EventStepProgress:
			step.Status = models.StatusRunning
		case models.EventStepCompleted:
			step.Status = models.StatusCompleted
		case models.EventStepFailed:
			step.Status = models.StatusFailed
			step.ErrorMessage = event.Error
		}
	}
	c.drawLocked()
}

// Render returns the checklist as text
func (c *Checklist) Render() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.Join(c.linesLocked(), "\n") + "\n"
}

// Flush draws the final checklist, in place when live
func (c *Checklist) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.live {
		c.redrawLocked()
		return
	}
	for _, line := range c.linesLocked() {
		fmt.Fprintln(c.out, line)
	}
}

func (c *Checklist) viewLocked(id string) *runView {
	for _, v := range c.runs {
		if v.id == id {
			return v
		}
	}
	return nil
}

func (c *Checklist) drawLocked() {
	if c.live {
		c.redrawLocked()
	}
}

// redrawLocked reprints all lines in place
func (c *Checklist) redrawLocked() {
	lines := c.linesLocked()
	if c.renderedLines > 0 {
		fmt.Fprintf(c.out, "\033[%dA", c.renderedLines)
	}
	for _, line := range lines {
		fmt.Fprintf(c.out, "\r%s\033[K\n", line)
	}
	for i := len(lines); i < c.renderedLines; i++ {
		fmt.Fprint(c.out, "\r\033[K\n")
	}
	c.renderedLines = max(len(lines), c.renderedLines)
}

func (c *Checklist) linesLocked() []string {
	var lines []string
	for _, view := range c.runs {
		lines = append(lines, Bold(view.name)+" "+outcomeLabel(view.outcome))
		for _, step := range view.steps {
			lines = append(lines, stepLine(step))
		}
	}
	return lines
}

func stepLine(s models.Step) string {
	switch s.Status {
	case models.StatusRunning:
		return fmt.Sprintf("  %s %s %s %3d%%", Accent("▸"), s.Name, ProgressBar(s.Progress), s.Progress)
	case models.StatusCompleted:
		return fmt.Sprintf("  %s %s", Success("✓"), s.Name)
	case models.StatusFailed:
		line := fmt.Sprintf("  %s %s", ErrorStyle.Render("✗"), ErrorStyle.Render(s.Name))
		if s.ErrorMessage != "" {
			line += " " + Muted(s.ErrorMessage)
		}
		return line
	default:
		return fmt.Sprintf("  %s %s", Muted("●"), Muted(s.Name))
	}
}

func outcomeLabel(o models.Outcome) string {
	switch o {
	case models.OutcomeCompleted:
		return Success(string(o))
	case models.OutcomeFailed, models.OutcomeTimeout, models.OutcomeDeadlock:
		return Error(string(o))
	case models.OutcomeCancelled:
		return Warn(string(o))
	default:
		return Muted(string(o))
	}
}
