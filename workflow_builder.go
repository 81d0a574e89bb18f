package stageflow

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/simon020286/go-stageflow/builder"
	"github.com/simon020286/go-stageflow/config"
	"github.com/simon020286/go-stageflow/models"
)

// Workflow is a reusable step definition plus the run options it was declared with
type Workflow struct {
	Name        string
	Description string

	mu           sync.RWMutex
	steps        []models.StepDefinition
	index        map[string]int
	variables    map[string]any
	tickInterval time.Duration
	maxDuration  *time.Duration
}

// StepBuilder configures a step with a fluent API
type StepBuilder struct {
	workflow *Workflow
	id       string
}

// NewWorkflow creates an empty workflow
func NewWorkflow(name string) *Workflow {
	return &Workflow{
		Name:  name,
		index: make(map[string]int),
	}
}

// AddStep appends a step. A nil behavior completes without failing.
// Dependencies are added via workflow.AddStep(id, b).After(deps...)
func (w *Workflow) AddStep(id string, behavior models.Behavior) *StepBuilder {
	w.mu.Lock()
	defer w.mu.Unlock()

	if id == "" {
		panic("step ID cannot be empty")
	}
	if _, exists := w.index[id]; exists {
		panic(fmt.Sprintf("step '%s' already added", id))
	}

	w.index[id] = len(w.steps)
	w.steps = append(w.steps, models.StepDefinition{ID: id, Name: id, Behavior: behavior})

	return &StepBuilder{workflow: w, id: id}
}

// Named sets the human-readable label of the step
func (sb *StepBuilder) Named(name string) *StepBuilder {
	sb.workflow.mu.Lock()
	defer sb.workflow.mu.Unlock()
	sb.workflow.steps[sb.workflow.index[sb.id]].Name = name
	return sb
}

// After defines the step dependencies.
// Returns error if a dependency doesn't exist in the workflow.
func (sb *StepBuilder) After(dependencies ...string) error {
	sb.workflow.mu.Lock()
	defer sb.workflow.mu.Unlock()

	def := &sb.workflow.steps[sb.workflow.index[sb.id]]
	for _, dep := range dependencies {
		if _, exists := sb.workflow.index[dep]; !exists {
			return fmt.Errorf("dependency step '%s' not found in workflow", dep)
		}
		if !slices.Contains(def.Dependencies, dep) {
			def.Dependencies = append(def.Dependencies, dep)
		}
	}

	return nil
}

// SetVariables sets the variables exposed to step behaviors
func (w *Workflow) SetVariables(variables map[string]any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.variables = variables
}

// SetTickInterval overrides the engine tick interval (0 keeps the engine value)
func (w *Workflow) SetTickInterval(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tickInterval = d
}

// SetMaxDuration overrides the engine watchdog (0 disables it)
func (w *Workflow) SetMaxDuration(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.maxDuration = &d
}

// GetStep returns the definition of a step by ID
func (w *Workflow) GetStep(id string) (models.StepDefinition, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	idx, exists := w.index[id]
	if !exists {
		return models.StepDefinition{}, false
	}
	return w.steps[idx], true
}

// Definitions returns a copy of the step definitions in declaration order
func (w *Workflow) Definitions() []models.StepDefinition {
	w.mu.RLock()
	defer w.mu.RUnlock()
	defs := make([]models.StepDefinition, len(w.steps))
	for i, def := range w.steps {
		def.Dependencies = slices.Clone(def.Dependencies)
		defs[i] = def
	}
	return defs
}

// Mode reports how the workflow will be stepped
func (w *Workflow) Mode() models.ExecutionMode {
	return detectExecutionMode(w.Definitions())
}

// Validate checks ids, dependencies and cycles
func (w *Workflow) Validate() error {
	return ValidateDefinition(w.Definitions())
}

// Start runs the workflow on engine. Options given here take precedence over
// the ones declared on the workflow.
func (w *Workflow) Start(engine *Engine, opts ...StartOption) (*Handle, error) {
	w.mu.RLock()
	base := []StartOption{WithName(w.Name), WithVariables(w.variables)}
	if w.tickInterval > 0 {
		base = append(base, WithTickInterval(w.tickInterval))
	}
	if w.maxDuration != nil {
		base = append(base, WithMaxDuration(*w.maxDuration))
	}
	w.mu.RUnlock()

	return engine.Start(w.Definitions(), append(base, opts...)...)
}

// BuildFromConfig builds a workflow from a configuration.
// Behaviors are created from registry, or the default registry when nil.
func BuildFromConfig(cfg *config.WorkflowConfig, registry *builder.Registry) (*Workflow, error) {
	if err := config.ValidateWorkflowConfig(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrInvalidDefinition, err)
	}
	if registry == nil {
		registry = builder.DefaultRegistry()
	}

	workflow := NewWorkflow(cfg.Name)
	workflow.Description = cfg.Description
	workflow.SetVariables(cfg.Variables)

	interval, err := cfg.Settings.TickIntervalDuration()
	if err != nil {
		return nil, err
	}
	workflow.SetTickInterval(interval)
	if maxDuration, set, err := cfg.Settings.MaxDurationValue(); err != nil {
		return nil, err
	} else if set {
		workflow.SetMaxDuration(maxDuration)
	}

	// Phase 1: Create all steps without dependencies
	for _, stepConfig := range cfg.Steps {
		stepType := stepConfig.StepType
		if stepType == "" {
			stepType = builder.DefaultStepType
		}
		behavior, err := registry.Create(stepType, stepConfig.StepConfig)
		if err != nil {
			return nil, models.ErrDefinition(stepConfig.ID, "%v", err)
		}

		sb := workflow.AddStep(stepConfig.ID, behavior)
		if stepConfig.Name != "" {
			sb.Named(stepConfig.Name)
		}
	}

	// Phase 2: Resolve dependencies now that every step exists
	for _, stepConfig := range cfg.Steps {
		if len(stepConfig.Dependencies) == 0 {
			continue
		}
		sb := &StepBuilder{workflow: workflow, id: stepConfig.ID}
		if err := sb.After(stepConfig.Dependencies...); err != nil {
			return nil, models.ErrDefinition(stepConfig.ID, "%v", err)
		}
	}

	if err := workflow.Validate(); err != nil {
		return nil, err
	}

	return workflow, nil
}
