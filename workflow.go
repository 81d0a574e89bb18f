package stageflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/simon020286/go-stageflow/clock"
	"github.com/simon020286/go-stageflow/models"
	"github.com/simon020286/go-stageflow/progress"
)

// Config holds the engine defaults applied to every workflow it starts
type Config struct {
	// TickInterval is the period between two progress ticks
	TickInterval time.Duration
	// MinIncrement and MaxIncrement bound the random progress increment per tick
	MinIncrement int
	MaxIncrement int
	// MaxDuration stops a run that has not finished in time (0 = disabled)
	MaxDuration time.Duration
	// Seed makes the default simulator deterministic (0 = random)
	Seed uint64
}

// DefaultConfig returns sensible defaults for the engine
func DefaultConfig() Config {
	return Config{
		TickInterval: 500 * time.Millisecond,
		MinIncrement: 5,
		MaxIncrement: 15,
	}
}

// Engine starts simulated workflows. Each Engine is caller-owned; workflows
// started from it share no mutable state with each other.
type Engine struct {
	cfg    Config
	clock  clock.Clock
	newSim func() (progress.Simulator, error)
	logger *slog.Logger
	runs   atomic.Uint64
}

// Option configures an Engine
type Option func(*Engine)

// WithConfig replaces the engine defaults
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithClock sets the clock used for ticks and timestamps
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithSimulatorFactory replaces the default random simulator.
// The factory is called once per run.
func WithSimulatorFactory(f func() progress.Simulator) Option {
	return func(e *Engine) {
		e.newSim = func() (progress.Simulator, error) { return f(), nil }
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates a new engine
func New(opts ...Option) *Engine {
	e := &Engine{
		cfg:   DefaultConfig(),
		clock: clock.Real{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.newSim == nil {
		e.newSim = e.defaultSimulator
	}
	return e
}

// Config returns the engine defaults
func (e *Engine) Config() Config {
	return e.cfg
}

func (e *Engine) defaultSimulator() (progress.Simulator, error) {
	seed := e.cfg.Seed
	if seed != 0 {
		// Distinct but reproducible sequences for successive runs
		seed += e.runs.Add(1) - 1
	}
	return progress.NewRandom(e.cfg.MinIncrement, e.cfg.MaxIncrement, seed)
}

// StartOption configures a single run
type StartOption func(*startOptions)

type startOptions struct {
	name         string
	variables    map[string]any
	tickInterval time.Duration
	maxDuration  *time.Duration
	listeners    []models.EventListener
}

// WithName labels the run
func WithName(name string) StartOption {
	return func(o *startOptions) { o.name = name }
}

// WithVariables exposes variables to step behaviors
func WithVariables(vars map[string]any) StartOption {
	return func(o *startOptions) { o.variables = vars }
}

// WithTickInterval overrides the engine tick interval for this run
func WithTickInterval(d time.Duration) StartOption {
	return func(o *startOptions) { o.tickInterval = d }
}

// WithMaxDuration overrides the watchdog for this run (0 disables it)
func WithMaxDuration(d time.Duration) StartOption {
	return func(o *startOptions) { o.maxDuration = &d }
}

// WithListener subscribes a listener before the first event is emitted
func WithListener(l models.EventListener) StartOption {
	return func(o *startOptions) { o.listeners = append(o.listeners, l) }
}

// Handle controls one workflow run
type Handle struct {
	engine      *Engine
	defs        []models.StepDefinition
	mode        models.ExecutionMode
	name        string
	variables   map[string]any
	interval    time.Duration
	maxDuration time.Duration
	sim         progress.Simulator
	bus         *eventBus
	log         *slog.Logger

	mu         sync.Mutex
	state      models.WorkflowState
	gen        uint64 // Bumped on cancel/reset/restart; stale timer callbacks compare against it
	seq        uint64
	tickTimer  clock.Timer
	watchdog   clock.Timer
	done       chan struct{}
	doneClosed bool
}

// Start validates defs and starts driving them in the background.
// Structural problems are returned before any state exists.
func (e *Engine) Start(defs []models.StepDefinition, opts ...StartOption) (*Handle, error) {
	if err := ValidateDefinition(defs); err != nil {
		return nil, err
	}

	var o startOptions
	for _, opt := range opts {
		opt(&o)
	}

	interval := e.cfg.TickInterval
	if o.tickInterval > 0 {
		interval = o.tickInterval
	}
	if interval <= 0 {
		return nil, fmt.Errorf("tick interval must be positive, got %s", interval)
	}
	maxDuration := e.cfg.MaxDuration
	if o.maxDuration != nil {
		maxDuration = *o.maxDuration
	}

	sim, err := e.newSim()
	if err != nil {
		return nil, fmt.Errorf("create progress simulator: %w", err)
	}

	owned := make([]models.StepDefinition, len(defs))
	for i, def := range defs {
		def.Dependencies = append([]string(nil), def.Dependencies...)
		owned[i] = def
	}

	h := &Handle{
		engine:      e,
		defs:        owned,
		mode:        detectExecutionMode(owned),
		name:        o.name,
		variables:   o.variables,
		interval:    interval,
		maxDuration: maxDuration,
		sim:         sim,
		log:         e.logger.With("component", "workflow", "workflow", o.name),
	}
	h.bus = newEventBus(h.log)
	for _, l := range o.listeners {
		h.bus.addListener(l)
	}

	h.mu.Lock()
	h.state = h.initialState()
	events, err := h.beginLocked()
	h.mu.Unlock()
	if err != nil {
		return nil, err
	}

	h.bus.Emit(events...)
	return h, nil
}

// Cancel stops the run. See Handle.Cancel.
func (e *Engine) Cancel(h *Handle) { h.Cancel() }

// Reset returns the run to its idle state. See Handle.Reset.
func (e *Engine) Reset(h *Handle) { h.Reset() }

// GetState returns a snapshot of the run. See Handle.State.
func (e *Engine) GetState(h *Handle) models.WorkflowState { return h.State() }

// State returns a deep copy of the current state. It never waits on timers.
func (h *Handle) State() models.WorkflowState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state.Clone()
}

// Subscribe registers a listener and returns a function that removes it.
// Events of one mutation arrive in order. Events caused on different
// goroutines (a tick and a concurrent Cancel) may interleave, so a step event
// can follow the terminal workflow event. Listeners should ignore events of runs
// they have seen end.
func (h *Handle) Subscribe(l models.EventListener) func() {
	return h.bus.addListener(l)
}

// UnsubscribeAll removes every listener, including the ones given at start
func (h *Handle) UnsubscribeAll() {
	h.bus.removeAllListeners()
}

// Done is closed when the current run stops for any reason
func (h *Handle) Done() <-chan struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.done
}

// Wait blocks until the current run stops or ctx ends
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel halts every pending timer before returning and sets IsRunning to false.
// Step statuses are left as they are. Calling it again, or on a run that
// already stopped, has no effect.
func (h *Handle) Cancel() {
	h.mu.Lock()
	if !h.state.IsRunning {
		h.mu.Unlock()
		return
	}
	h.gen++
	h.stopTimersLocked()

	now := h.engine.clock.Now()
	h.state.IsRunning = false
	h.state.Outcome = models.OutcomeCancelled
	h.state.CompletedAt = &now
	h.closeDoneLocked()
	events := []models.Event{h.newEventLocked(models.EventWorkflowCancelled, now, h.currentStepLocked())}
	log := h.log
	h.mu.Unlock()

	log.Info("workflow cancelled")
	h.bus.Emit(events...)
}

// Reset discards timers and returns every field to its initial idle value
func (h *Handle) Reset() {
	h.mu.Lock()
	events := h.resetLocked()
	h.mu.Unlock()

	h.bus.Emit(events...)
}

// Restart resets the run and starts it again from the first step
func (h *Handle) Restart() error {
	h.mu.Lock()
	events := h.resetLocked()
	started, err := h.beginLocked()
	h.mu.Unlock()

	h.bus.Emit(append(events, started...)...)
	return err
}

// resetLocked builds the reset event before dropping the state so that it
// carries the ID of the run being discarded
func (h *Handle) resetLocked() []models.Event {
	h.gen++
	h.stopTimersLocked()
	h.closeDoneLocked()
	event := h.newEventLocked(models.EventWorkflowReset, h.engine.clock.Now(), nil)
	h.state = h.initialState()
	return []models.Event{event}
}

func (h *Handle) initialState() models.WorkflowState {
	steps := make([]models.Step, len(h.defs))
	for i, def := range h.defs {
		steps[i] = models.NewStep(def)
	}
	return models.WorkflowState{
		Name:    h.name,
		Mode:    h.mode,
		Steps:   steps,
		Outcome: models.OutcomeIdle,
	}
}

// beginLocked moves an idle state to running and activates the first step
func (h *Handle) beginLocked() ([]models.Event, error) {
	h.gen++
	now := h.engine.clock.Now()

	h.state.ID = uuid.NewString()
	h.state.IsRunning = true
	h.state.Outcome = models.OutcomeRunning
	h.state.StartedAt = &now
	h.state.CompletedAt = nil
	h.state.Error = ""
	for i := range h.state.Steps {
		h.state.Steps[i].Status = models.StatusPending
	}
	h.done = make(chan struct{})
	h.doneClosed = false
	h.log = h.engine.logger.With("component", "workflow", "workflow", h.name, "run", h.state.ID)

	if idx, err := selectNext(h.state.Steps, h.mode); err != nil || idx < 0 {
		// Unreachable for validated definitions
		h.state = h.initialState()
		h.closeDoneLocked()
		if err == nil {
			err = models.ErrDefinition("", "no step can start")
		}
		return nil, err
	}

	if h.maxDuration > 0 {
		gen := h.gen
		h.watchdog = h.engine.clock.AfterFunc(h.maxDuration, func() { h.onWatchdog(gen) })
	}

	h.log.Info("workflow started", "mode", h.mode, "steps", len(h.defs))
	events := []models.Event{h.newEventLocked(models.EventWorkflowStarted, now, nil)}
	return append(events, h.activateNextLocked(now)...), nil
}

// activateNextLocked starts the next eligible step or finishes the run
func (h *Handle) activateNextLocked(now time.Time) []models.Event {
	idx, err := selectNext(h.state.Steps, h.mode)
	if err != nil {
		h.finishLocked(now, models.OutcomeDeadlock, err.Error())
		h.log.Error("workflow deadlocked", "err", err)
		return []models.Event{h.newEventLocked(models.EventWorkflowDeadlock, now, nil)}
	}
	if idx < 0 {
		h.state.CurrentStepID = ""
		h.finishLocked(now, models.OutcomeCompleted, "")
		h.log.Info("workflow completed", "elapsed", now.Sub(*h.state.StartedAt))
		return []models.Event{h.newEventLocked(models.EventWorkflowCompleted, now, nil)}
	}

	step := &h.state.Steps[idx]
	step.Status = models.StatusRunning
	step.Progress = 0
	step.Ticks = 0
	step.Result = nil
	step.ErrorMessage = ""
	startedAt := now
	step.StartedAt = &startedAt
	step.CompletedAt = nil
	h.state.CurrentStepID = step.ID

	h.log.Debug("step started", "step", step.ID)
	h.scheduleTickLocked()
	return []models.Event{h.newEventLocked(models.EventStepStarted, now, step)}
}

func (h *Handle) scheduleTickLocked() {
	gen := h.gen
	h.tickTimer = h.engine.clock.AfterFunc(h.interval, func() { h.onTick(gen) })
}

func (h *Handle) onTick(gen uint64) {
	h.mu.Lock()
	if gen != h.gen || !h.state.IsRunning {
		h.mu.Unlock()
		return
	}
	h.tickTimer = nil
	events := h.tickLocked()
	h.mu.Unlock()

	h.bus.Emit(events...)
}

// tickLocked advances the running step by one simulator tick
func (h *Handle) tickLocked() []models.Event {
	idx := h.indexLocked(h.state.CurrentStepID)
	if idx < 0 {
		return nil
	}
	now := h.engine.clock.Now()
	step := &h.state.Steps[idx]
	behavior := h.defs[idx].Behavior

	next := h.sim.Next(step.Progress)
	if next < step.Progress {
		next = step.Progress
	}
	step.Ticks++
	tc := h.tickContextLocked(step, next)

	if behavior != nil {
		if err := behavior.Check(tc); err != nil {
			return h.failStepLocked(idx, now, err.Error(), models.OutcomeFailed)
		}
	}

	step.Progress = next
	events := []models.Event{h.newEventLocked(models.EventStepProgress, now, step)}
	if next < progress.Max {
		h.scheduleTickLocked()
		return events
	}

	var result any
	if behavior != nil {
		r, err := behavior.Result(tc)
		if err != nil {
			return append(events, h.failStepLocked(idx, now, err.Error(), models.OutcomeFailed)...)
		}
		result = r
	}

	step.Status = models.StatusCompleted
	step.Progress = progress.Max
	step.Result = result
	completedAt := now
	step.CompletedAt = &completedAt
	h.log.Debug("step completed", "step", step.ID, "ticks", step.Ticks)

	events = append(events, h.newEventLocked(models.EventStepCompleted, now, step))
	return append(events, h.activateNextLocked(now)...)
}

// failStepLocked records a step failure and stops the whole run (fail-fast)
func (h *Handle) failStepLocked(idx int, now time.Time, msg string, outcome models.Outcome) []models.Event {
	step := &h.state.Steps[idx]
	step.Status = models.StatusFailed
	step.ErrorMessage = msg
	step.Result = nil
	failedAt := now
	step.CompletedAt = &failedAt
	h.state.CurrentStepID = ""

	wfErr := fmt.Sprintf("%s: step '%s': %s", models.ErrStepFailed, step.ID, msg)
	wfEvent := models.EventWorkflowFailed
	if outcome == models.OutcomeTimeout {
		wfErr = fmt.Sprintf("%s: step '%s' still running after %s", models.ErrTimeout, step.ID, h.maxDuration)
		wfEvent = models.EventWorkflowTimeout
	}
	h.finishLocked(now, outcome, wfErr)
	h.log.Warn("workflow stopped", "outcome", outcome, "step", step.ID, "err", msg)

	return []models.Event{
		h.newEventLocked(models.EventStepFailed, now, step),
		h.newEventLocked(wfEvent, now, step),
	}
}

func (h *Handle) finishLocked(now time.Time, outcome models.Outcome, errMsg string) {
	h.state.IsRunning = false
	h.state.Outcome = outcome
	h.state.Error = errMsg
	h.state.CompletedAt = &now
	h.stopTimersLocked()
	h.closeDoneLocked()
}

func (h *Handle) onWatchdog(gen uint64) {
	h.mu.Lock()
	if gen != h.gen || !h.state.IsRunning {
		h.mu.Unlock()
		return
	}
	h.watchdog = nil
	now := h.engine.clock.Now()

	var events []models.Event
	if idx := h.indexLocked(h.state.CurrentStepID); idx >= 0 {
		events = h.failStepLocked(idx, now, models.ErrTimeout.Error(), models.OutcomeTimeout)
	} else {
		h.finishLocked(now, models.OutcomeTimeout, models.ErrTimeout.Error())
		events = []models.Event{h.newEventLocked(models.EventWorkflowTimeout, now, nil)}
	}
	h.mu.Unlock()

	h.bus.Emit(events...)
}

func (h *Handle) stopTimersLocked() {
	if h.tickTimer != nil {
		h.tickTimer.Stop()
		h.tickTimer = nil
	}
	if h.watchdog != nil {
		h.watchdog.Stop()
		h.watchdog = nil
	}
}

func (h *Handle) closeDoneLocked() {
	if h.done != nil && !h.doneClosed {
		close(h.done)
		h.doneClosed = true
	}
}

func (h *Handle) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i, step := range h.state.Steps {
		if step.ID == id {
			return i
		}
	}
	return -1
}

func (h *Handle) currentStepLocked() *models.Step {
	if idx := h.indexLocked(h.state.CurrentStepID); idx >= 0 {
		return &h.state.Steps[idx]
	}
	return nil
}

func (h *Handle) tickContextLocked(step *models.Step, next int) *models.TickContext {
	results := make(map[string]any)
	for _, s := range h.state.Steps {
		if s.Status == models.StatusCompleted {
			results[s.ID] = s.Result
		}
	}
	return &models.TickContext{
		WorkflowID: h.state.ID,
		StepID:     step.ID,
		StepName:   step.Name,
		Tick:       step.Ticks,
		Progress:   next,
		Variables:  h.variables,
		Results:    results,
	}
}

func (h *Handle) newEventLocked(t models.EventType, now time.Time, step *models.Step) models.Event {
	h.seq++
	ev := models.Event{
		Type:       t,
		Seq:        h.seq,
		Timestamp:  now,
		WorkflowID: h.state.ID,
		Workflow:   h.name,
		Error:      h.state.Error,
	}
	if step != nil {
		ev.StepID = step.ID
		ev.StepName = step.Name
		ev.Progress = step.Progress
		ev.Duration = step.Duration()
		ev.Result = step.Result
		if step.ErrorMessage != "" {
			ev.Error = step.ErrorMessage
		}
	}
	if t.IsWorkflowEvent() && h.state.StartedAt != nil {
		ev.Duration = now.Sub(*h.state.StartedAt)
	}
	return ev
}
