package dwell

import (
	"sync"
	"time"

	"eyenav/internal/core/model"
	"eyenav/internal/core/target"
)

// State is a snapshot of the dwell state machine.
type State struct {
	Phase         Phase
	Target        target.Candidate
	OnsetDeadline time.Time
	DwellStart    time.Time
	Progress      float64
}

// Outcome is the result of one evaluation.
// Fired is set on the tick the dwell completed; the caller dispatches it.
type Outcome struct {
	State State
	Fired target.Candidate
}

// Engine is the dwell state machine.
// It holds no clock: every transition is driven by Evaluate with the tick time.
type Engine struct {
	mu       sync.Mutex
	config   model.DwellConfig
	state    State
	feedback FeedbackPort
}

// NewEngine creates an idle engine. A nil feedback port discards events.
func NewEngine(config model.DwellConfig, feedback FeedbackPort) *Engine {
	if feedback == nil {
		feedback = FeedbackFunc(func(Event) {})
	}
	return &Engine{
		config:   config,
		state:    State{Phase: PhaseIdle},
		feedback: feedback,
	}
}

// SetConfig validates and installs a new configuration for the next tick.
// An invalid configuration is rejected and the previous one stays active.
func (engine *Engine) SetConfig(config model.DwellConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}
	engine.mu.Lock()
	defer engine.mu.Unlock()
	engine.config = config
	return nil
}

// Config returns the active configuration.
func (engine *Engine) Config() model.DwellConfig {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.config
}

// Snapshot returns the current state.
func (engine *Engine) Snapshot() State {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.state
}

// Evaluate advances the state machine with the target resolved for this tick.
func (engine *Engine) Evaluate(resolved target.Candidate, now time.Time) Outcome {
	engine.mu.Lock()
	defer engine.mu.Unlock()

	if engine.state.Phase != PhaseIdle && !target.Same(resolved, engine.state.Target) {
		engine.cancelLocked(now)
	}
	if resolved == nil {
		return Outcome{State: engine.state}
	}

	if engine.state.Phase == PhaseIdle {
		engine.state = State{
			Phase:         PhaseArming,
			Target:        resolved,
			OnsetDeadline: now.Add(engine.config.OnsetDelay),
		}
		return Outcome{State: engine.state}
	}

	// Keep the freshest handle; ids are equal but bounds may have moved.
	engine.state.Target = resolved

	if engine.state.Phase == PhaseArming {
		if !now.After(engine.state.OnsetDeadline) {
			return Outcome{State: engine.state}
		}
		engine.state.Phase = PhaseDwelling
		engine.state.DwellStart = engine.state.OnsetDeadline
	}

	progress := float64(now.Sub(engine.state.DwellStart)) / float64(engine.config.DwellTime)
	if progress > 1 {
		progress = 1
	}
	if progress < engine.state.Progress {
		progress = engine.state.Progress
	}
	engine.state.Progress = progress
	engine.feedback.Report(Event{
		Kind:     EventProgress,
		Target:   resolved,
		Progress: progress,
		At:       now,
	})
	if progress < 1 {
		return Outcome{State: engine.state}
	}

	engine.feedback.Report(Event{
		Kind:     EventFire,
		Target:   resolved,
		Progress: 1,
		At:       now,
	})
	engine.state = State{Phase: PhaseIdle}
	return Outcome{State: engine.state, Fired: resolved}
}

// Reset cancels any attempt in progress and returns to idle.
func (engine *Engine) Reset(now time.Time) {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.state.Phase != PhaseIdle {
		engine.cancelLocked(now)
	}
}

func (engine *Engine) cancelLocked(now time.Time) {
	engine.feedback.Report(Event{
		Kind:     EventCancel,
		Target:   engine.state.Target,
		Progress: engine.state.Progress,
		At:       now,
	})
	engine.state = State{Phase: PhaseIdle}
}
