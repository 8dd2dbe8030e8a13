package dwell

import (
	"sync"
	"time"

	"eyenav/internal/core/target"
)

// Phase represents the dwell state machine mode.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseArming   Phase = "arming"
	PhaseDwelling Phase = "dwelling"
)

// EventKind defines the type of feedback event.
type EventKind string

const (
	EventProgress EventKind = "progress"
	EventCancel   EventKind = "cancel"
	EventFire     EventKind = "fire"
)

// Event is a dwell update for rendering and diagnostics.
type Event struct {
	Kind     EventKind
	Target   target.Candidate
	Progress float64
	At       time.Time
}

// TargetID returns the id of the event target, or "" when there is none.
func (event Event) TargetID() string {
	if event.Target == nil {
		return ""
	}
	return event.Target.ID()
}

// FeedbackPort receives the engine's event sequence.
// Implementations must return quickly; they run inside the tick.
type FeedbackPort interface {
	Report(Event)
}

// FeedbackFunc adapts a function to FeedbackPort.
type FeedbackFunc func(Event)

// Report calls the function.
func (fn FeedbackFunc) Report(event Event) {
	fn(event)
}

// MultiPort fans events out to every registered port in registration order.
type MultiPort struct {
	mu    sync.RWMutex
	ports []FeedbackPort
}

// Add registers a port.
func (multi *MultiPort) Add(port FeedbackPort) {
	if port == nil {
		return
	}
	multi.mu.Lock()
	defer multi.mu.Unlock()
	multi.ports = append(multi.ports, port)
}

// Report forwards the event.
func (multi *MultiPort) Report(event Event) {
	multi.mu.RLock()
	ports := append([]FeedbackPort(nil), multi.ports...)
	multi.mu.RUnlock()
	for _, port := range ports {
		port.Report(event)
	}
}
