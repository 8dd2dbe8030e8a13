package activation

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"eyenav/internal/core/target"

	"go.uber.org/zap"
)

// ErrNilTarget is returned when Dispatch is called without a target.
var ErrNilTarget = errors.New("dispatch: nil target")

// DispatchError reports a failed activation of a target.
type DispatchError struct {
	Target target.Candidate
	Cause  error
	At     time.Time
}

func (err *DispatchError) Error() string {
	id := "<nil>"
	if err.Target != nil {
		id = err.Target.ID()
	}
	return fmt.Sprintf("activate %s: %v", id, err.Cause)
}

func (err *DispatchError) Unwrap() error {
	return err.Cause
}

// Activation describes a successful dwell click.
type Activation struct {
	Target target.Candidate
	At     time.Time
}

// Observer is notified after each successful activation.
// Observers run on the dispatching goroutine and must not block.
type Observer interface {
	OnActivate(Activation)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Activation)

// OnActivate calls the function.
func (fn ObserverFunc) OnActivate(activation Activation) {
	fn(activation)
}

// Dispatcher activates targets and notifies observers.
// It never panics back into the caller and never retries.
type Dispatcher struct {
	mu        sync.Mutex
	observers []Observer
	failures  []chan DispatchError
	logger    *zap.Logger
	now       func() time.Time
}

// NewDispatcher creates a dispatcher. A nil logger discards logs.
func NewDispatcher(logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		logger: logger.Named("dispatch"),
		now:    time.Now,
	}
}

// AddObserver registers a post-activation observer.
func (dispatcher *Dispatcher) AddObserver(observer Observer) {
	if observer == nil {
		return
	}
	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	dispatcher.observers = append(dispatcher.observers, observer)
}

// SubscribeFailures registers a channel that receives dispatch failures.
// Slow subscribers miss failures rather than block the dispatcher.
func (dispatcher *Dispatcher) SubscribeFailures(buffer int) <-chan DispatchError {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan DispatchError, buffer)
	dispatcher.mu.Lock()
	dispatcher.failures = append(dispatcher.failures, ch)
	dispatcher.mu.Unlock()
	return ch
}

// Close closes every failure subscription.
func (dispatcher *Dispatcher) Close() {
	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	for _, ch := range dispatcher.failures {
		close(ch)
	}
	dispatcher.failures = nil
}

// Dispatch activates the target. Failures are returned as *DispatchError and
// also published to failure subscribers.
func (dispatcher *Dispatcher) Dispatch(candidate target.Candidate) error {
	now := dispatcher.now()
	if candidate == nil {
		return dispatcher.fail(&DispatchError{Cause: ErrNilTarget, At: now})
	}

	if err := activate(candidate); err != nil {
		return dispatcher.fail(&DispatchError{Target: candidate, Cause: err, At: now})
	}

	dispatcher.logger.Info("dwell click", zap.String("target", candidate.ID()))
	dispatcher.notify(Activation{Target: candidate, At: now})
	return nil
}

func activate(candidate target.Candidate) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("activation panic: %v", recovered)
		}
	}()
	return candidate.Activate()
}

func (dispatcher *Dispatcher) fail(dispatchErr *DispatchError) error {
	dispatcher.logger.Warn("dwell click failed", zap.Error(dispatchErr))

	dispatcher.emitFailure(*dispatchErr)
	return dispatchErr
}

func (dispatcher *Dispatcher) emitFailure(failure DispatchError) {
	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	for _, ch := range dispatcher.failures {
		select {
		case ch <- failure:
		default:
		}
	}
}

func (dispatcher *Dispatcher) notify(activation Activation) {
	dispatcher.mu.Lock()
	observers := append([]Observer(nil), dispatcher.observers...)
	dispatcher.mu.Unlock()

	for _, observer := range observers {
		dispatcher.notifyOne(observer, activation)
	}
}

func (dispatcher *Dispatcher) notifyOne(observer Observer, activation Activation) {
	defer func() {
		if recovered := recover(); recovered != nil {
			dispatcher.logger.Error("activation observer panic", zap.Any("panic", recovered))
		}
	}()
	observer.OnActivate(activation)
}
