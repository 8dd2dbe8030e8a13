package pointer

import (
	"errors"
	"sync"
	"time"

	"eyenav/internal/core/activation"
	"eyenav/internal/core/dwell"
	"eyenav/internal/core/gaze"
	"eyenav/internal/core/model"
	"eyenav/internal/core/target"

	"go.uber.org/zap"
)

// Dispatcher activates fired targets.
type Dispatcher interface {
	Dispatch(target.Candidate) error
}

// Options contains runtime options for the Controller.
type Options struct {
	TickInterval time.Duration
	// StaleAfter is how old the last accepted sample may be before the
	// pointer is treated as lost. Zero disables the check.
	StaleAfter time.Duration
	// OnStall is called once each time the gaze source goes stale.
	OnStall func(since time.Duration)
}

const (
	defaultTickInterval = 16 * time.Millisecond
	defaultStaleAfter   = 5 * time.Second
)

// DefaultOptions returns a 60Hz tick with a five second stall watchdog.
func DefaultOptions() Options {
	return Options{
		TickInterval: defaultTickInterval,
		StaleAfter:   defaultStaleAfter,
	}
}

// Controller drives the dwell pipeline for one pointer stream:
// sampler point, target resolution, dwell evaluation, dispatch.
type Controller struct {
	mu         sync.Mutex
	options    Options
	config     model.DwellConfig
	sampler    *gaze.Sampler
	resolver   *target.Resolver
	engine     *dwell.Engine
	provider   target.Provider
	dispatcher Dispatcher
	feedback   dwell.MultiPort
	events     []chan dwell.Event
	pending    []dwell.Event
	logger     *zap.Logger
	stopCh     chan struct{}
	doneCh     chan struct{}
	running    bool
	paused     bool
	stalled    bool
}

// New creates a Controller. The configuration must be valid.
func New(config model.DwellConfig, options Options, provider target.Provider, dispatcher Dispatcher, logger *zap.Logger) (*Controller, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, errors.New("pointer: candidate provider is required")
	}
	if options.TickInterval <= 0 {
		options.TickInterval = defaultTickInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	controller := &Controller{
		options:    options,
		config:     config,
		sampler:    gaze.NewSampler(config),
		resolver:   target.NewResolver(config.SnapRadius),
		provider:   provider,
		dispatcher: dispatcher,
		logger:     logger.Named("pointer"),
		stopCh:     make(chan struct{}),
	}
	controller.engine = dwell.NewEngine(config, dwell.FeedbackFunc(controller.report))
	return controller, nil
}

// AddFeedback registers an additional feedback port.
// Ports run on the ticking goroutine after the controller lock is released,
// so they may query the controller. They must not block.
func (controller *Controller) AddFeedback(port dwell.FeedbackPort) {
	controller.feedback.Add(port)
}

// Subscribe registers a new observer channel for dwell events.
func (controller *Controller) Subscribe(buffer int) <-chan dwell.Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan dwell.Event, buffer)
	controller.mu.Lock()
	controller.events = append(controller.events, ch)
	controller.mu.Unlock()
	return ch
}

// Ingest offers a raw gaze sample. Safe to call from any goroutine.
func (controller *Controller) Ingest(sample gaze.Sample) error {
	if sample.At.IsZero() {
		sample.At = time.Now()
	}
	err := controller.sampler.Ingest(sample)
	if errors.Is(err, gaze.ErrInvalidSample) {
		controller.logger.Debug("gaze sample dropped", zap.Error(err))
	}
	return err
}

// CurrentPoint returns the latest smoothed gaze point.
func (controller *Controller) CurrentPoint() (model.Point, bool) {
	return controller.sampler.CurrentPoint()
}

// SetViewport updates the viewport used for normalized samples and clamping.
func (controller *Controller) SetViewport(width, height float64) {
	controller.sampler.SetViewport(width, height)
}

// Config returns the active dwell configuration.
func (controller *Controller) Config() model.DwellConfig {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	return controller.config
}

// UpdateConfig installs a new configuration from the next tick on.
// An invalid configuration is rejected and the previous one stays active.
func (controller *Controller) UpdateConfig(config model.DwellConfig) error {
	if err := config.Validate(); err != nil {
		controller.logger.Warn("configuration rejected", zap.Error(err))
		return err
	}
	controller.mu.Lock()
	defer controller.mu.Unlock()
	if err := controller.engine.SetConfig(config); err != nil {
		return err
	}
	controller.sampler.SetConfig(config)
	controller.resolver.SetSnapRadius(config.SnapRadius)
	controller.config = config
	return nil
}

// State returns a snapshot of the dwell state.
func (controller *Controller) State() dwell.State {
	return controller.engine.Snapshot()
}

// Start launches the ticking loop.
func (controller *Controller) Start() {
	controller.mu.Lock()
	if controller.running {
		controller.mu.Unlock()
		return
	}
	controller.running = true
	controller.stopCh = make(chan struct{})
	controller.doneCh = make(chan struct{})
	stopCh, doneCh := controller.stopCh, controller.doneCh
	controller.mu.Unlock()

	go controller.run(stopCh, doneCh)
}

// Stop terminates the ticking loop, waits for the tick in flight and closes
// observers. It must not be called from a feedback port or activation handler.
func (controller *Controller) Stop() {
	controller.mu.Lock()
	if !controller.running {
		controller.mu.Unlock()
		return
	}
	close(controller.stopCh)
	controller.running = false
	doneCh := controller.doneCh
	controller.mu.Unlock()

	<-doneCh

	controller.mu.Lock()
	events := controller.events
	controller.events = nil
	controller.mu.Unlock()
	for _, ch := range events {
		close(ch)
	}
}

// Pause cancels any dwell in progress and ignores ticks until Resume.
func (controller *Controller) Pause() {
	controller.mu.Lock()
	if controller.paused {
		controller.mu.Unlock()
		return
	}
	controller.paused = true
	controller.engine.Reset(time.Now())
	events := controller.takePendingLocked()
	controller.mu.Unlock()

	controller.publish(events)
}

// Resume re-enables dwell evaluation.
func (controller *Controller) Resume() {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	controller.paused = false
}

// Paused reports whether dwell evaluation is paused.
func (controller *Controller) Paused() bool {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	return controller.paused
}

// Stalled reports whether the gaze source went quiet for longer than StaleAfter.
func (controller *Controller) Stalled() bool {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	return controller.stalled
}

func (controller *Controller) run(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)
	ticker := time.NewTicker(controller.options.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case tickTime := <-ticker.C:
			controller.Tick(tickTime)
		}
	}
}

// Tick runs one evaluation using the freshest sampler point.
// Hosts that own a frame clock may call it directly instead of Start.
func (controller *Controller) Tick(now time.Time) dwell.Outcome {
	candidates := controller.provider.ListCandidates()

	controller.mu.Lock()
	if controller.paused {
		state := controller.engine.Snapshot()
		controller.mu.Unlock()
		return dwell.Outcome{State: state}
	}

	var resolved target.Candidate
	if point, ok := controller.freshPointLocked(now); ok {
		resolved = controller.resolver.Resolve(point, candidates)
	}
	outcome := controller.engine.Evaluate(resolved, now)
	events := controller.takePendingLocked()
	controller.mu.Unlock()

	controller.publish(events)

	// Activation handlers may call back into the controller.
	if outcome.Fired != nil && controller.dispatcher != nil {
		_ = controller.dispatcher.Dispatch(outcome.Fired)
	}
	return outcome
}

func (controller *Controller) freshPointLocked(now time.Time) (model.Point, bool) {
	point, ok := controller.sampler.CurrentPoint()
	if !ok {
		return model.Point{}, false
	}
	if controller.options.StaleAfter <= 0 {
		return point, true
	}

	age := now.Sub(controller.sampler.LastAccepted())
	if age <= controller.options.StaleAfter {
		controller.stalled = false
		return point, true
	}
	if !controller.stalled {
		controller.stalled = true
		controller.logger.Warn("gaze source stalled", zap.Duration("since", age))
		if controller.options.OnStall != nil {
			go controller.options.OnStall(age)
		}
	}
	return model.Point{}, false
}

// report runs under controller.mu via the engine; events are queued and
// published once the lock is released.
func (controller *Controller) report(event dwell.Event) {
	controller.pending = append(controller.pending, event)
}

func (controller *Controller) takePendingLocked() []dwell.Event {
	events := controller.pending
	controller.pending = nil
	return events
}

func (controller *Controller) publish(events []dwell.Event) {
	if len(events) == 0 {
		return
	}
	controller.mu.Lock()
	for _, event := range events {
		controller.emitLocked(event)
	}
	controller.mu.Unlock()

	for _, event := range events {
		controller.feedback.Report(event)
	}
}

func (controller *Controller) emitLocked(event dwell.Event) {
	for _, ch := range controller.events {
		select {
		case ch <- event:
		default:
		}
	}
}

var _ Dispatcher = (*activation.Dispatcher)(nil)
