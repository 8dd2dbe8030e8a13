package diagnostics

import (
	"fmt"
	"sync"
	"time"

	"eyenav/internal/core/activation"
	"eyenav/internal/core/dwell"
	"eyenav/internal/core/model"
)

// Snapshot is a point-in-time copy of the recorder counters.
type Snapshot struct {
	Point      model.Point
	HasPoint   bool
	TargetID   string
	Progress   float64
	Fires      int
	Cancels    int
	Activated  int
	Failures   int
	LastError  string
	LastFireAt time.Time
}

// Recorder collects dwell and activation statistics for the overlay.
type Recorder struct {
	mu       sync.Mutex
	snapshot Snapshot
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Report implements dwell.FeedbackPort.
func (recorder *Recorder) Report(event dwell.Event) {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()

	switch event.Kind {
	case dwell.EventProgress:
		recorder.snapshot.TargetID = event.TargetID()
		recorder.snapshot.Progress = event.Progress
	case dwell.EventCancel:
		recorder.snapshot.Cancels++
		recorder.snapshot.TargetID = ""
		recorder.snapshot.Progress = 0
	case dwell.EventFire:
		recorder.snapshot.Fires++
		recorder.snapshot.LastFireAt = event.At
		recorder.snapshot.TargetID = ""
		recorder.snapshot.Progress = 0
	}
}

// OnActivate implements activation.Observer.
func (recorder *Recorder) OnActivate(activation.Activation) {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	recorder.snapshot.Activated++
}

// RecordFailure counts a failed activation.
func (recorder *Recorder) RecordFailure(failure activation.DispatchError) {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	recorder.snapshot.Failures++
	recorder.snapshot.LastError = failure.Error()
}

// WatchFailures counts failures until the channel is closed.
func (recorder *Recorder) WatchFailures(failures <-chan activation.DispatchError) {
	for failure := range failures {
		recorder.RecordFailure(failure)
	}
}

// SetPoint records the latest smoothed pointer position.
func (recorder *Recorder) SetPoint(point model.Point, ok bool) {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	recorder.snapshot.Point = point
	recorder.snapshot.HasPoint = ok
}

// Snapshot returns a copy of the current counters.
func (recorder *Recorder) Snapshot() Snapshot {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	return recorder.snapshot
}

// StatusLine renders the snapshot for the diagnostics label.
func (snapshot Snapshot) StatusLine() string {
	position := "x:- y:-"
	if snapshot.HasPoint {
		position = fmt.Sprintf("x:%.0f y:%.0f", snapshot.Point.X, snapshot.Point.Y)
	}
	dwelling := "-"
	if snapshot.TargetID != "" {
		dwelling = fmt.Sprintf("%s %d%%", snapshot.TargetID, int(snapshot.Progress*100))
	}
	return fmt.Sprintf("%s | target: %s | fires:%d cancels:%d failures:%d",
		position, dwelling, snapshot.Fires, snapshot.Cancels, snapshot.Failures)
}

var (
	_ dwell.FeedbackPort  = (*Recorder)(nil)
	_ activation.Observer = (*Recorder)(nil)
)
