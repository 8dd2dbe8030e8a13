package gaze

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"eyenav/internal/core/model"
)

var (
	// ErrInvalidSample indicates a sample with a non-finite coordinate.
	ErrInvalidSample = errors.New("invalid gaze sample")
	// ErrRateLimited indicates a sample arrived before the sampling interval elapsed.
	ErrRateLimited = errors.New("gaze sample rate limited")
)

// Sample is a single gaze observation.
// Normalized samples carry coordinates in [0,1] and are rescaled to the viewport.
type Sample struct {
	X          float64
	Y          float64
	At         time.Time
	Normalized bool
}

// Sampler rate-limits and smooths raw gaze samples into viewport points.
// Samples are coalesced: only the latest accepted one influences CurrentPoint.
type Sampler struct {
	mu           sync.Mutex
	config       model.DwellConfig
	width        float64
	height       float64
	smoothed     model.Point
	seeded       bool
	valid        bool
	lastAccepted time.Time
}

// NewSampler creates a sampler using the smoothing and rate settings of config.
func NewSampler(config model.DwellConfig) *Sampler {
	return &Sampler{config: config}
}

// SetConfig replaces the smoothing and rate settings.
func (sampler *Sampler) SetConfig(config model.DwellConfig) {
	sampler.mu.Lock()
	defer sampler.mu.Unlock()
	sampler.config = config
}

// SetViewport sets the size used for rescaling and clamping.
// A zero size disables clamping and normalized samples are rejected.
func (sampler *Sampler) SetViewport(width, height float64) {
	sampler.mu.Lock()
	defer sampler.mu.Unlock()
	sampler.width = math.Max(0, width)
	sampler.height = math.Max(0, height)
}

// Ingest offers a raw sample to the sampler.
func (sampler *Sampler) Ingest(sample Sample) error {
	sampler.mu.Lock()
	defer sampler.mu.Unlock()

	raw := model.Point{X: sample.X, Y: sample.Y}
	if !raw.Finite() {
		sampler.valid = false
		return fmt.Errorf("%w: (%v, %v)", ErrInvalidSample, sample.X, sample.Y)
	}
	if sample.Normalized {
		if sampler.width <= 0 || sampler.height <= 0 {
			sampler.valid = false
			return fmt.Errorf("%w: normalized sample without viewport", ErrInvalidSample)
		}
		raw.X *= sampler.width
		raw.Y *= sampler.height
	}

	if !sampler.lastAccepted.IsZero() && sample.At.Sub(sampler.lastAccepted) < sampler.config.SampleInterval() {
		return ErrRateLimited
	}
	sampler.lastAccepted = sample.At
	sampler.valid = true

	raw = sampler.clampLocked(raw)
	if !sampler.seeded {
		sampler.smoothed = raw
		sampler.seeded = true
		return nil
	}
	if sampler.config.DeadZone > 0 && math.Hypot(raw.X-sampler.smoothed.X, raw.Y-sampler.smoothed.Y) < sampler.config.DeadZone {
		return nil
	}

	alpha := sampler.config.SmoothingFactor
	sampler.smoothed = model.Point{
		X: (1-alpha)*sampler.smoothed.X + alpha*raw.X,
		Y: (1-alpha)*sampler.smoothed.Y + alpha*raw.Y,
	}
	return nil
}

// CurrentPoint returns the smoothed point, or false when the latest sample was
// invalid or nothing has been accepted yet.
func (sampler *Sampler) CurrentPoint() (model.Point, bool) {
	sampler.mu.Lock()
	defer sampler.mu.Unlock()
	if !sampler.valid {
		return model.Point{}, false
	}
	return sampler.smoothed, true
}

// LastAccepted returns the timestamp of the last accepted sample.
func (sampler *Sampler) LastAccepted() time.Time {
	sampler.mu.Lock()
	defer sampler.mu.Unlock()
	return sampler.lastAccepted
}

// Reset drops smoothing and rate-limit state.
func (sampler *Sampler) Reset() {
	sampler.mu.Lock()
	defer sampler.mu.Unlock()
	sampler.smoothed = model.Point{}
	sampler.seeded = false
	sampler.valid = false
	sampler.lastAccepted = time.Time{}
}

func (sampler *Sampler) clampLocked(point model.Point) model.Point {
	if sampler.width <= 0 || sampler.height <= 0 {
		return point
	}
	point.X = math.Min(math.Max(point.X, 0), sampler.width)
	point.Y = math.Min(math.Max(point.Y, 0), sampler.height)
	return point
}
