package model

import (
	"fmt"
	"math"
	"time"
)

// DwellConfig contains runtime settings for the dwell-activation pipeline.
type DwellConfig struct {
	DwellTime       time.Duration
	OnsetDelay      time.Duration
	SnapRadius      float64
	SmoothingFactor float64
	SampleRate      float64
	DeadZone        float64
}

// DefaultDwellConfig returns the values EyeNav ships with.
func DefaultDwellConfig() DwellConfig {
	return DwellConfig{
		DwellTime:       800 * time.Millisecond,
		OnsetDelay:      300 * time.Millisecond,
		SnapRadius:      60,
		SmoothingFactor: 0.3,
		SampleRate:      30,
	}
}

// ConfigurationError reports an out-of-domain configuration value.
type ConfigurationError struct {
	Field  string
	Value  any
	Reason string
}

func (err *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s (%v): %s", err.Field, err.Value, err.Reason)
}

// Validate checks every field against its domain.
func (config DwellConfig) Validate() error {
	if config.DwellTime <= 0 {
		return &ConfigurationError{Field: "dwell_time", Value: config.DwellTime, Reason: "must be positive"}
	}
	if config.OnsetDelay < 0 {
		return &ConfigurationError{Field: "onset_delay", Value: config.OnsetDelay, Reason: "must not be negative"}
	}
	if !(config.SnapRadius > 0) || math.IsInf(config.SnapRadius, 0) {
		return &ConfigurationError{Field: "snap_radius", Value: config.SnapRadius, Reason: "must be a positive finite number"}
	}
	if !(config.SmoothingFactor > 0 && config.SmoothingFactor <= 1) {
		return &ConfigurationError{Field: "smoothing_factor", Value: config.SmoothingFactor, Reason: "must be in (0, 1]"}
	}
	if !(config.SampleRate > 0) || math.IsInf(config.SampleRate, 0) {
		return &ConfigurationError{Field: "sample_rate", Value: config.SampleRate, Reason: "must be a positive finite number"}
	}
	if !(config.DeadZone >= 0) || math.IsInf(config.DeadZone, 0) {
		return &ConfigurationError{Field: "dead_zone", Value: config.DeadZone, Reason: "must be a non-negative finite number"}
	}
	return nil
}

// SampleInterval is the minimum spacing between accepted gaze samples.
func (config DwellConfig) SampleInterval() time.Duration {
	if config.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / config.SampleRate)
}

// MaxMillis is the largest millisecond count a time.Duration can hold.
const MaxMillis = math.MaxInt64 / int64(time.Millisecond)

// DurationFromMillis converts a millisecond count to a Duration. It reports
// false for negative counts and counts that would overflow.
func DurationFromMillis(ms int64) (time.Duration, bool) {
	if ms < 0 || ms > MaxMillis {
		return 0, false
	}
	return time.Duration(ms) * time.Millisecond, true
}
