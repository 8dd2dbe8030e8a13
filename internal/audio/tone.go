package audio

import (
	"math"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
)

// ToneSpec describes the activation cue: a sine that ramps up over Attack and
// fades out until Duration.
type ToneSpec struct {
	Frequency float64
	Duration  time.Duration
	Attack    time.Duration
	Volume    float64
}

// DefaultTone is the 222Hz cue played on every dwell click.
func DefaultTone() ToneSpec {
	return ToneSpec{
		Frequency: 222,
		Duration:  2 * time.Second,
		Attack:    500 * time.Millisecond,
		Volume:    0.6,
	}
}

type sine struct {
	freq     float64
	phase    float64
	position int
	total    int
	rate     beep.SampleRate
}

// NewSine returns a sine streamer of the given length.
func NewSine(freq float64, duration time.Duration, rate beep.SampleRate) beep.Streamer {
	return &sine{freq: freq, total: rate.N(duration), rate: rate}
}

func (s *sine) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if s.position >= s.total {
			return i, i > 0
		}
		value := math.Sin(2 * math.Pi * s.phase)
		samples[i][0] = value
		samples[i][1] = value

		s.phase += s.freq / float64(s.rate)
		s.phase -= math.Floor(s.phase)
		s.position++
	}
	return len(samples), true
}

func (s *sine) Err() error { return nil }

// ramp applies a linear attack then a linear release to the end of the stream.
type ramp struct {
	streamer beep.Streamer
	position int
	attack   int
	total    int
}

// NewRamp shapes s with a linear fade in over attack and fade out to duration.
func NewRamp(s beep.Streamer, duration, attack time.Duration, rate beep.SampleRate) beep.Streamer {
	total := rate.N(duration)
	att := rate.N(attack)
	if att > total {
		att = total
	}
	return &ramp{streamer: s, attack: att, total: total}
}

func (r *ramp) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = r.streamer.Stream(samples)
	for i := 0; i < n; i++ {
		if r.position >= r.total {
			return i, i > 0
		}
		samples[i][0] *= r.gain()
		samples[i][1] *= r.gain()
		r.position++
	}
	return n, ok
}

func (r *ramp) gain() float64 {
	if r.position < r.attack {
		return float64(r.position) / float64(r.attack)
	}
	release := r.total - r.attack
	if release <= 0 {
		return 1
	}
	return float64(r.total-r.position) / float64(release)
}

func (r *ramp) Err() error { return r.streamer.Err() }

// NewTone builds the streamer for spec.
func NewTone(spec ToneSpec, rate beep.SampleRate) beep.Streamer {
	shaped := NewRamp(NewSine(spec.Frequency, spec.Duration, rate), spec.Duration, spec.Attack, rate)
	return withVolume(shaped, spec.Volume)
}

// withVolume scales linearly; zero or less is silent.
func withVolume(s beep.Streamer, volume float64) beep.Streamer {
	if volume <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(volume)}
}
