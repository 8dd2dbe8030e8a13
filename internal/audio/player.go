package audio

import (
	"sync"
	"time"

	"eyenav/internal/core/activation"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"go.uber.org/zap"
)

const sampleRate = beep.SampleRate(44100)

// Output plays streamers. The default implementation is the system speaker.
type Output interface {
	Init(rate beep.SampleRate, bufferSize int) error
	Play(streamers ...beep.Streamer)
}

type speakerOutput struct{}

func (speakerOutput) Init(rate beep.SampleRate, bufferSize int) error {
	return speaker.Init(rate, bufferSize)
}

func (speakerOutput) Play(streamers ...beep.Streamer) {
	speaker.Play(streamers...)
}

// Player plays the activation cue. It is an activation observer.
type Player struct {
	mu          sync.Mutex
	output      Output
	spec        ToneSpec
	enabled     bool
	initialized bool
	failed      bool
	logger      *zap.Logger
}

// NewPlayer creates a player on the system speaker. The speaker is opened lazily.
func NewPlayer(spec ToneSpec, logger *zap.Logger) *Player {
	return NewPlayerWithOutput(spec, speakerOutput{}, logger)
}

// NewPlayerWithOutput creates a player on a custom output.
func NewPlayerWithOutput(spec ToneSpec, output Output, logger *zap.Logger) *Player {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Player{
		output:  output,
		spec:    spec,
		enabled: true,
		logger:  logger.Named("audio"),
	}
}

// SetEnabled toggles the cue.
func (player *Player) SetEnabled(enabled bool) {
	player.mu.Lock()
	defer player.mu.Unlock()
	player.enabled = enabled
}

// SetVolume sets the linear volume in [0,1].
func (player *Player) SetVolume(volume float64) {
	player.mu.Lock()
	defer player.mu.Unlock()
	player.spec.Volume = volume
}

// OnActivate plays the cue without waiting for it to finish.
func (player *Player) OnActivate(activation.Activation) {
	player.Play()
}

// Play starts the cue. Audio failures disable the player and are logged once.
func (player *Player) Play() {
	player.mu.Lock()
	defer player.mu.Unlock()
	if !player.enabled || player.failed {
		return
	}
	if !player.initialized {
		if err := player.output.Init(sampleRate, sampleRate.N(100*time.Millisecond)); err != nil {
			// Clicks keep working without sound.
			player.failed = true
			player.logger.Warn("audio init failed", zap.Error(err))
			return
		}
		player.initialized = true
	}
	player.output.Play(NewTone(player.spec, sampleRate))
}

var _ activation.Observer = (*Player)(nil)
