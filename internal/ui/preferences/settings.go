package preferences

import (
	"strings"
	"time"

	"eyenav/internal/core/model"
)

// Settings defines editable user preferences.
type Settings struct {
	DwellTime  time.Duration
	OnsetDelay time.Duration
	SnapRadius float64
	Smoothing  float64
	SampleRate float64
	DeadZone   float64

	SoundEnabled bool
	Volume       float64
	Diagnostics  bool

	BridgeEnabled bool
	BridgeAddress string
	// BridgeOrigins are browser origins allowed to reach the bridge.
	BridgeOrigins []string
	LogLevel      string
}

// DefaultSettings returns default settings for EyeNav.
func DefaultSettings() Settings {
	dwell := model.DefaultDwellConfig()
	return Settings{
		DwellTime:     dwell.DwellTime,
		OnsetDelay:    dwell.OnsetDelay,
		SnapRadius:    dwell.SnapRadius,
		Smoothing:     dwell.SmoothingFactor,
		SampleRate:    dwell.SampleRate,
		DeadZone:      dwell.DeadZone,
		SoundEnabled:  true,
		Volume:        0.6,
		Diagnostics:   false,
		BridgeEnabled: false,
		BridgeAddress: "127.0.0.1:8787",
		LogLevel:      "info",
	}
}

// ParseOrigins splits a comma or whitespace separated origin list. Empty
// entries and trailing slashes are dropped; nil means no browser origin.
func ParseOrigins(text string) []string {
	var origins []string
	for _, field := range strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	}) {
		if origin := strings.TrimRight(field, "/"); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// DwellConfig converts settings to the runtime dwell configuration.
func (settings Settings) DwellConfig() model.DwellConfig {
	return model.DwellConfig{
		DwellTime:       settings.DwellTime,
		OnsetDelay:      settings.OnsetDelay,
		SnapRadius:      settings.SnapRadius,
		SmoothingFactor: settings.Smoothing,
		SampleRate:      settings.SampleRate,
		DeadZone:        settings.DeadZone,
	}
}
