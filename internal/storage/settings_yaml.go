package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"eyenav/internal/core/model"
	"eyenav/internal/platform"
	"eyenav/internal/ui/preferences"

	"gopkg.in/yaml.v3"
)

const settingsFileName = "settings.yaml"

type yamlSettings struct {
	DwellTimeMs   int64    `yaml:"dwell_time_ms"`
	OnsetDelayMs  *int64   `yaml:"onset_delay_ms"`
	SnapRadiusPx  float64  `yaml:"snap_radius_px"`
	Smoothing     float64  `yaml:"smoothing"`
	SampleRateHz  float64  `yaml:"sample_rate_hz"`
	DeadZonePx    float64  `yaml:"dead_zone_px"`
	SoundEnabled  *bool    `yaml:"sound_enabled"`
	Volume        *float64 `yaml:"volume"`
	Diagnostics   bool     `yaml:"diagnostics"`
	BridgeEnabled bool     `yaml:"bridge_enabled"`
	BridgeAddress string   `yaml:"bridge_address"`
	BridgeOrigins []string `yaml:"bridge_origins,omitempty"`
	LogLevel      string   `yaml:"log_level"`
}

// Store reads and writes settings in a YAML file.
type Store struct {
	path string
}

// NewStore returns a store for <config dir>/<appName>/settings.yaml.
func NewStore(appName string, service platform.Service) (*Store, error) {
	if service == nil {
		service = platform.NewService()
	}
	configDir, err := service.GetConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolve settings path: %w", err)
	}
	return &Store{path: filepath.Join(configDir, appName, settingsFileName)}, nil
}

// NewFileStore returns a store for an explicit file path.
func NewFileStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the settings file location.
func (store *Store) Path() string {
	return store.path
}

// Load reads user preferences from YAML.
// If the file does not exist, default settings are returned.
func (store *Store) Load() (preferences.Settings, error) {
	settings := preferences.DefaultSettings()

	rawData, err := os.ReadFile(store.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return settings, fmt.Errorf("read settings file: %w", err)
	}

	var fileData yamlSettings
	if err := yaml.Unmarshal(rawData, &fileData); err != nil {
		return settings, fmt.Errorf("parse settings yaml: %w", err)
	}

	applyYamlSettings(&settings, fileData)
	return settings, nil
}

// Save writes user preferences to YAML.
func (store *Store) Save(settings preferences.Settings) error {
	if err := os.MkdirAll(filepath.Dir(store.path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	onset := settings.OnsetDelay.Milliseconds()
	sound := settings.SoundEnabled
	volume := settings.Volume
	fileData := yamlSettings{
		DwellTimeMs:   settings.DwellTime.Milliseconds(),
		OnsetDelayMs:  &onset,
		SnapRadiusPx:  settings.SnapRadius,
		Smoothing:     settings.Smoothing,
		SampleRateHz:  settings.SampleRate,
		DeadZonePx:    settings.DeadZone,
		SoundEnabled:  &sound,
		Volume:        &volume,
		Diagnostics:   settings.Diagnostics,
		BridgeEnabled: settings.BridgeEnabled,
		BridgeAddress: settings.BridgeAddress,
		BridgeOrigins: settings.BridgeOrigins,
		LogLevel:      settings.LogLevel,
	}

	serialized, err := yaml.Marshal(fileData)
	if err != nil {
		return fmt.Errorf("marshal settings yaml: %w", err)
	}

	if err := os.WriteFile(store.path, serialized, 0o644); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}
	return nil
}

// Reset removes the settings file and returns the defaults.
func (store *Store) Reset() (preferences.Settings, error) {
	if err := os.Remove(store.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return preferences.DefaultSettings(), fmt.Errorf("remove settings file: %w", err)
	}
	return preferences.DefaultSettings(), nil
}

// applyYamlSettings copies values that are inside their domain; anything else
// keeps the default.
func applyYamlSettings(settings *preferences.Settings, fileData yamlSettings) {
	if dwell, ok := model.DurationFromMillis(fileData.DwellTimeMs); ok && dwell > 0 {
		settings.DwellTime = dwell
	}
	if fileData.OnsetDelayMs != nil {
		if onset, ok := model.DurationFromMillis(*fileData.OnsetDelayMs); ok {
			settings.OnsetDelay = onset
		}
	}
	if fileData.SnapRadiusPx > 0 {
		settings.SnapRadius = fileData.SnapRadiusPx
	}
	if fileData.Smoothing > 0 && fileData.Smoothing <= 1 {
		settings.Smoothing = fileData.Smoothing
	}
	if fileData.SampleRateHz > 0 {
		settings.SampleRate = fileData.SampleRateHz
	}
	if fileData.DeadZonePx >= 0 {
		settings.DeadZone = fileData.DeadZonePx
	}
	if fileData.SoundEnabled != nil {
		settings.SoundEnabled = *fileData.SoundEnabled
	}
	if fileData.Volume != nil && *fileData.Volume >= 0 && *fileData.Volume <= 1 {
		settings.Volume = *fileData.Volume
	}
	if address := strings.TrimSpace(fileData.BridgeAddress); address != "" {
		settings.BridgeAddress = address
	}
	if origins := preferences.ParseOrigins(strings.Join(fileData.BridgeOrigins, ",")); origins != nil {
		settings.BridgeOrigins = origins
	}
	if level := strings.TrimSpace(fileData.LogLevel); level != "" {
		settings.LogLevel = level
	}

	settings.Diagnostics = fileData.Diagnostics
	settings.BridgeEnabled = fileData.BridgeEnabled
}
