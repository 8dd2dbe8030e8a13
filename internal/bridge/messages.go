package bridge

import "eyenav/internal/core/model"

const (
	messageHello    = "hello"
	messageGaze     = "gaze"
	messageProgress = "progress"
	messageCancel   = "cancel"
	messageFire     = "fire"
	messageActivate = "activate"
	messageError    = "error"
)

// inboundSample is one gaze sample from a tracker client. Client timestamps
// are not trusted; samples are stamped on arrival.
type inboundSample struct {
	X          *float64 `json:"x"`
	Y          *float64 `json:"y"`
	Normalized bool     `json:"normalized"`
}

type outboundMessage struct {
	Type     string   `json:"type"`
	Client   string   `json:"client,omitempty"`
	Target   string   `json:"target,omitempty"`
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	Progress float64  `json:"progress"`
	At       int64    `json:"at,omitempty"`
	Error    string   `json:"error,omitempty"`
}

type configPayload struct {
	DwellMillis int64   `json:"dwell_ms"`
	OnsetMillis int64   `json:"onset_ms"`
	SnapRadius  float64 `json:"snap_radius"`
	Smoothing   float64 `json:"smoothing"`
	SampleRate  float64 `json:"sample_rate"`
	DeadZone    float64 `json:"dead_zone"`
}

// configPatch updates only the fields present in the request body.
type configPatch struct {
	DwellMillis *int64   `json:"dwell_ms"`
	OnsetMillis *int64   `json:"onset_ms"`
	SnapRadius  *float64 `json:"snap_radius"`
	Smoothing   *float64 `json:"smoothing"`
	SampleRate  *float64 `json:"sample_rate"`
	DeadZone    *float64 `json:"dead_zone"`
}

type errorPayload struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func toPayload(config model.DwellConfig) configPayload {
	return configPayload{
		DwellMillis: config.DwellTime.Milliseconds(),
		OnsetMillis: config.OnsetDelay.Milliseconds(),
		SnapRadius:  config.SnapRadius,
		Smoothing:   config.SmoothingFactor,
		SampleRate:  config.SampleRate,
		DeadZone:    config.DeadZone,
	}
}

// apply overlays the patch on config. Millisecond values a Duration cannot
// hold are rejected before validation sees a wrapped value.
func (patch configPatch) apply(config model.DwellConfig) (model.DwellConfig, error) {
	if patch.DwellMillis != nil {
		dwell, ok := model.DurationFromMillis(*patch.DwellMillis)
		if !ok {
			return config, &model.ConfigurationError{Field: "dwell_time", Value: *patch.DwellMillis, Reason: "milliseconds out of range"}
		}
		config.DwellTime = dwell
	}
	if patch.OnsetMillis != nil {
		onset, ok := model.DurationFromMillis(*patch.OnsetMillis)
		if !ok {
			return config, &model.ConfigurationError{Field: "onset_delay", Value: *patch.OnsetMillis, Reason: "milliseconds out of range"}
		}
		config.OnsetDelay = onset
	}
	if patch.SnapRadius != nil {
		config.SnapRadius = *patch.SnapRadius
	}
	if patch.Smoothing != nil {
		config.SmoothingFactor = *patch.Smoothing
	}
	if patch.SampleRate != nil {
		config.SampleRate = *patch.SampleRate
	}
	if patch.DeadZone != nil {
		config.DeadZone = *patch.DeadZone
	}
	return config, nil
}
