package model

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDwellConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultDwellConfig().Validate())
}

func TestValidateRejectsOutOfDomainValues(t *testing.T) {
	cases := map[string]func(*DwellConfig){
		"dwell_time":       func(c *DwellConfig) { c.DwellTime = 0 },
		"onset_delay":      func(c *DwellConfig) { c.OnsetDelay = -time.Millisecond },
		"snap_radius":      func(c *DwellConfig) { c.SnapRadius = 0 },
		"smoothing_factor": func(c *DwellConfig) { c.SmoothingFactor = 1.5 },
		"sample_rate":      func(c *DwellConfig) { c.SampleRate = math.NaN() },
		"dead_zone":        func(c *DwellConfig) { c.DeadZone = -1 },
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			config := DefaultDwellConfig()
			mutate(&config)

			err := config.Validate()
			var configErr *ConfigurationError
			require.True(t, errors.As(err, &configErr))
			assert.Equal(t, field, configErr.Field)
		})
	}
}

func TestValidateAcceptsBoundaryValues(t *testing.T) {
	config := DefaultDwellConfig()
	config.OnsetDelay = 0
	config.SmoothingFactor = 1
	config.DeadZone = 0
	assert.NoError(t, config.Validate())
}

func TestSampleInterval(t *testing.T) {
	config := DefaultDwellConfig()
	config.SampleRate = 50
	assert.Equal(t, 20*time.Millisecond, config.SampleInterval())
}

func TestDurationFromMillis(t *testing.T) {
	duration, ok := DurationFromMillis(800)
	assert.True(t, ok)
	assert.Equal(t, 800*time.Millisecond, duration)

	duration, ok = DurationFromMillis(MaxMillis)
	assert.True(t, ok)
	assert.Positive(t, duration)

	_, ok = DurationFromMillis(MaxMillis + 1)
	assert.False(t, ok)
	_, ok = DurationFromMillis(18446744073710)
	assert.False(t, ok)
	_, ok = DurationFromMillis(-1)
	assert.False(t, ok)
}
