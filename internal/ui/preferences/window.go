package preferences

import (
	"fmt"
	"math"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
)

type sliderRange struct {
	Min  float64
	Max  float64
	Step float64
}

var (
	smoothingRange  = sliderRange{Min: 0.05, Max: 1, Step: 0.05}
	dwellRange      = sliderRange{Min: 300, Max: 1500, Step: 50}
	onsetRange      = sliderRange{Min: 0, Max: 1000, Step: 50}
	snapRadiusRange = sliderRange{Min: 10, Max: 150, Step: 5}
	sampleRateRange = sliderRange{Min: 10, Max: 60, Step: 5}
	deadZoneRange   = sliderRange{Min: 0, Max: 50, Step: 2}
	volumeRange     = sliderRange{Min: 0, Max: 1, Step: 0.05}
)

// Window handles the preferences UI.
type Window struct {
	window     fyne.Window
	settings   Settings
	onSave     func(Settings)
	onReset    func() Settings
	smoothing  *widget.Slider
	dwell      *widget.Slider
	onset      *widget.Slider
	snapRadius *widget.Slider
	sampleRate *widget.Slider
	deadZone   *widget.Slider
	volume     *widget.Slider
	sound      *widget.Check
	diag       *widget.Check
	bridge     *widget.Check
	bridgeAddr *widget.Entry
	origins    *widget.Entry
}

// New creates a preferences window. onReset returns the settings to show after
// a reset; when nil, defaults are used.
func New(app fyne.App, settings Settings, onSave func(Settings), onReset func() Settings) *Window {
	window := app.NewWindow("EyeNav Settings")

	prefs := &Window{
		window:     window,
		onSave:     onSave,
		onReset:    onReset,
		smoothing:  newSlider(smoothingRange),
		dwell:      newSlider(dwellRange),
		onset:      newSlider(onsetRange),
		snapRadius: newSlider(snapRadiusRange),
		sampleRate: newSlider(sampleRateRange),
		deadZone:   newSlider(deadZoneRange),
		volume:     newSlider(volumeRange),
		sound:      widget.NewCheck("Click sound", nil),
		diag:       widget.NewCheck("Diagnostics overlay (F2)", nil),
		bridge:     widget.NewCheck("Accept gaze from browser bridge", nil),
		bridgeAddr: widget.NewEntry(),
		origins:    widget.NewEntry(),
	}
	prefs.bridgeAddr.SetPlaceHolder("127.0.0.1:8787")
	prefs.origins.SetPlaceHolder("Allowed origins, e.g. http://localhost:5173")

	form := container.NewVBox(
		widget.NewLabelWithStyle("Pointer", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		labeledSlider("Smoothing", prefs.smoothing, func(value float64) string { return fmt.Sprintf("%.2f", value) }),
		labeledSlider("Dwell", prefs.dwell, formatMillis),
		labeledSlider("Onset delay", prefs.onset, formatMillis),
		labeledSlider("Snap radius", prefs.snapRadius, formatPixels),
		labeledSlider("Dead zone", prefs.deadZone, formatPixels),
		labeledSlider("Sample rate", prefs.sampleRate, func(value float64) string { return fmt.Sprintf("%.0f Hz", value) }),
		widget.NewLabelWithStyle("Feedback", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		prefs.sound,
		labeledSlider("Volume", prefs.volume, func(value float64) string { return fmt.Sprintf("%.0f%%", value*100) }),
		prefs.diag,
		widget.NewLabelWithStyle("Integration", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		prefs.bridge,
		prefs.bridgeAddr,
		prefs.origins,
	)

	saveButton := widget.NewButton("Save", prefs.handleSave)
	resetButton := widget.NewButton("Reset", prefs.handleReset)
	cancelButton := widget.NewButton("Cancel", func() {
		prefs.UpdateSettings(prefs.settings)
		window.Hide()
	})
	buttons := container.NewHBox(saveButton, resetButton, layout.NewSpacer(), cancelButton)

	window.SetContent(container.NewBorder(nil, buttons, nil, nil, container.NewVScroll(form)))
	window.Resize(fyne.NewSize(440, 620))
	window.SetCloseIntercept(window.Hide)

	prefs.UpdateSettings(settings)
	return prefs
}

// Show displays the preferences window.
func (prefs *Window) Show() {
	prefs.window.Show()
	prefs.window.RequestFocus()
}

// UpdateSettings replaces window values.
func (prefs *Window) UpdateSettings(settings Settings) {
	prefs.settings = settings
	prefs.smoothing.SetValue(settings.Smoothing)
	prefs.dwell.SetValue(float64(settings.DwellTime.Milliseconds()))
	prefs.onset.SetValue(float64(settings.OnsetDelay.Milliseconds()))
	prefs.snapRadius.SetValue(settings.SnapRadius)
	prefs.sampleRate.SetValue(settings.SampleRate)
	prefs.deadZone.SetValue(settings.DeadZone)
	prefs.volume.SetValue(settings.Volume)
	prefs.sound.SetChecked(settings.SoundEnabled)
	prefs.diag.SetChecked(settings.Diagnostics)
	prefs.bridge.SetChecked(settings.BridgeEnabled)
	prefs.bridgeAddr.SetText(settings.BridgeAddress)
	prefs.origins.SetText(strings.Join(settings.BridgeOrigins, ", "))
}

// Settings returns the last saved settings.
func (prefs *Window) Settings() Settings {
	return prefs.settings
}

func (prefs *Window) collect() Settings {
	settings := prefs.settings
	settings.Smoothing = snapValue(prefs.smoothing.Value, smoothingRange)
	settings.DwellTime = snapDuration(prefs.dwell.Value, dwellRange)
	settings.OnsetDelay = snapDuration(prefs.onset.Value, onsetRange)
	settings.SnapRadius = snapValue(prefs.snapRadius.Value, snapRadiusRange)
	settings.SampleRate = snapValue(prefs.sampleRate.Value, sampleRateRange)
	settings.DeadZone = snapValue(prefs.deadZone.Value, deadZoneRange)
	settings.Volume = snapValue(prefs.volume.Value, volumeRange)
	settings.SoundEnabled = prefs.sound.Checked
	settings.Diagnostics = prefs.diag.Checked
	settings.BridgeEnabled = prefs.bridge.Checked
	if address := strings.TrimSpace(prefs.bridgeAddr.Text); address != "" {
		settings.BridgeAddress = address
	}
	settings.BridgeOrigins = ParseOrigins(prefs.origins.Text)
	return settings
}

func (prefs *Window) handleSave() {
	settings := prefs.collect()
	prefs.settings = settings
	if prefs.onSave != nil {
		prefs.onSave(settings)
	}
	prefs.window.Hide()
}

func (prefs *Window) handleReset() {
	settings := DefaultSettings()
	if prefs.onReset != nil {
		settings = prefs.onReset()
	}
	prefs.UpdateSettings(settings)
}

func newSlider(bounds sliderRange) *widget.Slider {
	slider := widget.NewSlider(bounds.Min, bounds.Max)
	slider.Step = bounds.Step
	return slider
}

func labeledSlider(title string, slider *widget.Slider, format func(float64) string) fyne.CanvasObject {
	value := widget.NewLabel(format(slider.Value))
	previous := slider.OnChanged
	slider.OnChanged = func(current float64) {
		value.SetText(format(current))
		if previous != nil {
			previous(current)
		}
	}
	return container.NewBorder(nil, nil, widget.NewLabel(title), value, slider)
}

func formatMillis(value float64) string {
	return fmt.Sprintf("%.0f ms", value)
}

func formatPixels(value float64) string {
	return fmt.Sprintf("%.0f px", value)
}

func snapValue(value float64, bounds sliderRange) float64 {
	value = math.Min(math.Max(value, bounds.Min), bounds.Max)
	if bounds.Step <= 0 {
		return value
	}
	steps := math.Round((value - bounds.Min) / bounds.Step)
	return math.Min(bounds.Min+steps*bounds.Step, bounds.Max)
}

func snapDuration(millis float64, bounds sliderRange) time.Duration {
	return time.Duration(snapValue(millis, bounds)) * time.Millisecond
}
