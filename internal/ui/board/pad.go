package board

import (
	"image/color"
	"time"

	"eyenav/internal/core/gaze"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// Sink receives emulated gaze samples from the pad.
type Sink interface {
	Ingest(gaze.Sample) error
	SetViewport(width, height float64)
}

// PointerPad is a transparent layer over the board that turns mouse motion
// into gaze samples. Real clicks stop here, so only dwell activates buttons.
type PointerPad struct {
	widget.BaseWidget

	sink    Sink
	now     func() time.Time
	enabled bool
}

// NewPointerPad creates a pad feeding sink.
func NewPointerPad(sink Sink) *PointerPad {
	pad := &PointerPad{sink: sink, now: time.Now, enabled: true}
	pad.ExtendBaseWidget(pad)
	return pad
}

// SetEnabled turns mouse emulation on or off. Taps are swallowed either way.
func (pad *PointerPad) SetEnabled(enabled bool) {
	pad.enabled = enabled
}

func (pad *PointerPad) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(canvas.NewRectangle(color.Transparent))
}

func (pad *PointerPad) Resize(size fyne.Size) {
	pad.BaseWidget.Resize(size)
	pad.sink.SetViewport(float64(size.Width), float64(size.Height))
}

func (pad *PointerPad) MouseIn(event *desktop.MouseEvent) {
	pad.forward(event.AbsolutePosition)
}

func (pad *PointerPad) MouseMoved(event *desktop.MouseEvent) {
	pad.forward(event.AbsolutePosition)
}

func (pad *PointerPad) MouseOut() {}

func (pad *PointerPad) Tapped(*fyne.PointEvent) {}

func (pad *PointerPad) TappedSecondary(*fyne.PointEvent) {}

func (pad *PointerPad) forward(position fyne.Position) {
	if !pad.enabled {
		return
	}
	// Rate limiting drops are expected at mouse event rates.
	_ = pad.sink.Ingest(gaze.Sample{
		X:  float64(position.X),
		Y:  float64(position.Y),
		At: pad.now(),
	})
}

var (
	_ desktop.Hoverable      = (*PointerPad)(nil)
	_ fyne.Tappable          = (*PointerPad)(nil)
	_ fyne.SecondaryTappable = (*PointerPad)(nil)
	_ fyne.Widget            = (*PointerPad)(nil)
)
