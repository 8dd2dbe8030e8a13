package overlay

import (
	"context"
	"image/color"
	"math"
	"sync"
	"time"

	"eyenav/internal/core/dwell"
	"eyenav/internal/core/model"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
)

// Config defines overlay visuals.
type Config struct {
	Segments     int
	RingRadius   float32
	DotSize      float32
	CursorSize   float32
	RingColor    color.Color
	CursorColor  color.Color
	StatusColor  color.Color
	RefreshEvery time.Duration
}

// DefaultConfig returns the ring look used by the desktop host.
func DefaultConfig() Config {
	return Config{
		Segments:     12,
		RingRadius:   28,
		DotSize:      7,
		CursorSize:   14,
		RingColor:    color.NRGBA{R: 232, G: 190, B: 66, A: 255},
		CursorColor:  color.NRGBA{R: 66, G: 160, B: 232, A: 200},
		StatusColor:  color.NRGBA{R: 255, G: 255, B: 255, A: 255},
		RefreshEvery: 33 * time.Millisecond,
	}
}

// PointSource supplies the smoothed pointer position.
type PointSource interface {
	CurrentPoint() (model.Point, bool)
}

// Layer draws the gaze cursor, the dwell progress ring and the diagnostics
// line on top of the board. It is a dwell.FeedbackPort.
type Layer struct {
	mu          sync.Mutex
	config      Config
	root        *fyne.Container
	cursor      *canvas.Circle
	ring        []*canvas.Circle
	status      *canvas.Text
	statusBG    *canvas.Rectangle
	diagnostics bool
	origin      func(fyne.CanvasObject) fyne.Position
}

// New creates an empty overlay layer.
func New(config Config) *Layer {
	if config.Segments <= 0 {
		config.Segments = DefaultConfig().Segments
	}
	if config.RefreshEvery <= 0 {
		config.RefreshEvery = DefaultConfig().RefreshEvery
	}

	cursor := canvas.NewCircle(config.CursorColor)
	cursor.Resize(fyne.NewSize(config.CursorSize, config.CursorSize))
	cursor.Hide()

	objects := []fyne.CanvasObject{cursor}
	ring := make([]*canvas.Circle, config.Segments)
	for i := range ring {
		dot := canvas.NewCircle(config.RingColor)
		dot.Resize(fyne.NewSize(config.DotSize, config.DotSize))
		dot.Hide()
		ring[i] = dot
		objects = append(objects, dot)
	}

	statusBG := canvas.NewRectangle(color.NRGBA{A: 160})
	statusBG.Hide()
	status := canvas.NewText("", config.StatusColor)
	status.TextSize = 12
	status.TextStyle = fyne.TextStyle{Monospace: true}
	status.Hide()
	objects = append(objects, statusBG, status)

	return &Layer{
		config:   config,
		root:     container.NewWithoutLayout(objects...),
		cursor:   cursor,
		ring:     ring,
		status:   status,
		statusBG: statusBG,
		origin: func(object fyne.CanvasObject) fyne.Position {
			return fyne.CurrentApp().Driver().AbsolutePositionForObject(object)
		},
	}
}

// Object returns the canvas object to stack above the board.
func (layer *Layer) Object() fyne.CanvasObject {
	return layer.root
}

// Report implements dwell.FeedbackPort. Rendering is queued on the UI goroutine.
func (layer *Layer) Report(event dwell.Event) {
	fyne.Do(func() {
		layer.render(event)
	})
}

// SetDiagnostics shows or hides the diagnostics line.
func (layer *Layer) SetDiagnostics(enabled bool) {
	layer.mu.Lock()
	layer.diagnostics = enabled
	layer.mu.Unlock()
	fyne.Do(func() {
		layer.applyDiagnostics(enabled)
	})
}

// ToggleDiagnostics flips the diagnostics line and returns the new state.
func (layer *Layer) ToggleDiagnostics() bool {
	layer.mu.Lock()
	enabled := !layer.diagnostics
	layer.mu.Unlock()
	layer.SetDiagnostics(enabled)
	return enabled
}

// Diagnostics reports whether the diagnostics line is visible.
func (layer *Layer) Diagnostics() bool {
	layer.mu.Lock()
	defer layer.mu.Unlock()
	return layer.diagnostics
}

// Run moves the cursor and refreshes the status line until ctx is done.
func (layer *Layer) Run(ctx context.Context, source PointSource, status func() string) {
	ticker := time.NewTicker(layer.config.RefreshEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			point, ok := source.CurrentPoint()
			line := ""
			if status != nil && layer.Diagnostics() {
				line = status()
			}
			fyne.Do(func() {
				layer.moveCursor(point, ok)
				if line != "" {
					layer.setStatus(line)
				}
			})
		}
	}
}

func (layer *Layer) render(event dwell.Event) {
	if event.Kind != dwell.EventProgress || event.Target == nil {
		layer.hideRing()
		return
	}
	bounds := event.Target.Bounds()
	center := layer.local(model.Point{
		X: (bounds.Left + bounds.Right) / 2,
		Y: (bounds.Top + bounds.Bottom) / 2,
	})
	positions := RingPositions(center, float64(layer.config.RingRadius), len(layer.ring), event.Progress)
	half := layer.config.DotSize / 2
	for i, dot := range layer.ring {
		if i >= len(positions) {
			dot.Hide()
			continue
		}
		dot.Move(fyne.NewPos(float32(positions[i].X)-half, float32(positions[i].Y)-half))
		dot.Show()
	}
	layer.root.Refresh()
}

func (layer *Layer) hideRing() {
	for _, dot := range layer.ring {
		dot.Hide()
	}
	layer.root.Refresh()
}

func (layer *Layer) moveCursor(point model.Point, ok bool) {
	if !ok {
		layer.cursor.Hide()
		return
	}
	local := layer.local(point)
	half := layer.config.CursorSize / 2
	layer.cursor.Move(fyne.NewPos(float32(local.X)-half, float32(local.Y)-half))
	layer.cursor.Show()
}

func (layer *Layer) setStatus(line string) {
	layer.status.Text = line
	size := layer.status.MinSize()
	layer.status.Move(fyne.NewPos(8, 6))
	layer.statusBG.Move(fyne.NewPos(4, 4))
	layer.statusBG.Resize(fyne.NewSize(size.Width+8, size.Height+4))
	layer.status.Refresh()
	layer.statusBG.Refresh()
}

func (layer *Layer) applyDiagnostics(enabled bool) {
	if enabled {
		layer.status.Show()
		layer.statusBG.Show()
		return
	}
	layer.status.Hide()
	layer.statusBG.Hide()
}

// local converts canvas coordinates to layer coordinates.
func (layer *Layer) local(point model.Point) model.Point {
	origin := layer.origin(layer.root)
	return model.Point{X: point.X - float64(origin.X), Y: point.Y - float64(origin.Y)}
}

// RingPositions returns the centers of the lit ring dots for progress,
// clockwise from twelve o'clock.
func RingPositions(center model.Point, radius float64, segments int, progress float64) []model.Point {
	if segments <= 0 || !(progress > 0) {
		return nil
	}
	lit := int(math.Ceil(progress * float64(segments)))
	if lit > segments {
		lit = segments
	}
	positions := make([]model.Point, lit)
	for i := range positions {
		angle := -math.Pi/2 + 2*math.Pi*float64(i)/float64(segments)
		positions[i] = model.Point{
			X: center.X + radius*math.Cos(angle),
			Y: center.Y + radius*math.Sin(angle),
		}
	}
	return positions
}

var _ dwell.FeedbackPort = (*Layer)(nil)
