package overlay

import (
	"testing"

	"eyenav/internal/core/dwell"
	"eyenav/internal/core/model"
	"eyenav/internal/core/target"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingPositions(t *testing.T) {
	center := model.Point{X: 100, Y: 100}

	assert.Empty(t, RingPositions(center, 10, 12, 0))
	assert.Len(t, RingPositions(center, 10, 12, 0.01), 1)
	assert.Len(t, RingPositions(center, 10, 12, 0.5), 6)
	assert.Len(t, RingPositions(center, 10, 12, 1.2), 12)

	positions := RingPositions(center, 10, 4, 1)
	require.Len(t, positions, 4)
	assert.InDelta(t, 100, positions[0].X, 1e-9)
	assert.InDelta(t, 90, positions[0].Y, 1e-9)
	assert.InDelta(t, 110, positions[1].X, 1e-9)
	assert.InDelta(t, 100, positions[1].Y, 1e-9)
}

func newTestLayer(t *testing.T) *Layer {
	t.Helper()
	test.NewTempApp(t)
	layer := New(DefaultConfig())
	layer.origin = func(fyne.CanvasObject) fyne.Position { return fyne.NewPos(0, 0) }
	return layer
}

func visibleDots(layer *Layer) int {
	count := 0
	for _, dot := range layer.ring {
		if dot.Visible() {
			count++
		}
	}
	return count
}

func TestRenderShowsProgressAndHidesOnCancel(t *testing.T) {
	layer := newTestLayer(t)
	button := target.NewElement("ok", model.Rect{Left: 100, Top: 100, Right: 200, Bottom: 140}, nil)

	layer.render(dwell.Event{Kind: dwell.EventProgress, Target: button, Progress: 0.25})
	assert.Equal(t, 3, visibleDots(layer))
	first := layer.ring[0].Position()
	assert.InDelta(t, 150-layer.config.DotSize/2, first.X, 0.01)
	assert.InDelta(t, 120-layer.config.RingRadius-layer.config.DotSize/2, first.Y, 0.01)

	layer.render(dwell.Event{Kind: dwell.EventCancel, Target: button})
	assert.Zero(t, visibleDots(layer))
}

func TestCursorFollowsPoint(t *testing.T) {
	layer := newTestLayer(t)

	layer.moveCursor(model.Point{X: 50, Y: 60}, true)
	assert.True(t, layer.cursor.Visible())
	half := layer.config.CursorSize / 2
	assert.Equal(t, fyne.NewPos(50-half, 60-half), layer.cursor.Position())

	layer.moveCursor(model.Point{}, false)
	assert.False(t, layer.cursor.Visible())
}

func TestDiagnosticsToggle(t *testing.T) {
	layer := newTestLayer(t)
	assert.False(t, layer.Diagnostics())
	assert.True(t, layer.ToggleDiagnostics())
	assert.True(t, layer.Diagnostics())
	assert.False(t, layer.ToggleDiagnostics())
}
