package board

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"eyenav/internal/core/model"
	"eyenav/internal/core/target"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

var (
	// ErrDisabled is returned when a disabled button is activated.
	ErrDisabled = errors.New("button is disabled")
	// ErrClosed is returned by activations after Close.
	ErrClosed = errors.New("board is closed")
)

// Item describes one gaze-activatable button.
type Item struct {
	ID         string
	Label      string
	OnActivate func() error
}

type placement struct {
	bounds  model.Rect
	visible bool
}

// Board is a grid of buttons exposed to the pointer pipeline as candidates.
// Button geometry is read on the UI goroutine by Sync and cached for ticks.
type Board struct {
	mu         sync.RWMutex
	targets    []*buttonTarget
	candidates []target.Candidate
	placements map[string]placement
	content    *fyne.Container
	position   func(fyne.CanvasObject) fyne.Position
	closed     chan struct{}
	closeOnce  sync.Once
}

// New lays out items in a grid with the given number of columns.
func New(items []Item, columns int) *Board {
	if columns <= 0 {
		columns = 1
	}
	board := &Board{
		placements: make(map[string]placement),
		closed:     make(chan struct{}),
		position: func(object fyne.CanvasObject) fyne.Position {
			return fyne.CurrentApp().Driver().AbsolutePositionForObject(object)
		},
	}

	objects := make([]fyne.CanvasObject, 0, len(items))
	for _, item := range items {
		button := &buttonTarget{item: item}
		button.widget = widget.NewButton(item.Label, button.tapped)
		board.targets = append(board.targets, button)
		board.candidates = append(board.candidates, &buttonCandidate{board: board, button: button})
		objects = append(objects, button.widget)
	}
	board.content = container.NewGridWithColumns(columns, objects...)
	return board
}

// Content returns the canvas object holding the buttons.
func (board *Board) Content() fyne.CanvasObject {
	return board.content
}

// Button returns the widget for id, or nil.
func (board *Board) Button(id string) *widget.Button {
	for _, button := range board.targets {
		if button.item.ID == id {
			return button.widget
		}
	}
	return nil
}

// Sync snapshots button positions. Call it on the UI goroutine.
func (board *Board) Sync() {
	placements := make(map[string]placement, len(board.targets))
	for _, button := range board.targets {
		pos := board.position(button.widget)
		size := button.widget.Size()
		placements[button.item.ID] = placement{
			bounds: model.Rect{
				Left:   float64(pos.X),
				Top:    float64(pos.Y),
				Right:  float64(pos.X + size.Width),
				Bottom: float64(pos.Y + size.Height),
			},
			visible: button.widget.Visible() && size.Width > 0 && size.Height > 0,
		}
	}

	board.mu.Lock()
	board.placements = placements
	board.mu.Unlock()
}

// Close makes pending and later activations return ErrClosed instead of
// waiting for the UI goroutine.
func (board *Board) Close() {
	board.closeOnce.Do(func() {
		close(board.closed)
	})
}

// Track re-syncs geometry until ctx is done. Widgets may only be read on the
// UI goroutine, so ticks hand Sync to fyne.Do and the pointer pipeline works
// from the last snapshot. Pass the pointer tick interval to keep them in step.
func (board *Board) Track(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fyne.Do(board.Sync)
		}
	}
}

// ListCandidates implements target.Provider in layout order.
func (board *Board) ListCandidates() []target.Candidate {
	return append([]target.Candidate(nil), board.candidates...)
}

func (board *Board) placement(id string) (placement, bool) {
	board.mu.RLock()
	defer board.mu.RUnlock()
	found, ok := board.placements[id]
	return found, ok
}

type buttonTarget struct {
	item    Item
	widget  *widget.Button
	lastErr error
}

func (button *buttonTarget) tapped() {
	button.lastErr = nil
	if button.item.OnActivate != nil {
		button.lastErr = button.item.OnActivate()
	}
}

// buttonCandidate is the per-tick view of a button handed to the core.
type buttonCandidate struct {
	board  *Board
	button *buttonTarget
}

func (candidate *buttonCandidate) ID() string {
	return candidate.button.item.ID
}

func (candidate *buttonCandidate) Bounds() model.Rect {
	found, _ := candidate.board.placement(candidate.button.item.ID)
	return found.bounds
}

func (candidate *buttonCandidate) Detached() bool {
	found, ok := candidate.board.placement(candidate.button.item.ID)
	return !ok || !found.visible
}

// Activate taps the button on the UI goroutine and returns the handler error.
func (candidate *buttonCandidate) Activate() error {
	closed := candidate.board.closed
	select {
	case <-closed:
		return fmt.Errorf("button %s: %w", candidate.button.item.ID, ErrClosed)
	default:
	}

	result := make(chan error, 1)
	fyne.Do(func() {
		select {
		case <-closed:
			result <- ErrClosed
		default:
			result <- candidate.tap()
		}
	})
	select {
	case err := <-result:
		if errors.Is(err, ErrClosed) {
			return fmt.Errorf("button %s: %w", candidate.button.item.ID, err)
		}
		return err
	case <-closed:
		return fmt.Errorf("button %s: %w", candidate.button.item.ID, ErrClosed)
	}
}

func (candidate *buttonCandidate) tap() (err error) {
	button := candidate.button
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("button %s panicked: %v", button.item.ID, recovered)
		}
	}()
	if button.widget.Disabled() {
		return fmt.Errorf("button %s: %w", button.item.ID, ErrDisabled)
	}
	button.lastErr = nil
	button.widget.Tapped(&fyne.PointEvent{})
	return button.lastErr
}

var (
	_ target.Provider   = (*Board)(nil)
	_ target.Detachable = (*buttonCandidate)(nil)
)
