package target

import (
	"sync"

	"eyenav/internal/core/model"
)

// Element is an in-memory candidate backed by a callback.
type Element struct {
	mu       sync.Mutex
	id       string
	bounds   model.Rect
	detached bool
	onActive func() error
}

// NewElement creates an element with the given id, bounds and activation callback.
func NewElement(id string, bounds model.Rect, onActive func() error) *Element {
	return &Element{id: id, bounds: bounds, onActive: onActive}
}

// ID returns the element id.
func (element *Element) ID() string {
	return element.id
}

// Bounds returns the current bounds.
func (element *Element) Bounds() model.Rect {
	element.mu.Lock()
	defer element.mu.Unlock()
	return element.bounds
}

// Move replaces the bounds, as a layout change would.
func (element *Element) Move(bounds model.Rect) {
	element.mu.Lock()
	defer element.mu.Unlock()
	element.bounds = bounds
}

// Detach marks the element as removed from the page.
func (element *Element) Detach() {
	element.mu.Lock()
	defer element.mu.Unlock()
	element.detached = true
}

// Detached reports whether Detach was called.
func (element *Element) Detached() bool {
	element.mu.Lock()
	defer element.mu.Unlock()
	return element.detached
}

// Activate runs the activation callback.
func (element *Element) Activate() error {
	if element.onActive == nil {
		return nil
	}
	return element.onActive()
}

// StaticProvider serves a fixed ordered list of candidates.
type StaticProvider struct {
	mu         sync.RWMutex
	candidates []Candidate
}

// NewStaticProvider creates a provider over candidates.
func NewStaticProvider(candidates ...Candidate) *StaticProvider {
	return &StaticProvider{candidates: candidates}
}

// Set replaces the candidate list.
func (provider *StaticProvider) Set(candidates ...Candidate) {
	provider.mu.Lock()
	defer provider.mu.Unlock()
	provider.candidates = candidates
}

// ListCandidates returns a copy of the list.
func (provider *StaticProvider) ListCandidates() []Candidate {
	provider.mu.RLock()
	defer provider.mu.RUnlock()
	return append([]Candidate(nil), provider.candidates...)
}
