package target

import (
	"math"
	"sync"

	"eyenav/internal/core/model"
)

// Candidate is an activatable element the pointer can dwell on.
// Candidates are identified across ticks by ID.
type Candidate interface {
	ID() string
	Bounds() model.Rect
	Activate() error
}

// Detachable is implemented by candidates that can leave the page between ticks.
type Detachable interface {
	Detached() bool
}

// Provider lists the live candidates in a deterministic order.
// It is queried on every tick and must be free of side effects.
type Provider interface {
	ListCandidates() []Candidate
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func() []Candidate

// ListCandidates calls the function.
func (fn ProviderFunc) ListCandidates() []Candidate {
	return fn()
}

// Same reports whether two candidates refer to the same element.
func Same(left, right Candidate) bool {
	if left == nil || right == nil {
		return left == nil && right == nil
	}
	return left.ID() == right.ID()
}

// Resolver maps a point to the nearest candidate within the snap radius.
type Resolver struct {
	mu         sync.RWMutex
	snapRadius float64
}

// NewResolver creates a resolver with the given snap radius in pixels.
func NewResolver(snapRadius float64) *Resolver {
	return &Resolver{snapRadius: snapRadius}
}

// SetSnapRadius updates the snap radius used by subsequent resolutions.
func (resolver *Resolver) SetSnapRadius(radius float64) {
	resolver.mu.Lock()
	defer resolver.mu.Unlock()
	resolver.snapRadius = radius
}

// SnapRadius returns the current snap radius.
func (resolver *Resolver) SnapRadius() float64 {
	resolver.mu.RLock()
	defer resolver.mu.RUnlock()
	return resolver.snapRadius
}

// Resolve returns the closest candidate strictly inside the snap radius, or nil.
// Equal distances resolve to the earlier candidate.
func (resolver *Resolver) Resolve(point model.Point, candidates []Candidate) Candidate {
	if !point.Finite() {
		return nil
	}
	radius := resolver.SnapRadius()

	var best Candidate
	bestDistance := math.Inf(1)
	for _, candidate := range candidates {
		if candidate == nil {
			continue
		}
		if detachable, ok := candidate.(Detachable); ok && detachable.Detached() {
			continue
		}
		distance := Distance(point, candidate.Bounds())
		if math.IsNaN(distance) {
			continue
		}
		if distance < bestDistance {
			best = candidate
			bestDistance = distance
		}
	}
	if best == nil || !(bestDistance < radius) {
		return nil
	}
	return best
}

// Distance returns the Euclidean distance from point to rect, 0 when inside.
func Distance(point model.Point, rect model.Rect) float64 {
	dx := math.Max(math.Max(rect.Left-point.X, 0), point.X-rect.Right)
	dy := math.Max(math.Max(rect.Top-point.Y, 0), point.Y-rect.Bottom)
	return math.Hypot(dx, dy)
}
