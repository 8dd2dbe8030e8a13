package target

import (
	"math"
	"testing"

	"eyenav/internal/core/model"

	"github.com/stretchr/testify/assert"
)

func rect(left, top, right, bottom float64) model.Rect {
	return model.Rect{Left: left, Top: top, Right: right, Bottom: bottom}
}

func TestDistance(t *testing.T) {
	box := rect(100, 100, 200, 150)
	cases := []struct {
		name  string
		point model.Point
		want  float64
	}{
		{"inside", model.Point{X: 150, Y: 120}, 0},
		{"on edge", model.Point{X: 100, Y: 120}, 0},
		{"left", model.Point{X: 90, Y: 120}, 10},
		{"below", model.Point{X: 150, Y: 170}, 20},
		{"corner", model.Point{X: 203, Y: 154}, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, Distance(tc.point, box), 1e-9)
		})
	}
}

func TestResolvePicksNearestWithinRadius(t *testing.T) {
	near := NewElement("near", rect(0, 0, 10, 10), nil)
	far := NewElement("far", rect(50, 0, 60, 10), nil)
	resolver := NewResolver(60)

	got := resolver.Resolve(model.Point{X: 40, Y: 5}, []Candidate{near, far})
	assert.Equal(t, "far", got.ID())

	got = resolver.Resolve(model.Point{X: 20, Y: 5}, []Candidate{near, far})
	assert.Equal(t, "near", got.ID())
}

func TestResolveSnapRadiusIsStrict(t *testing.T) {
	box := NewElement("box", rect(100, 100, 200, 200), nil)
	resolver := NewResolver(60)

	assert.Nil(t, resolver.Resolve(model.Point{X: 40, Y: 150}, []Candidate{box}), "distance equal to radius is excluded")
	assert.NotNil(t, resolver.Resolve(model.Point{X: 40.5, Y: 150}, []Candidate{box}))
}

func TestResolveTieBreaksOnOrder(t *testing.T) {
	first := NewElement("first", rect(0, 0, 10, 10), nil)
	second := NewElement("second", rect(20, 0, 30, 10), nil)
	resolver := NewResolver(60)

	got := resolver.Resolve(model.Point{X: 15, Y: 5}, []Candidate{first, second})
	assert.Equal(t, "first", got.ID())
	got = resolver.Resolve(model.Point{X: 15, Y: 5}, []Candidate{second, first})
	assert.Equal(t, "second", got.ID())
}

func TestResolveEdgeCases(t *testing.T) {
	resolver := NewResolver(60)
	assert.Nil(t, resolver.Resolve(model.Point{X: 1, Y: 1}, nil))

	dot := NewElement("dot", rect(10, 10, 10, 10), nil)
	got := resolver.Resolve(model.Point{X: 13, Y: 14}, []Candidate{nil, dot})
	assert.Equal(t, "dot", got.ID(), "degenerate rectangles are still targets")

	assert.Nil(t, resolver.Resolve(model.Point{X: math.NaN(), Y: 1}, []Candidate{dot}))

	dot.Detach()
	assert.Nil(t, resolver.Resolve(model.Point{X: 10, Y: 10}, []Candidate{dot}))
}

func TestResolverSnapRadiusUpdate(t *testing.T) {
	box := NewElement("box", rect(0, 0, 10, 10), nil)
	resolver := NewResolver(60)
	resolver.SetSnapRadius(5)

	assert.Equal(t, 5.0, resolver.SnapRadius())
	assert.Nil(t, resolver.Resolve(model.Point{X: 20, Y: 5}, []Candidate{box}))
}

func TestSame(t *testing.T) {
	a := NewElement("a", rect(0, 0, 1, 1), nil)
	alsoA := NewElement("a", rect(5, 5, 6, 6), nil)
	b := NewElement("b", rect(0, 0, 1, 1), nil)

	assert.True(t, Same(a, alsoA))
	assert.False(t, Same(a, b))
	assert.False(t, Same(a, nil))
	assert.True(t, Same(nil, nil))
}

func TestStaticProviderReturnsCopy(t *testing.T) {
	a := NewElement("a", rect(0, 0, 1, 1), nil)
	provider := NewStaticProvider(a)
	list := provider.ListCandidates()
	list[0] = nil

	assert.Equal(t, "a", provider.ListCandidates()[0].ID())
	provider.Set()
	assert.Empty(t, provider.ListCandidates())
}
