package model

import "math"

// Point is a position in viewport pixels.
type Point struct {
	X float64
	Y float64
}

// Finite reports whether both coordinates are finite numbers.
func (point Point) Finite() bool {
	return !math.IsNaN(point.X) && !math.IsInf(point.X, 0) &&
		!math.IsNaN(point.Y) && !math.IsInf(point.Y, 0)
}

// Rect is an axis-aligned bounding rectangle in viewport pixels.
type Rect struct {
	Left   float64
	Top    float64
	Right  float64
	Bottom float64
}

// Contains reports whether the point lies inside or on the rectangle edge.
func (rect Rect) Contains(point Point) bool {
	return point.X >= rect.Left && point.X <= rect.Right &&
		point.Y >= rect.Top && point.Y <= rect.Bottom
}

// Width returns the horizontal extent.
func (rect Rect) Width() float64 {
	return rect.Right - rect.Left
}

// Height returns the vertical extent.
func (rect Rect) Height() float64 {
	return rect.Bottom - rect.Top
}
