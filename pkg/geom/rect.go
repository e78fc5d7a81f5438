// Package geom provides axis-aligned rectangle math for canvas layout.
//
// Functions here take only positions and sizes; they know nothing about
// nodes, kinds, or drawing.
package geom

import "math"

// Point is a canvas coordinate.
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned box with its origin at the top-left corner.
// Y grows downward, as on the editor canvas.
type Rect struct {
	X, Y          float64
	Width, Height float64
}

// FromEdges builds a Rect from its four sides.
func FromEdges(left, top, right, bottom float64) Rect {
	return Rect{X: left, Y: top, Width: right - left, Height: bottom - top}
}

// Left returns the x coordinate of the left side.
func (r Rect) Left() float64 { return r.X }

// Top returns the y coordinate of the top side.
func (r Rect) Top() float64 { return r.Y }

// Right returns the x coordinate of the right side.
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom returns the y coordinate of the bottom side.
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Center returns the midpoint of r.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Area returns Width*Height, or 0 for degenerate rectangles.
func (r Rect) Area() float64 {
	if r.Empty() {
		return 0
	}
	return r.Width * r.Height
}

// Empty reports whether r has no interior.
func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Contains reports whether p lies inside r. Boundaries count as inside.
func (r Rect) Contains(p Point) bool {
	if r.Width < 0 || r.Height < 0 {
		return false
	}
	return p.X >= r.Left() && p.X <= r.Right() && p.Y >= r.Top() && p.Y <= r.Bottom()
}

// Inset shrinks r by the given amounts on each side.
func (r Rect) Inset(top, right, bottom, left float64) Rect {
	return FromEdges(r.Left()+left, r.Top()+top, r.Right()-right, r.Bottom()-bottom)
}

// Union returns the smallest rectangle covering r and o.
func (r Rect) Union(o Rect) Rect {
	return FromEdges(
		math.Min(r.Left(), o.Left()),
		math.Min(r.Top(), o.Top()),
		math.Max(r.Right(), o.Right()),
		math.Max(r.Bottom(), o.Bottom()),
	)
}

// Translate returns r moved by (dx, dy).
func (r Rect) Translate(dx, dy float64) Rect {
	r.X += dx
	r.Y += dy
	return r
}

// BoundingBox returns the union of rects. It reports false for an empty slice.
func BoundingBox(rects []Rect) (Rect, bool) {
	if len(rects) == 0 {
		return Rect{}, false
	}
	box := rects[0]
	for _, r := range rects[1:] {
		box = box.Union(r)
	}
	return box, true
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// NearlyEqual reports whether |a-b| <= eps.
func NearlyEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}
