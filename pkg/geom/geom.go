// Package geom provides the small set of 2D types shared by the dataflow
// model and the canvas.
//
// Model positions are integer [Point] values: they are what gets persisted
// and what commands carry. Canvas geometry (port centers, connection
// endpoints, bounding boxes) uses float64 [Vec] and [Rect] so layout metrics
// such as a port width of 10 and a spacing of 13 can be combined without
// rounding until something is written back to the model.
package geom

import (
	"fmt"
	"math"
)

// Point is an integer position in model coordinates.
type Point struct {
	X, Y int
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y int) Point { return Point{X: x, Y: y} }

// Vec converts the point to canvas coordinates.
func (p Point) Vec() Vec { return Vec{X: float64(p.X), Y: float64(p.Y)} }

func (p Point) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

// Vec is a position or offset in canvas coordinates.
type Vec struct {
	X, Y float64
}

// V is shorthand for Vec{X: x, Y: y}.
func V(x, y float64) Vec { return Vec{X: x, Y: y} }

// Add returns v+o.
func (v Vec) Add(o Vec) Vec { return Vec{v.X + o.X, v.Y + o.Y} }

// Sub returns v-o.
func (v Vec) Sub(o Vec) Vec { return Vec{v.X - o.X, v.Y - o.Y} }

// Scale returns v*k.
func (v Vec) Scale(k float64) Vec { return Vec{v.X * k, v.Y * k} }

// Len returns the euclidean length of v.
func (v Vec) Len() float64 { return math.Hypot(v.X, v.Y) }

// Round converts v to the nearest integer point.
func (v Vec) Round() Point {
	return Point{X: int(math.Round(v.X)), Y: int(math.Round(v.Y))}
}

// Snap rounds each coordinate to the nearest multiple of q. Quanta below 1
// are treated as 1.
func (v Vec) Snap(q float64) Vec {
	if q < 1 {
		q = 1
	}
	return Vec{math.Round(v.X/q) * q, math.Round(v.Y/q) * q}
}

func (v Vec) String() string { return fmt.Sprintf("(%g,%g)", v.X, v.Y) }

// Rect is an axis-aligned rectangle. Min is inclusive, Max exclusive for
// containment tests; a rectangle with Max <= Min on either axis is empty.
type Rect struct {
	Min, Max Vec
}

// R builds a rectangle from origin and size.
func R(x, y, w, h float64) Rect {
	return Rect{Min: Vec{x, y}, Max: Vec{x + w, y + h}}
}

// RectFromPoints returns the normalized rectangle spanning a and b.
func RectFromPoints(a, b Vec) Rect {
	return Rect{
		Min: Vec{math.Min(a.X, b.X), math.Min(a.Y, b.Y)},
		Max: Vec{math.Max(a.X, b.X), math.Max(a.Y, b.Y)},
	}
}

// Dx returns the width.
func (r Rect) Dx() float64 { return r.Max.X - r.Min.X }

// Dy returns the height.
func (r Rect) Dy() float64 { return r.Max.Y - r.Min.Y }

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool { return r.Max.X <= r.Min.X || r.Max.Y <= r.Min.Y }

// Center returns the midpoint.
func (r Rect) Center() Vec {
	return Vec{(r.Min.X + r.Max.X) / 2, (r.Min.Y + r.Max.Y) / 2}
}

// Add translates the rectangle by v.
func (r Rect) Add(v Vec) Rect { return Rect{r.Min.Add(v), r.Max.Add(v)} }

// Inset grows the rectangle by d on every side (shrinks for negative d).
func (r Rect) Inset(d float64) Rect {
	return Rect{Vec{r.Min.X - d, r.Min.Y - d}, Vec{r.Max.X + d, r.Max.Y + d}}
}

// Contains reports whether p lies inside r. Edges are inclusive so that
// zero-width rectangles (a vertical connection) still hit.
func (r Rect) Contains(p Vec) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// Overlaps reports whether r and o share any point.
func (r Rect) Overlaps(o Rect) bool {
	return r.Min.X <= o.Max.X && o.Min.X <= r.Max.X &&
		r.Min.Y <= o.Max.Y && o.Min.Y <= r.Max.Y
}

// Union returns the smallest rectangle containing both. An empty operand is
// ignored.
func (r Rect) Union(o Rect) Rect {
	if r == (Rect{}) {
		return o
	}
	if o == (Rect{}) {
		return r
	}
	return Rect{
		Min: Vec{math.Min(r.Min.X, o.Min.X), math.Min(r.Min.Y, o.Min.Y)},
		Max: Vec{math.Max(r.Max.X, o.Max.X), math.Max(r.Max.Y, o.Max.Y)},
	}
}

func (r Rect) String() string {
	return fmt.Sprintf("[%v-%v]", r.Min, r.Max)
}

// SegmentDistance returns the distance from p to the segment a-b.
func SegmentDistance(p, a, b Vec) float64 {
	t, _ := Project(p, a, b)
	t = math.Max(0, math.Min(1, t))
	return p.Sub(Lerp(a, b, t)).Len()
}

// Project returns the parameter t of the point on the line through a and b
// closest to p, and the distance from p to that point. t is not clamped: it
// lies in [0,1] only when the foot of the perpendicular falls on the segment.
// A degenerate segment projects everything onto a with t = 0.
func Project(p, a, b Vec) (t, dist float64) {
	ab := b.Sub(a)
	l2 := ab.X*ab.X + ab.Y*ab.Y
	if l2 == 0 {
		return 0, p.Sub(a).Len()
	}
	t = ((p.X-a.X)*ab.X + (p.Y-a.Y)*ab.Y) / l2
	return t, p.Sub(Lerp(a, b, t)).Len()
}

// Lerp returns the point a + t*(b-a).
func Lerp(a, b Vec, t float64) Vec { return a.Add(b.Sub(a).Scale(t)) }
