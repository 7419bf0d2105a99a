package geom

import (
	"fmt"
	"math"
)

// DBU is the number of database units per micron (1 unit = 1 nm).
const DBU = 1000

// Point is a vertex in database units.
type Point struct {
	X, Y int64
}

// String formats the point in database units.
func (p Point) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// Rect is an axis-aligned rectangle [X0, X1) × [Y0, Y1) in database units.
// A rectangle with X1 <= X0 or Y1 <= Y0 is empty.
type Rect struct {
	X0, Y0, X1, Y1 int64
}

// R returns the rectangle spanned by two corners in any order.
func R(x0, y0, x1, y1 int64) Rect {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	return Rect{X0: x0, Y0: y0, X1: x1, Y1: y1}
}

// Empty reports whether the rectangle covers no area.
func (r Rect) Empty() bool { return r.X1 <= r.X0 || r.Y1 <= r.Y0 }

// Width returns the horizontal extent.
func (r Rect) Width() int64 { return r.X1 - r.X0 }

// Height returns the vertical extent.
func (r Rect) Height() int64 { return r.Y1 - r.Y0 }

// Area returns the covered area in square database units.
func (r Rect) Area() int64 {
	if r.Empty() {
		return 0
	}
	return r.Width() * r.Height()
}

// Grow returns the rectangle enlarged by d on every side. Negative d shrinks it.
func (r Rect) Grow(d int64) Rect {
	return Rect{X0: r.X0 - d, Y0: r.Y0 - d, X1: r.X1 + d, Y1: r.Y1 + d}
}

// Translate returns the rectangle moved by (dx, dy).
func (r Rect) Translate(dx, dy int64) Rect {
	return Rect{X0: r.X0 + dx, Y0: r.Y0 + dy, X1: r.X1 + dx, Y1: r.Y1 + dy}
}

// Intersect returns the overlap of two rectangles (possibly empty).
func (r Rect) Intersect(o Rect) Rect {
	return Rect{
		X0: max(r.X0, o.X0),
		Y0: max(r.Y0, o.Y0),
		X1: min(r.X1, o.X1),
		Y1: min(r.Y1, o.Y1),
	}
}

// Union returns the bounding rectangle of both. Empty rectangles are ignored.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	return Rect{
		X0: min(r.X0, o.X0),
		Y0: min(r.Y0, o.Y0),
		X1: max(r.X1, o.X1),
		Y1: max(r.Y1, o.Y1),
	}
}

// Points returns the four corners counter-clockwise from the lower left.
func (r Rect) Points() []Point {
	return []Point{{r.X0, r.Y0}, {r.X1, r.Y0}, {r.X1, r.Y1}, {r.X0, r.Y1}}
}

// String formats the rectangle in database units.
func (r Rect) String() string {
	return fmt.Sprintf("[%d,%d %d,%d]", r.X0, r.Y0, r.X1, r.Y1)
}

// ToDBU converts microns to database units, rounding to the nearest unit.
func ToDBU(um float64) int64 {
	return int64(math.Round(um * DBU))
}

// ToMicron converts database units to microns.
func ToMicron(v int64) float64 {
	return float64(v) / DBU
}

// RectUM builds a rectangle from micron coordinates.
func RectUM(x0, y0, x1, y1 float64) Rect {
	return R(ToDBU(x0), ToDBU(y0), ToDBU(x1), ToDBU(y1))
}
