package filler

import (
	"math"
	"slices"

	"github.com/matzehuels/gdsfill/pkg/geom"
)

// RemoveShortestEdge drops the shortest edge of a polygon together with its
// two vertices and restores right angles by snapping the vertices of the
// resulting diagonal to a common coordinate. The vertex next to the longer
// adjacent edge moves; on a tie the later vertex moves. Polygons with four
// or fewer vertices are returned unchanged.
func RemoveShortestEdge(pts []geom.Point) []geom.Point {
	n := len(pts)
	if n <= 4 {
		return pts
	}

	shortest, best := 0, math.Inf(1)
	for i := range n {
		if l := dist(pts[i], pts[(i+1)%n]); l < best {
			shortest, best = i, l
		}
	}
	drop := (shortest + 1) % n
	out := make([]geom.Point, 0, n-2)
	for i, p := range pts {
		if i != shortest && i != drop {
			out = append(out, p)
		}
	}

	m := len(out)
	at := func(i int) int { return ((i % m) + m) % m }
	for i := range m {
		a, b := i, at(i+1)
		if out[a].X == out[b].X || out[a].Y == out[b].Y {
			continue
		}
		prev := out[at(i-1)]
		horizontal := prev.Y == out[a].Y
		if dist(prev, out[a]) > dist(out[b], out[at(i+2)]) {
			snap(&out[a], out[b], horizontal)
		} else {
			snap(&out[b], out[a], horizontal)
		}
	}
	return slices.Clip(out)
}

// snap moves p onto the vertical (horizontal edge before it) or horizontal
// line through q.
func snap(p *geom.Point, q geom.Point, horizontal bool) {
	if horizontal {
		p.X = q.X
	} else {
		p.Y = q.Y
	}
}

func dist(a, b geom.Point) float64 {
	return math.Hypot(float64(b.X-a.X), float64(b.Y-a.Y))
}

// repair turns a clipped track candidate into a rectangle. Eight vertex
// shapes are only repaired with aggressive fill. The repaired rectangle
// must lie inside the candidate and be at least minWidth in both axes.
func repair(p geom.Polygon, aggressive bool, minWidth int64) (geom.Rect, bool) {
	if len(p.Holes) > 0 {
		return geom.Rect{}, false
	}
	pts := p.Points
	switch {
	case len(pts) == 8 && aggressive:
		pts = RemoveShortestEdge(RemoveShortestEdge(pts))
	case len(pts) == 6:
		pts = RemoveShortestEdge(pts)
	case len(pts) != 4:
		return geom.Rect{}, false
	}

	fixed := geom.Polygon{Points: pts}
	if !fixed.IsRect() {
		return geom.Rect{}, false
	}
	r := fixed.BBox()
	if r.Width() < minWidth || r.Height() < minWidth {
		return geom.Rect{}, false
	}
	if len(p.Points) != 4 && !geom.NewRegion(r).Subtract(p.Region()).Empty() {
		return geom.Rect{}, false
	}
	return r, true
}
