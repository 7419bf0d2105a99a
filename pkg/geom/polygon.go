package geom

import (
	"math"
	"slices"
	"sort"
)

// Polygon is a simple outer loop with optional holes.
//
// Regions emit outer loops counter-clockwise and holes clockwise, each
// starting at its bottom-left vertex. Polygons built by callers may use
// either orientation; [FromPolygon] uses the even-odd rule.
type Polygon struct {
	Points []Point
	Holes  [][]Point
}

// Len returns the number of vertices of the outer loop.
func (p Polygon) Len() int { return len(p.Points) }

// BBox returns the bounding rectangle of the outer loop.
func (p Polygon) BBox() Rect {
	return pointsBBox(p.Points)
}

// Area returns the enclosed area excluding holes.
func (p Polygon) Area() int64 {
	a := abs64(signedArea2(p.Points))
	for _, h := range p.Holes {
		a -= abs64(signedArea2(h))
	}
	return a / 2
}

// IsRect reports whether the polygon is a hole-free axis-aligned rectangle.
func (p Polygon) IsRect() bool {
	if len(p.Points) != 4 || len(p.Holes) > 0 {
		return false
	}
	return manhattan(p.Points) && p.BBox().Area()*2 == abs64(signedArea2(p.Points))
}

// Region converts the polygon to a region.
func (p Polygon) Region() Region {
	return FromPolygon(p)
}

// Translate returns the polygon moved by (dx, dy).
func (p Polygon) Translate(dx, dy int64) Polygon {
	out := Polygon{Points: translatePoints(p.Points, dx, dy)}
	for _, h := range p.Holes {
		out.Holes = append(out.Holes, translatePoints(h, dx, dy))
	}
	return out
}

// FromPolygon rasterizes a polygon into a region with the even-odd rule.
// Edges that are not axis-aligned are sampled at each band's mid-height.
func FromPolygon(p Polygon) Region {
	rings := append([][]Point{p.Points}, p.Holes...)

	var ys []int64
	for _, ring := range rings {
		for _, pt := range ring {
			ys = append(ys, pt.Y)
		}
	}
	ys = uniqueSorted(ys)

	var b builder
	for i := 0; i+1 < len(ys); i++ {
		y0, y1 := ys[i], ys[i+1]
		mid := (float64(y0) + float64(y1)) / 2
		var xs []int64
		for _, ring := range rings {
			n := len(ring)
			for k := range n {
				a, c := ring[k], ring[(k+1)%n]
				if a.Y == c.Y || min(a.Y, c.Y) > y0 || max(a.Y, c.Y) < y1 {
					continue
				}
				t := (mid - float64(a.Y)) / float64(c.Y-a.Y)
				xs = append(xs, int64(math.Round(float64(a.X)+t*float64(c.X-a.X))))
			}
		}
		slices.Sort(xs)
		var ivs []interval
		for k := 0; k+1 < len(xs); k += 2 {
			if xs[k] < xs[k+1] {
				ivs = append(ivs, interval{xs[k], xs[k+1]})
			}
		}
		if len(ivs) > 0 {
			b.add(y0, y1, mergeIntervals(ivs))
		}
	}
	return b.region()
}

// FromPolygons returns the union of the rasterized polygons.
func FromPolygons(polys ...Polygon) Region {
	regions := make([]Region, len(polys))
	for i, p := range polys {
		regions[i] = FromPolygon(p)
	}
	return UnionAll(regions...)
}

// FillHoles returns the region with every hole filled.
func (r Region) FillHoles() Region {
	var outers []Region
	for _, p := range r.Polygons() {
		if len(p.Holes) == 0 {
			outers = append(outers, p.Region())
			continue
		}
		outers = append(outers, FromPolygon(Polygon{Points: p.Points}))
	}
	return UnionAll(outers...)
}

// Polygons returns the connected components of the region as polygons.
// Pieces that touch only at a corner are separate polygons.
func (r Region) Polygons() []Polygon {
	rects, comp := r.components()
	if len(rects) == 0 {
		return nil
	}

	// Group band pieces by component in discovery order.
	order := map[int]int{}
	var groups [][]int
	for i := range rects {
		root := comp.find(i)
		g, ok := order[root]
		if !ok {
			g = len(groups)
			order[root] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}

	out := make([]Polygon, 0, len(groups))
	for _, members := range groups {
		out = append(out, r.tracePolygons(rects, members)...)
	}
	return out
}

// piece is one x-interval of one band.
type piece struct {
	band int
	iv   interval
}

// components labels band pieces that share a positive-length horizontal
// boundary with a neighbouring band.
func (r Region) components() ([]piece, *unionFind) {
	var pieces []piece
	start := make([]int, len(r.bands)+1)
	for bi, b := range r.bands {
		start[bi] = len(pieces)
		for _, iv := range b.xs {
			pieces = append(pieces, piece{band: bi, iv: iv})
		}
	}
	start[len(r.bands)] = len(pieces)

	uf := newUnionFind(len(pieces))
	for bi := 0; bi+1 < len(r.bands); bi++ {
		if r.bands[bi].y1 != r.bands[bi+1].y0 {
			continue
		}
		i, j := start[bi], start[bi+1]
		for i < start[bi+1] && j < start[bi+2] {
			a, c := pieces[i].iv, pieces[j].iv
			if min(a.hi, c.hi) > max(a.lo, c.lo) {
				uf.union(i, j)
			}
			if a.hi < c.hi {
				i++
			} else {
				j++
			}
		}
	}
	return pieces, uf
}

type edge struct {
	a, b Point
}

// tracePolygons builds the boundary loops of one component. Edges are
// directed with the interior on the left; at vertices where the component
// touches itself the walk turns right so every loop borders a single empty
// area.
func (r Region) tracePolygons(pieces []piece, members []int) []Polygon {
	var edges []edge
	for _, m := range members {
		p := pieces[m]
		b := r.bands[p.band]
		var below, above []interval
		if p.band > 0 && r.bands[p.band-1].y1 == b.y0 {
			below = r.bands[p.band-1].xs
		}
		if p.band+1 < len(r.bands) && r.bands[p.band+1].y0 == b.y1 {
			above = r.bands[p.band+1].xs
		}
		own := []interval{p.iv}
		for _, iv := range combineIntervals(own, below, andNot) {
			edges = append(edges, edge{Point{iv.lo, b.y0}, Point{iv.hi, b.y0}})
		}
		for _, iv := range combineIntervals(own, above, andNot) {
			edges = append(edges, edge{Point{iv.hi, b.y1}, Point{iv.lo, b.y1}})
		}
		edges = append(edges,
			edge{Point{p.iv.lo, b.y1}, Point{p.iv.lo, b.y0}},
			edge{Point{p.iv.hi, b.y0}, Point{p.iv.hi, b.y1}},
		)
	}

	from := make(map[Point][]int, len(edges))
	for i, e := range edges {
		from[e.a] = append(from[e.a], i)
	}

	used := make([]bool, len(edges))
	var outers, holes [][]Point
	for first := range edges {
		if used[first] {
			continue
		}
		loop := []Point{edges[first].a}
		cur := first
		used[cur] = true
		for {
			next := pickTurn(edges, from[edges[cur].b], edges[cur])
			if next < 0 || next == first || used[next] {
				break
			}
			loop = append(loop, edges[next].a)
			used[next] = true
			cur = next
		}
		loop = normalizeLoop(loop)
		if len(loop) < 4 {
			continue
		}
		if signedArea2(loop) > 0 {
			outers = append(outers, loop)
		} else {
			holes = append(holes, loop)
		}
	}

	polys := make([]Polygon, len(outers))
	for i, o := range outers {
		polys[i] = Polygon{Points: o}
	}
	for _, h := range holes {
		hb := pointsBBox(h)
		for i := range polys {
			if len(polys) == 1 || containsRect(polys[i].BBox(), hb) {
				polys[i].Holes = append(polys[i].Holes, h)
				break
			}
		}
	}
	for i := range polys {
		sort.Slice(polys[i].Holes, func(a, b int) bool {
			pa, pb := polys[i].Holes[a][0], polys[i].Holes[b][0]
			if pa.X != pb.X {
				return pa.X < pb.X
			}
			return pa.Y < pb.Y
		})
	}
	return polys
}

func andNot(a, b bool) bool { return a && !b }

// pickTurn selects the outgoing edge preferring a right turn, then straight,
// then left.
func pickTurn(edges []edge, candidates []int, in edge) int {
	dx, dy := sign(in.b.X-in.a.X), sign(in.b.Y-in.a.Y)
	best, bestRank := -1, 4
	for _, c := range candidates {
		ex, ey := sign(edges[c].b.X-edges[c].a.X), sign(edges[c].b.Y-edges[c].a.Y)
		var rank int
		switch {
		case ex == dy && ey == -dx:
			rank = 0
		case ex == dx && ey == dy:
			rank = 1
		case ex == -dy && ey == dx:
			rank = 2
		default:
			rank = 3
		}
		if rank < bestRank {
			best, bestRank = c, rank
		}
	}
	return best
}

// normalizeLoop drops collinear vertices and rotates the loop to start at
// its bottom-left vertex (smallest X, then smallest Y).
func normalizeLoop(loop []Point) []Point {
	for changed := true; changed && len(loop) >= 3; {
		changed = false
		n := len(loop)
		for i := 0; i < n; i++ {
			prev, cur, next := loop[(i+n-1)%n], loop[i], loop[(i+1)%n]
			if collinear(prev, cur, next) {
				loop = append(loop[:i:i], loop[i+1:]...)
				changed = true
				break
			}
		}
	}
	start := 0
	for i, p := range loop {
		s := loop[start]
		if p.X < s.X || (p.X == s.X && p.Y < s.Y) {
			start = i
		}
	}
	return append(loop[start:len(loop):len(loop)], loop[:start]...)
}

func collinear(a, b, c Point) bool {
	return (b.X-a.X)*(c.Y-b.Y)-(b.Y-a.Y)*(c.X-b.X) == 0
}

// signedArea2 returns twice the signed shoelace area; positive for
// counter-clockwise loops.
func signedArea2(pts []Point) int64 {
	var s int64
	n := len(pts)
	for i := range n {
		a, b := pts[i], pts[(i+1)%n]
		s += a.X*b.Y - b.X*a.Y
	}
	return s
}

func manhattan(pts []Point) bool {
	n := len(pts)
	for i := range n {
		a, b := pts[i], pts[(i+1)%n]
		if a.X != b.X && a.Y != b.Y {
			return false
		}
	}
	return true
}

func pointsBBox(pts []Point) Rect {
	if len(pts) == 0 {
		return Rect{}
	}
	box := Rect{X0: pts[0].X, Y0: pts[0].Y, X1: pts[0].X, Y1: pts[0].Y}
	for _, p := range pts[1:] {
		box.X0 = min(box.X0, p.X)
		box.Y0 = min(box.Y0, p.Y)
		box.X1 = max(box.X1, p.X)
		box.Y1 = max(box.Y1, p.Y)
	}
	return box
}

func containsRect(outer, inner Rect) bool {
	return inner.X0 >= outer.X0 && inner.Y0 >= outer.Y0 && inner.X1 <= outer.X1 && inner.Y1 <= outer.Y1
}

func translatePoints(pts []Point, dx, dy int64) []Point {
	out := make([]Point, len(pts))
	for i, p := range pts {
		out[i] = Point{p.X + dx, p.Y + dy}
	}
	return out
}

func sign(v int64) int64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{parent: p}
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[max(ra, rb)] = min(ra, rb)
	}
}
