package geom

import (
	"slices"
	"sort"
)

// interval is a half-open x-range [lo, hi).
type interval struct {
	lo, hi int64
}

// band is a horizontal slab [y0, y1) with its covered x-intervals.
type band struct {
	y0, y1 int64
	xs     []interval
}

// Region is an immutable Manhattan point set in canonical band form.
// The zero value is the empty region.
type Region struct {
	bands []band
}

// NewRegion returns the union of the given rectangles. Empty rectangles are ignored.
func NewRegion(rects ...Rect) Region {
	live := make([]Rect, 0, len(rects))
	for _, r := range rects {
		if !r.Empty() {
			live = append(live, r)
		}
	}
	if len(live) == 0 {
		return Region{}
	}

	ys := make([]int64, 0, 2*len(live))
	for _, r := range live {
		ys = append(ys, r.Y0, r.Y1)
	}
	ys = uniqueSorted(ys)

	// Sweep slabs bottom to top, keeping rectangles that span the current slab.
	sort.Slice(live, func(i, j int) bool { return live[i].Y0 < live[j].Y0 })
	var (
		b      builder
		active []Rect
		next   int
	)
	for i := 0; i+1 < len(ys); i++ {
		y0, y1 := ys[i], ys[i+1]
		kept := active[:0]
		for _, r := range active {
			if r.Y1 > y0 {
				kept = append(kept, r)
			}
		}
		active = kept
		for next < len(live) && live[next].Y0 <= y0 {
			if live[next].Y1 > y0 {
				active = append(active, live[next])
			}
			next++
		}
		if len(active) == 0 {
			continue
		}
		xs := make([]interval, len(active))
		for k, r := range active {
			xs[k] = interval{r.X0, r.X1}
		}
		b.add(y0, y1, mergeIntervals(xs))
	}
	return b.region()
}

// Empty reports whether the region covers no area.
func (r Region) Empty() bool { return len(r.bands) == 0 }

// Area returns the covered area in square database units.
func (r Region) Area() int64 {
	var a int64
	for _, b := range r.bands {
		var w int64
		for _, iv := range b.xs {
			w += iv.hi - iv.lo
		}
		a += w * (b.y1 - b.y0)
	}
	return a
}

// BBox returns the bounding rectangle, or an empty Rect for the empty region.
func (r Region) BBox() Rect {
	if r.Empty() {
		return Rect{}
	}
	box := Rect{X0: r.bands[0].xs[0].lo, Y0: r.bands[0].y0, X1: r.bands[0].xs[0].hi, Y1: r.bands[len(r.bands)-1].y1}
	for _, b := range r.bands {
		box.X0 = min(box.X0, b.xs[0].lo)
		box.X1 = max(box.X1, b.xs[len(b.xs)-1].hi)
	}
	return box
}

// Rects returns the band decomposition as disjoint rectangles, bottom to top,
// left to right.
func (r Region) Rects() []Rect {
	var out []Rect
	for _, b := range r.bands {
		for _, iv := range b.xs {
			out = append(out, Rect{X0: iv.lo, Y0: b.y0, X1: iv.hi, Y1: b.y1})
		}
	}
	return out
}

// Equal reports whether both regions cover exactly the same points.
func (r Region) Equal(o Region) bool {
	return slices.EqualFunc(r.bands, o.bands, func(a, b band) bool {
		return a.y0 == b.y0 && a.y1 == b.y1 && slices.Equal(a.xs, b.xs)
	})
}

// Merged returns the topologically merged region. Regions are always kept in
// canonical form, so this is the identity; it exists so composition code can
// state where coalescing is required.
func (r Region) Merged() Region { return r }

// Union returns r ∪ o.
func (r Region) Union(o Region) Region {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	return combine(r, o, func(a, b bool) bool { return a || b })
}

// Intersect returns r ∩ o.
func (r Region) Intersect(o Region) Region {
	if r.Empty() || o.Empty() {
		return Region{}
	}
	return combine(r, o, func(a, b bool) bool { return a && b })
}

// Subtract returns r − o.
func (r Region) Subtract(o Region) Region {
	if r.Empty() || o.Empty() {
		return r
	}
	return combine(r, o, func(a, b bool) bool { return a && !b })
}

// Overlaps reports whether r and o share any area.
func (r Region) Overlaps(o Region) bool {
	return !r.Intersect(o).Empty()
}

// Clip returns the part of r inside box.
func (r Region) Clip(box Rect) Region {
	if box.Empty() || r.Empty() {
		return Region{}
	}
	lo := sort.Search(len(r.bands), func(i int) bool { return r.bands[i].y1 > box.Y0 })
	hi := sort.Search(len(r.bands), func(i int) bool { return r.bands[i].y0 >= box.Y1 })
	if lo >= hi {
		return Region{}
	}
	return Region{bands: r.bands[lo:hi]}.Intersect(NewRegion(box))
}

// Translate returns the region moved by (dx, dy).
func (r Region) Translate(dx, dy int64) Region {
	if r.Empty() {
		return r
	}
	out := make([]band, len(r.bands))
	for i, b := range r.bands {
		xs := make([]interval, len(b.xs))
		for k, iv := range b.xs {
			xs[k] = interval{iv.lo + dx, iv.hi + dx}
		}
		out[i] = band{y0: b.y0 + dy, y1: b.y1 + dy, xs: xs}
	}
	return Region{bands: out}
}

// UnionAll returns the union of all regions.
func UnionAll(regions ...Region) Region {
	var rects []Rect
	for _, r := range regions {
		rects = append(rects, r.Rects()...)
	}
	return NewRegion(rects...)
}

// combine evaluates a boolean operation band by band.
func combine(a, b Region, op func(inA, inB bool) bool) Region {
	ys := make([]int64, 0, 2*(len(a.bands)+len(b.bands)))
	for _, bd := range a.bands {
		ys = append(ys, bd.y0, bd.y1)
	}
	for _, bd := range b.bands {
		ys = append(ys, bd.y0, bd.y1)
	}
	ys = uniqueSorted(ys)

	var (
		out    builder
		ia, ib int
	)
	for i := 0; i+1 < len(ys); i++ {
		y0, y1 := ys[i], ys[i+1]
		for ia < len(a.bands) && a.bands[ia].y1 <= y0 {
			ia++
		}
		for ib < len(b.bands) && b.bands[ib].y1 <= y0 {
			ib++
		}
		var xa, xb []interval
		if ia < len(a.bands) && a.bands[ia].y0 <= y0 {
			xa = a.bands[ia].xs
		}
		if ib < len(b.bands) && b.bands[ib].y0 <= y0 {
			xb = b.bands[ib].xs
		}
		if xs := combineIntervals(xa, xb, op); len(xs) > 0 {
			out.add(y0, y1, xs)
		}
	}
	return out.region()
}

// combineIntervals applies op to two sorted interval lists.
func combineIntervals(a, b []interval, op func(inA, inB bool) bool) []interval {
	xs := make([]int64, 0, 2*(len(a)+len(b)))
	for _, iv := range a {
		xs = append(xs, iv.lo, iv.hi)
	}
	for _, iv := range b {
		xs = append(xs, iv.lo, iv.hi)
	}
	xs = uniqueSorted(xs)

	var (
		out    []interval
		ia, ib int
	)
	for i := 0; i+1 < len(xs); i++ {
		x0, x1 := xs[i], xs[i+1]
		for ia < len(a) && a[ia].hi <= x0 {
			ia++
		}
		for ib < len(b) && b[ib].hi <= x0 {
			ib++
		}
		inA := ia < len(a) && a[ia].lo <= x0
		inB := ib < len(b) && b[ib].lo <= x0
		if !op(inA, inB) {
			continue
		}
		if n := len(out); n > 0 && out[n-1].hi == x0 {
			out[n-1].hi = x1
		} else {
			out = append(out, interval{x0, x1})
		}
	}
	return out
}

// mergeIntervals sorts and coalesces overlapping or touching intervals in place.
func mergeIntervals(xs []interval) []interval {
	sort.Slice(xs, func(i, j int) bool { return xs[i].lo < xs[j].lo })
	out := xs[:0]
	for _, iv := range xs {
		if n := len(out); n > 0 && iv.lo <= out[n-1].hi {
			out[n-1].hi = max(out[n-1].hi, iv.hi)
			continue
		}
		out = append(out, iv)
	}
	return out
}

// builder appends bands bottom to top and coalesces identical neighbours.
type builder struct {
	bands []band
}

func (b *builder) add(y0, y1 int64, xs []interval) {
	if len(xs) == 0 || y1 <= y0 {
		return
	}
	if n := len(b.bands); n > 0 {
		last := &b.bands[n-1]
		if last.y1 == y0 && slices.Equal(last.xs, xs) {
			last.y1 = y1
			return
		}
	}
	b.bands = append(b.bands, band{y0: y0, y1: y1, xs: xs})
}

func (b *builder) region() Region {
	return Region{bands: b.bands}
}

func uniqueSorted(v []int64) []int64 {
	slices.Sort(v)
	return slices.Compact(v)
}
