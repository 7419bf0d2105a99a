package filler

import (
	"fmt"
	"math"

	"github.com/matzehuels/gdsfill/pkg/geom"
	"github.com/matzehuels/gdsfill/pkg/pdk"
	"github.com/matzehuels/gdsfill/pkg/tile"
)

// gridResolution is the snapping step of bracket midpoints, in microns.
const gridResolution = 0.005

type bracket struct {
	lo, hi float64
}

func (b bracket) mid() float64 {
	return round(math.Round((b.lo+(b.hi-b.lo)/2)/gridResolution)*gridResolution, 3)
}

// narrow returns the bracket spanned by the previous midpoint and the winner.
func narrow(mid, winner float64) bracket {
	return bracket{min(mid, winner), max(mid, winner)}
}

type squareCandidate struct {
	size, space float64
	rects       []geom.Rect
	fill        float64
	density     float64
}

// Square fills the tile with a grid of squares. Every iteration evaluates
// the four corners of the size and space brackets and keeps the one closest
// to the target. The search stops inside the density band or after
// rule.MaxDepth iterations, otherwise both brackets are narrowed towards the
// winner independently.
func Square(rule pdk.FillRule, t tile.Tile, set *tile.RegionSet) Cell {
	var (
		target = rule.Density
		lo, hi = rule.Band()
		base   = LayerDensity(set)
		size   = bracket{rule.MinWidth, rule.MaxWidth}
		space  = bracket{rule.MinSpace, rule.MaxSpace}
		pos    = [2]float64{size.mid(), space.mid()}
		seen   = map[[2]float64]*squareCandidate{}
	)
	minWidth := geom.ToDBU(rule.MinWidth)
	var cell Cell

	for iter := 1; ; iter++ {
		var best *squareCandidate
		for _, sz := range [2]float64{size.lo, size.hi} {
			for _, sp := range [2]float64{space.lo, space.hi} {
				c, ok := seen[[2]float64{sz, sp}]
				if !ok {
					c = layoutSquares(t, set, sz, sp, minWidth)
					c.density = round(base+c.fill, 3)
					seen[[2]float64{sz, sp}] = c
				}
				if best == nil || math.Abs(c.density-target) < math.Abs(best.density-target) {
					best = c
				}
			}
		}
		cell.History = append(cell.History, best.density)

		inBand := best.density >= lo && best.density <= hi
		if inBand || iter >= rule.MaxDepth {
			cell.Status = StatusSuccess
			cell.Polygons, cell.Region = rectPolygons(best.rects)
			cell.Density = best.density
			cell.FillDensity = best.fill
			cell.Iterations = iter
			cell.Exhausted = !inBand
			switch {
			case cell.Empty():
				cell.Status = StatusSkipped
				cell.Note = "no square fits the tile"
			case cell.Exhausted:
				cell.Note = fmt.Sprintf("reached maximum depth %d at size %g, space %g", iter, best.size, best.space)
			}
			return cell
		}

		size = narrow(pos[0], best.size)
		space = narrow(pos[1], best.space)
		pos = [2]float64{size.mid(), space.mid()}
	}
}

// layoutSquares places floor(span/(size+space)) squares per axis from the
// tile origin and keeps those that survive placement and keep-out clipping
// as full rectangles of at least minWidth.
func layoutSquares(t tile.Tile, set *tile.RegionSet, size, space float64, minWidth int64) *squareCandidate {
	c := &squareCandidate{size: size, space: space}
	offset := size + space
	s := geom.ToDBU(size)
	if offset <= 0 || s <= 0 {
		return c
	}
	n := int(float64(t.Span) / offset)
	o := t.Origin()
	grid := make([]geom.Rect, 0, n*n)
	for i := range n {
		x := o.X + geom.ToDBU(float64(i)*offset)
		for j := range n {
			y := o.Y + geom.ToDBU(float64(j)*offset)
			grid = append(grid, geom.Rect{X0: x, Y0: y, X1: x + s, Y1: y + s})
		}
	}

	valid := geom.NewRegion(grid...).Intersect(set.PlacementChip).Subtract(set.KeepOut)
	for _, p := range valid.Polygons() {
		if !p.IsRect() {
			continue
		}
		if b := p.BBox(); b.Width() >= minWidth && b.Height() >= minWidth {
			c.rects = append(c.rects, b)
		}
	}
	c.fill = FillDensity(set, geom.NewRegion(c.rects...))
	return c
}
