package filler

import (
	"fmt"
	"math"

	"github.com/matzehuels/gdsfill/pkg/geom"
	"github.com/matzehuels/gdsfill/pkg/pdk"
	"github.com/matzehuels/gdsfill/pkg/tile"
)

const (
	// widthStep is the decrement of the track fill width sweep, in microns.
	widthStep = 0.5
	// phases is the number of gap-shifted placements tried per width.
	phases = 4
)

// Track fills the placement core along the routing tracks. Widths are swept
// from rule.MaxWidth down to rule.MinWidth, each at four phase shifts, and
// every candidate adds to the fill accepted so far. The sweep stops as soon
// as the core density exceeds the lower bound of the band.
func Track(rule pdk.FillRule, t tile.Tile, set *tile.RegionSet) Cell {
	if set.PlacementCore.Empty() {
		return skipped("tile has no placement core")
	}
	tracks := set.Drawing.Intersect(set.PlacementCore)
	if tracks.Empty() {
		return skipped("no track geometry in the placement core")
	}

	var (
		gaps      = geom.ToDBU(rule.Gaps)
		origin    = t.Origin()
		offset    = mod(tracks.BBox().X0-origin.X, gaps)
		prior     = CoreDensity(set) + CoreFillDensity(set, set.Filler)
		threshold = rule.Density - rule.Deviation
		minWidth  = geom.ToDBU(rule.MinWidth)
		rects     []geom.Rect
		filled    geom.Region
		cell      Cell
	)

	finish := func(exhausted bool) Cell {
		cell.Polygons, cell.Region = rectPolygons(rects)
		cell.Halo = cell.Region.Sized(gaps)
		cell.FillDensity = FillDensity(set, cell.Region)
		cell.Exhausted = exhausted
		cell.Status = StatusSuccess
		switch {
		case cell.Empty():
			cell.Status = StatusSkipped
			cell.Note = "no track candidate survived clipping"
		case exhausted:
			cell.Note = fmt.Sprintf("width sweep exhausted at %.2f%%", cell.Density)
		}
		return cell
	}

	for _, width := range sweepWidths(rule) {
		for step := range phases {
			g := trackGrid{
				rule:   rule,
				tile:   t,
				width:  geom.ToDBU(width),
				gaps:   gaps,
				phaseX: offset + int64(step)*gaps,
			}
			forbidden := filled.Sized(gaps).Union(set.KeepOut)
			allowed := g.region().Intersect(set.PlacementCore).Subtract(forbidden)
			for _, p := range allowed.Polygons() {
				if r, ok := repair(p, rule.AggressiveFill, minWidth); ok {
					rects = append(rects, r)
				}
			}
			filled = geom.NewRegion(rects...)

			cell.Iterations++
			cell.Density = round(prior+CoreFillDensity(set, filled), 2)
			cell.History = append(cell.History, cell.Density)
			if cell.Density > threshold {
				return finish(false)
			}
		}
	}
	return finish(true)
}

// sweepWidths lists the track fill widths from rule.MaxWidth down to the
// last step that is not below rule.MinWidth.
func sweepWidths(rule pdk.FillRule) []float64 {
	steps := int(math.Floor((rule.MaxWidth-rule.MinWidth)/widthStep + 1e-9))
	widths := make([]float64, 0, steps+1)
	for k := 0; k <= steps; k++ {
		widths = append(widths, round(rule.MaxWidth-float64(k)*widthStep, 3))
	}
	return widths
}

// trackGrid is one candidate placement of fill cells on the track pitch.
type trackGrid struct {
	rule   pdk.FillRule
	tile   tile.Tile
	width  int64
	gaps   int64
	phaseX int64
}

func (g trackGrid) region() geom.Region {
	cw, ch := g.width, geom.ToDBU(g.rule.CellHeight)
	if g.rule.Orientation == pdk.Vertical {
		cw, ch = ch, cw
	}
	pitchX, pitchY := cw+g.gaps, ch+g.gaps
	if cw <= 0 || ch <= 0 || pitchX <= 0 || pitchY <= 0 {
		return geom.Region{}
	}
	span := int64(g.tile.Span) * geom.DBU
	nx, ny := span/pitchX, span/pitchY

	o := g.tile.Origin()
	x0, y0 := o.X+g.phaseX, o.Y+g.gaps
	rects := make([]geom.Rect, 0, nx*ny)
	for i := range nx {
		x := x0 + i*pitchX
		for j := range ny {
			y := y0 + j*pitchY
			rects = append(rects, geom.Rect{X0: x, Y0: y, X1: x + cw, Y1: y + ch})
		}
	}
	return geom.NewRegion(rects...)
}

// mod returns v modulo m in [0, m).
func mod(v, m int64) int64 {
	if m <= 0 {
		return 0
	}
	return ((v % m) + m) % m
}
