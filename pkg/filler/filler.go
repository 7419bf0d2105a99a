// Package filler generates dummy fill for one tile.
//
// Two algorithms are available. [Square] searches a regular grid of squares
// whose size and spacing bring the tile density into the rule's band.
// [Track] places rectangles on the routing track grid inside the standard
// cell core, widest first, until the core density clears the lower bound.
//
// Both algorithms read a prepared [tile.RegionSet] whose KeepOut has been
// composed, and return a [Cell] that is never modified afterwards.
package filler

import (
	"fmt"

	"github.com/matzehuels/gdsfill/pkg/errors"
	"github.com/matzehuels/gdsfill/pkg/geom"
	"github.com/matzehuels/gdsfill/pkg/pdk"
	"github.com/matzehuels/gdsfill/pkg/tile"
)

// Status is the outcome of a fill run.
type Status int

const (
	StatusSuccess Status = iota + 1
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	for _, v := range []Status{StatusSuccess, StatusSkipped, StatusFailed} {
		if v.String() == string(b) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", b)
}

// Cell is the fill result of one tile.
type Cell struct {
	Status Status
	// Polygons are the accepted fill shapes, all axis-aligned rectangles.
	Polygons []geom.Polygon
	// Region is the union of Polygons.
	Region geom.Region
	// Halo is Region grown by the track spacing. Track fill only; it is
	// reported for callers and not written to the tile.
	Halo geom.Region

	// Density is the achieved density in percent: tile density for square
	// fill, core density for track fill.
	Density float64
	// FillDensity is the share of the placement chip covered by Region.
	FillDensity float64
	// History records Density after each evaluated candidate.
	History []float64

	Iterations int
	// Exhausted is set when the search ended without reaching the band.
	Exhausted bool
	Note      string
}

// Empty reports whether the cell holds no fill.
func (c *Cell) Empty() bool { return len(c.Polygons) == 0 }

func skipped(note string) Cell {
	return Cell{Status: StatusSkipped, Note: note}
}

// Fill runs the algorithm selected by rule on one tile.
func Fill(rule pdk.FillRule, t tile.Tile, set *tile.RegionSet) (Cell, error) {
	switch rule.Algorithm {
	case pdk.AlgorithmSquare:
		return Square(rule, t, set), nil
	case pdk.AlgorithmTrack:
		return Track(rule, t, set), nil
	}
	return Cell{}, errors.New(errors.ErrCodeUnknownAlgorithm, "no filler for algorithm %s", rule.Algorithm)
}

// rectPolygons converts accepted rectangles into polygons and their region.
func rectPolygons(rects []geom.Rect) ([]geom.Polygon, geom.Region) {
	polys := make([]geom.Polygon, len(rects))
	for i, r := range rects {
		polys[i] = geom.Polygon{Points: r.Points()}
	}
	return polys, geom.NewRegion(rects...)
}
