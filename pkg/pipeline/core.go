package pipeline

import (
	"fmt"
	"math"
	"strconv"

	"github.com/matzehuels/gdsfill/pkg/errors"
	"github.com/matzehuels/gdsfill/pkg/filler"
	"github.com/matzehuels/gdsfill/pkg/geom"
	"github.com/matzehuels/gdsfill/pkg/keepout"
	"github.com/matzehuels/gdsfill/pkg/pdk"
	"github.com/matzehuels/gdsfill/pkg/tile"
)

// FillOutcome is the fill result of one tile. It is what the tile cache
// stores.
type FillOutcome struct {
	Status      filler.Status `json:"status"`
	Density     float64       `json:"density"`
	FillDensity float64       `json:"fill_density"`
	Iterations  int           `json:"iterations,omitempty"`
	Exhausted   bool          `json:"exhausted,omitempty"`
	History     []float64     `json:"history,omitempty"`
	Note        string        `json:"note,omitempty"`
	// Rects are the accepted fill rectangles in database units.
	Rects []geom.Rect `json:"rects,omitempty"`
}

// Region returns the union of the fill rectangles.
func (o *FillOutcome) Region() geom.Region {
	return geom.NewRegion(o.Rects...)
}

// RunKeepout composes the keep-out region of a prepared tile.
func RunKeepout(set *tile.RegionSet, kind pdk.LayerKind) (geom.Region, error) {
	return keepout.Compose(*set, kind)
}

// RunFill fills one tile with the algorithm of the layer's rule. Faults are
// reported as a failed outcome, never as a panic.
func RunFill(t tile.Tile, layer pdk.Layer, set *tile.RegionSet) (out FillOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = FillOutcome{Status: filler.StatusFailed, Note: fmt.Sprintf("internal error: %v", r)}
		}
	}()

	cell, err := filler.Fill(layer.Rule, t, set)
	if err != nil {
		return FillOutcome{Status: filler.StatusFailed, Note: errors.UserMessage(err)}
	}
	out = FillOutcome{
		Status:      cell.Status,
		Density:     cell.Density,
		FillDensity: cell.FillDensity,
		Iterations:  cell.Iterations,
		Exhausted:   cell.Exhausted,
		History:     cell.History,
		Note:        cell.Note,
	}
	if cell.Status == filler.StatusSkipped {
		out.Density = 0
	}
	for _, p := range cell.Polygons {
		out.Rects = append(out.Rects, p.BBox())
	}
	return out
}

func roundDensity(v float64) float64 {
	return math.Round(v*100) / 100
}

func formatDensity(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + "%"
}
