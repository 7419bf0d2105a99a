package filler

import (
	"math"

	"github.com/matzehuels/gdsfill/pkg/geom"
	"github.com/matzehuels/gdsfill/pkg/tile"
)

// LayerDensity is the drawing area as a percentage of the placement chip.
func LayerDensity(set *tile.RegionSet) float64 {
	return percent(set.Drawing.Area(), set.PlacementChip.Area())
}

// FillDensity is the fill area as a percentage of the placement chip.
func FillDensity(set *tile.RegionSet, fill geom.Region) float64 {
	return percent(fill.Area(), set.PlacementChip.Area())
}

// CoreDensity is the drawing inside the placement core as a percentage of
// the core.
func CoreDensity(set *tile.RegionSet) float64 {
	return percent(set.Drawing.Intersect(set.PlacementCore).Area(), set.PlacementCore.Area())
}

// CoreFillDensity is the fill inside the placement core as a percentage of
// the core.
func CoreFillDensity(set *tile.RegionSet, fill geom.Region) float64 {
	return percent(fill.Intersect(set.PlacementCore).Area(), set.PlacementCore.Area())
}

func percent(part, whole int64) float64 {
	if whole <= 0 {
		return 0
	}
	return round(float64(part)/float64(whole)*100, 2)
}

func round(v float64, digits int) float64 {
	p := math.Pow10(digits)
	return math.Round(v*p) / p
}
