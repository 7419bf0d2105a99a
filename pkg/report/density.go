package report

import (
	"math"

	"github.com/matzehuels/gdsfill/pkg/errors"
	"github.com/matzehuels/gdsfill/pkg/gds"
	"github.com/matzehuels/gdsfill/pkg/pdk"
)

// LayerDensity is the whole-chip density of one layer.
type LayerDensity struct {
	Layer string
	// Drawing and Fill are areas in square microns.
	Drawing float64
	Fill    float64
	// Density is drawing plus fill over the sealed chip area, in percent.
	Density   float64
	Target    float64
	Deviation float64
}

// InBand reports whether the density meets the layer's target band.
func (d LayerDensity) InBand() bool {
	return d.Density >= d.Target-d.Deviation && d.Density <= d.Target+d.Deviation
}

// LayoutDensity measures every kit layer of the layout's top cell against
// the area enclosed by the sealring. Drawing and fill areas are added
// without merging overlaps.
func LayoutDensity(lib *gds.Library, kit *pdk.Kit) ([]LayerDensity, error) {
	top, err := lib.Top()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidLayout, err, "find top cell")
	}
	seal, err := lib.Flatten(top, kit.Chip.Sealring)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidLayout, err, "flatten sealring")
	}
	chip := float64(seal.FillHoles().Area())

	var out []LayerDensity
	for _, l := range kit.Layers() {
		drawing, err := lib.Flatten(top, l.DrawingSpec())
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidLayout, err, "flatten %s", l.Name)
		}
		fill, err := lib.Flatten(top, l.FillSpec())
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidLayout, err, "flatten %s fill", l.Name)
		}
		d := LayerDensity{
			Layer:   l.Name,
			Drawing: squareMicrons(drawing.Area()),
			Fill:    squareMicrons(fill.Area()),
		}
		if chip > 0 {
			d.Density = round2(float64(drawing.Area()+fill.Area()) / chip * 100)
		}
		if d.Target, err = kit.LayerDensity(l.Name); err != nil {
			return nil, err
		}
		if d.Deviation, err = kit.LayerDeviation(l.Name); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func squareMicrons(dbu2 int64) float64 {
	return round2(float64(dbu2) / 1e6)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
