package pdk

import (
	"github.com/matzehuels/gdsfill/pkg/errors"
	"github.com/matzehuels/gdsfill/pkg/gds"
)

// FillRule holds the fill parameters of one layer. Lengths are in microns,
// densities in percent.
type FillRule struct {
	Algorithm      Algorithm   `toml:"algorithm"`
	Density        float64     `toml:"density"`
	Deviation      float64     `toml:"deviation"`
	MinWidth       float64     `toml:"min_width"`
	MaxWidth       float64     `toml:"max_width"`
	MinSpace       float64     `toml:"min_space"`
	MaxSpace       float64     `toml:"max_space"`
	MaxDepth       int         `toml:"max_depth"`
	Orientation    Orientation `toml:"orientation,omitempty"`
	CellHeight     float64     `toml:"cell_height,omitempty"`
	Gaps           float64     `toml:"gaps,omitempty"`
	AggressiveFill bool        `toml:"aggressive_fill,omitempty"`
}

// Band returns the accepted density interval [target−deviation, target+deviation].
func (r FillRule) Band() (lo, hi float64) {
	return r.Density - r.Deviation, r.Density + r.Deviation
}

// Validate checks the rule for internal consistency.
func (r FillRule) Validate() error {
	switch {
	case r.Algorithm != AlgorithmSquare && r.Algorithm != AlgorithmTrack:
		return errors.New(errors.ErrCodeUnknownAlgorithm, "missing fill algorithm")
	case r.Density < 0 || r.Density > 100:
		return errors.New(errors.ErrCodeConfig, "density %g outside [0, 100]", r.Density)
	case r.Deviation < 0:
		return errors.New(errors.ErrCodeConfig, "negative deviation %g", r.Deviation)
	case r.MinWidth <= 0 || r.MinWidth > r.MaxWidth:
		return errors.New(errors.ErrCodeConfig, "invalid width range [%g, %g]", r.MinWidth, r.MaxWidth)
	case r.MaxDepth < 1:
		return errors.New(errors.ErrCodeConfig, "max_depth must be at least 1")
	}

	switch r.Algorithm {
	case AlgorithmSquare:
		if r.MinSpace <= 0 || r.MinSpace > r.MaxSpace {
			return errors.New(errors.ErrCodeConfig, "invalid space range [%g, %g]", r.MinSpace, r.MaxSpace)
		}
	case AlgorithmTrack:
		if r.Orientation == 0 {
			return errors.New(errors.ErrCodeConfig, "track rule needs an orientation")
		}
		if r.CellHeight <= 0 {
			return errors.New(errors.ErrCodeConfig, "track rule needs a positive cell_height")
		}
		if r.Gaps <= 0 {
			return errors.New(errors.ErrCodeConfig, "track rule needs positive gaps")
		}
	}
	return nil
}

// Layer is a fillable layer of a process kit.
type Layer struct {
	Name      string    `toml:"name"`
	Index     int16     `toml:"index"`
	Drawing   int16     `toml:"drawing"`
	Fill      int16     `toml:"fill"`
	NoFill    int16     `toml:"nofill"`
	Kind      LayerKind `toml:"kind"`
	TileWidth int       `toml:"tile_width"`
	Rule      FillRule  `toml:"rule"`
}

// DrawingSpec returns the GDS layer of functional shapes.
func (l Layer) DrawingSpec() gds.LayerSpec {
	return gds.LayerSpec{Layer: l.Index, Datatype: l.Drawing}
}

// FillSpec returns the GDS layer dummy fill is written to.
func (l Layer) FillSpec() gds.LayerSpec {
	return gds.LayerSpec{Layer: l.Index, Datatype: l.Fill}
}

// NoFillSpec returns the GDS layer of user-drawn fill blockages.
func (l Layer) NoFillSpec() gds.LayerSpec {
	return gds.LayerSpec{Layer: l.Index, Datatype: l.NoFill}
}

func (l Layer) validate() error {
	if err := errors.ValidateLayerName(l.Name); err != nil {
		return err
	}
	if l.Kind == 0 {
		return errors.New(errors.ErrCodeConfig, "layer %s: missing kind", l.Name)
	}
	if l.TileWidth <= 0 {
		return errors.New(errors.ErrCodeConfig, "layer %s: tile_width must be positive", l.Name)
	}
	if err := l.Rule.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeConfig, err, "layer %s", l.Name)
	}
	return nil
}

// KindConfig holds the GDS sources a layer kind needs for export.
type KindConfig struct {
	// Border is the width of the tile border strip in microns.
	Border float64 `toml:"border"`

	// KeepAway lists the context layers exported as keep_away_0..N.
	KeepAway []gds.LayerSpec `toml:"keep_away"`

	// Reference is an optional layer exported for information only.
	Reference *gds.LayerSpec `toml:"reference,omitempty"`

	// Core enables the placement core region derived from standard cell rows.
	Core bool `toml:"core"`
}

// Chip holds die-level marker layers.
type Chip struct {
	Sealring      gds.LayerSpec `toml:"sealring"`
	Edgeseal      gds.LayerSpec `toml:"edgeseal"`
	CoreMarker    gds.LayerSpec `toml:"core_marker"`
	CoreRowHeight float64       `toml:"core_row_height"`
	CoreMargin    float64       `toml:"core_margin"`
}
