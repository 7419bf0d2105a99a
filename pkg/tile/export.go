package tile

import (
	"fmt"

	"github.com/matzehuels/gdsfill/pkg/errors"
	"github.com/matzehuels/gdsfill/pkg/gds"
	"github.com/matzehuels/gdsfill/pkg/geom"
	"github.com/matzehuels/gdsfill/pkg/pdk"
)

// ExportOptions controls how a layout is cut into tiles.
type ExportOptions struct {
	// CoreSize overrides the placement core derived from standard cell
	// markers. Database units.
	CoreSize *geom.Rect
	// Checksum of the source layout, stored in the manifest.
	Checksum string
}

// Export computes the region sets of every tile of layer. The regions are
// flattened from the top cell once and clipped to each tile window.
func Export(lib *gds.Library, kit *pdk.Kit, layer pdk.Layer, opts ExportOptions) (*Manifest, []RegionSet, error) {
	top, err := lib.Top()
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidLayout, err, "export %s", layer.Name)
	}
	kc, err := kit.Kind(layer.Kind)
	if err != nil {
		return nil, nil, err
	}
	if layer.TileWidth <= 0 {
		return nil, nil, errors.New(errors.ErrCodeConfig, "layer %s: tile width must be positive", layer.Name)
	}

	flat := func(spec gds.LayerSpec) (geom.Region, error) {
		r, err := lib.Flatten(top, spec)
		if err != nil {
			return geom.Region{}, errors.Wrap(errors.ErrCodeInvalidLayout, err, "flatten %s", spec)
		}
		return r, nil
	}

	var whole RegionSet
	if whole.Drawing, err = flat(layer.DrawingSpec()); err != nil {
		return nil, nil, err
	}
	if whole.NoFill, err = flat(layer.NoFillSpec()); err != nil {
		return nil, nil, err
	}
	if whole.Filler, err = flat(layer.FillSpec()); err != nil {
		return nil, nil, err
	}
	for i, spec := range kc.KeepAway {
		if i >= MaxKeepAway {
			break
		}
		if whole.KeepAway[i], err = flat(spec); err != nil {
			return nil, nil, err
		}
	}
	if kc.Reference != nil {
		if whole.Reference, err = flat(*kc.Reference); err != nil {
			return nil, nil, err
		}
	}

	dieBox, err := DieBox(lib, top, kit.Chip)
	if err != nil {
		return nil, nil, err
	}
	sealring, err := flat(kit.Chip.Sealring)
	if err != nil {
		return nil, nil, err
	}
	whole.PlacementChip = sealring.FillHoles()
	if whole.PlacementChip.Empty() {
		whole.PlacementChip = geom.NewRegion(dieBox)
	}

	m := &Manifest{
		Layer:     layer.Name,
		TileWidth: layer.TileWidth,
		Die:       DieFromRect(dieBox),
		Checksum:  opts.Checksum,
	}

	if kc.Core {
		if opts.CoreSize != nil {
			whole.PlacementCore = geom.NewRegion(*opts.CoreSize)
		} else if whole.PlacementCore, err = CoreArea(lib, top, kit.Chip); err != nil {
			return nil, nil, err
		}
		if !whole.PlacementCore.Empty() {
			box := whole.PlacementCore.BBox()
			m.Core = &Core{
				X:      geom.ToMicron(box.X0),
				Y:      geom.ToMicron(box.Y0),
				Width:  geom.ToMicron(box.Width()),
				Height: geom.ToMicron(box.Height()),
			}
		}
	}

	m.Tiles = Partition(m.Die, layer.TileWidth)
	sets := make([]RegionSet, len(m.Tiles))
	for i, t := range m.Tiles {
		sets[i] = whole.clip(t)
		sets[i].TileBorder = Borders(t, kc.Border)
	}
	return m, sets, nil
}

// clip returns the part of every region inside t's window. KeepOut is not
// carried over; it is derived per tile.
func (s *RegionSet) clip(t Tile) RegionSet {
	win := t.Window()
	out := RegionSet{
		Tile:          t,
		Drawing:       s.Drawing.Clip(win),
		NoFill:        s.NoFill.Clip(win),
		PlacementCore: s.PlacementCore.Clip(win),
		PlacementChip: s.PlacementChip.Clip(win),
		Filler:        s.Filler.Clip(win),
		Reference:     s.Reference.Clip(win),
	}
	for i, r := range s.KeepAway {
		out.KeepAway[i] = r.Clip(win)
	}
	return out
}

// DieBox returns the bounding box of the edge seal, or of the whole top cell
// when the layout has none.
func DieBox(lib *gds.Library, top *gds.Cell, chip pdk.Chip) (geom.Rect, error) {
	seal, err := lib.Flatten(top, chip.Edgeseal)
	if err != nil {
		return geom.Rect{}, errors.Wrap(errors.ErrCodeInvalidLayout, err, "flatten edge seal")
	}
	if !seal.Empty() {
		return seal.BBox(), nil
	}
	box, err := lib.BBox(top)
	if err != nil {
		return geom.Rect{}, errors.Wrap(errors.ErrCodeInvalidLayout, err, "bounding box of %s", top.Name)
	}
	if box.Empty() {
		return geom.Rect{}, errors.New(errors.ErrCodeInvalidLayout, "layout %s is empty", top.Name)
	}
	return box, nil
}

// CoreArea derives the standard cell core: every core marker shape exactly
// one row high, merged and grown by the core margin.
func CoreArea(lib *gds.Library, top *gds.Cell, chip pdk.Chip) (geom.Region, error) {
	shapes, err := lib.Shapes(top, chip.CoreMarker)
	if err != nil {
		return geom.Region{}, errors.Wrap(errors.ErrCodeInvalidLayout, err, "collect core markers")
	}
	row := geom.ToDBU(chip.CoreRowHeight)
	var rows []geom.Polygon
	for _, p := range shapes {
		if p.BBox().Height() == row {
			rows = append(rows, p)
		}
	}
	if len(rows) == 0 {
		return geom.Region{}, nil
	}
	return geom.FromPolygons(rows...).SizedUM(chip.CoreMargin), nil
}

// String implements fmt.Stringer for log output.
func (c *Core) String() string {
	if c == nil {
		return "none"
	}
	return fmt.Sprintf("(%g, %g) %gx%g", c.X, c.Y, c.Width, c.Height)
}
