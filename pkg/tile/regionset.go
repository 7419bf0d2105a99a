package tile

import (
	"fmt"

	"github.com/matzehuels/gdsfill/pkg/gds"
	"github.com/matzehuels/gdsfill/pkg/geom"
)

// MaxKeepAway is the number of keep-away context slots.
const MaxKeepAway = 9

// RegionSet holds the regions of one tile, by role.
type RegionSet struct {
	Tile Tile

	// Drawing is the functional geometry of the layer being filled.
	Drawing geom.Region
	// KeepAway holds context layers that force exclusion margins.
	KeepAway [MaxKeepAway]geom.Region
	// NoFill is the user-drawn fill blockage of the layer.
	NoFill geom.Region
	// TileBorder is the strip along the inside of the tile window.
	TileBorder geom.Region
	// PlacementCore is the standard cell core area, for track fill.
	PlacementCore geom.Region
	// PlacementChip is the area inside the seal ring.
	PlacementChip geom.Region
	// Filler is dummy fill already present on the layer.
	Filler geom.Region
	// Reference is informational geometry, such as fill on a related layer.
	Reference geom.Region
	// KeepOut is derived by the keep-out composer.
	KeepOut geom.Region
}

// Role names a region of a RegionSet in tile files.
type Role struct {
	Name string
	Spec gds.LayerSpec
	get  func(*RegionSet) *geom.Region
}

// Roles is the fixed role table used to serialize region sets.
var Roles = func() []Role {
	roles := []Role{
		{"drawing", gds.LayerSpec{Layer: 1}, func(s *RegionSet) *geom.Region { return &s.Drawing }},
		{"nofill_area", gds.LayerSpec{Layer: 2}, func(s *RegionSet) *geom.Region { return &s.NoFill }},
		{"tile_border", gds.LayerSpec{Layer: 3}, func(s *RegionSet) *geom.Region { return &s.TileBorder }},
		{"placement_core", gds.LayerSpec{Layer: 4}, func(s *RegionSet) *geom.Region { return &s.PlacementCore }},
		{"placement_chip", gds.LayerSpec{Layer: 5}, func(s *RegionSet) *geom.Region { return &s.PlacementChip }},
		{"filler", gds.LayerSpec{Layer: 6}, func(s *RegionSet) *geom.Region { return &s.Filler }},
		{"reference", gds.LayerSpec{Layer: 7}, func(s *RegionSet) *geom.Region { return &s.Reference }},
		{"keep_out", gds.LayerSpec{Layer: 8}, func(s *RegionSet) *geom.Region { return &s.KeepOut }},
	}
	for i := range MaxKeepAway {
		roles = append(roles, Role{
			Name: fmt.Sprintf("keep_away_%d", i),
			Spec: gds.LayerSpec{Layer: int16(10 + i)},
			get:  func(s *RegionSet) *geom.Region { return &s.KeepAway[i] },
		})
	}
	return roles
}()

const cellName = "TILE"

// Library writes the region set into a single-cell library.
func (s *RegionSet) Library() *gds.Library {
	lib := gds.NewLibrary("tile_" + s.Tile.Key)
	c := lib.AddCell(cellName)
	for _, role := range Roles {
		if r := role.get(s); !r.Empty() {
			c.AddRegion(role.Spec, *r)
		}
	}
	return lib
}

// DecodeRegionSet reads a region set written by [RegionSet.Library].
func DecodeRegionSet(lib *gds.Library, t Tile) (*RegionSet, error) {
	c, ok := lib.Cell(cellName)
	if !ok {
		return nil, fmt.Errorf("tile %s: %w: %s", t.Key, gds.ErrCellNotFound, cellName)
	}
	s := &RegionSet{Tile: t}
	for _, role := range Roles {
		r, err := lib.Flatten(c, role.Spec)
		if err != nil {
			return nil, fmt.Errorf("tile %s: %s: %w", t.Key, role.Name, err)
		}
		*role.get(s) = r
	}
	return s, nil
}

// WriteFile writes the region set as a tile file.
func (s *RegionSet) WriteFile(path string) error {
	return s.Library().WriteFile(path)
}

// ReadRegionSet reads a tile file.
func ReadRegionSet(path string, t Tile) (*RegionSet, error) {
	lib, err := gds.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeRegionSet(lib, t)
}
