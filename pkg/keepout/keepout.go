// Package keepout derives the region a filler must not touch.
//
// Each layer kind has a fixed composition table. An entry either grows a
// source region by a margin or, when it is a frame entry, keeps only the
// band of that margin around the source outline. All entries of a table
// are unioned into one merged region.
package keepout

import (
	"fmt"

	"github.com/matzehuels/gdsfill/pkg/errors"
	"github.com/matzehuels/gdsfill/pkg/geom"
	"github.com/matzehuels/gdsfill/pkg/pdk"
	"github.com/matzehuels/gdsfill/pkg/tile"
)

// Source selects the input region of an entry from a tile's region set.
type Source struct {
	Name   string
	Region func(*tile.RegionSet) geom.Region
}

var (
	drawing    = Source{"drawing", func(s *tile.RegionSet) geom.Region { return s.Drawing }}
	filler     = Source{"filler", func(s *tile.RegionSet) geom.Region { return s.Filler }}
	nofill     = Source{"nofill_area", func(s *tile.RegionSet) geom.Region { return s.NoFill }}
	tileBorder = Source{"tile_border", func(s *tile.RegionSet) geom.Region { return s.TileBorder }}
)

func keepAway(i int) Source {
	return Source{fmt.Sprintf("keep_away_%d", i), func(s *tile.RegionSet) geom.Region { return s.KeepAway[i] }}
}

// Entry is one row of a composition table. Margins are microns.
type Entry struct {
	Source Source
	Margin float64
	Frame  bool
}

func grow(src Source, m float64) Entry { return Entry{Source: src, Margin: m} }

func frame(src Source, m float64) Entry { return Entry{Source: src, Margin: m, Frame: true} }

func plain(src Source) Entry { return Entry{Source: src} }

var tables = map[pdk.LayerKind][]Entry{
	pdk.KindDiffusion: {
		grow(keepAway(1), 1.1),
		grow(keepAway(2), 1.1),
		grow(drawing, 0.42),
		frame(keepAway(3), 1.0),
		frame(keepAway(4), 1.0),
		grow(keepAway(0), 1.0),
		frame(keepAway(5), 1.5),
		plain(nofill),
		plain(tileBorder),
	},
	pdk.KindPoly: {
		grow(keepAway(1), 1.1),
		grow(keepAway(2), 1.1),
		grow(keepAway(5), 1.1),
		grow(keepAway(6), 1.1),
		grow(keepAway(7), 1.1),
		grow(keepAway(8), 1.1),
		frame(keepAway(3), 1.1),
		frame(keepAway(4), 1.1),
		grow(keepAway(0), 1.1),
		plain(nofill),
		plain(tileBorder),
	},
	pdk.KindMetal: {
		grow(filler, 0.42),
		grow(drawing, 0.42),
		grow(keepAway(0), 1.0),
		plain(nofill),
		plain(tileBorder),
	},
	pdk.KindTopMetal: {
		grow(filler, 3.0),
		grow(drawing, 3.0),
		grow(keepAway(0), 4.9),
		plain(nofill),
		plain(tileBorder),
	},
}

// Table returns the composition table of kind.
func Table(kind pdk.LayerKind) ([]Entry, error) {
	t, ok := tables[kind]
	if !ok {
		return nil, errors.New(errors.ErrCodeConfig, "no keep-out table for layer kind %s", kind)
	}
	return t, nil
}

// Compose builds the keep-out region of one tile. The result depends only
// on the region set and kind.
func Compose(set tile.RegionSet, kind pdk.LayerKind) (geom.Region, error) {
	table, err := Table(kind)
	if err != nil {
		return geom.Region{}, err
	}
	parts := make([]geom.Region, 0, len(table))
	for _, e := range table {
		parts = append(parts, e.apply(e.Source.Region(&set)))
	}
	return geom.UnionAll(parts...).Merged(), nil
}

func (e Entry) apply(src geom.Region) geom.Region {
	m := geom.ToDBU(e.Margin)
	if e.Frame {
		return src.Ring(m)
	}
	return src.Sized(m)
}
