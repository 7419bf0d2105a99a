package keepout

import (
	"testing"

	"github.com/matzehuels/gdsfill/pkg/errors"
	"github.com/matzehuels/gdsfill/pkg/geom"
	"github.com/matzehuels/gdsfill/pkg/pdk"
	"github.com/matzehuels/gdsfill/pkg/tile"
)

func metalSet() tile.RegionSet {
	t := tile.New(0, 0, 20)
	s := tile.RegionSet{
		Tile:       t,
		Drawing:    geom.NewRegion(geom.RectUM(5, 5, 8, 8)),
		Filler:     geom.NewRegion(geom.RectUM(12, 12, 13, 13)),
		NoFill:     geom.NewRegion(geom.RectUM(15, 2, 17, 4)),
		TileBorder: tile.Borders(t, 0.42),
	}
	s.KeepAway[0] = geom.NewRegion(geom.RectUM(2, 14, 3, 15))
	// Only the diffusion and poly tables read this slot.
	s.KeepAway[1] = geom.NewRegion(geom.RectUM(10, 2, 11, 3))
	return s
}

func TestComposeMetal(t *testing.T) {
	set := metalSet()
	got, err := Compose(set, pdk.KindMetal)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	want := geom.NewRegion(
		geom.RectUM(4.58, 4.58, 8.42, 8.42),
		geom.RectUM(11.58, 11.58, 13.42, 13.42),
		geom.RectUM(1, 13, 4, 16),
		geom.RectUM(15, 2, 17, 4),
	).Union(tile.Borders(set.Tile, 0.42))
	if !got.Equal(want) {
		t.Errorf("keep-out mismatch:\n got  %v\n want %v", got.Rects(), want.Rects())
	}
	if got.Overlaps(set.KeepAway[1]) {
		t.Error("metal keep-out should ignore keep_away_1")
	}
}

func TestComposeTopMetalMargins(t *testing.T) {
	set := metalSet()
	got, err := Compose(set, pdk.KindTopMetal)
	if err != nil {
		t.Fatal(err)
	}
	grown := geom.NewRegion(geom.RectUM(2, 2, 11, 11))
	if !grown.Subtract(got).Empty() {
		t.Error("drawing should be grown by 3 µm")
	}
	if got.Overlaps(geom.NewRegion(geom.RectUM(11.01, 5, 11.5, 6))) {
		t.Error("drawing grown by more than 3 µm")
	}
}

func TestComposeDeterministic(t *testing.T) {
	set := metalSet()
	set.KeepAway[3] = geom.NewRegion(geom.RectUM(4, 9, 9, 12))
	for _, kind := range []pdk.LayerKind{pdk.KindDiffusion, pdk.KindPoly, pdk.KindMetal, pdk.KindTopMetal} {
		t.Run(kind.String(), func(t *testing.T) {
			a, err := Compose(set, kind)
			if err != nil {
				t.Fatal(err)
			}
			b, _ := Compose(set, kind)
			if !a.Equal(b) {
				t.Error("repeated composition differs")
			}

			// A previously derived keep-out is not an input.
			withOld := set
			withOld.KeepOut = geom.NewRegion(geom.RectUM(0, 0, 20, 20))
			c, _ := Compose(withOld, kind)
			if !a.Equal(c) {
				t.Error("existing keep-out leaked into the composition")
			}
		})
	}
}

func TestFrameEntries(t *testing.T) {
	set := tile.RegionSet{Tile: tile.New(0, 0, 40)}
	set.KeepAway[3] = geom.NewRegion(geom.RectUM(5, 5, 15, 15))

	got, err := Compose(set, pdk.KindDiffusion)
	if err != nil {
		t.Fatal(err)
	}
	if want := int64(12*12-8*8) * geom.DBU * geom.DBU; got.Area() != want {
		t.Errorf("frame area = %d, want %d", got.Area(), want)
	}
	if got.Overlaps(geom.NewRegion(geom.RectUM(6, 6, 14, 14))) {
		t.Error("frame must leave the well interior open for fill")
	}

	poly, _ := Compose(set, pdk.KindPoly)
	if poly.Subtract(got).Empty() {
		t.Error("poly frame margin should be wider than diffusion")
	}
}

func TestTablesResolve(t *testing.T) {
	roles := map[string]bool{}
	for _, r := range tile.Roles {
		roles[r.Name] = true
	}
	for kind, table := range tables {
		for _, e := range table {
			if !roles[e.Source.Name] {
				t.Errorf("%s: source %q is not a tile role", kind, e.Source.Name)
			}
			if e.Frame && e.Margin <= 0 {
				t.Errorf("%s: frame on %s needs a margin", kind, e.Source.Name)
			}
		}
	}
}

func TestUnknownKind(t *testing.T) {
	_, err := Compose(tile.RegionSet{}, pdk.LayerKind(0))
	if !errors.Is(err, errors.ErrCodeConfig) {
		t.Errorf("expected CONFIG_ERROR, got %v", err)
	}
}
