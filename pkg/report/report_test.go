package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/matzehuels/gdsfill/pkg/errors"
	"github.com/matzehuels/gdsfill/pkg/filler"
	"github.com/matzehuels/gdsfill/pkg/gds"
	"github.com/matzehuels/gdsfill/pkg/geom"
	"github.com/matzehuels/gdsfill/pkg/pdk"
	"github.com/matzehuels/gdsfill/pkg/pipeline"
	"github.com/matzehuels/gdsfill/pkg/tile"
)

func testResult() *pipeline.Result {
	return &pipeline.Result{
		RunID:    "run-1",
		Process:  pdk.DefaultProcess,
		Input:    "chip.gds",
		Output:   "chip.gds",
		Checksum: "abc",
		Started:  time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
		Duration: 1500 * time.Millisecond,
		Layers: []*pipeline.LayerResult{{
			Layer:     "Activ",
			Algorithm: pdk.AlgorithmSquare,
			Rule:      pdk.FillRule{Density: 20, Deviation: 5},
			Manifest: &tile.Manifest{
				TileWidth: 20,
				Die:       tile.Die{Width: 40, Height: 40},
			},
			Tiles: []pipeline.TileResult{
				{Tile: tile.New(0, 0, 20), FillOutcome: pipeline.FillOutcome{Status: filler.StatusSuccess, Density: 21.5}},
				{Tile: tile.New(0, 20, 20), FillOutcome: pipeline.FillOutcome{Status: filler.StatusSuccess, Density: 30, Note: "reached maximum depth 4"}},
				{Tile: tile.New(20, 0, 20), FillOutcome: pipeline.FillOutcome{Status: filler.StatusSkipped, Note: "no square fits the tile"}},
				{Tile: tile.New(20, 20, 20), FillOutcome: pipeline.FillOutcome{Status: filler.StatusFailed}, Err: errors.New(errors.ErrCodeGeometryFault, "bad polygon")},
			},
			Merged: true,
		}},
	}
}

func TestNewRecord(t *testing.T) {
	rec := NewRecord(testResult())
	if rec.ID != "run-1" || len(rec.Layers) != 1 {
		t.Fatalf("NewRecord() = %+v", rec)
	}
	l := rec.Layers[0]
	want := LayerRecord{
		Layer:     "Activ",
		Algorithm: "square",
		Target:    20,
		Deviation: 5,
		Span:      20,
		Die:       Box{Width: 40, Height: 40},
		Success:   2,
		Skipped:   1,
		Failed:    1,
		Density:   25.75,
		Merged:    true,
	}
	if diff := cmp.Diff(want, l, cmpopts.IgnoreFields(LayerRecord{}, "Tiles")); diff != "" {
		t.Errorf("layer record mismatch (-want +got):\n%s", diff)
	}

	notes := make([]string, len(l.Tiles))
	for i, tr := range l.Tiles {
		notes[i] = tr.Note
	}
	wantNotes := []string{"", "reached maximum depth 4", "no square fits the tile", "bad polygon"}
	if diff := cmp.Diff(wantNotes, notes); diff != "" {
		t.Errorf("tile notes mismatch (-want +got):\n%s", diff)
	}
	if !rec.Failed() {
		t.Error("Failed() = false with a failed tile")
	}
}

func TestTileColor(t *testing.T) {
	l := LayerRecord{Target: 20, Deviation: 5}
	tests := []struct {
		tile TileRecord
		want tileColor
	}{
		{TileRecord{Status: "success", Density: 15}, colorInBand},
		{TileRecord{Status: "success", Density: 25}, colorInBand},
		{TileRecord{Status: "success", Density: 25.01}, colorOffBand},
		{TileRecord{Status: "skipped"}, colorSkipped},
		{TileRecord{Status: "failed"}, colorFailed},
	}
	for _, tt := range tests {
		if got := l.tileColor(&tt.tile); got != tt.want {
			t.Errorf("tileColor(%+v) = %v, want %v", tt.tile, got, tt.want)
		}
	}
}

func TestWritePDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fill.pdf")
	if err := WritePDF(path, NewRecord(testResult())); err != nil {
		t.Fatalf("WritePDF() error: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("report not created: %v", err)
	}
	if info.Size() == 0 {
		t.Error("report is empty")
	}
}

func TestWritePDFNoLayers(t *testing.T) {
	err := WritePDF(filepath.Join(t.TempDir(), "fill.pdf"), &Record{ID: "empty"})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("WritePDF() error = %v, want INVALID_INPUT", err)
	}
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	for i := range 3 {
		rec := &Record{ID: fmt.Sprintf("run-%d", i), Started: base.Add(time.Duration(i) * time.Hour)}
		if err := store.Save(ctx, rec); err != nil {
			t.Fatalf("Save() error: %v", err)
		}
	}

	got, err := store.Get(ctx, "run-1")
	if err != nil || got == nil {
		t.Fatalf("Get() = %v, %v", got, err)
	}
	if !got.Started.Equal(base.Add(time.Hour)) {
		t.Errorf("Get().Started = %v", got.Started)
	}

	missing, err := store.Get(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("Get(missing) = %v, %v, want nil, nil", missing, err)
	}

	list, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	var ids []string
	for _, r := range list {
		ids = append(ids, r.ID)
	}
	if diff := cmp.Diff([]string{"run-2", "run-1"}, ids); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}

	all, _ := store.List(ctx, 0)
	if len(all) != 3 {
		t.Errorf("List(0) returned %d records, want 3", len(all))
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	rec := NewRecord(testResult())
	if err := store.Save(ctx, rec); err != nil {
		t.Fatal(err)
	}
	got, err := store.Get(ctx, rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestFileStoreRejectsEmptyID(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Save(context.Background(), &Record{}); err == nil {
		t.Error("Save() accepted a record without id")
	}
}

func TestOpenStoreFile(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenStore(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	fs, ok := store.(*FileStore)
	if !ok {
		t.Fatalf("OpenStore() = %T, want *FileStore", store)
	}
	if fs.Path() != dir {
		t.Errorf("Path() = %q, want %q", fs.Path(), dir)
	}
}

func TestOpenStoreMongoBadURI(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := OpenStore(ctx, "mongodb://%zz"); err == nil {
		t.Error("OpenStore() accepted a malformed mongodb uri")
	}
}

func TestLayoutDensity(t *testing.T) {
	kit, err := pdk.Load("", "")
	if err != nil {
		t.Fatal(err)
	}
	activ, err := kit.Layer("Activ")
	if err != nil {
		t.Fatal(err)
	}

	lib := gds.NewLibrary("chip")
	top := lib.AddCell("top")
	ring := geom.NewRegion(geom.RectUM(0, 0, 100, 100)).Subtract(geom.NewRegion(geom.RectUM(10, 10, 90, 90)))
	top.AddRegion(kit.Chip.Sealring, ring)
	top.AddRect(activ.DrawingSpec(), geom.RectUM(20, 20, 40, 40))
	top.AddRect(activ.FillSpec(), geom.RectUM(50, 50, 60, 60))

	got, err := LayoutDensity(lib, kit)
	if err != nil {
		t.Fatalf("LayoutDensity() error: %v", err)
	}
	if len(got) != len(kit.Layers()) {
		t.Fatalf("LayoutDensity() returned %d layers, want %d", len(got), len(kit.Layers()))
	}
	for _, d := range got {
		if d.Layer != "Activ" {
			if d.Density != 0 {
				t.Errorf("%s density = %v, want 0", d.Layer, d.Density)
			}
			continue
		}
		want := LayerDensity{
			Layer:     "Activ",
			Drawing:   400,
			Fill:      100,
			Density:   5,
			Target:    activ.Rule.Density,
			Deviation: activ.Rule.Deviation,
		}
		if diff := cmp.Diff(want, d); diff != "" {
			t.Errorf("Activ density mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestLayoutDensityNoSealring(t *testing.T) {
	kit, err := pdk.Load("", "")
	if err != nil {
		t.Fatal(err)
	}
	lib := gds.NewLibrary("chip")
	lib.AddCell("top").AddRect(gds.LayerSpec{Layer: 1}, geom.RectUM(0, 0, 10, 10))

	got, err := LayoutDensity(lib, kit)
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range got {
		if d.Density != 0 {
			t.Errorf("%s density = %v without a sealring, want 0", d.Layer, d.Density)
		}
	}
}
