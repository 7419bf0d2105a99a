package pipeline

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/gdsfill/pkg/cache"
	"github.com/matzehuels/gdsfill/pkg/errors"
	"github.com/matzehuels/gdsfill/pkg/filler"
	"github.com/matzehuels/gdsfill/pkg/gds"
	"github.com/matzehuels/gdsfill/pkg/geom"
	"github.com/matzehuels/gdsfill/pkg/pdk"
	"github.com/matzehuels/gdsfill/pkg/tile"
)

// override shrinks tiles and rules so that a 40x40 µm die fills quickly.
const override = `
select = ["Activ", "Metal1"]

[layers.Activ]
tile_width = 20
density = 20.0
deviation = 5.0
min_width = 1.0
max_width = 2.0
min_space = 1.0
max_space = 2.0
max_depth = 4

[layers.Metal1]
tile_width = 20
`

// fixture writes a 40x40 µm layout and its kit override into a temp dir.
func fixture(t *testing.T) (input, config string) {
	t.Helper()
	dir := t.TempDir()
	kit, err := pdk.Load("", "")
	if err != nil {
		t.Fatal(err)
	}

	lib := gds.NewLibrary("chip")
	top := lib.AddCell("top")
	top.AddRect(kit.Chip.Edgeseal, geom.RectUM(0, 0, 40, 40))
	ring := geom.NewRegion(geom.RectUM(1, 1, 39, 39)).Subtract(geom.NewRegion(geom.RectUM(2, 2, 38, 38)))
	top.AddRegion(kit.Chip.Sealring, ring)
	top.AddRect(gds.LayerSpec{Layer: 1}, geom.RectUM(5, 5, 15, 8))
	top.AddRect(gds.LayerSpec{Layer: 8}, geom.RectUM(3, 10, 37, 10.5))
	top.AddRect(gds.LayerSpec{Layer: 8}, geom.RectUM(3, 14, 37, 14.5))

	input = filepath.Join(dir, "chip.gds")
	if err := lib.WriteFile(input); err != nil {
		t.Fatal(err)
	}
	config = filepath.Join(dir, "override.toml")
	if err := os.WriteFile(config, []byte(override), 0644); err != nil {
		t.Fatal(err)
	}
	return input, config
}

func baseOptions(input, config string) Options {
	core := geom.RectUM(5, 5, 35, 35)
	return Options{
		Input:      input,
		ConfigFile: config,
		CoreSize:   &core,
		Workers:    4,
	}
}

func TestValidateAndSetDefaults(t *testing.T) {
	input, _ := fixture(t)

	var empty Options
	if err := empty.ValidateAndSetDefaults(); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("missing input: got %v", err)
	}

	missing := Options{Input: filepath.Join(t.TempDir(), "nope.gds")}
	if err := missing.ValidateAndSetDefaults(); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing file: got %v", err)
	}

	badCore := geom.Rect{X0: geom.ToDBU(10), Y0: geom.ToDBU(10), X1: geom.ToDBU(5), Y1: geom.ToDBU(20)}
	inverted := Options{Input: input, CoreSize: &badCore}
	if err := inverted.ValidateAndSetDefaults(); err == nil {
		t.Error("inverted core size should be rejected")
	}

	opts := Options{Input: input, KeepData: true}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults: %v", err)
	}
	if opts.Output != input {
		t.Errorf("Output = %q, want input path", opts.Output)
	}
	if opts.Process != pdk.DefaultProcess {
		t.Errorf("Process = %q", opts.Process)
	}
	if opts.Workers <= 0 {
		t.Errorf("Workers = %d", opts.Workers)
	}
	if opts.WorkDir != KeepDataDir {
		t.Errorf("WorkDir = %q, want %q", opts.WorkDir, KeepDataDir)
	}
	if opts.Logger == nil || opts.Progress == nil {
		t.Error("logger and progress defaults not set")
	}
}

func TestExecuteDryRunLeavesLayoutUnchanged(t *testing.T) {
	input, config := fixture(t)
	before, err := cache.HashFile(input)
	if err != nil {
		t.Fatal(err)
	}

	var events []Event
	opts := baseOptions(input, config)
	opts.DryRun = true
	opts.Progress = func(e Event) { events = append(events, e) }

	res, err := NewRunner(nil, nil, nil).Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	after, _ := cache.HashFile(input)
	if before != after {
		t.Error("dry run modified the input layout")
	}
	if res.Checksum != before {
		t.Errorf("result checksum = %s, want %s", res.Checksum, before)
	}
	if len(res.Layers) != 2 {
		t.Fatalf("got %d layers, want 2", len(res.Layers))
	}

	for _, lr := range res.Layers {
		if lr.Merged {
			t.Errorf("%s merged on a dry run", lr.Layer)
		}
		if len(lr.Tiles) != 4 {
			t.Errorf("%s: %d tiles, want 4", lr.Layer, len(lr.Tiles))
		}
		for _, tr := range lr.Tiles {
			if tr.Status == filler.StatusFailed {
				t.Errorf("%s tile %s failed: %s", lr.Layer, tr.Tile.Key, tr.Message())
			}
			if tr.Stage != StageFilled {
				t.Errorf("%s tile %s ended in stage %s", lr.Layer, tr.Tile.Key, tr.Stage)
			}
		}
	}

	activ := res.Layers[0]
	if activ.Layer != "Activ" || activ.Algorithm != pdk.AlgorithmSquare {
		t.Fatalf("first layer = %s (%s)", activ.Layer, activ.Algorithm)
	}
	if s := activ.Summary(); s.Success != 4 {
		t.Errorf("Activ summary = %+v, want 4 successful tiles", s)
	}

	metal := res.Layers[1]
	if got := metal.Tiles[0].Status; got != filler.StatusSuccess {
		t.Errorf("Metal1 tile 0_0 status = %s, want success", got)
	}
	// No Metal1 wire reaches the upper row of tiles.
	if got := metal.Tiles[1].Status; got != filler.StatusSkipped {
		t.Errorf("Metal1 tile 0_1 status = %s, want skipped", got)
	}

	stages := map[Stage]int{}
	for _, e := range events {
		stages[e.Stage]++
	}
	want := map[Stage]int{StageExported: 8, StagePrepared: 8, StageFilled: 8}
	if diff := cmp.Diff(want, stages); diff != "" {
		t.Errorf("event stages (-want +got):\n%s", diff)
	}
}

func TestExecuteMergesFill(t *testing.T) {
	input, config := fixture(t)
	before, _ := cache.HashFile(input)

	opts := baseOptions(input, config)
	opts.Output = filepath.Join(t.TempDir(), "filled.gds")
	res, err := NewRunner(nil, nil, nil).Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if after, _ := cache.HashFile(input); after != before {
		t.Error("input changed although output was redirected")
	}

	out, err := gds.ReadFile(opts.Output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	top, err := out.Top()
	if err != nil {
		t.Fatal(err)
	}

	kit, err := pdk.Load("", config)
	if err != nil {
		t.Fatal(err)
	}
	for _, lr := range res.Layers {
		if !lr.Merged {
			t.Errorf("%s not merged", lr.Layer)
		}
		layer, err := kit.Layer(lr.Layer)
		if err != nil {
			t.Fatal(err)
		}
		got, err := out.Flatten(top, layer.FillSpec())
		if err != nil {
			t.Fatal(err)
		}
		var want geom.Region
		for _, tr := range lr.Tiles {
			if tr.Status == filler.StatusSuccess {
				if tr.Stage != StageMerged {
					t.Errorf("%s tile %s stage = %s, want merged", lr.Layer, tr.Tile.Key, tr.Stage)
				}
				want = want.Union(tr.Region())
			}
		}
		if want.Empty() {
			t.Errorf("%s produced no fill", lr.Layer)
		}
		if !got.Equal(want) {
			t.Errorf("%s: merged fill area %d, tile fill area %d", lr.Layer, got.Area(), want.Area())
		}
		drawing, _ := out.Flatten(top, layer.DrawingSpec())
		if got.Overlaps(drawing) {
			t.Errorf("%s fill overlaps drawing", lr.Layer)
		}
	}
}

func TestExecuteCancelledLeavesLayoutUnchanged(t *testing.T) {
	input, config := fixture(t)
	before, _ := cache.HashFile(input)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := NewRunner(nil, nil, nil).Execute(ctx, baseOptions(input, config))
	if !stderrors.Is(err, context.Canceled) {
		t.Fatalf("got %v, %v; want context.Canceled", res, err)
	}
	if after, _ := cache.HashFile(input); after != before {
		t.Error("cancelled run rewrote the input layout")
	}
}

func TestExecuteCancelledDuringFill(t *testing.T) {
	input, config := fixture(t)
	before, _ := cache.HashFile(input)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var filled int
	opts := baseOptions(input, config)
	opts.Progress = func(e Event) {
		switch e.Stage {
		case StageFilled:
			filled++
			cancel()
		case StageMerged:
			t.Errorf("tile %s merged after cancellation", e.Tile.Key)
		}
	}

	_, err := NewRunner(nil, nil, nil).Execute(ctx, opts)
	if !stderrors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	// Tiles already running are not interrupted.
	if filled != 4 {
		t.Errorf("%d tiles filled, want all 4 of the first layer", filled)
	}
	if after, _ := cache.HashFile(input); after != before {
		t.Error("cancelled run rewrote the input layout")
	}
}

func TestFillLayerIsolatesFaultyTile(t *testing.T) {
	input, config := fixture(t)
	kit, err := pdk.Load("", config)
	if err != nil {
		t.Fatal(err)
	}
	layer, err := kit.Layer("Activ")
	if err != nil {
		t.Fatal(err)
	}
	lib, err := gds.ReadFile(input)
	if err != nil {
		t.Fatal(err)
	}
	sum, _ := cache.HashFile(input)
	layout := &Layout{Lib: lib, Kit: kit, Checksum: sum, WorkDir: t.TempDir()}

	const broken = "0_20"
	raw := filepath.Join(layout.WorkDir, "Activ", "raw", "tile_"+broken+".gds")
	core := geom.RectUM(5, 5, 35, 35)
	opts := Options{Workers: 4, CoreSize: &core, Progress: func(e Event) {
		if e.Stage == StageExported && e.Tile.Key == broken && e.Status != filler.StatusFailed {
			if err := os.WriteFile(raw, []byte("not a layout"), 0644); err != nil {
				t.Fatal(err)
			}
		}
	}}

	lr, err := NewRunner(nil, nil, nil).FillLayer(context.Background(), layout, layer, opts)
	if err != nil {
		t.Fatalf("FillLayer: %v", err)
	}
	if !lr.Merged {
		t.Error("layer with one faulty tile was not merged")
	}

	top, _ := lib.Top()
	merged, err := lib.Flatten(top, layer.FillSpec())
	if err != nil {
		t.Fatal(err)
	}
	for _, tr := range lr.Tiles {
		if tr.Tile.Key == broken {
			if tr.Status != filler.StatusFailed || !errors.IsGeometryFault(tr.Err) {
				t.Errorf("tile %s = %s (%v), want failed with a geometry fault", broken, tr.Status, tr.Err)
			}
			if tr.Stage == StageMerged {
				t.Errorf("failed tile %s was merged", broken)
			}
			if merged.Overlaps(geom.NewRegion(tr.Tile.Window())) {
				t.Errorf("merged fill reaches into failed tile %s", broken)
			}
			continue
		}
		if tr.Status != filler.StatusSuccess || tr.Stage != StageMerged {
			t.Errorf("tile %s = %s/%s, want success/merged", tr.Tile.Key, tr.Status, tr.Stage)
		}
	}
}

func TestExecuteConfigErrorAbortsEarly(t *testing.T) {
	input, _ := fixture(t)
	work := filepath.Join(t.TempDir(), "work")

	_, err := NewRunner(nil, nil, nil).Execute(context.Background(), Options{
		Input:   input,
		Layers:  []string{"Metal9"},
		WorkDir: work,
	})
	if !errors.Is(err, errors.ErrCodeUnknownLayer) {
		t.Fatalf("got %v, want UNKNOWN_LAYER", err)
	}
	if _, err := os.Stat(work); !os.IsNotExist(err) {
		t.Error("work directory created before configuration was validated")
	}

	_, err = NewRunner(nil, nil, nil).Execute(context.Background(), Options{Input: input, Process: "sky130"})
	if !errors.Is(err, errors.ErrCodeUnknownProcess) {
		t.Errorf("got %v, want UNKNOWN_PROCESS", err)
	}
}

func TestExecuteCacheHit(t *testing.T) {
	input, config := fixture(t)
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(c, nil, nil)

	opts := baseOptions(input, config)
	opts.DryRun = true
	first, err := runner.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := runner.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if first.RunID == second.RunID {
		t.Error("runs share an ID")
	}

	for i, lr := range second.Layers {
		if s := lr.Summary(); s.Cached != len(lr.Tiles) {
			t.Errorf("%s: %d of %d tiles cached", lr.Layer, s.Cached, len(lr.Tiles))
		}
		for j, tr := range lr.Tiles {
			want := first.Layers[i].Tiles[j].FillOutcome
			if diff := cmp.Diff(want, tr.FillOutcome); diff != "" {
				t.Errorf("%s tile %s outcome (-first +cached):\n%s", lr.Layer, tr.Tile.Key, diff)
			}
		}
	}
}

func TestExecuteKeepData(t *testing.T) {
	input, config := fixture(t)
	work := filepath.Join(t.TempDir(), "keep")

	opts := baseOptions(input, config)
	opts.DryRun = true
	opts.KeepData = true
	opts.WorkDir = work
	opts.Layers = []string{"Activ"}
	res, err := NewRunner(nil, nil, nil).Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.WorkDir != work {
		t.Errorf("WorkDir = %q, want %q", res.WorkDir, work)
	}

	m, err := tile.ReadManifest(filepath.Join(work, "Activ", tile.ManifestFile))
	if err != nil {
		t.Fatalf("manifest: %v", err)
	}
	if m.Checksum != res.Checksum {
		t.Errorf("manifest checksum = %s, want %s", m.Checksum, res.Checksum)
	}
	for _, tl := range m.Tiles {
		for _, stage := range []string{"raw", "modified", "filled"} {
			path := filepath.Join(work, "Activ", stage, "tile_"+tl.Key+".gds")
			if _, err := os.Stat(path); err != nil {
				t.Errorf("missing %s", path)
			}
		}
	}
}

func TestMergeRejectsForeignManifest(t *testing.T) {
	input, config := fixture(t)
	kit, err := pdk.Load("", config)
	if err != nil {
		t.Fatal(err)
	}
	layer, err := kit.Layer("Activ")
	if err != nil {
		t.Fatal(err)
	}
	lib, err := gds.ReadFile(input)
	if err != nil {
		t.Fatal(err)
	}
	layout := &Layout{Lib: lib, Kit: kit, Checksum: "abc", WorkDir: t.TempDir()}
	manifest := filepath.Join(layout.WorkDir, "Activ", tile.ManifestFile)

	tampered := false
	opts := Options{Workers: 2, Progress: func(e Event) {
		if e.Stage != StageFilled || tampered {
			return
		}
		tampered = true
		m, err := tile.ReadManifest(manifest)
		if err != nil {
			t.Fatal(err)
		}
		m.Checksum = "other"
		if err := m.WriteFile(manifest); err != nil {
			t.Fatal(err)
		}
	}}

	_, err = NewRunner(nil, nil, nil).FillLayer(context.Background(), layout, layer, opts)
	if !errors.Is(err, errors.ErrCodeChecksumMismatch) {
		t.Errorf("got %v, want CHECKSUM_MISMATCH", err)
	}
}

func TestTileIndependence(t *testing.T) {
	input, config := fixture(t)
	kit, err := pdk.Load("", config)
	if err != nil {
		t.Fatal(err)
	}
	opts := baseOptions(input, config)
	opts.DryRun = true
	res, err := NewRunner(nil, nil, nil).Execute(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	lib, err := gds.ReadFile(input)
	if err != nil {
		t.Fatal(err)
	}

	for _, lr := range res.Layers {
		layer, _ := kit.Layer(lr.Layer)
		_, sets, err := tile.Export(lib, kit, layer, tile.ExportOptions{CoreSize: opts.CoreSize})
		if err != nil {
			t.Fatal(err)
		}
		for i := range sets {
			set := &sets[i]
			if set.KeepOut, err = RunKeepout(set, layer.Kind); err != nil {
				t.Fatal(err)
			}
			alone := RunFill(set.Tile, layer, set)
			if diff := cmp.Diff(alone, lr.Tiles[i].FillOutcome); diff != "" {
				t.Errorf("%s tile %s differs when filled alone (-alone +concurrent):\n%s",
					lr.Layer, set.Tile.Key, diff)
			}
		}
	}
}

func TestRunFillUnknownAlgorithm(t *testing.T) {
	layer := pdk.Layer{Name: "Metal1", Rule: pdk.FillRule{Algorithm: pdk.Algorithm(9)}}
	out := RunFill(tile.New(0, 0, 10), layer, &tile.RegionSet{})
	if out.Status != filler.StatusFailed {
		t.Errorf("status = %s, want failed", out.Status)
	}
	if out.Note == "" {
		t.Error("failed outcome has no message")
	}
}

func TestRunUnits(t *testing.T) {
	const n, limit = 20, 3
	var active, peak atomic.Int32

	got := make([]int, n)
	runUnits(n, limit,
		func(i int) int {
			cur := active.Add(1)
			defer active.Add(-1)
			for {
				p := peak.Load()
				if cur <= p || peak.CompareAndSwap(p, cur) {
					break
				}
			}
			if i == 7 {
				panic("boom")
			}
			return i * i
		},
		func(i int, err error) int { return -1 },
		func(i int, v int) { got[i] = v },
	)

	for i, v := range got {
		want := i * i
		if i == 7 {
			want = -1
		}
		if v != want {
			t.Errorf("result %d = %d, want %d", i, v, want)
		}
	}
	if p := peak.Load(); p > limit {
		t.Errorf("%d workers ran at once, limit %d", p, limit)
	}
}

func TestSummary(t *testing.T) {
	lr := &LayerResult{Tiles: []TileResult{
		{FillOutcome: FillOutcome{Status: filler.StatusSuccess, Density: 40}, Cached: true},
		{FillOutcome: FillOutcome{Status: filler.StatusSuccess, Density: 45}},
		{FillOutcome: FillOutcome{Status: filler.StatusSkipped}},
		{FillOutcome: FillOutcome{Status: filler.StatusFailed}},
	}}
	want := Summary{Success: 2, Skipped: 1, Failed: 1, Cached: 1, Density: 42.5}
	if diff := cmp.Diff(want, lr.Summary()); diff != "" {
		t.Errorf("Summary (-want +got):\n%s", diff)
	}
	res := &Result{Layers: []*LayerResult{lr}}
	if !res.Failed() {
		t.Error("Result.Failed() = false with a failed tile")
	}
}

func TestTileMessage(t *testing.T) {
	tests := []struct {
		res  TileResult
		want string
	}{
		{TileResult{FillOutcome: FillOutcome{Status: filler.StatusSuccess, Density: 21.5}}, "21.50%"},
		{TileResult{FillOutcome: FillOutcome{Status: filler.StatusSuccess, Density: 3, Note: "width sweep exhausted at 3.00%"}}, "3.00% (width sweep exhausted at 3.00%)"},
		{TileResult{FillOutcome: FillOutcome{Status: filler.StatusSkipped, Note: "tile has no placement core"}}, "tile has no placement core"},
		{TileResult{Err: errors.New(errors.ErrCodeGeometryFault, "read tile 0_0")}, "read tile 0_0"},
	}
	for _, tt := range tests {
		if got := tt.res.Message(); got != tt.want {
			t.Errorf("Message() = %q, want %q", got, tt.want)
		}
	}
}
