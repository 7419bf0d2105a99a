package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/gdsfill/pkg/errors"
	"github.com/matzehuels/gdsfill/pkg/filler"
	"github.com/matzehuels/gdsfill/pkg/gds"
	"github.com/matzehuels/gdsfill/pkg/geom"
	"github.com/matzehuels/gdsfill/pkg/pdk"
	"github.com/matzehuels/gdsfill/pkg/pipeline"
	"github.com/matzehuels/gdsfill/pkg/report"
	"github.com/matzehuels/gdsfill/pkg/tile"
)

// kitOverride limits the run to Activ on 20 µm tiles.
const kitOverride = `
select = ["Activ"]

[layers.Activ]
tile_width = 20
density = 20.0
deviation = 5.0
min_width = 1.0
max_width = 2.0
min_space = 1.0
max_space = 2.0
max_depth = 4
`

func writeLayout(t *testing.T) (input, config string) {
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

	input = filepath.Join(dir, "chip.gds")
	if err := lib.WriteFile(input); err != nil {
		t.Fatal(err)
	}
	config = filepath.Join(dir, "override.toml")
	if err := os.WriteFile(config, []byte(kitOverride), 0644); err != nil {
		t.Fatal(err)
	}
	return input, config
}

func run(t *testing.T, args ...string) error {
	t.Helper()
	root := New(io.Discard, LogInfo).RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	return root.ExecuteContext(context.Background())
}

func TestRootCommand(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()
	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	for _, want := range []string{"fill", "erase", "density", "history", "cache", "completion"} {
		found := false
		for _, n := range names {
			found = found || n == want
		}
		if !found {
			t.Errorf("root command lacks %q (have %v)", want, names)
		}
	}
}

func TestFillEraseDensity(t *testing.T) {
	input, config := writeLayout(t)
	dir := t.TempDir()
	output := filepath.Join(dir, "filled.gds")
	pdf := filepath.Join(dir, "fill.pdf")
	history := filepath.Join(dir, "history")

	err := run(t, "fill", input,
		"--config-file", config,
		"--output", output,
		"--core-size", "5,5,35,35",
		"--no-cache",
		"--report", pdf,
		"--history", history,
	)
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if _, err := os.Stat(pdf); err != nil {
		t.Errorf("report not written: %v", err)
	}

	kit, err := pdk.Load("", config)
	if err != nil {
		t.Fatal(err)
	}
	activ, _ := kit.Layer("Activ")
	lib, err := gds.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	top, _ := lib.Top()
	fill, _ := lib.Flatten(top, activ.FillSpec())
	if fill.Empty() {
		t.Fatal("fill wrote no Activ fill")
	}

	store, err := report.NewFileStore(history)
	if err != nil {
		t.Fatal(err)
	}
	records, err := store.List(context.Background(), 0)
	if err != nil || len(records) != 1 {
		t.Fatalf("history = %d records, %v; want 1", len(records), err)
	}
	if records[0].Output != output {
		t.Errorf("recorded output = %q, want %q", records[0].Output, output)
	}

	if err := run(t, "density", output, "--config-file", config); err != nil {
		t.Errorf("density: %v", err)
	}
	if err := run(t, "history", "--history", history); err != nil {
		t.Errorf("history: %v", err)
	}
	if err := run(t, "history", records[0].ID[:8], "--history", history); err != nil {
		t.Errorf("history %s: %v", records[0].ID[:8], err)
	}

	if err := run(t, "erase", output, "--config-file", config); err != nil {
		t.Fatalf("erase: %v", err)
	}
	lib, err = gds.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	top, _ = lib.Top()
	if fill, _ := lib.Flatten(top, activ.FillSpec()); !fill.Empty() {
		t.Error("erase left Activ fill behind")
	}
	if drawing, _ := lib.Flatten(top, activ.DrawingSpec()); drawing.Empty() {
		t.Error("erase removed functional geometry")
	}
}

func TestFillRejectsUnknownLayer(t *testing.T) {
	input, config := writeLayout(t)
	err := run(t, "fill", input, "--config-file", config, "--layer", "Metal9", "--no-cache", "--dry-run",
		"--history", t.TempDir())
	if !errors.Is(err, errors.ErrCodeUnknownLayer) {
		t.Errorf("fill --layer Metal9 error = %v, want UNKNOWN_LAYER", err)
	}
}

func TestParseCoreSize(t *testing.T) {
	got, err := parseCoreSize("5, 5,35.5,35")
	if err != nil {
		t.Fatal(err)
	}
	if want := geom.RectUM(5, 5, 35.5, 35); got != want {
		t.Errorf("parseCoreSize() = %+v, want %+v", got, want)
	}

	for _, bad := range []string{"", "1,2,3", "a,b,c,d", "10,10,5,5", "-1,0,5,5"} {
		if _, err := parseCoreSize(bad); !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("parseCoreSize(%q) error = %v, want INVALID_INPUT", bad, err)
		}
	}
}

func TestEraseFill(t *testing.T) {
	kit, err := pdk.Load("", "")
	if err != nil {
		t.Fatal(err)
	}
	activ, _ := kit.Layer("Activ")
	metal1, _ := kit.Layer("Metal1")

	lib := gds.NewLibrary("chip")
	sub := lib.AddCell("sub")
	sub.AddRect(activ.FillSpec(), geom.RectUM(0, 0, 1, 1))
	sub.AddRect(activ.DrawingSpec(), geom.RectUM(2, 2, 3, 3))
	top := lib.AddCell("top")
	top.AddRef("sub", geom.Point{})
	top.AddRect(activ.FillSpec(), geom.RectUM(5, 5, 6, 6))
	top.AddRect(metal1.FillSpec(), geom.RectUM(5, 5, 6, 6))

	got := eraseFill(lib, kit)
	if got["Activ"] != 2 || got["Metal1"] != 1 {
		t.Errorf("eraseFill() = %v, want Activ 2, Metal1 1", got)
	}
	if n := sub.Layers()[activ.DrawingSpec()]; n != 1 {
		t.Errorf("drawing shapes after erase = %d, want 1", n)
	}
}

type memStore struct {
	records []*report.Record
}

func (m *memStore) Save(_ context.Context, rec *report.Record) error {
	m.records = append(m.records, rec)
	return nil
}

func (m *memStore) List(context.Context, int) ([]*report.Record, error) { return m.records, nil }

func (m *memStore) Get(_ context.Context, id string) (*report.Record, error) {
	for _, r := range m.records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (m *memStore) Close() error { return nil }

func TestFindRun(t *testing.T) {
	store := &memStore{records: []*report.Record{
		{ID: "abc123", Started: time.Now()},
		{ID: "abd456", Started: time.Now()},
	}}
	ctx := context.Background()

	tests := []struct {
		id      string
		want    string
		wantErr bool
	}{
		{id: "abc123", want: "abc123"},
		{id: "abd", want: "abd456"},
		{id: "ab", wantErr: true},
		{id: "zzz", wantErr: true},
	}
	for _, tt := range tests {
		rec, err := findRun(ctx, store, tt.id)
		if tt.wantErr {
			if err == nil {
				t.Errorf("findRun(%q) = %v, want error", tt.id, rec.ID)
			}
			continue
		}
		if err != nil || rec.ID != tt.want {
			t.Errorf("findRun(%q) = %v, %v, want %s", tt.id, rec, err, tt.want)
		}
	}
}

func TestTileBoard(t *testing.T) {
	cancelled := false
	b := newTileBoard(func() { cancelled = true })

	a := tile.New(0, 0, 20)
	c := tile.New(0, 20, 20)
	for _, ev := range []pipeline.Event{
		{Layer: "Metal1", Tile: a, Stage: pipeline.StageExported},
		{Layer: "Metal1", Tile: c, Stage: pipeline.StageExported},
		{Layer: "Metal1", Tile: a, Stage: pipeline.StagePrepared},
		{Layer: "Metal1", Tile: a, Stage: pipeline.StageFilled, Status: filler.StatusSuccess, Message: "21.50%", Cached: true},
	} {
		b.Update(tileEventMsg(ev))
	}

	l := b.byName["Metal1"]
	if diff := cmp.Diff([]string{"0_0", "0_20"}, l.keys); diff != "" {
		t.Errorf("tile order mismatch (-want +got):\n%s", diff)
	}
	view := b.View()
	for _, want := range []string{"Metal1", "1/2 filled", "1 cached", "0x0 success 21.50%"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() lacks %q:\n%s", want, view)
		}
	}

	if _, cmd := b.Update(runDoneMsg{}); cmd == nil {
		t.Error("runDoneMsg did not quit the board")
	} else if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("runDoneMsg did not return tea.Quit")
	}
	if cancelled {
		t.Error("finished run cancelled the context")
	}

	b.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if !cancelled || !b.aborted {
		t.Error("ctrl+c did not abort the run")
	}
}

func TestGlyph(t *testing.T) {
	tests := []struct {
		ev   pipeline.Event
		want string
	}{
		{pipeline.Event{Stage: pipeline.StageExported}, glyphExported},
		{pipeline.Event{Stage: pipeline.StagePrepared}, glyphPrepared},
		{pipeline.Event{Stage: pipeline.StageFilled, Status: filler.StatusSuccess}, glyphFilled},
		{pipeline.Event{Stage: pipeline.StageFilled, Status: filler.StatusSkipped}, glyphSkipped},
		{pipeline.Event{Stage: pipeline.StageExported, Status: filler.StatusFailed}, glyphFailed},
		{pipeline.Event{Stage: pipeline.StageMerged, Status: filler.StatusSuccess}, glyphFilled},
	}
	for _, tt := range tests {
		if got := glyph(tt.ev); !strings.Contains(got, tt.want) {
			t.Errorf("glyph(%v/%v) = %q, want %q", tt.ev.Stage, tt.ev.Status, got, tt.want)
		}
	}
}
