// Package pipeline runs dummy fill over a layout, layer by layer and tile by
// tile.
//
// # Architecture
//
// Every selected layer passes through four stages:
//
//  1. Export: cut the layout into tiles and write one tile file per tile,
//     plus a manifest, into the work directory
//  2. Prepare: compose the keep-out region of every tile
//  3. Fill: run the layer's fill algorithm on every tile
//  4. Merge: copy the fill of every tile back into the layout
//
// Prepare and Fill run one worker per tile, bounded by Options.Workers.
// Merge is sequential and is skipped on a dry run.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Input:  "chip.gds",
//	    Layers: []string{"Metal1", "Metal2"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, lr := range result.Layers {
//	    fmt.Println(lr.Layer, lr.Summary())
//	}
package pipeline

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gdsfill/pkg/errors"
	"github.com/matzehuels/gdsfill/pkg/filler"
	"github.com/matzehuels/gdsfill/pkg/geom"
	"github.com/matzehuels/gdsfill/pkg/pdk"
	"github.com/matzehuels/gdsfill/pkg/tile"
)

// KeepDataDir is the work directory used when intermediate data is kept.
const KeepDataDir = "gdsfill-tmp"

// Stage names a step of the per-tile state machine.
type Stage string

const (
	StageExported Stage = "exported"
	StagePrepared Stage = "prepared"
	StageFilled   Stage = "filled"
	StageMerged   Stage = "merged"
)

// =============================================================================
// Options
// =============================================================================

// Options configures a fill run.
type Options struct {
	// Input is the GDSII layout to fill.
	Input string
	// Output is where the filled layout is written. Defaults to Input.
	Output string

	// Process selects the built-in process kit.
	Process string
	// ConfigFile is an optional TOML override of the kit.
	ConfigFile string
	// Layers restricts the run to the named layers.
	Layers []string

	// CoreSize overrides the placement core, in database units.
	CoreSize *geom.Rect
	// DryRun fills every tile but does not merge or write the layout.
	DryRun bool
	// KeepData keeps tile files in WorkDir after the run.
	KeepData bool
	// WorkDir holds tile files. Defaults to a temporary directory, or to
	// KeepDataDir when KeepData is set.
	WorkDir string

	// Workers bounds the number of tiles processed at once.
	Workers int

	// Progress receives tile events. It is called from a single goroutine.
	Progress func(Event)
	Logger   *log.Logger

	validated bool
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Input == "" {
		return errors.New(errors.ErrCodeInvalidInput, "input layout is required")
	}
	if err := errors.ValidatePath(o.Input); err != nil {
		return err
	}
	if _, err := os.Stat(o.Input); err != nil {
		return errors.Wrap(errors.ErrCodeFileNotFound, err, "input layout %s", o.Input)
	}
	if o.Output == "" {
		o.Output = o.Input
	}
	if err := errors.ValidatePath(o.Output); err != nil {
		return err
	}
	if o.CoreSize != nil {
		c := o.CoreSize
		if err := errors.ValidateCoreSize(
			geom.ToMicron(c.X0), geom.ToMicron(c.Y0), geom.ToMicron(c.X1), geom.ToMicron(c.Y1),
		); err != nil {
			return err
		}
	}
	if o.Process == "" {
		o.Process = pdk.DefaultProcess
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.KeepData && o.WorkDir == "" {
		o.WorkDir = KeepDataDir
	}
	if o.Progress == nil {
		o.Progress = func(Event) {}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// =============================================================================
// Results
// =============================================================================

// Event reports a tile reaching a stage.
type Event struct {
	Layer  string
	Tile   tile.Tile
	Stage  Stage
	Status filler.Status
	// Density is the achieved density of a filled tile.
	Density float64
	Message string
	Cached  bool
}

// TileResult is the terminal state of one tile.
type TileResult struct {
	Tile  tile.Tile
	Stage Stage
	FillOutcome
	Err      error
	Cached   bool
	Duration time.Duration
}

// Message is the status line text of the tile.
func (r *TileResult) Message() string {
	switch {
	case r.Err != nil:
		return errors.UserMessage(r.Err)
	case r.Status == filler.StatusSuccess && r.Note != "":
		return formatDensity(r.Density) + " (" + r.Note + ")"
	case r.Status == filler.StatusSuccess:
		return formatDensity(r.Density)
	default:
		return r.Note
	}
}

// LayerResult collects the tiles of one layer.
type LayerResult struct {
	Layer     string
	Algorithm pdk.Algorithm
	Rule      pdk.FillRule
	Manifest  *tile.Manifest
	Tiles     []TileResult
	Merged    bool
	Duration  time.Duration
}

// Summary counts tiles per terminal status.
type Summary struct {
	Success int
	Skipped int
	Failed  int
	Cached  int
	// Density is the mean achieved density of successful tiles.
	Density float64
}

// Summary counts the tiles of the layer.
func (lr *LayerResult) Summary() Summary {
	var s Summary
	var total float64
	for _, t := range lr.Tiles {
		switch t.Status {
		case filler.StatusSuccess:
			s.Success++
			total += t.Density
		case filler.StatusSkipped:
			s.Skipped++
		default:
			s.Failed++
		}
		if t.Cached {
			s.Cached++
		}
	}
	if s.Success > 0 {
		s.Density = roundDensity(total / float64(s.Success))
	}
	return s
}

// Result is the outcome of a run.
type Result struct {
	RunID    string
	Process  string
	Input    string
	Output   string
	Checksum string
	DryRun   bool
	WorkDir  string
	Layers   []*LayerResult
	Started  time.Time
	Duration time.Duration
}

// Failed reports whether any tile of any layer failed.
func (r *Result) Failed() bool {
	for _, lr := range r.Layers {
		if lr.Summary().Failed > 0 {
			return true
		}
	}
	return false
}

// workDir resolves the directory for tile files. The returned cleanup
// removes a temporary directory.
func workDir(opts *Options, runID string) (string, func(), error) {
	if opts.WorkDir != "" {
		dir, err := filepath.Abs(opts.WorkDir)
		if err != nil {
			return "", nil, err
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", nil, err
		}
		return dir, func() {}, nil
	}
	dir, err := os.MkdirTemp("", "gdsfill-"+runID[:8]+"-")
	if err != nil {
		return "", nil, err
	}
	return dir, func() { _ = os.RemoveAll(dir) }, nil
}
