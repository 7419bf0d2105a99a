package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/gdsfill/pkg/cache"
	"github.com/matzehuels/gdsfill/pkg/errors"
	"github.com/matzehuels/gdsfill/pkg/gds"
	"github.com/matzehuels/gdsfill/pkg/pdk"
)

// Runner executes fill runs with a tile outcome cache.
//
// The Runner is stateless except for the cache and logger. Multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Layout is a loaded layout ready to be filled.
type Layout struct {
	Lib *gds.Library
	Kit *pdk.Kit
	// Checksum is the SHA-256 of the layout file the run started from.
	Checksum string
	// WorkDir holds the tile files of every layer.
	WorkDir string
}

// Execute fills every selected layer of opts.Input and writes the result to
// opts.Output unless opts.DryRun is set. Configuration errors abort the run
// before any tile is exported. A cancelled ctx stops the run between layers
// and before the layout is written, and Execute returns ctx.Err().
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	started := time.Now()

	kit, err := pdk.Load(opts.Process, opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	layers, err := kit.Select(opts.Layers)
	if err != nil {
		return nil, err
	}
	for _, l := range layers {
		if _, err := kit.Kind(l.Kind); err != nil {
			return nil, err
		}
	}

	checksum, err := cache.HashFile(opts.Input)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "hash %s", opts.Input)
	}
	lib, err := gds.ReadFile(opts.Input)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidLayout, err, "read %s", opts.Input)
	}

	runID := uuid.NewString()
	dir, cleanup, err := workDir(&opts, runID)
	if err != nil {
		return nil, fmt.Errorf("work directory: %w", err)
	}
	defer cleanup()
	if opts.KeepData {
		opts.Logger.Info("keeping tile data", "dir", dir)
	}

	layout := &Layout{Lib: lib, Kit: kit, Checksum: checksum, WorkDir: dir}
	result := &Result{
		RunID:    runID,
		Process:  kit.Name,
		Input:    opts.Input,
		Output:   opts.Output,
		Checksum: checksum,
		DryRun:   opts.DryRun,
		Started:  started,
	}
	if opts.KeepData {
		result.WorkDir = dir
	}

	opts.Logger.Info("starting fill",
		"run", runID,
		"process", kit.Name,
		"layers", len(layers),
		"workers", opts.Workers)

	for _, layer := range layers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lr, err := r.FillLayer(ctx, layout, layer, opts)
		if err != nil {
			return nil, fmt.Errorf("layer %s: %w", layer.Name, err)
		}
		result.Layers = append(result.Layers, lr)
	}

	if opts.DryRun {
		opts.Logger.Info("dry run: layout not written")
	} else {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := lib.WriteFile(opts.Output); err != nil {
			return nil, fmt.Errorf("write %s: %w", opts.Output, err)
		}
		opts.Logger.Info("wrote layout", "path", opts.Output)
	}
	result.Duration = time.Since(started)
	return result, nil
}

// FillLayer runs export, prepare, fill and merge for one layer. Tile
// faults are recorded on the tile results; only export and merge failures
// are returned as errors. Running tiles always finish, but a cancelled ctx
// stops the layer before merge.
func (r *Runner) FillLayer(ctx context.Context, layout *Layout, layer pdk.Layer, opts Options) (*LayerResult, error) {
	r.applyLogger(&opts)
	if opts.Progress == nil {
		opts.Progress = func(Event) {}
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	start := time.Now()

	dir, err := newLayerDir(layout.WorkDir, layer.Name)
	if err != nil {
		return nil, fmt.Errorf("work directory: %w", err)
	}
	lr := &LayerResult{Layer: layer.Name, Algorithm: layer.Rule.Algorithm, Rule: layer.Rule}

	m, err := r.export(ctx, layout, layer, dir, opts)
	if err != nil {
		return nil, err
	}
	lr.Manifest = m
	lr.Tiles = make([]TileResult, len(m.Tiles))
	for i, t := range m.Tiles {
		lr.Tiles[i] = TileResult{Tile: t, Stage: StageExported}
		opts.Progress(Event{Layer: layer.Name, Tile: t, Stage: StageExported})
	}
	opts.Logger.Info("exported tiles", "layer", layer.Name, "tiles", len(m.Tiles), "die", m.Die)

	r.prepare(ctx, layer, dir, lr, opts)
	r.fill(ctx, layer, dir, lr, opts)

	s := lr.Summary()
	opts.Logger.Info("filled tiles",
		"layer", layer.Name,
		"success", s.Success,
		"skipped", s.Skipped,
		"failed", s.Failed,
		"cached", s.Cached)

	if opts.DryRun {
		opts.Logger.Debug("dry run: skipping merge", "layer", layer.Name)
	} else {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.merge(ctx, layout, layer, dir, lr, opts); err != nil {
			return nil, err
		}
		lr.Merged = true
	}
	lr.Duration = time.Since(start)
	return lr, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
