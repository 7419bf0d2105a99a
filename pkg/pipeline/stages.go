package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/matzehuels/gdsfill/pkg/cache"
	"github.com/matzehuels/gdsfill/pkg/errors"
	"github.com/matzehuels/gdsfill/pkg/filler"
	"github.com/matzehuels/gdsfill/pkg/gds"
	"github.com/matzehuels/gdsfill/pkg/observability"
	"github.com/matzehuels/gdsfill/pkg/pdk"
	"github.com/matzehuels/gdsfill/pkg/tile"
)

const (
	hookPrepare = "prepare"
	hookFill    = "fill"
	keyTypeTile = "tile"
)

func (r *Runner) export(ctx context.Context, layout *Layout, layer pdk.Layer, dir layerDir, opts Options) (*tile.Manifest, error) {
	hooks := observability.Pipeline()
	hooks.OnExportStart(ctx, layer.Name)
	start := time.Now()

	m, sets, err := tile.Export(layout.Lib, layout.Kit, layer, tile.ExportOptions{
		CoreSize: opts.CoreSize,
		Checksum: layout.Checksum,
	})
	if err == nil {
		err = m.WriteFile(dir.manifest())
	}
	if err == nil {
		for i := range sets {
			if err = sets[i].WriteFile(dir.raw(sets[i].Tile)); err != nil {
				break
			}
		}
	}
	hooks.OnExportComplete(ctx, layer.Name, len(sets), time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// prepare composes the keep-out region of every exported tile and writes
// the prepared tile file.
func (r *Runner) prepare(ctx context.Context, layer pdk.Layer, dir layerDir, lr *LayerResult, opts Options) {
	tiles := lr.Manifest.Tiles
	hooks := observability.Pipeline()

	work := func(i int) TileResult {
		t := tiles[i]
		hooks.OnTileStart(ctx, layer.Name, hookPrepare, t.Key)
		start := time.Now()
		res, status := TileResult{Tile: t, Stage: StagePrepared}, string(StagePrepared)

		err := prepareTile(t, layer.Kind, dir)
		if err != nil {
			res, status = failed(t, StageExported, err), filler.StatusFailed.String()
		}
		res.Duration = time.Since(start)
		hooks.OnTileComplete(ctx, layer.Name, hookPrepare, t.Key, status, res.Duration, err)
		return res
	}
	fail := func(i int, err error) TileResult {
		return failed(tiles[i], StageExported, errors.Wrap(errors.ErrCodeInternal, err, "prepare tile %s", tiles[i].Key))
	}
	runUnits(len(tiles), opts.Workers, work, fail, func(i int, res TileResult) {
		lr.Tiles[i] = res
		opts.Progress(res.event(layer.Name))
	})
}

func prepareTile(t tile.Tile, kind pdk.LayerKind, dir layerDir) error {
	set, err := tile.ReadRegionSet(dir.raw(t), t)
	if err != nil {
		return errors.Wrap(errors.ErrCodeGeometryFault, err, "read tile %s", t.Key)
	}
	if set.KeepOut, err = RunKeepout(set, kind); err != nil {
		return err
	}
	if err := set.WriteFile(dir.modified(t)); err != nil {
		return errors.Wrap(errors.ErrCodeGeometryFault, err, "write tile %s", t.Key)
	}
	return nil
}

// fill runs the fill algorithm on every prepared tile. Outcomes are looked
// up in the cache first, keyed by the content of the prepared tile file.
func (r *Runner) fill(ctx context.Context, layer pdk.Layer, dir layerDir, lr *LayerResult, opts Options) {
	var (
		idx   []int
		tiles []tile.Tile
	)
	for i, res := range lr.Tiles {
		if res.Stage == StagePrepared {
			idx = append(idx, i)
			tiles = append(tiles, res.Tile)
		}
	}
	hooks := observability.Pipeline()

	work := func(i int) TileResult {
		t := tiles[i]
		hooks.OnTileStart(ctx, layer.Name, hookFill, t.Key)
		start := time.Now()

		res := r.fillTile(ctx, layer, t, dir, opts)
		res.Duration = time.Since(start)
		hooks.OnTileComplete(ctx, layer.Name, hookFill, t.Key, res.Status.String(), res.Duration, res.Err)
		return res
	}
	fail := func(i int, err error) TileResult {
		return failed(tiles[i], StagePrepared, errors.Wrap(errors.ErrCodeInternal, err, "fill tile %s", tiles[i].Key))
	}
	runUnits(len(tiles), opts.Workers, work, fail, func(i int, res TileResult) {
		lr.Tiles[idx[i]] = res
		opts.Progress(res.event(layer.Name))
	})
}

func (r *Runner) fillTile(ctx context.Context, layer pdk.Layer, t tile.Tile, dir layerDir, opts Options) TileResult {
	path := dir.modified(t)
	sum, err := cache.HashFile(path)
	if err != nil {
		return failed(t, StagePrepared, errors.Wrap(errors.ErrCodeGeometryFault, err, "read tile %s", t.Key))
	}
	key := r.Keyer.TileKey(cache.TileKeyOpts{
		Checksum: sum,
		Layer:    layer.Name,
		Tile:     t.Key,
		Rule:     layer.Rule,
	})

	res := TileResult{Tile: t, Stage: StageFilled}
	if out, ok := r.cached(ctx, key, opts); ok {
		res.FillOutcome = out
		res.Cached = true
	} else {
		set, err := tile.ReadRegionSet(path, t)
		if err != nil {
			return failed(t, StagePrepared, errors.Wrap(errors.ErrCodeGeometryFault, err, "read tile %s", t.Key))
		}
		res.FillOutcome = RunFill(t, layer, set)
		if res.Status != filler.StatusFailed {
			r.store(ctx, key, res.FillOutcome, opts)
		}
	}

	if res.Status == filler.StatusSuccess {
		if err := writeFill(dir.filled(t), t, layer.FillSpec(), &res.FillOutcome); err != nil {
			return failed(t, StagePrepared, errors.Wrap(errors.ErrCodeGeometryFault, err, "write fill of tile %s", t.Key))
		}
	}
	return res
}

func (r *Runner) cached(ctx context.Context, key string, opts Options) (FillOutcome, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		opts.Logger.Warn("cache lookup failed", "err", err)
		return FillOutcome{}, false
	}
	var out FillOutcome
	if !hit || json.Unmarshal(data, &out) != nil {
		observability.Cache().OnCacheMiss(ctx, keyTypeTile)
		return FillOutcome{}, false
	}
	observability.Cache().OnCacheHit(ctx, keyTypeTile)
	return out, true
}

func (r *Runner) store(ctx context.Context, key string, out FillOutcome, opts Options) {
	data, err := json.Marshal(out)
	if err != nil {
		return
	}
	if err := r.Cache.Set(ctx, key, data, cache.TTLTile); err != nil {
		opts.Logger.Warn("cache write failed", "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyTypeTile, len(data))
}

// writeFill writes the fill of one tile as a single-cell layout.
func writeFill(path string, t tile.Tile, spec gds.LayerSpec, out *FillOutcome) error {
	lib := gds.NewLibrary("fill_" + t.Key)
	lib.AddCell("FILL_"+t.Key).AddRegion(spec, out.Region())
	return lib.WriteFile(path)
}

// merge copies the fill of every successful tile into the top cell, in
// manifest order. The manifest must belong to the layout being merged.
func (r *Runner) merge(ctx context.Context, layout *Layout, layer pdk.Layer, dir layerDir, lr *LayerResult, opts Options) (err error) {
	hooks := observability.Pipeline()
	hooks.OnMergeStart(ctx, layer.Name, len(lr.Tiles))
	start := time.Now()
	defer func() { hooks.OnMergeComplete(ctx, layer.Name, time.Since(start), err) }()

	m, err := tile.ReadManifest(dir.manifest())
	if err != nil {
		return err
	}
	if m.Checksum != layout.Checksum {
		return errors.New(errors.ErrCodeChecksumMismatch,
			"manifest of layer %s was exported from a different layout", layer.Name)
	}
	top, err := layout.Lib.Top()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidLayout, err, "merge %s", layer.Name)
	}

	byKey := make(map[string]int, len(lr.Tiles))
	for i, res := range lr.Tiles {
		byKey[res.Tile.Key] = i
	}
	spec := layer.FillSpec()
	for _, t := range m.Tiles {
		i, ok := byKey[t.Key]
		if !ok || lr.Tiles[i].Status != filler.StatusSuccess {
			continue
		}
		flib, err := gds.ReadFile(dir.filled(t))
		if err != nil {
			return errors.Wrap(errors.ErrCodeGeometryFault, err, "read fill of tile %s", t.Key)
		}
		cell, err := flib.Top()
		if err != nil {
			return errors.Wrap(errors.ErrCodeGeometryFault, err, "read fill of tile %s", t.Key)
		}
		region, err := flib.Flatten(cell, spec)
		if err != nil {
			return errors.Wrap(errors.ErrCodeGeometryFault, err, "read fill of tile %s", t.Key)
		}
		top.AddRegion(spec, region)
		lr.Tiles[i].Stage = StageMerged
		opts.Progress(lr.Tiles[i].event(layer.Name))
	}
	opts.Logger.Info("merged tiles", "layer", layer.Name, "duration", time.Since(start))
	return nil
}

func failed(t tile.Tile, stage Stage, err error) TileResult {
	return TileResult{
		Tile:        t,
		Stage:       stage,
		FillOutcome: FillOutcome{Status: filler.StatusFailed, Note: errors.UserMessage(err)},
		Err:         err,
	}
}

func (r *TileResult) event(layer string) Event {
	return Event{
		Layer:   layer,
		Tile:    r.Tile,
		Stage:   r.Stage,
		Status:  r.Status,
		Density: r.Density,
		Message: r.Message(),
		Cached:  r.Cached,
	}
}
