// Package report turns fill runs into persistent records, PDF density maps
// and whole-chip density figures.
//
// A [Record] is a flattened, serializable copy of a [pipeline.Result]. It is
// what the history stores keep:
//
//	store, err := report.OpenStore(ctx, "")  // ~/.config/gdsfill/history
//	rec := report.NewRecord(res)
//	err = store.Save(ctx, rec)
//	err = report.WritePDF("fill.pdf", rec)
package report

import (
	"time"

	"github.com/matzehuels/gdsfill/pkg/filler"
	"github.com/matzehuels/gdsfill/pkg/pipeline"
)

// Record is the persisted summary of one run.
type Record struct {
	ID       string        `json:"id" bson:"_id"`
	Process  string        `json:"process" bson:"process"`
	Input    string        `json:"input" bson:"input"`
	Output   string        `json:"output" bson:"output"`
	Checksum string        `json:"checksum" bson:"checksum"`
	DryRun   bool          `json:"dry_run,omitempty" bson:"dry_run"`
	Started  time.Time     `json:"started" bson:"started"`
	Duration time.Duration `json:"duration" bson:"duration"`
	Layers   []LayerRecord `json:"layers" bson:"layers"`
}

// LayerRecord summarizes one filled layer.
type LayerRecord struct {
	Layer     string  `json:"layer" bson:"layer"`
	Algorithm string  `json:"algorithm" bson:"algorithm"`
	Target    float64 `json:"target" bson:"target"`
	Deviation float64 `json:"deviation" bson:"deviation"`
	Span      int     `json:"span" bson:"span"`
	Die       Box     `json:"die" bson:"die"`
	Success   int     `json:"success" bson:"success"`
	Skipped   int     `json:"skipped" bson:"skipped"`
	Failed    int     `json:"failed" bson:"failed"`
	Cached    int     `json:"cached" bson:"cached"`
	// Density is the mean density of successful tiles.
	Density float64      `json:"density" bson:"density"`
	Merged  bool         `json:"merged" bson:"merged"`
	Tiles   []TileRecord `json:"tiles" bson:"tiles"`
}

// Box is an axis-aligned area in microns.
type Box struct {
	X      int `json:"x" bson:"x"`
	Y      int `json:"y" bson:"y"`
	Width  int `json:"width" bson:"width"`
	Height int `json:"height" bson:"height"`
}

// TileRecord is the terminal state of one tile. Coordinates are microns.
type TileRecord struct {
	Key     string  `json:"key" bson:"key"`
	X       int     `json:"x" bson:"x"`
	Y       int     `json:"y" bson:"y"`
	Width   int     `json:"width" bson:"width"`
	Height  int     `json:"height" bson:"height"`
	Status  string  `json:"status" bson:"status"`
	Density float64 `json:"density" bson:"density"`
	Note    string  `json:"note,omitempty" bson:"note,omitempty"`
}

// NewRecord copies the reportable parts of a run result.
func NewRecord(res *pipeline.Result) *Record {
	rec := &Record{
		ID:       res.RunID,
		Process:  res.Process,
		Input:    res.Input,
		Output:   res.Output,
		Checksum: res.Checksum,
		DryRun:   res.DryRun,
		Started:  res.Started,
		Duration: res.Duration,
	}
	for _, lr := range res.Layers {
		s := lr.Summary()
		l := LayerRecord{
			Layer:     lr.Layer,
			Algorithm: lr.Algorithm.String(),
			Target:    lr.Rule.Density,
			Deviation: lr.Rule.Deviation,
			Success:   s.Success,
			Skipped:   s.Skipped,
			Failed:    s.Failed,
			Cached:    s.Cached,
			Density:   s.Density,
			Merged:    lr.Merged,
		}
		if m := lr.Manifest; m != nil {
			l.Span = m.TileWidth
			l.Die = Box{X: m.Die.X, Y: m.Die.Y, Width: m.Die.Width, Height: m.Die.Height}
		}
		for _, tr := range lr.Tiles {
			l.Tiles = append(l.Tiles, TileRecord{
				Key:     tr.Tile.Key,
				X:       tr.Tile.X,
				Y:       tr.Tile.Y,
				Width:   tr.Tile.Width,
				Height:  tr.Tile.Height,
				Status:  tr.Status.String(),
				Density: tr.Density,
				Note:    tileNote(&tr),
			})
		}
		rec.Layers = append(rec.Layers, l)
	}
	return rec
}

// InBand reports whether a tile density lies within the layer's band.
func (l *LayerRecord) InBand(density float64) bool {
	return density >= l.Target-l.Deviation && density <= l.Target+l.Deviation
}

// Failed reports whether any tile of the run failed.
func (r *Record) Failed() bool {
	for _, l := range r.Layers {
		if l.Failed > 0 {
			return true
		}
	}
	return false
}

func tileNote(tr *pipeline.TileResult) string {
	if tr.Err == nil && tr.Status == filler.StatusSuccess {
		return tr.Note
	}
	return tr.Message()
}
