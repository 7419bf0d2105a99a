package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks writes pipeline and cache events to a logger at debug level.
// Failed stages are logged as warnings.
type LogHooks struct {
	Logger *log.Logger
}

// NewLogHooks returns hooks logging to logger.
func NewLogHooks(logger *log.Logger) *LogHooks {
	return &LogHooks{Logger: logger}
}

func (h *LogHooks) OnExportStart(_ context.Context, layer string) {
	h.Logger.Debug("export started", "layer", layer)
}

func (h *LogHooks) OnExportComplete(_ context.Context, layer string, tiles int, d time.Duration, err error) {
	if err != nil {
		h.Logger.Warn("export failed", "layer", layer, "err", err)
		return
	}
	h.Logger.Debug("export done", "layer", layer, "tiles", tiles, "duration", d)
}

func (h *LogHooks) OnTileStart(_ context.Context, layer, stage, tile string) {
	h.Logger.Debug("tile started", "layer", layer, "stage", stage, "tile", tile)
}

func (h *LogHooks) OnTileComplete(_ context.Context, layer, stage, tile, status string, d time.Duration, err error) {
	if err != nil {
		h.Logger.Warn("tile failed", "layer", layer, "stage", stage, "tile", tile, "err", err)
		return
	}
	h.Logger.Debug("tile done", "layer", layer, "stage", stage, "tile", tile, "status", status, "duration", d)
}

func (h *LogHooks) OnMergeStart(_ context.Context, layer string, tiles int) {
	h.Logger.Debug("merge started", "layer", layer, "tiles", tiles)
}

func (h *LogHooks) OnMergeComplete(_ context.Context, layer string, d time.Duration, err error) {
	if err != nil {
		h.Logger.Warn("merge failed", "layer", layer, "err", err)
		return
	}
	h.Logger.Debug("merge done", "layer", layer, "duration", d)
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.Logger.Debug("cache hit", "type", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.Logger.Debug("cache miss", "type", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.Logger.Debug("cache set", "type", keyType, "bytes", size)
}

var (
	_ PipelineHooks = (*LogHooks)(nil)
	_ CacheHooks    = (*LogHooks)(nil)
)
