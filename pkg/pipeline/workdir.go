package pipeline

import (
	"os"
	"path/filepath"

	"github.com/matzehuels/gdsfill/pkg/tile"
)

// layerDir is the part of the work directory owned by one layer.
type layerDir string

func newLayerDir(root, layer string) (layerDir, error) {
	d := layerDir(filepath.Join(root, layer))
	for _, sub := range []string{"raw", "modified", "filled"} {
		if err := os.MkdirAll(filepath.Join(string(d), sub), 0755); err != nil {
			return "", err
		}
	}
	return d, nil
}

func (d layerDir) manifest() string { return filepath.Join(string(d), tile.ManifestFile) }

func (d layerDir) raw(t tile.Tile) string { return d.tileFile("raw", t) }

func (d layerDir) modified(t tile.Tile) string { return d.tileFile("modified", t) }

func (d layerDir) filled(t tile.Tile) string { return d.tileFile("filled", t) }

func (d layerDir) tileFile(stage string, t tile.Tile) string {
	return filepath.Join(string(d), stage, "tile_"+t.Key+".gds")
}
