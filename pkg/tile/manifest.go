package tile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ManifestFile is the manifest name inside a layer work directory.
const ManifestFile = "tiles.toml"

// Core records the placement core of the layout in microns.
type Core struct {
	X      float64 `toml:"x"`
	Y      float64 `toml:"y"`
	Width  float64 `toml:"width"`
	Height float64 `toml:"height"`
}

// Manifest is the persisted description of one layer's partition. It is
// written by export and read back by the prepare and merge stages.
type Manifest struct {
	Layer     string `toml:"layer"`
	TileWidth int    `toml:"tile_width"`
	Die       Die    `toml:"die"`
	Core      *Core  `toml:"core,omitempty"`
	// Checksum is the SHA-256 of the source layout file.
	Checksum string `toml:"checksum"`
	Tiles    []Tile `toml:"tiles"`
}

// Tile returns the tile with the given key.
func (m *Manifest) Tile(key string) (Tile, bool) {
	for _, t := range m.Tiles {
		if t.Key == key {
			return t, true
		}
	}
	return Tile{}, false
}

// WriteFile stores the manifest as TOML.
func (m *Manifest) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(m); err != nil {
		f.Close()
		return fmt.Errorf("encode manifest: %w", err)
	}
	return f.Close()
}

// ReadManifest loads a manifest written by [Manifest.WriteFile].
func ReadManifest(path string) (*Manifest, error) {
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	return &m, nil
}
