// Package cache stores fill outcomes of individual tiles so that unchanged
// tiles are not recomputed on the next run.
//
// A Cache is a plain byte store with expiry. Keys come from a Keyer, which
// hashes everything that can change the outcome of a tile: the checksum of
// the source layout, the layer, the tile key and the fill rule.
package cache

import (
	"context"
	"time"
)

// TTLTile is how long a tile outcome stays valid.
const TTLTile = 30 * 24 * time.Hour

// Cache is a key/value store for serialized tile outcomes.
type Cache interface {
	// Get returns the stored value and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Keyer derives cache keys.
type Keyer interface {
	TileKey(opts TileKeyOpts) string
}

// TileKeyOpts identifies one tile outcome.
type TileKeyOpts struct {
	Checksum string
	Layer    string
	Tile     string
	// Rule is any JSON-serializable value describing the fill rule.
	Rule any
}

// DefaultKeyer hashes key components with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// TileKey returns "tile:<sha256>" over all components of opts.
func (DefaultKeyer) TileKey(opts TileKeyOpts) string {
	return hashKey("tile", opts.Checksum, opts.Layer, opts.Tile, opts.Rule)
}
