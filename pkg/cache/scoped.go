package cache

// ScopedKeyer wraps a Keyer with a prefix so that runs against different
// process kits never share entries, even when they use the same shared
// Redis instance.
//
//	k := NewScopedKeyer(NewDefaultKeyer(), "ihp-sg13g2:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// TileKey generates a prefixed key for a tile outcome.
func (k *ScopedKeyer) TileKey(opts TileKeyOpts) string {
	return k.prefix + k.inner.TileKey(opts)
}
