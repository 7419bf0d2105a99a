// Package tile partitions a layout into fill tiles and persists the
// per-tile region sets and the layer manifest.
//
// A tile is a square window of the layer's tile width placed on a grid
// anchored at the die origin. Tiles at the right and top edge of the die
// are reported with their clipped width and height, but their window, the
// grid a filler lays out and their border strips always use the full tile
// width.
package tile

import (
	"fmt"
	"math"

	"github.com/matzehuels/gdsfill/pkg/geom"
)

// Tile is one cell of the partition. Coordinates are integer microns.
type Tile struct {
	Key    string `toml:"key"`
	X      int    `toml:"x"`
	Y      int    `toml:"y"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	Span   int    `toml:"span"`
}

// New returns the tile at (x, y) with a full span window.
func New(x, y, span int) Tile {
	return Tile{Key: Key(x, y), X: x, Y: y, Width: span, Height: span, Span: span}
}

// Key returns the tile identity "x_y".
func Key(x, y int) string {
	return fmt.Sprintf("%d_%d", x, y)
}

// Label formats the tile key for display as "x×y".
func (t Tile) Label() string {
	return fmt.Sprintf("%dx%d", t.X, t.Y)
}

// Origin returns the lower left corner in database units.
func (t Tile) Origin() geom.Point {
	return geom.Point{X: int64(t.X) * geom.DBU, Y: int64(t.Y) * geom.DBU}
}

// Window returns the full span square in database units.
func (t Tile) Window() geom.Rect {
	o := t.Origin()
	s := int64(t.Span) * geom.DBU
	return geom.Rect{X0: o.X, Y0: o.Y, X1: o.X + s, Y1: o.Y + s}
}

// Bounds returns the die-clipped tile area in database units.
func (t Tile) Bounds() geom.Rect {
	o := t.Origin()
	return geom.Rect{X0: o.X, Y0: o.Y, X1: o.X + int64(t.Width)*geom.DBU, Y1: o.Y + int64(t.Height)*geom.DBU}
}

// Die is the die outline in integer microns.
type Die struct {
	X      int `toml:"x"`
	Y      int `toml:"y"`
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

// DieFromRect converts a database unit box to whole microns. The origin
// rounds down and the size is truncated.
func DieFromRect(r geom.Rect) Die {
	x := int(math.Floor(geom.ToMicron(r.X0)))
	y := int(math.Floor(geom.ToMicron(r.Y0)))
	return Die{
		X:      x,
		Y:      y,
		Width:  int(geom.ToMicron(r.X1)) - x,
		Height: int(geom.ToMicron(r.Y1)) - y,
	}
}

// Partition lays a grid of span-wide tiles over the die, column by column.
func Partition(die Die, span int) []Tile {
	if span <= 0 || die.Width <= 0 || die.Height <= 0 {
		return nil
	}
	var tiles []Tile
	for dx := 0; dx < die.Width; dx += span {
		for dy := 0; dy < die.Height; dy += span {
			t := New(die.X+dx, die.Y+dy, span)
			t.Width = min(span, die.Width-dx)
			t.Height = min(span, die.Height-dy)
			tiles = append(tiles, t)
		}
	}
	return tiles
}

// Borders returns the four strips of width w (microns) along the inside of
// the tile window.
func Borders(t Tile, w float64) geom.Region {
	win := t.Window()
	d := geom.ToDBU(w)
	if d <= 0 {
		return geom.Region{}
	}
	return geom.NewRegion(
		geom.Rect{X0: win.X0, Y0: win.Y0, X1: win.X1, Y1: win.Y0 + d},
		geom.Rect{X0: win.X0, Y0: win.Y1 - d, X1: win.X1, Y1: win.Y1},
		geom.Rect{X0: win.X0, Y0: win.Y0, X1: win.X0 + d, Y1: win.Y1},
		geom.Rect{X0: win.X1 - d, Y0: win.Y0, X1: win.X1, Y1: win.Y1},
	)
}
