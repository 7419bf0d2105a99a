// Package pkg provides the core libraries of gdsfill, a density-driven dummy
// fill tool for GDSII layouts.
//
// # Overview
//
// Foundries require the metal, active and poly layers of a chip to stay within
// a density band on every window of the die. gdsfill cuts each layer into
// square tiles, fills every tile independently with square or track shaped
// dummy shapes until its density lies in the band, and merges the fill back
// into the layout. The pkg directory is organized into four main areas:
//
//  1. [geom] and [gds] - Manhattan polygons and GDSII stream I/O
//  2. [pdk], [tile], [keepout] and [filler] - Fill rules and fill algorithms
//  3. [pipeline] - Orchestration (export → prepare → fill → merge)
//  4. [cache], [report] and [observability] - Caching, run records and hooks
//
// # Architecture
//
// The data flow of one fill run:
//
//	layout.gds
//	     ↓
//	[pdk] package (process kit, layer rules, per-kind keep-out tables)
//	     ↓
//	[tile] package (partition the die, one tile file per tile)
//	     ↓
//	[keepout] package (compose the keep-out region of a tile)
//	     ↓
//	[filler] package (square or track fill inside the tile)
//	     ↓
//	[pipeline] package (merge fill shapes back into the layout)
//
// # Quick Start
//
// Fill every layer of a layout with the default kit:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/gdsfill/pkg/cache"
//	    "github.com/matzehuels/gdsfill/pkg/pipeline"
//	)
//
//	runner := pipeline.NewRunner(cache.NewNullCache(), cache.NewDefaultKeyer(), nil)
//	defer runner.Close()
//
//	res, err := runner.Execute(context.Background(), pipeline.Options{
//	    Input:  "chip.gds",
//	    Output: "chip_filled.gds",
//	})
//
// # Main Packages
//
// [geom] - Integer rectilinear geometry in database units: rectangles,
// polygons and regions with boolean operations and sizing.
//
// [gds] - GDSII stream reader and writer, cell hierarchy and flattening.
//
// [pdk] - Embedded process kits and TOML rule overrides. A kit names the
// layers to fill, their fill algorithm and their density targets.
//
// [tile] - Die partitioning, tile files and the tiles.toml manifest.
//
// [keepout] - Keep-out composition from the region set of a tile.
//
// [filler] - Square fill (bisection over shape size and spacing) and track
// fill (width sweep over stripes).
//
// [pipeline] - The four-stage fill run with a bounded worker pool, tile
// caching and progress events. Used by the CLI.
//
// [cache] - Tile outcome caches: filesystem, Redis and a null cache.
//
// [report] - Run records, whole-chip density, PDF reports and the run
// history (filesystem or MongoDB).
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/filler/...             # Specific package
//	go test -run Example                 # Examples only
//
// [geom]: https://pkg.go.dev/github.com/matzehuels/gdsfill/pkg/geom
// [gds]: https://pkg.go.dev/github.com/matzehuels/gdsfill/pkg/gds
// [pdk]: https://pkg.go.dev/github.com/matzehuels/gdsfill/pkg/pdk
// [tile]: https://pkg.go.dev/github.com/matzehuels/gdsfill/pkg/tile
// [keepout]: https://pkg.go.dev/github.com/matzehuels/gdsfill/pkg/keepout
// [filler]: https://pkg.go.dev/github.com/matzehuels/gdsfill/pkg/filler
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/gdsfill/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/gdsfill/pkg/cache
// [report]: https://pkg.go.dev/github.com/matzehuels/gdsfill/pkg/report
// [observability]: https://pkg.go.dev/github.com/matzehuels/gdsfill/pkg/observability
package pkg
