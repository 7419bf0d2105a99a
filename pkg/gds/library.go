// Package gds reads and writes GDSII stream files.
//
// The package covers the subset of the format a fill flow needs: libraries,
// structures, boundaries, boxes, paths and (array) references. Elements it
// does not interpret, such as text labels and nodes, are retained verbatim
// and written back unchanged.
//
// Geometry is exposed through [geom.Region]: [Library.Flatten] resolves the
// reference hierarchy of a cell into a single merged region for one
// (layer, datatype) pair, and [Cell.AddRegion] writes a region back as
// boundaries.
package gds

import (
	"errors"
	"fmt"

	"github.com/matzehuels/gdsfill/pkg/geom"
)

// Sentinel errors returned by the package.
var (
	// ErrNoTopCell is returned when every structure is referenced by another one.
	ErrNoTopCell = errors.New("no top cell")

	// ErrCellNotFound is returned when a structure name cannot be resolved.
	ErrCellNotFound = errors.New("cell not found")

	// ErrUnsupportedTransform is returned for references rotated by a
	// non-multiple of 90 degrees.
	ErrUnsupportedTransform = errors.New("unsupported reference transform")
)

// LayerSpec identifies shapes by GDS layer number and datatype.
type LayerSpec struct {
	Layer    int16 `toml:"layer"`
	Datatype int16 `toml:"datatype"`
}

// String formats the spec as "layer/datatype".
func (l LayerSpec) String() string {
	return fmt.Sprintf("%d/%d", l.Layer, l.Datatype)
}

// Library is an in-memory GDSII library.
type Library struct {
	Name      string
	Version   int16
	UserUnit  float64 // user units per database unit
	MeterUnit float64 // meters per database unit
	Stamp     [12]int16

	cells []*Cell
	index map[string]*Cell
}

// NewLibrary returns an empty library with 1 nm database units.
func NewLibrary(name string) *Library {
	return &Library{
		Name:      name,
		Version:   600,
		UserUnit:  1.0 / geom.DBU,
		MeterUnit: 1e-6 / geom.DBU,
		Stamp:     [12]int16{2000, 1, 1, 0, 0, 0, 2000, 1, 1, 0, 0, 0},
		index:     map[string]*Cell{},
	}
}

// Cells returns the structures in file order.
func (l *Library) Cells() []*Cell { return l.cells }

// Cell returns the structure with the given name.
func (l *Library) Cell(name string) (*Cell, bool) {
	c, ok := l.index[name]
	return c, ok
}

// AddCell appends a new empty structure. An existing structure with the same
// name is returned instead.
func (l *Library) AddCell(name string) *Cell {
	if c, ok := l.index[name]; ok {
		return c
	}
	c := &Cell{Name: name, Stamp: l.Stamp}
	l.add(c)
	return c
}

func (l *Library) add(c *Cell) {
	if l.index == nil {
		l.index = map[string]*Cell{}
	}
	l.cells = append(l.cells, c)
	l.index[c.Name] = c
}

// Top returns the top structure: the last structure that no other structure
// references.
func (l *Library) Top() (*Cell, error) {
	referenced := map[string]bool{}
	for _, c := range l.cells {
		for _, r := range c.Refs {
			referenced[r.Name] = true
		}
	}
	for i := len(l.cells) - 1; i >= 0; i-- {
		if !referenced[l.cells[i].Name] {
			return l.cells[i], nil
		}
	}
	return nil, ErrNoTopCell
}

// Cell is a GDSII structure.
type Cell struct {
	Name       string
	Stamp      [12]int16
	Boundaries []Boundary
	Paths      []Path
	Refs       []Ref

	// opaque holds uninterpreted elements as raw record sequences.
	opaque [][]record
}

// Boundary is a closed polygon. Points do not repeat the first vertex.
type Boundary struct {
	LayerSpec
	Points []geom.Point
}

// Path is a wire with a centerline and width.
type Path struct {
	LayerSpec
	Width    int32
	PathType int16
	BgnExtn  int32
	EndExtn  int32
	Points   []geom.Point
}

// Ref is a structure reference. Cols and Rows are zero for a single
// reference; array references place Cols×Rows instances stepped by ColStep
// and RowStep.
type Ref struct {
	Name    string
	Origin  geom.Point
	Reflect bool
	Angle   float64
	Mag     float64
	Cols    int
	Rows    int
	ColStep geom.Point
	RowStep geom.Point
}

// ClearLayer removes every boundary and path on spec.
func (c *Cell) ClearLayer(spec LayerSpec) int {
	removed := 0
	kept := c.Boundaries[:0]
	for _, b := range c.Boundaries {
		if b.LayerSpec == spec {
			removed++
			continue
		}
		kept = append(kept, b)
	}
	c.Boundaries = kept

	paths := c.Paths[:0]
	for _, p := range c.Paths {
		if p.LayerSpec == spec {
			removed++
			continue
		}
		paths = append(paths, p)
	}
	c.Paths = paths
	return removed
}

// maxBoundaryPoints is the vertex limit of one XY record, excluding the
// closing point.
const maxBoundaryPoints = (maxRecordLen-hdrLength)/8 - 1

// AddRegion appends the region as boundaries on spec. Polygons with holes or
// with more vertices than a boundary can hold are written as their band
// rectangles.
func (c *Cell) AddRegion(spec LayerSpec, r geom.Region) {
	for _, p := range r.Polygons() {
		if len(p.Holes) == 0 && len(p.Points) <= maxBoundaryPoints {
			c.Boundaries = append(c.Boundaries, Boundary{LayerSpec: spec, Points: p.Points})
			continue
		}
		for _, rect := range p.Region().Rects() {
			c.Boundaries = append(c.Boundaries, Boundary{LayerSpec: spec, Points: rect.Points()})
		}
	}
}

// AddRect appends a rectangle boundary on spec.
func (c *Cell) AddRect(spec LayerSpec, r geom.Rect) {
	if r.Empty() {
		return
	}
	c.Boundaries = append(c.Boundaries, Boundary{LayerSpec: spec, Points: r.Points()})
}

// AddRef appends a single reference to the named structure.
func (c *Cell) AddRef(name string, origin geom.Point) {
	c.Refs = append(c.Refs, Ref{Name: name, Origin: origin, Mag: 1})
}

// Layers returns every layer spec used by boundaries and paths of the cell.
func (c *Cell) Layers() map[LayerSpec]int {
	out := map[LayerSpec]int{}
	for _, b := range c.Boundaries {
		out[b.LayerSpec]++
	}
	for _, p := range c.Paths {
		out[p.LayerSpec]++
	}
	return out
}
