package gds

import (
	"fmt"
	"math"

	"github.com/matzehuels/gdsfill/pkg/geom"
)

// transform is an affine map restricted to 90 degree rotations, reflection
// and magnification.
type transform struct {
	a, b, c, d float64
	tx, ty     float64
}

// refTransform returns the local transform of one instance of r, placed at
// origin.
func refTransform(r Ref, origin geom.Point) (transform, error) {
	q := math.Mod(r.Angle, 360)
	if q < 0 {
		q += 360
	}
	quarter := math.Round(q / 90)
	if math.Abs(q-quarter*90) > 1e-9 {
		return transform{}, fmt.Errorf("%w: angle %g", ErrUnsupportedTransform, r.Angle)
	}
	var cos, sin float64
	switch int(quarter) % 4 {
	case 0:
		cos, sin = 1, 0
	case 1:
		cos, sin = 0, 1
	case 2:
		cos, sin = -1, 0
	case 3:
		cos, sin = 0, -1
	}
	mag := r.Mag
	if mag == 0 {
		mag = 1
	}
	fy := 1.0
	if r.Reflect {
		fy = -1
	}
	// rotation · magnification · reflection about the x axis
	return transform{
		a: cos * mag, b: -sin * mag * fy,
		c: sin * mag, d: cos * mag * fy,
		tx: float64(origin.X), ty: float64(origin.Y),
	}, nil
}

// then returns the transform applying t first and p second.
func (t transform) then(p transform) transform {
	return transform{
		a:  p.a*t.a + p.b*t.c,
		b:  p.a*t.b + p.b*t.d,
		c:  p.c*t.a + p.d*t.c,
		d:  p.c*t.b + p.d*t.d,
		tx: p.a*t.tx + p.b*t.ty + p.tx,
		ty: p.c*t.tx + p.d*t.ty + p.ty,
	}
}

func (t transform) apply(p geom.Point) geom.Point {
	x, y := float64(p.X), float64(p.Y)
	return geom.Point{
		X: int64(math.Round(t.a*x + t.b*y + t.tx)),
		Y: int64(math.Round(t.c*x + t.d*y + t.ty)),
	}
}

func (t transform) rect(r geom.Rect) geom.Rect {
	p0 := t.apply(geom.Point{X: r.X0, Y: r.Y0})
	p1 := t.apply(geom.Point{X: r.X1, Y: r.Y1})
	return geom.R(p0.X, p0.Y, p1.X, p1.Y)
}

// instances returns the transforms of every placement of r.
func instances(r Ref) ([]transform, error) {
	if r.Cols <= 0 || r.Rows <= 0 {
		t, err := refTransform(r, r.Origin)
		if err != nil {
			return nil, err
		}
		return []transform{t}, nil
	}
	out := make([]transform, 0, r.Cols*r.Rows)
	for row := range r.Rows {
		for col := range r.Cols {
			o := geom.Point{
				X: r.Origin.X + int64(col)*r.ColStep.X + int64(row)*r.RowStep.X,
				Y: r.Origin.Y + int64(col)*r.ColStep.Y + int64(row)*r.RowStep.Y,
			}
			t, err := refTransform(r, o)
			if err != nil {
				return nil, err
			}
			out = append(out, t)
		}
	}
	return out, nil
}

// Flatten returns every shape on spec in cell c and its descendants, merged
// into one region in c's coordinates.
func (l *Library) Flatten(c *Cell, spec LayerSpec) (geom.Region, error) {
	f := &flattener{lib: l, spec: spec, memo: map[string]geom.Region{}, visiting: map[string]bool{}}
	return f.cell(c)
}

type flattener struct {
	lib      *Library
	spec     LayerSpec
	memo     map[string]geom.Region
	visiting map[string]bool
}

func (f *flattener) cell(c *Cell) (geom.Region, error) {
	if r, ok := f.memo[c.Name]; ok {
		return r, nil
	}
	if f.visiting[c.Name] {
		return geom.Region{}, fmt.Errorf("recursive reference to %s", c.Name)
	}
	f.visiting[c.Name] = true
	defer delete(f.visiting, c.Name)

	var (
		rects []geom.Rect
		polys []geom.Region
	)
	for _, b := range c.Boundaries {
		if b.LayerSpec != f.spec {
			continue
		}
		p := geom.Polygon{Points: b.Points}
		if p.IsRect() {
			rects = append(rects, p.BBox())
		} else {
			polys = append(polys, geom.FromPolygon(p))
		}
	}
	for _, p := range c.Paths {
		if p.LayerSpec == f.spec {
			polys = append(polys, pathRegion(p))
		}
	}
	for _, ref := range c.Refs {
		child, ok := f.lib.Cell(ref.Name)
		if !ok {
			return geom.Region{}, fmt.Errorf("%w: %s referenced from %s", ErrCellNotFound, ref.Name, c.Name)
		}
		sub, err := f.cell(child)
		if err != nil {
			return geom.Region{}, err
		}
		if sub.Empty() {
			continue
		}
		ts, err := instances(ref)
		if err != nil {
			return geom.Region{}, fmt.Errorf("%s in %s: %w", ref.Name, c.Name, err)
		}
		subRects := sub.Rects()
		for _, t := range ts {
			for _, r := range subRects {
				rects = append(rects, t.rect(r))
			}
		}
	}

	out := geom.NewRegion(rects...)
	if len(polys) > 0 {
		out = geom.UnionAll(append(polys, out)...)
	}
	f.memo[c.Name] = out
	return out, nil
}

// pathRegion outlines a path. Round ends are approximated by square ends.
func pathRegion(p Path) geom.Region {
	half := int64(math.Abs(float64(p.Width))) / 2
	if half == 0 {
		return geom.Region{}
	}
	var bgn, end int64
	switch p.PathType {
	case 1, 2:
		bgn, end = half, half
	case 4:
		bgn, end = int64(p.BgnExtn), int64(p.EndExtn)
	}

	var (
		rects []geom.Rect
		polys []geom.Region
	)
	last := len(p.Points) - 2
	for i := 0; i <= last; i++ {
		a, b := p.Points[i], p.Points[i+1]
		if a == b {
			continue
		}
		extA, extB := half, half
		if i == 0 {
			extA = bgn
		}
		if i == last {
			extB = end
		}
		switch {
		case a.X == b.X:
			y0, y1 := a.Y-extA, b.Y+extB
			if a.Y > b.Y {
				y0, y1 = b.Y-extB, a.Y+extA
			}
			rects = append(rects, geom.Rect{X0: a.X - half, Y0: y0, X1: a.X + half, Y1: y1})
		case a.Y == b.Y:
			x0, x1 := a.X-extA, b.X+extB
			if a.X > b.X {
				x0, x1 = b.X-extB, a.X+extA
			}
			rects = append(rects, geom.Rect{X0: x0, Y0: a.Y - half, X1: x1, Y1: a.Y + half})
		default:
			polys = append(polys, geom.FromPolygon(diagonalSegment(a, b, half, extA, extB)))
		}
	}
	return geom.UnionAll(append(polys, geom.NewRegion(rects...))...)
}

func diagonalSegment(a, b geom.Point, half, extA, extB int64) geom.Polygon {
	dx, dy := float64(b.X-a.X), float64(b.Y-a.Y)
	l := math.Hypot(dx, dy)
	ux, uy := dx/l, dy/l
	nx, ny := -uy*float64(half), ux*float64(half)
	ax, ay := float64(a.X)-ux*float64(extA), float64(a.Y)-uy*float64(extA)
	bx, by := float64(b.X)+ux*float64(extB), float64(b.Y)+uy*float64(extB)
	pt := func(x, y float64) geom.Point {
		return geom.Point{X: int64(math.Round(x)), Y: int64(math.Round(y))}
	}
	return geom.Polygon{Points: []geom.Point{
		pt(ax+nx, ay+ny), pt(ax-nx, ay-ny), pt(bx-nx, by-ny), pt(bx+nx, by+ny),
	}}
}

// BBox returns the bounding box of every shape in c and its descendants.
func (l *Library) BBox(c *Cell) (geom.Rect, error) {
	memo := map[string]geom.Rect{}
	var walk func(c *Cell, depth int) (geom.Rect, error)
	walk = func(c *Cell, depth int) (geom.Rect, error) {
		if r, ok := memo[c.Name]; ok {
			return r, nil
		}
		if depth > len(l.cells) {
			return geom.Rect{}, fmt.Errorf("recursive reference to %s", c.Name)
		}
		var box geom.Rect
		for _, b := range c.Boundaries {
			box = box.Union(geom.Polygon{Points: b.Points}.BBox())
		}
		for _, p := range c.Paths {
			box = box.Union(pathRegion(p).BBox())
		}
		for _, ref := range c.Refs {
			child, ok := l.Cell(ref.Name)
			if !ok {
				return geom.Rect{}, fmt.Errorf("%w: %s referenced from %s", ErrCellNotFound, ref.Name, c.Name)
			}
			sub, err := walk(child, depth+1)
			if err != nil {
				return geom.Rect{}, err
			}
			if sub.Empty() {
				continue
			}
			ts, err := instances(ref)
			if err != nil {
				return geom.Rect{}, err
			}
			for _, t := range ts {
				box = box.Union(t.rect(sub))
			}
		}
		memo[c.Name] = box
		return box, nil
	}
	return walk(c, 0)
}

// Shapes returns every boundary and path on spec in c and its descendants as
// individual polygons in c's coordinates. Unlike [Library.Flatten] the
// shapes are not merged.
func (l *Library) Shapes(c *Cell, spec LayerSpec) ([]geom.Polygon, error) {
	var (
		out  []geom.Polygon
		walk func(c *Cell, t transform, depth int) error
	)
	walk = func(c *Cell, t transform, depth int) error {
		if depth > len(l.cells) {
			return fmt.Errorf("recursive reference to %s", c.Name)
		}
		for _, b := range c.Boundaries {
			if b.LayerSpec != spec {
				continue
			}
			pts := make([]geom.Point, len(b.Points))
			for i, p := range b.Points {
				pts[i] = t.apply(p)
			}
			out = append(out, geom.Polygon{Points: pts})
		}
		for _, p := range c.Paths {
			if p.LayerSpec != spec {
				continue
			}
			for _, poly := range pathRegion(p).Polygons() {
				out = append(out, transformPolygon(poly, t))
			}
		}
		for _, ref := range c.Refs {
			child, ok := l.Cell(ref.Name)
			if !ok {
				return fmt.Errorf("%w: %s referenced from %s", ErrCellNotFound, ref.Name, c.Name)
			}
			ts, err := instances(ref)
			if err != nil {
				return fmt.Errorf("%s in %s: %w", ref.Name, c.Name, err)
			}
			for _, local := range ts {
				if err := walk(child, local.then(t), depth+1); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(c, transform{a: 1, d: 1}, 0); err != nil {
		return nil, err
	}
	return out, nil
}

func transformPolygon(p geom.Polygon, t transform) geom.Polygon {
	apply := func(pts []geom.Point) []geom.Point {
		out := make([]geom.Point, len(pts))
		for i, pt := range pts {
			out[i] = t.apply(pt)
		}
		return out
	}
	out := geom.Polygon{Points: apply(p.Points)}
	for _, h := range p.Holes {
		out.Holes = append(out.Holes, apply(h))
	}
	return out
}
