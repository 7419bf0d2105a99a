package geom

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewRegionArea(t *testing.T) {
	tests := []struct {
		name  string
		rects []Rect
		want  int64
	}{
		{"empty", nil, 0},
		{"single", []Rect{R(0, 0, 10, 10)}, 100},
		{"overlap", []Rect{R(0, 0, 10, 10), R(5, 5, 15, 15)}, 175},
		{"disjoint", []Rect{R(0, 0, 10, 10), R(20, 0, 30, 10)}, 200},
		{"contained", []Rect{R(0, 0, 10, 10), R(2, 2, 4, 4)}, 100},
		{"degenerate ignored", []Rect{R(0, 0, 10, 10), R(3, 3, 3, 9)}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewRegion(tt.rects...).Area(); got != tt.want {
				t.Errorf("Area() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRegionCanonical(t *testing.T) {
	// The same point set built two ways must be represented identically.
	a := NewRegion(R(0, 0, 10, 5), R(0, 5, 10, 10))
	b := NewRegion(R(0, 0, 5, 10), R(5, 0, 10, 10))
	if !a.Equal(b) {
		t.Errorf("regions not canonical:\n%v\n%v", a.Rects(), b.Rects())
	}
	if got := len(a.Rects()); got != 1 {
		t.Errorf("expected 1 rect, got %d", got)
	}
}

func TestBooleanIdentities(t *testing.T) {
	a := NewRegion(R(0, 0, 20, 10), R(5, 10, 15, 25))
	b := NewRegion(R(10, 5, 30, 20))

	union := a.Union(b)
	inter := a.Intersect(b)
	if got, want := union.Area(), a.Area()+b.Area()-inter.Area(); got != want {
		t.Errorf("|A∪B| = %d, want %d", got, want)
	}

	diff := a.Subtract(b)
	if diff.Overlaps(b) {
		t.Error("A−B still overlaps B")
	}
	if !diff.Union(inter).Equal(a) {
		t.Error("(A−B) ∪ (A∩B) != A")
	}
	if !a.Intersect(b).Equal(b.Intersect(a)) {
		t.Error("intersection not commutative")
	}
	if !a.Subtract(a).Empty() {
		t.Error("A−A not empty")
	}
	if !a.Union(Region{}).Equal(a) || !a.Intersect(Region{}).Empty() {
		t.Error("empty region identities broken")
	}
}

func TestClipAndBBox(t *testing.T) {
	r := NewRegion(R(-5, -5, 5, 5), R(10, 10, 20, 30))
	if diff := cmp.Diff(R(-5, -5, 20, 30), r.BBox()); diff != "" {
		t.Errorf("BBox mismatch (-want +got):\n%s", diff)
	}
	clipped := r.Clip(R(0, 0, 15, 15))
	if diff := cmp.Diff([]Rect{R(0, 0, 5, 5), R(10, 10, 15, 15)}, clipped.Rects()); diff != "" {
		t.Errorf("Clip mismatch (-want +got):\n%s", diff)
	}
}

func TestSized(t *testing.T) {
	sq := NewRegion(R(0, 0, 10, 10))

	if got, want := sq.Sized(2), NewRegion(R(-2, -2, 12, 12)); !got.Equal(want) {
		t.Errorf("grow: got %v, want %v", got.Rects(), want.Rects())
	}
	if got, want := sq.Sized(-2), NewRegion(R(2, 2, 8, 8)); !got.Equal(want) {
		t.Errorf("shrink: got %v, want %v", got.Rects(), want.Rects())
	}

	// Shrinking removes features narrower than twice the distance.
	bar := NewRegion(R(0, 0, 100, 3))
	if got := bar.Sized(-2); !got.Empty() {
		t.Errorf("narrow bar should vanish, got %v", got.Rects())
	}

	// Growing then shrinking an L shape restores it.
	l := NewRegion(R(0, 0, 30, 10), R(0, 10, 10, 30))
	if got := l.Sized(3).Sized(-3); !got.Equal(l) {
		t.Errorf("grow/shrink not reversible: %v", got.Rects())
	}
}

func TestRing(t *testing.T) {
	sq := NewRegion(R(0, 0, 10, 10))
	ring := sq.Ring(2)
	if got := ring.Area(); got != 14*14-6*6 {
		t.Errorf("ring area = %d", got)
	}
	if ring.Overlaps(NewRegion(R(2, 2, 8, 8))) {
		t.Error("ring must not cover the interior")
	}
	if !sq.Ring(0).Empty() {
		t.Error("zero-width ring should be empty")
	}
}

func TestPolygonsVertexOrder(t *testing.T) {
	tests := []struct {
		name string
		r    Region
		want []Polygon
	}{
		{
			name: "rectangle",
			r:    NewRegion(R(2, 3, 12, 8)),
			want: []Polygon{{Points: []Point{{2, 3}, {12, 3}, {12, 8}, {2, 8}}}},
		},
		{
			name: "clipped corner",
			r:    NewRegion(R(0, 0, 10, 8), R(0, 8, 8, 10)),
			want: []Polygon{{Points: []Point{{0, 0}, {10, 0}, {10, 8}, {8, 8}, {8, 10}, {0, 10}}}},
		},
		{
			name: "hole",
			r:    NewRegion(R(0, 0, 30, 30)).Subtract(NewRegion(R(10, 10, 20, 20))),
			want: []Polygon{{
				Points: []Point{{0, 0}, {30, 0}, {30, 30}, {0, 30}},
				Holes:  [][]Point{{{10, 10}, {10, 20}, {20, 20}, {20, 10}}},
			}},
		},
		{
			name: "corner touch splits",
			r:    NewRegion(R(0, 0, 10, 10), R(10, 10, 20, 20)),
			want: []Polygon{
				{Points: []Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}}},
				{Points: []Point{{10, 10}, {20, 10}, {20, 20}, {10, 20}}},
			},
		},
		{
			name: "hole touching notch",
			r: NewRegion(R(0, 0, 30, 30)).
				Subtract(NewRegion(R(10, 10, 20, 20), R(20, 20, 30, 30))),
			want: []Polygon{{
				Points: []Point{{0, 0}, {30, 0}, {30, 20}, {20, 20}, {20, 30}, {0, 30}},
				Holes:  [][]Point{{{10, 10}, {10, 20}, {20, 20}, {20, 10}}},
			}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.r.Polygons()
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Polygons() mismatch (-want +got):\n%s", diff)
			}
			if back := FromPolygons(got...); !back.Equal(tt.r) {
				t.Errorf("FromPolygons(Polygons()) = %v, want %v", back.Rects(), tt.r.Rects())
			}
		})
	}
}

func TestPolygonMeasures(t *testing.T) {
	p := NewRegion(R(0, 0, 30, 30)).Subtract(NewRegion(R(10, 10, 20, 20))).Polygons()[0]
	if got := p.Area(); got != 800 {
		t.Errorf("Area() = %d, want 800", got)
	}
	if p.IsRect() {
		t.Error("polygon with hole is not a rectangle")
	}
	if !(Polygon{Points: R(0, 0, 4, 5).Points()}).IsRect() {
		t.Error("rectangle not detected")
	}
	if got := p.Len(); got != 4 {
		t.Errorf("Len() = %d, want 4", got)
	}
}

func TestFromPolygonDiagonal(t *testing.T) {
	tri := Polygon{Points: []Point{{0, 0}, {10, 0}, {0, 10}}}
	if got := FromPolygon(tri).Area(); got != 50 {
		t.Errorf("triangle area = %d, want 50", got)
	}
}

func TestFillHoles(t *testing.T) {
	ring := NewRegion(R(0, 0, 30, 30)).Subtract(NewRegion(R(10, 10, 20, 20)))
	if got, want := ring.FillHoles(), NewRegion(R(0, 0, 30, 30)); !got.Equal(want) {
		t.Errorf("FillHoles() = %v", got.Rects())
	}
}

func TestTranslate(t *testing.T) {
	r := NewRegion(R(0, 0, 10, 10), R(20, 0, 25, 5)).Translate(100, -50)
	want := NewRegion(R(100, -50, 110, -40), R(120, -50, 125, -45))
	if !r.Equal(want) {
		t.Errorf("Translate() = %v", r.Rects())
	}
}

func TestMicronConversion(t *testing.T) {
	if got := ToDBU(0.42); got != 420 {
		t.Errorf("ToDBU(0.42) = %d", got)
	}
	if got := ToMicron(1500); got != 1.5 {
		t.Errorf("ToMicron(1500) = %g", got)
	}
	if diff := cmp.Diff(R(0, 0, 1500, 2000), RectUM(1.5, 2, 0, 0)); diff != "" {
		t.Errorf("RectUM mismatch (-want +got):\n%s", diff)
	}
}
