package geom

// Sized returns the region grown (d > 0) or shrunk (d < 0) by d database
// units on every edge with square corners. Shrinking removes features
// narrower than 2|d|.
func (r Region) Sized(d int64) Region {
	switch {
	case d == 0 || r.Empty():
		return r
	case d > 0:
		return r.dilate(d)
	default:
		// Erosion is the complement of the dilated complement.
		frame := r.BBox().Grow(-d + 1)
		outside := NewRegion(frame).Subtract(r)
		return r.Subtract(outside.dilate(-d))
	}
}

// SizedUM is Sized with the distance given in microns.
func (r Region) SizedUM(um float64) Region {
	return r.Sized(ToDBU(um))
}

// Ring returns the band of half-width m around the region's boundary: the
// region grown by m minus the region shrunk by m.
func (r Region) Ring(m int64) Region {
	if m <= 0 || r.Empty() {
		return Region{}
	}
	return r.Sized(m).Subtract(r.Sized(-m))
}

func (r Region) dilate(d int64) Region {
	rects := r.Rects()
	for i := range rects {
		rects[i] = rects[i].Grow(d)
	}
	return NewRegion(rects...)
}
