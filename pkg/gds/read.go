package gds

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/gdsfill/pkg/geom"
)

// Read decodes a GDSII stream. Library-level records other than the
// header, units and names are ignored.
func Read(r io.Reader) (*Library, error) {
	br := bufio.NewReaderSize(r, 1<<16)
	lib := &Library{UserUnit: 1.0 / geom.DBU, MeterUnit: 1e-6 / geom.DBU, index: map[string]*Cell{}}

	var cell *Cell
	for {
		rec, err := readRecord(br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("unexpected end of stream: %w", io.ErrUnexpectedEOF)
			}
			return nil, err
		}

		switch rec.typ {
		case recHeader:
			lib.Version = rec.int16()
		case recBgnLib:
			copy(lib.Stamp[:], rec.int16s())
		case recLibName:
			lib.Name = rec.ascii()
		case recUnits:
			if u := rec.real64s(); len(u) == 2 {
				lib.UserUnit, lib.MeterUnit = u[0], u[1]
			}
		case recBgnStr:
			cell = &Cell{}
			copy(cell.Stamp[:], rec.int16s())
		case recStrName:
			if cell == nil {
				return nil, fmt.Errorf("STRNAME outside structure")
			}
			cell.Name = rec.ascii()
		case recEndStr:
			if cell == nil {
				return nil, fmt.Errorf("ENDSTR outside structure")
			}
			lib.add(cell)
			cell = nil
		case recBoundary, recBox, recPath, recSRef, recARef, recText, recNode:
			if cell == nil {
				return nil, fmt.Errorf("element 0x%02x outside structure", byte(rec.typ))
			}
			if err := readElement(br, rec, cell); err != nil {
				return nil, fmt.Errorf("cell %s: %w", cell.Name, err)
			}
		case recEndLib:
			return lib, nil
		}
	}
}

// ReadFile reads the GDSII file at path.
func ReadFile(path string) (*Library, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	lib, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return lib, nil
}

// readElement consumes the records of one element up to ENDEL.
func readElement(br *bufio.Reader, start record, cell *Cell) error {
	recs := []record{start}
	for {
		rec, err := readRecord(br)
		if err != nil {
			return fmt.Errorf("element 0x%02x: %w", byte(start.typ), err)
		}
		recs = append(recs, rec)
		if rec.typ == recEndEl {
			break
		}
	}

	switch start.typ {
	case recBoundary, recBox:
		var b Boundary
		for _, rec := range recs[1:] {
			switch rec.typ {
			case recLayer:
				b.Layer = rec.int16()
			case recDatatype, recBoxType:
				b.Datatype = rec.int16()
			case recXY:
				b.Points = closedPoints(rec.int32s())
			}
		}
		if len(b.Points) >= 3 {
			cell.Boundaries = append(cell.Boundaries, b)
		}
	case recPath:
		var p Path
		for _, rec := range recs[1:] {
			switch rec.typ {
			case recLayer:
				p.Layer = rec.int16()
			case recDatatype:
				p.Datatype = rec.int16()
			case recPathType:
				p.PathType = rec.int16()
			case recWidth:
				if v := rec.int32s(); len(v) > 0 {
					p.Width = v[0]
				}
			case recBgnExtn:
				if v := rec.int32s(); len(v) > 0 {
					p.BgnExtn = v[0]
				}
			case recEndExtn:
				if v := rec.int32s(); len(v) > 0 {
					p.EndExtn = v[0]
				}
			case recXY:
				p.Points = points(rec.int32s())
			}
		}
		if len(p.Points) >= 2 {
			cell.Paths = append(cell.Paths, p)
		}
	case recSRef, recARef:
		r := Ref{Mag: 1}
		var xy []geom.Point
		for _, rec := range recs[1:] {
			switch rec.typ {
			case recSName:
				r.Name = rec.ascii()
			case recSTrans:
				r.Reflect = len(rec.data) > 0 && rec.data[0]&0x80 != 0
			case recMag:
				if v := rec.real64s(); len(v) > 0 {
					r.Mag = v[0]
				}
			case recAngle:
				if v := rec.real64s(); len(v) > 0 {
					r.Angle = v[0]
				}
			case recColRow:
				if v := rec.int16s(); len(v) == 2 {
					r.Cols, r.Rows = int(v[0]), int(v[1])
				}
			case recXY:
				xy = points(rec.int32s())
			}
		}
		if len(xy) == 0 {
			return fmt.Errorf("reference to %s without position", r.Name)
		}
		r.Origin = xy[0]
		if start.typ == recARef {
			if len(xy) != 3 || r.Cols <= 0 || r.Rows <= 0 {
				return fmt.Errorf("malformed array reference to %s", r.Name)
			}
			r.ColStep = geom.Point{X: (xy[1].X - xy[0].X) / int64(r.Cols), Y: (xy[1].Y - xy[0].Y) / int64(r.Cols)}
			r.RowStep = geom.Point{X: (xy[2].X - xy[0].X) / int64(r.Rows), Y: (xy[2].Y - xy[0].Y) / int64(r.Rows)}
		}
		cell.Refs = append(cell.Refs, r)
	default:
		cell.opaque = append(cell.opaque, recs)
	}
	return nil
}

func points(v []int32) []geom.Point {
	out := make([]geom.Point, len(v)/2)
	for i := range out {
		out[i] = geom.Point{X: int64(v[2*i]), Y: int64(v[2*i+1])}
	}
	return out
}

// closedPoints decodes a boundary XY list and drops the repeated closing vertex.
func closedPoints(v []int32) []geom.Point {
	pts := points(v)
	if n := len(pts); n > 1 && pts[0] == pts[n-1] {
		pts = pts[:n-1]
	}
	return pts
}
