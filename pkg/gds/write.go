package gds

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/matzehuels/gdsfill/pkg/geom"
)

// Write encodes the library as a GDSII stream.
func (l *Library) Write(w io.Writer) error {
	bw := bufio.NewWriterSize(w, 1<<16)
	rw := &recordWriter{w: bw}

	rw.int16s(recHeader, l.Version)
	rw.int16s(recBgnLib, l.Stamp[:]...)
	rw.ascii(recLibName, l.Name)
	rw.real64s(recUnits, l.UserUnit, l.MeterUnit)

	for _, c := range l.cells {
		rw.int16s(recBgnStr, c.Stamp[:]...)
		rw.ascii(recStrName, c.Name)
		for _, b := range c.Boundaries {
			rw.empty(recBoundary)
			rw.int16s(recLayer, b.Layer)
			rw.int16s(recDatatype, b.Datatype)
			rw.int32s(recXY, xy(append(b.Points[:len(b.Points):len(b.Points)], b.Points[0]))...)
			rw.empty(recEndEl)
		}
		for _, p := range c.Paths {
			rw.empty(recPath)
			rw.int16s(recLayer, p.Layer)
			rw.int16s(recDatatype, p.Datatype)
			if p.PathType != 0 {
				rw.int16s(recPathType, p.PathType)
			}
			rw.int32s(recWidth, p.Width)
			if p.PathType == 4 {
				rw.int32s(recBgnExtn, p.BgnExtn)
				rw.int32s(recEndExtn, p.EndExtn)
			}
			rw.int32s(recXY, xy(p.Points)...)
			rw.empty(recEndEl)
		}
		for _, r := range c.Refs {
			writeRef(rw, r)
		}
		for _, recs := range c.opaque {
			for _, rec := range recs {
				rw.raw(rec)
			}
		}
		rw.empty(recEndStr)
	}
	rw.empty(recEndLib)

	if rw.err != nil {
		return rw.err
	}
	return bw.Flush()
}

func writeRef(rw *recordWriter, r Ref) {
	if r.Cols > 0 && r.Rows > 0 {
		rw.empty(recARef)
	} else {
		rw.empty(recSRef)
	}
	rw.ascii(recSName, r.Name)
	if r.Reflect || (r.Mag != 0 && r.Mag != 1) || r.Angle != 0 {
		var bits uint16
		if r.Reflect {
			bits |= 0x8000
		}
		rw.bits(recSTrans, bits)
		if r.Mag != 0 && r.Mag != 1 {
			rw.real64s(recMag, r.Mag)
		}
		if r.Angle != 0 {
			rw.real64s(recAngle, r.Angle)
		}
	}
	if r.Cols > 0 && r.Rows > 0 {
		rw.int16s(recColRow, int16(r.Cols), int16(r.Rows))
		cols, rows := int64(r.Cols), int64(r.Rows)
		rw.int32s(recXY, xy([]geom.Point{
			r.Origin,
			{X: r.Origin.X + cols*r.ColStep.X, Y: r.Origin.Y + cols*r.ColStep.Y},
			{X: r.Origin.X + rows*r.RowStep.X, Y: r.Origin.Y + rows*r.RowStep.Y},
		})...)
	} else {
		rw.int32s(recXY, xy([]geom.Point{r.Origin})...)
	}
	rw.empty(recEndEl)
}

// WriteFile writes the library to path, creating parent directories.
func (l *Library) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := l.Write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func xy(pts []geom.Point) []int32 {
	out := make([]int32, 0, 2*len(pts))
	for _, p := range pts {
		out = append(out, int32(p.X), int32(p.Y))
	}
	return out
}
