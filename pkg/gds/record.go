package gds

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

type recordType byte

// Record types of the GDSII stream format.
const (
	recHeader   recordType = 0x00
	recBgnLib   recordType = 0x01
	recLibName  recordType = 0x02
	recUnits    recordType = 0x03
	recEndLib   recordType = 0x04
	recBgnStr   recordType = 0x05
	recStrName  recordType = 0x06
	recEndStr   recordType = 0x07
	recBoundary recordType = 0x08
	recPath     recordType = 0x09
	recSRef     recordType = 0x0A
	recARef     recordType = 0x0B
	recText     recordType = 0x0C
	recLayer    recordType = 0x0D
	recDatatype recordType = 0x0E
	recWidth    recordType = 0x0F
	recXY       recordType = 0x10
	recEndEl    recordType = 0x11
	recSName    recordType = 0x12
	recColRow   recordType = 0x13
	recNode     recordType = 0x15
	recSTrans   recordType = 0x1A
	recMag      recordType = 0x1B
	recAngle    recordType = 0x1C
	recPathType recordType = 0x21
	recBox      recordType = 0x2D
	recBoxType  recordType = 0x2E
	recBgnExtn  recordType = 0x30
	recEndExtn  recordType = 0x31
)

type dataType byte

const (
	dtNone   dataType = 0
	dtBits   dataType = 1
	dtInt16  dataType = 2
	dtInt32  dataType = 3
	dtReal64 dataType = 5
	dtASCII  dataType = 6
)

const (
	hdrLength    = 4
	maxRecordLen = 0xFFFF
)

// record is one raw stream record.
type record struct {
	typ  recordType
	dt   dataType
	data []byte
}

func readRecord(r *bufio.Reader) (record, error) {
	var hdr [hdrLength]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return record{}, err
	}
	n := int(binary.BigEndian.Uint16(hdr[0:2]))
	if n < hdrLength {
		return record{}, fmt.Errorf("record 0x%02x: invalid length %d", hdr[2], n)
	}
	rec := record{typ: recordType(hdr[2]), dt: dataType(hdr[3])}
	if n > hdrLength {
		rec.data = make([]byte, n-hdrLength)
		if _, err := io.ReadFull(r, rec.data); err != nil {
			return record{}, fmt.Errorf("record 0x%02x: %w", hdr[2], err)
		}
	}
	return rec, nil
}

func (r record) int16s() []int16 {
	out := make([]int16, len(r.data)/2)
	for i := range out {
		out[i] = int16(binary.BigEndian.Uint16(r.data[2*i:]))
	}
	return out
}

func (r record) int16() int16 {
	if v := r.int16s(); len(v) > 0 {
		return v[0]
	}
	return 0
}

func (r record) int32s() []int32 {
	out := make([]int32, len(r.data)/4)
	for i := range out {
		out[i] = int32(binary.BigEndian.Uint32(r.data[4*i:]))
	}
	return out
}

func (r record) real64s() []float64 {
	out := make([]float64, len(r.data)/8)
	for i := range out {
		out[i] = decodeReal8(binary.BigEndian.Uint64(r.data[8*i:]))
	}
	return out
}

func (r record) ascii() string {
	b := r.data
	for len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	return string(b)
}

// decodeReal8 converts an excess-64 base-16 floating point value.
func decodeReal8(v uint64) float64 {
	if v&^(1<<63) == 0 {
		return 0
	}
	neg := v>>63 == 1
	exp := int((v>>56)&0x7F) - 64
	mant := float64(v&0x00FFFFFFFFFFFFFF) / (1 << 56)
	f := mant * math.Pow(16, float64(exp))
	if neg {
		return -f
	}
	return f
}

// encodeReal8 converts a float to excess-64 base-16 form.
func encodeReal8(f float64) uint64 {
	if f == 0 || math.IsNaN(f) {
		return 0
	}
	var sign uint64
	if f < 0 {
		sign = 1 << 63
		f = -f
	}
	exp := 64
	for f >= 1 {
		f /= 16
		exp++
	}
	for f < 1.0/16 {
		f *= 16
		exp--
	}
	mant := uint64(math.Round(f * (1 << 56)))
	if mant >= 1<<56 {
		mant >>= 4
		exp++
	}
	return sign | uint64(exp&0x7F)<<56 | mant
}

// recordWriter writes records and remembers the first error.
type recordWriter struct {
	w   *bufio.Writer
	err error
}

func (rw *recordWriter) write(typ recordType, dt dataType, data []byte) {
	if rw.err != nil {
		return
	}
	if len(data)+hdrLength > maxRecordLen {
		rw.err = fmt.Errorf("record 0x%02x: %d bytes exceeds record limit", byte(typ), len(data))
		return
	}
	var hdr [hdrLength]byte
	binary.BigEndian.PutUint16(hdr[0:2], uint16(len(data)+hdrLength))
	hdr[2], hdr[3] = byte(typ), byte(dt)
	if _, err := rw.w.Write(hdr[:]); err != nil {
		rw.err = err
		return
	}
	if _, err := rw.w.Write(data); err != nil {
		rw.err = err
	}
}

func (rw *recordWriter) raw(r record) { rw.write(r.typ, r.dt, r.data) }

func (rw *recordWriter) empty(typ recordType) { rw.write(typ, dtNone, nil) }

func (rw *recordWriter) int16s(typ recordType, vals ...int16) {
	data := make([]byte, 2*len(vals))
	for i, v := range vals {
		binary.BigEndian.PutUint16(data[2*i:], uint16(v))
	}
	rw.write(typ, dtInt16, data)
}

func (rw *recordWriter) bits(typ recordType, v uint16) {
	data := make([]byte, 2)
	binary.BigEndian.PutUint16(data, v)
	rw.write(typ, dtBits, data)
}

func (rw *recordWriter) int32s(typ recordType, vals ...int32) {
	data := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.BigEndian.PutUint32(data[4*i:], uint32(v))
	}
	rw.write(typ, dtInt32, data)
}

func (rw *recordWriter) real64s(typ recordType, vals ...float64) {
	data := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.BigEndian.PutUint64(data[8*i:], encodeReal8(v))
	}
	rw.write(typ, dtReal64, data)
}

func (rw *recordWriter) ascii(typ recordType, s string) {
	data := []byte(s)
	if len(data)%2 == 1 {
		data = append(data, 0)
	}
	rw.write(typ, dtASCII, data)
}
