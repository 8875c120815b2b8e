package feature

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
)

// frameMagic marks the start of each record frame, so that a worker given
// an arbitrary byte offset (see reader.go's partitioning) can scan forward
// to the next record boundary instead of needing a pre-built offset index.
// The intermediate format's exact framing is this spec's own invention
// (spec.md §6.1 leaves it unspecified); a magic-prefixed, length-prefixed
// frame is the simplest scheme that supports both sequential decode and
// byte-offset realignment.
var frameMagic = [4]byte{'G', 'E', 'O', '1'}

// writeFrame writes one length-framed record to w.
func writeFrame(w io.Writer, rec *Record) error {
	payload, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	var header [8]byte
	copy(header[:4], frameMagic[:])
	binary.BigEndian.PutUint32(header[4:], uint32(len(payload)))

	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}

// readFrame reads one length-framed record starting at the reader's
// current position. It returns io.EOF if the stream is exhausted cleanly
// at a frame boundary.
func readFrame(r io.Reader) (*Record, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, &ErrTruncatedRecord{}
		}
		return nil, err
	}
	if header[0] != frameMagic[0] || header[1] != frameMagic[1] ||
		header[2] != frameMagic[2] || header[3] != frameMagic[3] {
		return nil, &ErrBadMagic{}
	}

	length := binary.BigEndian.Uint32(header[4:])
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, &ErrTruncatedRecord{}
	}

	return decodeRecord(payload)
}

func encodeRecord(rec *Record) ([]byte, error) {
	buf := make([]byte, 0, 128)
	buf = appendUint64(buf, uint64(rec.ObjectID))
	buf = append(buf, byte(rec.Geometry.Type))
	buf = appendFloat64(buf, rec.Geometry.Center.X)
	buf = appendFloat64(buf, rec.Geometry.Center.Y)

	buf = appendUint16(buf, uint16(len(rec.Geometry.Rings)))
	for _, ring := range rec.Geometry.Rings {
		buf = appendUint32(buf, uint32(len(ring)))
		for _, c := range ring {
			buf = appendFloat64(buf, c.X)
			buf = appendFloat64(buf, c.Y)
		}
	}

	buf = appendString16(buf, rec.Street)
	buf = appendString16(buf, rec.House)

	locales := rec.SortedLocales()
	buf = appendUint16(buf, uint16(len(locales)))
	for _, locale := range locales {
		buf = appendString8(buf, locale)
		buf = appendString16(buf, rec.Names[locale])
	}

	return buf, nil
}

func decodeRecord(buf []byte) (*Record, error) {
	dec := &decoder{buf: buf}

	rec := &Record{}
	rec.ObjectID = ObjectID(dec.uint64())
	rec.Geometry.Type = GeometryType(dec.uint8())
	rec.Geometry.Center.X = dec.float64()
	rec.Geometry.Center.Y = dec.float64()

	numRings := int(dec.uint16())
	if numRings > 0 {
		rec.Geometry.Rings = make([]Polygon, numRings)
		for i := 0; i < numRings; i++ {
			numCoords := int(dec.uint32())
			ring := make(Polygon, numCoords)
			for j := 0; j < numCoords; j++ {
				ring[j] = Coord{X: dec.float64(), Y: dec.float64()}
			}
			rec.Geometry.Rings[i] = ring
		}
	}

	rec.Street = dec.string16()
	rec.House = dec.string16()

	numNames := int(dec.uint16())
	if numNames > 0 {
		rec.Names = make(map[string]string, numNames)
		for i := 0; i < numNames; i++ {
			locale := dec.string8()
			value := dec.string16()
			rec.Names[locale] = value
		}
	}

	if dec.err != nil {
		return nil, dec.err
	}
	return rec, nil
}

// decoder walks a payload buffer sequentially, recording the first
// short-read error encountered so call sites don't need to check after
// every field.
type decoder struct {
	buf []byte
	pos int
	err error
}

func (d *decoder) need(n int) bool {
	if d.err != nil {
		return false
	}
	if d.pos+n > len(d.buf) {
		d.err = &ErrTruncatedRecord{}
		return false
	}
	return true
}

func (d *decoder) uint8() uint8 {
	if !d.need(1) {
		return 0
	}
	v := d.buf[d.pos]
	d.pos++
	return v
}

func (d *decoder) uint16() uint16 {
	if !d.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(d.buf[d.pos:])
	d.pos += 2
	return v
}

func (d *decoder) uint32() uint32 {
	if !d.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(d.buf[d.pos:])
	d.pos += 4
	return v
}

func (d *decoder) uint64() uint64 {
	if !d.need(8) {
		return 0
	}
	v := binary.BigEndian.Uint64(d.buf[d.pos:])
	d.pos += 8
	return v
}

func (d *decoder) float64() float64 {
	return math.Float64frombits(d.uint64())
}

func (d *decoder) string8() string {
	n := int(d.uint8())
	if !d.need(n) {
		return ""
	}
	s := string(d.buf[d.pos : d.pos+n])
	d.pos += n
	return s
}

func (d *decoder) string16() string {
	n := int(d.uint16())
	if !d.need(n) {
		return ""
	}
	s := string(d.buf[d.pos : d.pos+n])
	d.pos += n
	return s
}

func appendUint16(buf []byte, v uint16) []byte {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendFloat64(buf []byte, v float64) []byte {
	return appendUint64(buf, math.Float64bits(v))
}

func appendString8(buf []byte, s string) []byte {
	buf = append(buf, byte(len(s)))
	return append(buf, s...)
}

func appendString16(buf []byte, s string) []byte {
	buf = appendUint16(buf, uint16(len(s)))
	return append(buf, s...)
}

// newBufferedReader wraps r with a buffered reader sized for sequential
// frame decoding.
func newBufferedReader(r io.Reader) *bufio.Reader {
	return bufio.NewReaderSize(r, 64*1024)
}

// newBufferedWriter wraps w with a buffered writer sized for sequential
// frame encoding.
func newBufferedWriter(w io.Writer) *bufio.Writer {
	return bufio.NewWriterSize(w, 64*1024)
}
