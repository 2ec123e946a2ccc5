// Package palette reads and writes the binary color palette and serves
// records by index or by closest color.
package palette

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/okian/huematch/internal/domain/model"
)

// File layout constants. All integers are little endian.
const (
	Magic      uint32 = 0x584C5544 // "DULX"
	HeaderSize        = 16

	// Version1 records are variable width with length-prefixed strings.
	Version1 uint32 = 1
	// Version2 records are fixed width; the header carries the record size.
	Version2 uint32 = 2

	NameSize = 64
	CodeSize = 16

	// RecordSizeV2 is r,g,b + lrv + id + name + code + lightText.
	RecordSizeV2 = 3 + 2 + 4 + NameSize + CodeSize + 1

	minRecordSizeV1 = 3 + 2 + 4 + 1 + 1 + 1
	lrvScale        = 100
)

type header struct {
	magic      uint32
	version    uint32
	count      uint32
	recordSize uint32
}

func decodeHeader(b []byte) (header, error) {
	if len(b) < HeaderSize {
		return header{}, fmt.Errorf("%w: short header (%d bytes)", ErrCorrupt, len(b))
	}
	h := header{
		magic:      binary.LittleEndian.Uint32(b[0:4]),
		version:    binary.LittleEndian.Uint32(b[4:8]),
		count:      binary.LittleEndian.Uint32(b[8:12]),
		recordSize: binary.LittleEndian.Uint32(b[12:16]),
	}
	if h.magic != Magic {
		return header{}, fmt.Errorf("%w: bad magic %#x", ErrCorrupt, h.magic)
	}
	switch h.version {
	case Version1:
	case Version2:
		if h.recordSize < RecordSizeV2 {
			return header{}, fmt.Errorf("%w: record size %d below %d", ErrCorrupt, h.recordSize, RecordSizeV2)
		}
	default:
		return header{}, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, h.version)
	}
	return h, nil
}

func (h header) encode() []byte {
	b := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(b[0:4], h.magic)
	binary.LittleEndian.PutUint32(b[4:8], h.version)
	binary.LittleEndian.PutUint32(b[8:12], h.count)
	binary.LittleEndian.PutUint32(b[12:16], h.recordSize)
	return b
}

// indexV1 walks variable-width records and returns the start offset of each.
func indexV1(data []byte, count int) ([]int, error) {
	if count > (len(data)-HeaderSize)/minRecordSizeV1 {
		return nil, fmt.Errorf("%w: count %d does not fit in %d bytes", ErrCorrupt, count, len(data))
	}
	offsets := make([]int, count)
	off := HeaderSize
	for i := 0; i < count; i++ {
		offsets[i] = off
		p := off + 9
		if p >= len(data) {
			return nil, fmt.Errorf("%w: record %d truncated", ErrCorrupt, i)
		}
		p += 1 + int(data[p])
		if p >= len(data) {
			return nil, fmt.Errorf("%w: record %d truncated", ErrCorrupt, i)
		}
		p += 1 + int(data[p])
		if p >= len(data) {
			return nil, fmt.Errorf("%w: record %d truncated", ErrCorrupt, i)
		}
		off = p + 1
	}
	return offsets, nil
}

func decodeV1(b []byte) model.ColorRecord {
	rec := decodeFixedPrefix(b)
	p := 9
	n := int(b[p])
	rec.Name = string(b[p+1 : p+1+n])
	p += 1 + n
	n = int(b[p])
	rec.Code = string(b[p+1 : p+1+n])
	p += 1 + n
	rec.LightText = b[p] != 0
	return rec
}

func decodeV2(b []byte) model.ColorRecord {
	rec := decodeFixedPrefix(b)
	rec.Name = cString(b[9 : 9+NameSize])
	rec.Code = cString(b[9+NameSize : 9+NameSize+CodeSize])
	rec.LightText = b[9+NameSize+CodeSize] != 0
	return rec
}

func decodeFixedPrefix(b []byte) model.ColorRecord {
	return model.ColorRecord{
		R:   b[0],
		G:   b[1],
		B:   b[2],
		LRV: float64(binary.LittleEndian.Uint16(b[3:5])) / lrvScale,
		ID:  binary.LittleEndian.Uint32(b[5:9]),
	}
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

func encodeFixedPrefix(buf *bytes.Buffer, rec model.ColorRecord) {
	buf.Write([]byte{rec.R, rec.G, rec.B})
	lrv := math.Round(rec.LRV * lrvScale)
	if lrv < 0 {
		lrv = 0
	}
	if lrv > math.MaxUint16 {
		lrv = math.MaxUint16
	}
	var tmp [4]byte
	binary.LittleEndian.PutUint16(tmp[:2], uint16(lrv))
	buf.Write(tmp[:2])
	binary.LittleEndian.PutUint32(tmp[:], rec.ID)
	buf.Write(tmp[:])
}

func encodeV1(buf *bytes.Buffer, rec model.ColorRecord) {
	encodeFixedPrefix(buf, rec)
	for _, s := range []string{rec.Name, rec.Code} {
		if len(s) > math.MaxUint8 {
			s = s[:math.MaxUint8]
		}
		buf.WriteByte(byte(len(s)))
		buf.WriteString(s)
	}
	buf.WriteByte(boolByte(rec.LightText))
}

func encodeV2(buf *bytes.Buffer, rec model.ColorRecord) {
	encodeFixedPrefix(buf, rec)
	writeFixed(buf, rec.Name, NameSize)
	writeFixed(buf, rec.Code, CodeSize)
	buf.WriteByte(boolByte(rec.LightText))
}

// writeFixed writes s NUL padded to n bytes, truncating if needed.
func writeFixed(buf *bytes.Buffer, s string, n int) {
	field := make([]byte, n)
	copy(field, s)
	buf.Write(field)
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
