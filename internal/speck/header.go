package speck

import (
	"encoding/binary"
	"fmt"
	"math"
)

// HeaderSize is the fixed size, in bytes, of the per-chunk header that
// precedes every chunk's packed SPECK bitstream: three uint32 extents,
// one float64 mean, one int32 max-coefficient exponent.
const HeaderSize = 24

// Header carries the fields the SPECK coder needs to size its buffers
// and reapply the chunk mean, read or written at the front of each
// chunk's byte stream.
type Header struct {
	DimX, DimY, DimZ int
	Mean             float64
	Exponent         int32
}

// Pack writes h to a fresh 24-byte buffer, little-endian throughout.
func (h Header) Pack() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(h.DimX))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(h.DimY))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(h.DimZ))
	binary.LittleEndian.PutUint64(buf[12:20], math.Float64bits(h.Mean))
	binary.LittleEndian.PutUint32(buf[20:24], uint32(h.Exponent))
	return buf
}

// ParseHeader reads a Header from the front of buf.
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("speck: short chunk header: got %d bytes, want %d", len(buf), HeaderSize)
	}
	var h Header
	h.DimX = int(binary.LittleEndian.Uint32(buf[0:4]))
	h.DimY = int(binary.LittleEndian.Uint32(buf[4:8]))
	h.DimZ = int(binary.LittleEndian.Uint32(buf[8:12]))
	h.Mean = math.Float64frombits(binary.LittleEndian.Uint64(buf[12:20]))
	h.Exponent = int32(binary.LittleEndian.Uint32(buf[20:24]))
	return h, nil
}
