package speckvol

import (
	"encoding/binary"
	"fmt"
)

// currentVersion is the bitstream format's major version, checked on
// decode against the version byte in the top header.
const currentVersion = 1

const (
	flagCompressed byte = 1 << 0
	flag3D         byte = 1 << 1
)

// topHeaderSize is the fixed portion of the top-level header: version
// byte, flags byte, two reserved/padding bytes, then six uint32 extents
// (Dx, Dy, Dz, Cx, Cy, Cz). The per-chunk length table follows,
// contributing 4 bytes per chunk.
const topHeaderSize = 28

type topHeader struct {
	version    byte
	compressed bool
	is3D       bool
	dx, dy, dz uint32
	cx, cy, cz uint32
	chunkLens  []uint32
}

func (h topHeader) size() int {
	return topHeaderSize + 4*len(h.chunkLens)
}

func (h topHeader) pack() []byte {
	buf := make([]byte, h.size())
	buf[0] = h.version
	var flags byte
	if h.compressed {
		flags |= flagCompressed
	}
	if h.is3D {
		flags |= flag3D
	}
	buf[1] = flags
	binary.LittleEndian.PutUint32(buf[4:8], h.dx)
	binary.LittleEndian.PutUint32(buf[8:12], h.dy)
	binary.LittleEndian.PutUint32(buf[12:16], h.dz)
	binary.LittleEndian.PutUint32(buf[16:20], h.cx)
	binary.LittleEndian.PutUint32(buf[20:24], h.cy)
	binary.LittleEndian.PutUint32(buf[24:28], h.cz)
	off := topHeaderSize
	for _, l := range h.chunkLens {
		binary.LittleEndian.PutUint32(buf[off:off+4], l)
		off += 4
	}
	return buf
}

// parseTopHeader reads the fixed portion of the header and the
// num_chunks-length table that follows it. numChunks is supplied by
// the caller (derived from replanning the chunk grid against the
// header's own declared dims), not read from the stream, since the
// stream carries no explicit chunk count.
func parseTopHeader(data []byte, numChunks int) (topHeader, []byte, error) {
	need := topHeaderSize + 4*numChunks
	if len(data) < need {
		return topHeader{}, nil, fmt.Errorf("%w: bitstream is %d bytes, header needs at least %d", ErrWrongSize, len(data), need)
	}
	h := topHeader{
		version: data[0],
		dx:      binary.LittleEndian.Uint32(data[4:8]),
		dy:      binary.LittleEndian.Uint32(data[8:12]),
		dz:      binary.LittleEndian.Uint32(data[12:16]),
		cx:      binary.LittleEndian.Uint32(data[16:20]),
		cy:      binary.LittleEndian.Uint32(data[20:24]),
		cz:      binary.LittleEndian.Uint32(data[24:28]),
	}
	if h.version != currentVersion {
		return topHeader{}, nil, fmt.Errorf("%w: got version %d, want %d", ErrVersionMismatch, h.version, currentVersion)
	}
	flags := data[1]
	h.compressed = flags&flagCompressed != 0
	h.is3D = flags&flag3D != 0

	h.chunkLens = make([]uint32, numChunks)
	off := topHeaderSize
	for i := range h.chunkLens {
		h.chunkLens[i] = binary.LittleEndian.Uint32(data[off : off+4])
		off += 4
	}
	return h, data[need:], nil
}
