package speckvol

import (
	"encoding/binary"
	"fmt"

	"github.com/mrjoshuak/speckvol/internal/chunk"
	"github.com/mrjoshuak/speckvol/internal/xzstd"
)

// Decoder reverses Encoder: it parses a bitstream produced by
// Encoder.EncodedBitstream and reconstructs the sample volume. The
// zero value is not ready to use; construct one with NewDecoder.
type Decoder struct {
	numThreads int
	tol        float64

	data       []byte
	haveStream bool

	dx, dy, dz int
	cx, cy, cz int
	volume     []float64
	decoded    bool
}

// NewDecoder returns a ready-to-use Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// SetNumThreads overrides the worker pool size. n <= 0 selects
// runtime.GOMAXPROCS(0).
func (d *Decoder) SetNumThreads(n int) {
	if n < 0 {
		n = 0
	}
	d.numThreads = n
}

// SetTolerance must match the tolerance the Encoder used in
// fixed-quality mode; it is needed to re-run SPERR's bit-plane loop to
// the same termination point. Rate-mode bitstreams ignore it.
func (d *Decoder) SetTolerance(tau float64) {
	d.tol = tau
}

// UseBitstream supplies the bytes to decompress.
func (d *Decoder) UseBitstream(data []byte) error {
	if len(data) < topHeaderSize {
		return fmt.Errorf("%w: bitstream is %d bytes, need at least %d for the header", ErrWrongSize, len(data), topHeaderSize)
	}
	d.data = data
	d.haveStream = true
	d.decoded = false
	return nil
}

// Decompress parses the top header, derives the chunk grid, reverses
// the optional generic compression pass, and decodes every chunk in
// parallel, scattering the results into a dense volume.
func (d *Decoder) Decompress() error {
	if !d.haveStream {
		return ErrNoBitstream
	}
	data := d.data

	dx := int(binary.LittleEndian.Uint32(data[4:8]))
	dy := int(binary.LittleEndian.Uint32(data[8:12]))
	dz := int(binary.LittleEndian.Uint32(data[12:16]))
	cx := int(binary.LittleEndian.Uint32(data[16:20]))
	cy := int(binary.LittleEndian.Uint32(data[20:24]))
	cz := int(binary.LittleEndian.Uint32(data[24:28]))

	if dx <= 0 || dy <= 0 || dz <= 0 {
		return fmt.Errorf("%w: header declares non-positive dims (%d,%d,%d)", ErrDimMismatch, dx, dy, dz)
	}

	planCx, planCy, planCz := cx, cy, cz
	if planCx <= 0 || planCx > dx {
		planCx = dx
	}
	if planCy <= 0 || planCy > dy {
		planCy = dy
	}
	if planCz <= 0 || planCz > dz {
		planCz = dz
	}
	numChunks := len(chunk.Plan(dx, dy, dz, planCx, planCy, planCz))

	h, payload, err := parseTopHeader(data, numChunks)
	if err != nil {
		return err
	}
	if h.is3D != (dz > 1) {
		return fmt.Errorf("%w: header 3D flag does not match declared Dz=%d", ErrDimMismatch, dz)
	}

	if h.compressed {
		payload, err = xzstd.Decompress(payload)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCompression, err)
		}
	}

	var total uint64
	for _, l := range h.chunkLens {
		total += uint64(l)
	}
	if uint64(len(payload)) != total {
		return fmt.Errorf("%w: payload is %d bytes, chunk length table declares %d", ErrWrongSize, len(payload), total)
	}

	streams := make([][]byte, len(h.chunkLens))
	off := 0
	for i, l := range h.chunkLens {
		streams[i] = payload[off : off+int(l)]
		off += int(l)
	}

	opts := chunk.PipelineOptions{Tolerance: d.tol}
	volume, err := chunk.RunDecode(streams, dx, dy, dz, planCx, planCy, planCz, d.numThreads, opts)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCompression, err)
	}

	d.dx, d.dy, d.dz = dx, dy, dz
	d.cx, d.cy, d.cz = planCx, planCy, planCz
	d.volume = volume
	d.decoded = true
	return nil
}

// Dims returns the decoded volume's extent. Valid only after a
// successful Decompress.
func (d *Decoder) Dims() (dx, dy, dz int) { return d.dx, d.dy, d.dz }

// Volume64 returns the reconstructed samples as float64.
func (d *Decoder) Volume64() ([]float64, error) {
	if !d.decoded {
		return nil, fmt.Errorf("%w: call Decompress first", ErrInvalidParam)
	}
	return d.volume, nil
}

// Volume32 returns the reconstructed samples narrowed to float32.
func (d *Decoder) Volume32() ([]float32, error) {
	if !d.decoded {
		return nil, fmt.Errorf("%w: call Decompress first", ErrInvalidParam)
	}
	out := make([]float32, len(d.volume))
	for i, v := range d.volume {
		out[i] = float32(v)
	}
	return out, nil
}
