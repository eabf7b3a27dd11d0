package speckvol

import (
	"fmt"

	"github.com/mrjoshuak/speckvol/internal/chunk"
	"github.com/mrjoshuak/speckvol/internal/xzstd"
)

// Encoder compresses a dense 3D scalar volume into a self-describing
// bitstream. The zero value is not ready to use; construct one with
// NewEncoder.
type Encoder struct {
	dx, dy, dz int
	cx, cy, cz int
	numThreads int

	rateMode bool
	bpp      float64
	qzLevel  int32
	tol      float64

	useGeneric bool

	samples  []float64
	haveDims bool
	haveVol  bool

	bitstream []byte
}

// NewEncoder returns an Encoder with rate mode selected at a
// conservative default of 2 bits per sample, no chunking (a single
// chunk spanning the whole volume), and one worker thread per
// available core.
func NewEncoder() *Encoder {
	return &Encoder{
		rateMode:   true,
		bpp:        2.0,
		numThreads: 0, // 0 means runtime.GOMAXPROCS(0), resolved in internal/chunk
		useGeneric: true,
	}
}

// SetVolumeDims fixes the volume extent. All three must be positive.
func (e *Encoder) SetVolumeDims(dx, dy, dz int) error {
	if dx <= 0 || dy <= 0 || dz <= 0 {
		return fmt.Errorf("%w: volume dims must be positive, got (%d,%d,%d)", ErrInvalidParam, dx, dy, dz)
	}
	e.dx, e.dy, e.dz = dx, dy, dz
	e.haveDims = true
	return nil
}

// SetChunkDims fixes the chunk extent used to tile the volume. A
// dimension of 0 means "use the full volume extent along that axis"
// (no tiling along that axis).
func (e *Encoder) SetChunkDims(cx, cy, cz int) error {
	if cx < 0 || cy < 0 || cz < 0 {
		return fmt.Errorf("%w: chunk dims must be non-negative, got (%d,%d,%d)", ErrInvalidParam, cx, cy, cz)
	}
	e.cx, e.cy, e.cz = cx, cy, cz
	return nil
}

// SetNumThreads overrides the worker pool size. n <= 0 selects
// runtime.GOMAXPROCS(0).
func (e *Encoder) SetNumThreads(n int) {
	if n < 0 {
		n = 0
	}
	e.numThreads = n
}

// SetBitsPerPixel switches to rate mode, targeting bpp bits per sample
// across each chunk.
func (e *Encoder) SetBitsPerPixel(bpp float64) error {
	if bpp <= 0 {
		return fmt.Errorf("%w: bits per pixel must be positive, got %v", ErrInvalidParam, bpp)
	}
	e.rateMode = true
	e.bpp = bpp
	return nil
}

// SetQuantizationLevel switches to fixed-quality mode, terminating
// each chunk's SPECK pass once its threshold exponent reaches q.
func (e *Encoder) SetQuantizationLevel(q int32) {
	e.rateMode = false
	e.qzLevel = q
}

// SetTolerance sets the SPERR outlier-correction tolerance used in
// fixed-quality mode. tau must be positive.
func (e *Encoder) SetTolerance(tau float64) error {
	if tau <= 0 {
		return fmt.Errorf("%w: tolerance must be positive, got %v", ErrInvalidParam, tau)
	}
	e.tol = tau
	return nil
}

// SetGenericCompression enables or disables the optional zstd pass
// over the assembled payload. Enabled by default.
func (e *Encoder) SetGenericCompression(on bool) { e.useGeneric = on }

// UseVolume supplies the sample data to compress: either []float32 or
// []float64, in row-major order with x fastest. Its length must equal
// the product of the dims set via SetVolumeDims.
func (e *Encoder) UseVolume(samples any) error {
	if !e.haveDims {
		return fmt.Errorf("%w: call SetVolumeDims before UseVolume", ErrInvalidParam)
	}
	want := e.dx * e.dy * e.dz
	switch s := samples.(type) {
	case []float64:
		if len(s) != want {
			return fmt.Errorf("%w: got %d samples, want %d", ErrWrongSize, len(s), want)
		}
		e.samples = append([]float64(nil), s...)
	case []float32:
		if len(s) != want {
			return fmt.Errorf("%w: got %d samples, want %d", ErrWrongSize, len(s), want)
		}
		out := make([]float64, len(s))
		for i, v := range s {
			out[i] = float64(v)
		}
		e.samples = out
	default:
		return fmt.Errorf("%w: UseVolume accepts []float32 or []float64, got %T", ErrInvalidParam, samples)
	}
	e.haveVol = true
	return nil
}

// Compress runs the full pipeline (per-chunk wavelet transform, SPECK
// coding, and in fixed-quality mode SPERR outlier correction) and
// assembles the top-level bitstream. Call EncodedBitstream afterward
// to retrieve it.
func (e *Encoder) Compress() error {
	if !e.haveVol {
		return ErrNoVolume
	}
	if !e.rateMode && e.tol <= 0 {
		return fmt.Errorf("%w: fixed-quality mode requires a positive tolerance (call SetTolerance)", ErrInvalidParam)
	}

	opts := chunk.PipelineOptions{
		RateMode:     e.rateMode,
		BitsPerPixel: e.bpp,
		QzLevel:      e.qzLevel,
		Tolerance:    e.tol,
	}

	_, streams := chunk.RunEncode(e.samples, e.dx, e.dy, e.dz, e.cx, e.cy, e.cz, e.numThreads, opts)

	cx, cy, cz := e.cx, e.cy, e.cz
	if cx <= 0 {
		cx = e.dx
	}
	if cy <= 0 {
		cy = e.dy
	}
	if cz <= 0 {
		cz = e.dz
	}

	lens := make([]uint32, len(streams))
	var payload []byte
	for i, s := range streams {
		lens[i] = uint32(len(s))
		payload = append(payload, s...)
	}

	compressed := false
	if e.useGeneric {
		z, err := xzstd.Compress(payload)
		if err == nil && len(z) < len(payload) {
			payload = z
			compressed = true
		}
	}

	h := topHeader{
		version:    currentVersion,
		compressed: compressed,
		is3D:       e.dz > 1,
		dx:         uint32(e.dx),
		dy:         uint32(e.dy),
		dz:         uint32(e.dz),
		cx:         uint32(cx),
		cy:         uint32(cy),
		cz:         uint32(cz),
		chunkLens:  lens,
	}

	e.bitstream = append(h.pack(), payload...)
	return nil
}

// EncodedBitstream returns the bitstream produced by the last
// successful Compress call.
func (e *Encoder) EncodedBitstream() []byte { return e.bitstream }
