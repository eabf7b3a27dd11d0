package chunk

import (
	"encoding/binary"
	"fmt"

	"github.com/mrjoshuak/speckvol/internal/speck"
	"github.com/mrjoshuak/speckvol/internal/sperr"
	"github.com/mrjoshuak/speckvol/internal/wavelet"
)

// PipelineOptions selects rate mode or fixed-quality mode for the
// per-chunk wavelet+SPECK(+SPERR) pipeline.
type PipelineOptions struct {
	RateMode     bool
	BitsPerPixel float64 // rate mode: chunk bit budget = BitsPerPixel * chunk sample count
	QzLevel      int32   // fixed-quality mode
	Tolerance    float64 // fixed-quality mode: SPERR outlier threshold
}

// worker holds the scratch state reused across chunks by one pool
// worker: a wavelet engine and (implicitly, via the speck/sperr package
// functions) fresh coder state per call. Only the wavelet engine's
// internal buffer is worth pooling across calls.
type worker struct {
	engine *wavelet.Engine
}

func newWorker() *worker { return &worker{engine: wavelet.New()} }

// encodeChunk runs the full per-chunk pipeline: DWT forward, SPECK
// encode, and — in fixed-quality mode — an internal SPECK decode to
// find residual outliers for SPERR. It returns the chunk's self
// contained byte stream: a 24-byte header, a 4-byte little-endian
// SPECK payload length, the SPECK payload, then (fixed-quality mode
// only) a 4-byte little-endian SPERR exponent and the SPERR payload.
func (w *worker) encodeChunk(samples []float64, lx, ly, lz int, opts PipelineOptions) []byte {
	coeffs := append([]float64(nil), samples...)
	mean := w.engine.Forward(coeffs, lx, ly, lz)

	var speckOpts speck.EncodeOptions
	if opts.RateMode {
		budget := uint64(opts.BitsPerPixel * float64(len(samples)))
		speckOpts = speck.EncodeOptions{RateMode: true, BudgetBits: budget}
	} else {
		speckOpts = speck.EncodeOptions{RateMode: false, QzLevel: opts.QzLevel}
	}
	res := speck.Encode(coeffs, lx, ly, lz, speckOpts)

	header := speck.Header{DimX: lx, DimY: ly, DimZ: lz, Mean: mean, Exponent: res.Exponent}
	out := header.Pack()
	lenBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(lenBuf, uint32(len(res.Bits)))
	out = append(out, lenBuf...)
	out = append(out, res.Bits...)

	if opts.RateMode {
		return out
	}

	decoded := speck.Decode(res.Bits, res.NumBits, lx, ly, lz, res.Exponent, res.NumBits)
	w.engine.Inverse(decoded, lx, ly, lz, mean)
	residual := make([]float64, len(samples))
	for i := range samples {
		residual[i] = samples[i] - decoded[i]
	}
	outliers := sperr.DetectOutliers(residual, opts.Tolerance)
	sres := sperr.Encode(outliers, uint64(len(samples)), opts.Tolerance)
	expBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(expBuf, uint32(sres.Exponent))
	out = append(out, expBuf...)
	return append(out, sres.Bits...)
}

// decodeChunk reverses encodeChunk, reconstructing lx*ly*lz samples
// (the caller supplies the expected dims from its own chunk plan; they
// are cross-checked against the embedded header).
func decodeChunk(w *worker, data []byte, expectLx, expectLy, expectLz int, opts PipelineOptions) ([]float64, error) {
	header, err := speck.ParseHeader(data)
	if err != nil {
		return nil, err
	}
	if header.DimX != expectLx || header.DimY != expectLy || header.DimZ != expectLz {
		return nil, fmt.Errorf("chunk: header dims (%d,%d,%d) do not match expected (%d,%d,%d)",
			header.DimX, header.DimY, header.DimZ, expectLx, expectLy, expectLz)
	}
	rest := data[speck.HeaderSize:]
	if len(rest) < 4 {
		return nil, fmt.Errorf("chunk: truncated chunk stream")
	}
	speckLen := binary.LittleEndian.Uint32(rest[:4])
	rest = rest[4:]
	if uint32(len(rest)) < speckLen {
		return nil, fmt.Errorf("chunk: truncated SPECK payload: have %d bytes, want %d", len(rest), speckLen)
	}
	speckBits := rest[:speckLen]
	tail := rest[speckLen:]

	n := header.DimX * header.DimY * header.DimZ
	coeffs := speck.Decode(speckBits, uint64(len(speckBits))*8, header.DimX, header.DimY, header.DimZ, header.Exponent, uint64(len(speckBits))*8)
	w.engine.Inverse(coeffs, header.DimX, header.DimY, header.DimZ, header.Mean)

	if len(tail) >= 4 {
		sperrExponent := int32(binary.LittleEndian.Uint32(tail[:4]))
		sperrBits := tail[4:]
		outliers := sperr.Decode(sperrBits, uint64(len(sperrBits))*8, uint64(n), sperrExponent, opts.Tolerance)
		for _, o := range outliers {
			coeffs[o.Location] += o.Error
		}
	}
	return coeffs, nil
}
