// Package speckvol implements a CDF 9/7 wavelet transform plus a SPECK
// embedded bit-plane coder over dense 3D scalar volumes, with SPERR
// outlier correction in fixed-quality mode and a parallel chunking
// driver producing a self-describing bitstream.
//
// Compression is lossy: two modes are supported. Rate mode targets a
// fixed bits-per-sample budget. Fixed-quality mode targets an L-infinity
// error tolerance, using SPERR to correct any residual above it. Neither
// mode supports lossless reconstruction, volumes with fewer than two
// samples along a transformed axis, or streaming decode.
//
// Basic usage for encoding:
//
//	e := speckvol.NewEncoder()
//	e.SetVolumeDims(256, 256, 128)
//	e.SetChunkDims(64, 64, 64)
//	e.SetBitsPerPixel(2.0)
//	e.UseVolume(samples)
//	if err := e.Compress(); err != nil {
//	    log.Fatal(err)
//	}
//	bitstream := e.EncodedBitstream()
//
// Basic usage for decoding:
//
//	d := speckvol.NewDecoder()
//	d.UseBitstream(bitstream)
//	if err := d.Decompress(); err != nil {
//	    log.Fatal(err)
//	}
//	samples, err := d.Volume64()
package speckvol
