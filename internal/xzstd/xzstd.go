// Package xzstd wraps github.com/klauspost/compress/zstd for the
// optional generic byte-level compression pass over an assembled
// bitstream's payload, the Go-ecosystem analogue of the reference
// SPECK3D driver's USE_ZSTD option.
package xzstd

import (
	"fmt"
	"runtime"

	"github.com/klauspost/compress/zstd"
)

// Compress returns the zstd-compressed form of data, encoding with a
// concurrency level matched to the available CPUs.
func Compress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(runtime.NumCPU()))
	if err != nil {
		return nil, fmt.Errorf("xzstd: new encoder: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

// Decompress reverses Compress.
func Decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(runtime.NumCPU()))
	if err != nil {
		return nil, fmt.Errorf("xzstd: new decoder: %w", err)
	}
	defer dec.Close()
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("xzstd: decode: %w", err)
	}
	return out, nil
}
