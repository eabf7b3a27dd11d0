package speckvol

import (
	"math"
	"math/rand"
	"testing"
)

func TestAllZeroVolumeRoundTrip(t *testing.T) {
	dx, dy, dz := 8, 8, 8
	samples := make([]float64, dx*dy*dz)

	e := NewEncoder()
	if err := e.SetVolumeDims(dx, dy, dz); err != nil {
		t.Fatalf("SetVolumeDims: %v", err)
	}
	if err := e.SetBitsPerPixel(1); err != nil {
		t.Fatalf("SetBitsPerPixel: %v", err)
	}
	if err := e.UseVolume(samples); err != nil {
		t.Fatalf("UseVolume: %v", err)
	}
	if err := e.Compress(); err != nil {
		t.Fatalf("Compress: %v", err)
	}
	bs := e.EncodedBitstream()
	if len(bs) == 0 {
		t.Fatal("expected a non-empty bitstream")
	}

	d := NewDecoder()
	if err := d.UseBitstream(bs); err != nil {
		t.Fatalf("UseBitstream: %v", err)
	}
	if err := d.Decompress(); err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	got, err := d.Volume64()
	if err != nil {
		t.Fatalf("Volume64: %v", err)
	}
	for i, v := range got {
		if v != 0 {
			t.Fatalf("sample %d: got %v, want 0", i, v)
		}
	}
}

func TestSinusoidalRateModeRMSE(t *testing.T) {
	dx, dy, dz := 32, 32, 16
	samples := make([]float64, dx*dy*dz)
	i := 0
	for z := 0; z < dz; z++ {
		for y := 0; y < dy; y++ {
			for x := 0; x < dx; x++ {
				samples[i] = 200 * math.Sin(float64(x)/5) * math.Cos(float64(y)/6) * math.Sin(float64(z)/3+0.5)
				i++
			}
		}
	}

	e := NewEncoder()
	e.SetVolumeDims(dx, dy, dz)
	e.SetChunkDims(16, 16, 8)
	e.SetBitsPerPixel(6)
	if err := e.UseVolume(samples); err != nil {
		t.Fatalf("UseVolume: %v", err)
	}
	if err := e.Compress(); err != nil {
		t.Fatalf("Compress: %v", err)
	}

	d := NewDecoder()
	if err := d.UseBitstream(e.EncodedBitstream()); err != nil {
		t.Fatalf("UseBitstream: %v", err)
	}
	if err := d.Decompress(); err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	got, err := d.Volume64()
	if err != nil {
		t.Fatalf("Volume64: %v", err)
	}

	var sumSq float64
	for i := range samples {
		diff := samples[i] - got[i]
		sumSq += diff * diff
	}
	rmse := math.Sqrt(sumSq / float64(len(samples)))
	if rmse > 15 {
		t.Fatalf("RMSE %v too high for 6 bpp on a smooth sinusoid", rmse)
	}
}

func TestNonPowerOfTwoDimsRoundTrip(t *testing.T) {
	dx, dy, dz := 17, 23, 11
	rng := rand.New(rand.NewSource(3))
	samples := make([]float64, dx*dy*dz)
	for i := range samples {
		samples[i] = rng.Float64() * 100
	}

	e := NewEncoder()
	e.SetVolumeDims(dx, dy, dz)
	e.SetChunkDims(7, 9, 5)
	e.SetBitsPerPixel(8)
	if err := e.UseVolume(samples); err != nil {
		t.Fatalf("UseVolume: %v", err)
	}
	if err := e.Compress(); err != nil {
		t.Fatalf("Compress: %v", err)
	}

	d := NewDecoder()
	if err := d.UseBitstream(e.EncodedBitstream()); err != nil {
		t.Fatalf("UseBitstream: %v", err)
	}
	if err := d.Decompress(); err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	gotDx, gotDy, gotDz := d.Dims()
	if gotDx != dx || gotDy != dy || gotDz != dz {
		t.Fatalf("decoded dims (%d,%d,%d), want (%d,%d,%d)", gotDx, gotDy, gotDz, dx, dy, dz)
	}
	got, err := d.Volume64()
	if err != nil {
		t.Fatalf("Volume64: %v", err)
	}
	if len(got) != len(samples) {
		t.Fatalf("got %d samples, want %d", len(got), len(samples))
	}
}

func TestFixedQualityToleranceGuarantee(t *testing.T) {
	dx, dy, dz := 24, 24, 12
	rng := rand.New(rand.NewSource(21))
	samples := make([]float64, dx*dy*dz)
	i := 0
	for z := 0; z < dz; z++ {
		for y := 0; y < dy; y++ {
			for x := 0; x < dx; x++ {
				samples[i] = 50*math.Sin(float64(x)/4) + rng.NormFloat64()*2
				i++
			}
		}
	}

	tol := 3.0
	e := NewEncoder()
	e.SetVolumeDims(dx, dy, dz)
	e.SetChunkDims(12, 12, 6)
	e.SetQuantizationLevel(-8)
	if err := e.SetTolerance(tol); err != nil {
		t.Fatalf("SetTolerance: %v", err)
	}
	if err := e.UseVolume(samples); err != nil {
		t.Fatalf("UseVolume: %v", err)
	}
	if err := e.Compress(); err != nil {
		t.Fatalf("Compress: %v", err)
	}

	d := NewDecoder()
	d.SetTolerance(tol)
	if err := d.UseBitstream(e.EncodedBitstream()); err != nil {
		t.Fatalf("UseBitstream: %v", err)
	}
	if err := d.Decompress(); err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	got, err := d.Volume64()
	if err != nil {
		t.Fatalf("Volume64: %v", err)
	}
	if len(got) != len(samples) {
		t.Fatalf("got %d samples, want %d", len(got), len(samples))
	}
	for i := range samples {
		if diff := math.Abs(got[i] - samples[i]); diff > tol {
			t.Fatalf("sample %d: error %v exceeds tolerance %v", i, diff, tol)
		}
	}
}

func TestMultiChunkMultiThreadDeterminism(t *testing.T) {
	dx, dy, dz := 20, 20, 20
	rng := rand.New(rand.NewSource(99))
	samples := make([]float64, dx*dy*dz)
	for i := range samples {
		samples[i] = rng.Float64() * 50
	}

	build := func(threads int) []byte {
		e := NewEncoder()
		e.SetVolumeDims(dx, dy, dz)
		e.SetChunkDims(10, 10, 10)
		e.SetBitsPerPixel(4)
		e.SetNumThreads(threads)
		if err := e.UseVolume(samples); err != nil {
			t.Fatalf("UseVolume: %v", err)
		}
		if err := e.Compress(); err != nil {
			t.Fatalf("Compress: %v", err)
		}
		return e.EncodedBitstream()
	}

	seq := build(1)
	par := build(8)
	if len(seq) != len(par) {
		t.Fatalf("sequential bitstream is %d bytes, parallel is %d", len(seq), len(par))
	}
	for i := range seq {
		if seq[i] != par[i] {
			t.Fatalf("byte %d differs between thread counts", i)
		}
	}
}

func TestCorruptedBitstreamErrors(t *testing.T) {
	dx, dy, dz := 8, 8, 8
	samples := make([]float64, dx*dy*dz)
	for i := range samples {
		samples[i] = float64(i % 7)
	}

	e := NewEncoder()
	e.SetVolumeDims(dx, dy, dz)
	e.SetBitsPerPixel(2)
	e.SetGenericCompression(false) // raw payload, so truncation maps cleanly to a length mismatch
	if err := e.UseVolume(samples); err != nil {
		t.Fatalf("UseVolume: %v", err)
	}
	if err := e.Compress(); err != nil {
		t.Fatalf("Compress: %v", err)
	}
	bs := e.EncodedBitstream()

	truncated := bs[:len(bs)-1]
	d := NewDecoder()
	err := d.UseBitstream(truncated)
	if err == nil {
		err = d.Decompress()
	}
	if ResultFor(err) != WrongSize {
		t.Fatalf("truncated bitstream: got Result %v (err %v), want WrongSize", ResultFor(err), err)
	}

	altered := append([]byte(nil), bs...)
	altered[0] = 0xFF
	d2 := NewDecoder()
	err = d2.UseBitstream(altered)
	if err == nil {
		err = d2.Decompress()
	}
	if ResultFor(err) != VersionMismatch {
		t.Fatalf("altered version byte: got Result %v (err %v), want VersionMismatch", ResultFor(err), err)
	}
}
