package speck

import (
	"math"
	"math/rand"
	"testing"
)

func maxAbsDiff(a, b []float64) float64 {
	m := 0.0
	for i := range a {
		if d := math.Abs(a[i] - b[i]); d > m {
			m = d
		}
	}
	return m
}

func randomVolume(n int, seed int64, scale float64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * scale
	}
	return out
}

func TestRateModeRoundTrip(t *testing.T) {
	dims := [][3]int{{8, 8, 8}, {4, 4, 4}, {17, 19, 1}, {32, 32, 32}}
	for _, d := range dims {
		n := d[0] * d[1] * d[2]
		coeffs := randomVolume(n, int64(d[0]*1000+d[1]*10+d[2]), 100)

		res := Encode(coeffs, d[0], d[1], d[2], EncodeOptions{RateMode: true, BudgetBits: uint64(n * 4)})
		if res.NumBits == 0 {
			t.Fatalf("dims %v: expected a non-empty bitstream", d)
		}
		got := Decode(res.Bits, res.NumBits, d[0], d[1], d[2], res.Exponent, res.NumBits)

		if diff := maxAbsDiff(coeffs, got); diff > math.Pow(2, float64(res.Exponent))*2 {
			t.Fatalf("dims %v: reconstruction diff %v too large for exponent %d", d, diff, res.Exponent)
		}
	}
}

func TestRateMonotonicity(t *testing.T) {
	n := 16 * 16 * 16
	coeffs := randomVolume(n, 7, 50)

	var prevDiff float64 = math.MaxFloat64
	for _, bpp := range []float64{0.1, 0.5, 1, 2, 4} {
		budget := uint64(bpp * float64(n))
		res := Encode(coeffs, 16, 16, 16, EncodeOptions{RateMode: true, BudgetBits: budget})
		got := Decode(res.Bits, res.NumBits, 16, 16, 16, res.Exponent, res.NumBits)
		diff := maxAbsDiff(coeffs, got)
		if diff > prevDiff+1e-9 {
			t.Fatalf("bpp=%v: error %v increased vs previous budget's error %v", bpp, diff, prevDiff)
		}
		prevDiff = diff
	}
}

func TestFixedQualityTermination(t *testing.T) {
	n := 8 * 8 * 8
	coeffs := randomVolume(n, 3, 10)

	res := Encode(coeffs, 8, 8, 8, EncodeOptions{RateMode: false, QzLevel: -4})
	if res.NumBits%8 != 0 {
		t.Fatalf("fixed-quality stream should be byte-padded, got %d bits", res.NumBits)
	}
	got := Decode(res.Bits, res.NumBits, 8, 8, 8, res.Exponent, res.NumBits)

	tol := math.Pow(2, -4)
	if diff := maxAbsDiff(coeffs, got); diff > tol*4 {
		t.Fatalf("fixed-quality q=-4: diff %v exceeds a generous multiple of tol %v", diff, tol)
	}
}

func TestAllZeroVolume(t *testing.T) {
	n := 8 * 8 * 8
	coeffs := make([]float64, n)

	res := Encode(coeffs, 8, 8, 8, EncodeOptions{RateMode: true, BudgetBits: uint64(n)})
	got := Decode(res.Bits, res.NumBits, 8, 8, 8, res.Exponent, res.NumBits)
	for i, v := range got {
		if v != 0 {
			t.Fatalf("elem %d: got %v, want 0", i, v)
		}
	}
}

func Test2DRoundTripUsesTypeI(t *testing.T) {
	n := 32 * 24
	coeffs := randomVolume(n, 99, 80)

	res := Encode(coeffs, 32, 24, 1, EncodeOptions{RateMode: true, BudgetBits: uint64(n * 6)})
	got := Decode(res.Bits, res.NumBits, 32, 24, 1, res.Exponent, res.NumBits)

	if diff := maxAbsDiff(coeffs, got); diff > math.Pow(2, float64(res.Exponent-3)) {
		t.Fatalf("2D round trip max error %v too large for exponent %d at 6 bpp", diff, res.Exponent)
	}
	var sumSq float64
	for i := range coeffs {
		d := coeffs[i] - got[i]
		sumSq += d * d
	}
	if rmse := math.Sqrt(sumSq / float64(n)); rmse > 3 {
		t.Fatalf("2D round trip RMSE %v too high for 6 bpp (a position coded twice, once per tree, would roughly double this)", rmse)
	}
}

func TestSetPartitionCompleteness(t *testing.T) {
	s := Set{Length: [3]uint32{5, 7, 3}}
	children := partitionOctants(s)
	var total uint64
	for _, ch := range children {
		if ch.IsEmpty() {
			continue
		}
		total += uint64(ch.Length[0]) * uint64(ch.Length[1]) * uint64(ch.Length[2])
	}
	want := uint64(s.Length[0]) * uint64(s.Length[1]) * uint64(s.Length[2])
	if total != want {
		t.Fatalf("octant split covers %d cells, want %d", total, want)
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{DimX: 17, DimY: 19, DimZ: 23, Mean: -3.5, Exponent: -2}
	got, err := ParseHeader(h.Pack())
	if err != nil {
		t.Fatal(err)
	}
	if got != h {
		t.Fatalf("got %+v, want %+v", got, h)
	}
}
