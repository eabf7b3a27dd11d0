package bitio

import "testing"

func TestAppendAndRead(t *testing.T) {
	b := New()
	want := []bool{true, false, false, true, true, true, false, false, true, false}
	for _, bit := range want {
		b.AppendBit(bit)
	}
	if b.Len() != uint64(len(want)) {
		t.Fatalf("Len() = %d, want %d", b.Len(), len(want))
	}
	for i, bit := range want {
		if got := b.Bit(uint64(i)); got != bit {
			t.Errorf("Bit(%d) = %v, want %v", i, got, bit)
		}
	}
}

func TestBytesRoundTrip(t *testing.T) {
	b := New()
	want := []bool{true, false, true, true, false, false, false, true, true, true, false}
	for _, bit := range want {
		b.AppendBit(bit)
	}
	packed := append([]byte(nil), b.Bytes()...)
	if len(packed) != 2 {
		t.Fatalf("packed len = %d, want 2", len(packed))
	}

	r := NewFromBytes(packed, b.Len())
	for i, bit := range want {
		if got := r.Bit(uint64(i)); got != bit {
			t.Errorf("Bit(%d) = %v, want %v", i, got, bit)
		}
	}
}

func TestAppendPacked(t *testing.T) {
	src := New()
	for _, bit := range []bool{true, true, false, true, false} {
		src.AppendBit(bit)
	}

	dst := New()
	dst.AppendBit(false)
	dst.AppendPacked(src.Bytes(), src.Len())

	want := []bool{false, true, true, false, true, false}
	if dst.Len() != uint64(len(want)) {
		t.Fatalf("Len() = %d, want %d", dst.Len(), len(want))
	}
	for i, bit := range want {
		if got := dst.Bit(uint64(i)); got != bit {
			t.Errorf("Bit(%d) = %v, want %v", i, got, bit)
		}
	}
}

func TestLSBFirstPacking(t *testing.T) {
	b := New()
	// 1,0,1,0,0,0,0,0 packed LSB-first should be byte 0x05.
	for _, bit := range []bool{true, false, true, false, false, false, false, false} {
		b.AppendBit(bit)
	}
	packed := b.Bytes()
	if len(packed) != 1 || packed[0] != 0x05 {
		t.Fatalf("packed = %v, want [0x05]", packed)
	}
}

func TestReset(t *testing.T) {
	b := New()
	b.AppendBit(true)
	b.AppendBit(false)
	b.Reset()
	if b.Len() != 0 {
		t.Fatalf("Len() after Reset = %d, want 0", b.Len())
	}
	b.AppendBit(false)
	if b.Bit(0) {
		t.Fatalf("Bit(0) = true, want false after reuse")
	}
}
