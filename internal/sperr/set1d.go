package sperr

// Set1D is a contiguous range of locations in a chunk's flat
// coefficient index space. Most of that space is zero (not an
// outlier); the significance test over a range lets whole insignificant
// stretches cost a single bit apiece.
type Set1D struct {
	Start   uint64
	Length  uint64
	Level   int
	Garbage bool
}

// partition1D splits s into two contiguous halves, matching
// speck.partitionOctants' split-size convention (first half gets the
// extra element on an odd length).
func partition1D(s Set1D) [2]Set1D {
	l0 := s.Length - s.Length/2
	l1 := s.Length / 2
	level := s.Level + 1
	return [2]Set1D{
		{Start: s.Start, Length: l0, Level: level},
		{Start: s.Start + l0, Length: l1, Level: level},
	}
}
