package speck

// Set is a rectangular region of a coefficient volume, 2D or 3D
// depending on whether the Z extent is 1. A Set is a "pixel" when every
// length is 1. Garbage marks a set that became significant and was
// replaced by its children; it is a tombstone compacted by cleanLIS,
// never removed mid-iteration.
type Set struct {
	Start  [3]uint32
	Length [3]uint32
	Level  int
	Garbage bool
}

// IsPixel reports whether the set covers exactly one coefficient.
func (s Set) IsPixel() bool {
	return s.Length[0] == 1 && s.Length[1] == 1 && s.Length[2] == 1
}

// IsEmpty reports whether the set has zero extent along some axis,
// which happens when partitioning splits an axis of length 1.
func (s Set) IsEmpty() bool {
	return s.Length[0] == 0 || s.Length[1] == 0 || s.Length[2] == 0
}

// partitionOctants splits s into up to 8 octants by halving each axis
// at ceil(len/2). Children are returned z-outer, y-middle, x-inner,
// the fixed order the encoder and decoder must agree on. An axis of
// length 1 is not meaningfully split: its "second half" children come
// back with length 0 and are skipped by the caller (IsEmpty).
func partitionOctants(s Set) [8]Set {
	var out [8]Set
	split0 := [3]uint32{
		s.Length[0] - s.Length[0]/2,
		s.Length[1] - s.Length[1]/2,
		s.Length[2] - s.Length[2]/2,
	}
	split1 := [3]uint32{s.Length[0] / 2, s.Length[1] / 2, s.Length[2] / 2}

	level := s.Level
	for axis := 0; axis < 3; axis++ {
		if split1[axis] > 0 {
			level++
		}
	}

	i := 0
	for zb := 0; zb < 2; zb++ {
		lz, oz := split0[2], s.Start[2]
		if zb == 1 {
			lz, oz = split1[2], s.Start[2]+split0[2]
		}
		for yb := 0; yb < 2; yb++ {
			ly, oy := split0[1], s.Start[1]
			if yb == 1 {
				ly, oy = split1[1], s.Start[1]+split0[1]
			}
			for xb := 0; xb < 2; xb++ {
				lx, ox := split0[0], s.Start[0]
				if xb == 1 {
					lx, ox = split1[0], s.Start[0]+split0[0]
				}
				out[i] = Set{
					Start:  [3]uint32{ox, oy, oz},
					Length: [3]uint32{lx, ly, lz},
					Level:  level,
				}
				i++
			}
		}
	}
	return out
}

// partitionXY splits s into 4 quadrants along X and Y only, leaving Z
// unchanged. Used only while bootstrapping LIS, once the Z axis has
// already run out of decomposition levels but XY has not — the SPECK
// mirror of the DWT's "hybrid" continuation.
func partitionXY(s Set) [4]Set {
	var out [4]Set
	split0 := [2]uint32{s.Length[0] - s.Length[0]/2, s.Length[1] - s.Length[1]/2}
	split1 := [2]uint32{s.Length[0] / 2, s.Length[1] / 2}

	level := s.Level
	if split1[0] > 0 {
		level++
	}
	if split1[1] > 0 {
		level++
	}

	i := 0
	for yb := 0; yb < 2; yb++ {
		ly, oy := split0[1], s.Start[1]
		if yb == 1 {
			ly, oy = split1[1], s.Start[1]+split0[1]
		}
		for xb := 0; xb < 2; xb++ {
			lx, ox := split0[0], s.Start[0]
			if xb == 1 {
				lx, ox = split1[0], s.Start[0]+split0[0]
			}
			out[i] = Set{
				Start:  [3]uint32{ox, oy, s.Start[2]},
				Length: [3]uint32{lx, ly, s.Length[2]},
				Level:  level,
			}
			i++
		}
	}
	return out
}

// partitionZ splits s into 2 halves along Z only, leaving X and Y
// unchanged. The mirror-image bootstrap case of partitionXY, for
// volumes whose Z axis supports more decomposition levels than the XY
// plane.
func partitionZ(s Set) [2]Set {
	split0 := s.Length[2] - s.Length[2]/2
	split1 := s.Length[2] / 2

	level := s.Level
	if split1 > 0 {
		level++
	}

	return [2]Set{
		{Start: s.Start, Length: [3]uint32{s.Length[0], s.Length[1], split0}, Level: level},
		{
			Start:  [3]uint32{s.Start[0], s.Start[1], s.Start[2] + split0},
			Length: [3]uint32{s.Length[0], s.Length[1], split1},
			Level:  level,
		},
	}
}
