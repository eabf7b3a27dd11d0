package speck

// typeIState tracks the dedicated 2D-only TypeI set: the L-shaped
// region of the coefficient plane outside the square already covered
// by ordinary TypeS sets. It is never stored in LIS and is never
// garbage collected; it either shrinks one DWT level at a time via
// advance, or is exhausted (fully absorbed into TypeS sets).
//
// sizes[lev] holds the (width, height) of the approximation square at
// decomposition level lev, mirroring wavelet.Engine's own level sizing
// so the covered square always lines up with an actual subband
// boundary. level starts at the coarsest level (the smallest square,
// matching the LIS bootstrap root) and counts down to 0 (full
// resolution, plane fully covered).
type typeIState struct {
	sizes       [][2]int
	level       int
	transitions int
}

func approxLenLocal(d, lev int) int {
	for i := 0; i < lev; i++ {
		d = (d + 1) / 2
	}
	return d
}

func newTypeIState(dimX, dimY, rootLevel int) *typeIState {
	sizes := make([][2]int, rootLevel+1)
	for lev := 0; lev <= rootLevel; lev++ {
		sizes[lev] = [2]int{approxLenLocal(dimX, lev), approxLenLocal(dimY, lev)}
	}
	return &typeIState{sizes: sizes, level: rootLevel}
}

// exhausted reports whether the covered square has grown to the full
// plane, meaning there is no more L-shaped remainder to code.
func (t *typeIState) exhausted() bool { return t.level == 0 }

func (t *typeIState) covered() (int, int) {
	return t.sizes[t.level][0], t.sizes[t.level][1]
}

// advance grows the covered square from sizes[level] to sizes[level-1]
// and returns the three TypeS rectangles that exactly fill the
// newly-covered L-shaped strip, each tagged with newLevel as their LIS
// bucket. The remaining, smaller TypeI set (outside sizes[level-1])
// replaces t in place.
func (t *typeIState) advance(newLevel int) [3]Set {
	cw, ch := t.sizes[t.level][0], t.sizes[t.level][1]
	nw, nh := t.sizes[t.level-1][0], t.sizes[t.level-1][1]
	t.level--
	t.transitions++
	return [3]Set{
		{Start: [3]uint32{0, uint32(ch), 0}, Length: [3]uint32{uint32(cw), uint32(nh - ch), 1}, Level: newLevel},
		{Start: [3]uint32{uint32(cw), 0, 0}, Length: [3]uint32{uint32(nw - cw), uint32(ch), 1}, Level: newLevel},
		{Start: [3]uint32{uint32(cw), uint32(ch), 0}, Length: [3]uint32{uint32(nw - cw), uint32(nh - ch), 1}, Level: newLevel},
	}
}
