package wavelet

// Engine holds the scratch buffer reused across levels and axes of a
// single chunk's transform. It is not safe for concurrent use; the
// chunking driver allocates one Engine per worker.
type Engine struct {
	scratch []float64
}

// New returns an Engine with no pre-allocated scratch space.
func New() *Engine {
	return &Engine{}
}

func (e *Engine) buf(n int) []float64 {
	if cap(e.scratch) < n {
		e.scratch = make([]float64, n)
	}
	return e.scratch[:n]
}

// transformAxis applies the forward or inverse 1D lifting kernel to a
// strided signal of the given length starting at offset, then writes
// the gathered (forward) or interleaves the scattered (inverse) result
// back to the same locations.
func (e *Engine) transformAxis(data []float64, offset, stride, length int, forward bool) {
	if length < 2 {
		return
	}
	buf := e.buf(length * 2)
	a, b := buf[:length], buf[length:2*length]

	for i := 0; i < length; i++ {
		a[i] = data[offset+i*stride]
	}
	if forward {
		analyze1D(a)
		gather(b, a)
	} else {
		scatter(b, a)
		synthesize1D(b)
	}
	for i := 0; i < length; i++ {
		data[offset+i*stride] = b[i]
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// xPass transforms the X axis for every row of every z-layer within
// the current approximation subcube (ax by ay by az).
func (e *Engine) xPass(data []float64, dimX, dimY, ax, ay, az int, forward bool) {
	for z := 0; z < az; z++ {
		base := z * dimX * dimY
		for y := 0; y < ay; y++ {
			e.transformAxis(data, base+y*dimX, 1, ax, forward)
		}
	}
}

// yPass transforms the Y axis for every column of every z-layer.
func (e *Engine) yPass(data []float64, dimX, dimY, ax, ay, az int, forward bool) {
	for z := 0; z < az; z++ {
		base := z * dimX * dimY
		for x := 0; x < ax; x++ {
			e.transformAxis(data, base+x, dimX, ay, forward)
		}
	}
}

// zPass transforms the Z axis for every (x, y) column of the current
// approximation rectangle.
func (e *Engine) zPass(data []float64, dimX, dimY, ax, ay, az int, forward bool) {
	stride := dimX * dimY
	for y := 0; y < ay; y++ {
		for x := 0; x < ax; x++ {
			e.transformAxis(data, y*dimX+x, stride, az, forward)
		}
	}
}

// Forward3D runs the forward CDF 9/7 transform on a (dimX, dimY, dimZ)
// volume stored row-major with X fastest. dimZ == 1 degenerates to a
// pure 2D transform. When the Z axis supports fewer decomposition
// levels than the XY plane (or vice versa), the axis that runs out of
// levels first is frozen at its last halved extent while the other
// axes continue — full 3D ("dyadic") while both still have levels
// left, falling back to a pure 2D or pure Z continuation ("hybrid")
// once one axis is exhausted.
func (e *Engine) Forward3D(data []float64, dimX, dimY, dimZ int) {
	lxy := NumLevels(minInt(dimX, dimY))
	lz := NumLevels(dimZ)
	levels := maxInt(lxy, lz)

	for lev := 0; lev < levels; lev++ {
		xl := minInt(lev, lxy)
		zl := minInt(lev, lz)
		ax := approxLen(dimX, xl)
		ay := approxLen(dimY, xl)
		az := approxLen(dimZ, zl)

		if lev < lxy {
			e.xPass(data, dimX, dimY, ax, ay, az, true)
			e.yPass(data, dimX, dimY, ax, ay, az, true)
		}
		if lev < lz {
			e.zPass(data, dimX, dimY, ax, ay, az, true)
		}
	}
}

// Inverse3D reverses Forward3D exactly.
func (e *Engine) Inverse3D(data []float64, dimX, dimY, dimZ int) {
	lxy := NumLevels(minInt(dimX, dimY))
	lz := NumLevels(dimZ)
	levels := maxInt(lxy, lz)

	for lev := levels - 1; lev >= 0; lev-- {
		xl := minInt(lev, lxy)
		zl := minInt(lev, lz)
		ax := approxLen(dimX, xl)
		ay := approxLen(dimY, xl)
		az := approxLen(dimZ, zl)

		if lev < lz {
			e.zPass(data, dimX, dimY, ax, ay, az, false)
		}
		if lev < lxy {
			e.yPass(data, dimX, dimY, ax, ay, az, false)
			e.xPass(data, dimX, dimY, ax, ay, az, false)
		}
	}
}

// Forward removes the volume mean, runs Forward3D, and returns the mean
// so the caller can carry it in the per-chunk header.
func (e *Engine) Forward(data []float64, dimX, dimY, dimZ int) float64 {
	mean := Mean(data, dimX, dimY, dimZ)
	for i := range data {
		data[i] -= mean
	}
	e.Forward3D(data, dimX, dimY, dimZ)
	return mean
}

// Inverse runs Inverse3D and adds the mean back.
func (e *Engine) Inverse(data []float64, dimX, dimY, dimZ int, mean float64) {
	e.Inverse3D(data, dimX, dimY, dimZ)
	for i := range data {
		data[i] += mean
	}
}

// Mean computes the volume mean via successive partial averages (row
// means, then layer means, then the volume mean) to bound accumulated
// error without the cost of compensated summation.
func Mean(data []float64, dimX, dimY, dimZ int) float64 {
	rowMeans := make([]float64, dimY*dimZ)
	invX := 1.0 / float64(dimX)
	idx := 0
	for z := 0; z < dimZ; z++ {
		base := z * dimX * dimY
		for y := 0; y < dimY; y++ {
			sum := 0.0
			row := data[base+y*dimX : base+y*dimX+dimX]
			for _, v := range row {
				sum += v
			}
			rowMeans[idx] = sum * invX
			idx++
		}
	}

	layerMeans := make([]float64, dimZ)
	invY := 1.0 / float64(dimY)
	idx = 0
	for z := 0; z < dimZ; z++ {
		sum := 0.0
		for y := 0; y < dimY; y++ {
			sum += rowMeans[idx]
			idx++
		}
		layerMeans[z] = sum * invY
	}

	sum := 0.0
	for _, v := range layerMeans {
		sum += v
	}
	return sum / float64(dimZ)
}
