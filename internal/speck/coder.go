// Package speck implements the SPECK (Set Partitioned Embedded bloCK)
// bit-plane progressive coder used to encode a single chunk's
// wavelet-transformed coefficients. It supports both rate mode (stop
// once a bit budget is spent) and fixed-quality mode (stop once the
// current bit-plane threshold drops to a target quantization level).
package speck

import (
	"math"

	"github.com/mrjoshuak/speckvol/internal/bitio"
	"github.com/mrjoshuak/speckvol/internal/wavelet"
)

const lipGarbage = ^uint32(0)

const maxBitPlanes = 128

// Coder holds the state for one chunk's SPECK encode or decode pass:
// coefficient magnitudes and signs, the LIS/LIP/LSP lists, and (for 2D
// coefficient planes) the dedicated TypeI slot. Encode and Decode each
// allocate a fresh Coder per call; it is not kept across chunks.
type Coder struct {
	dimX, dimY, dimZ int

	coeffs []float64
	signs  []bool

	lis    [][]Set
	lip    []uint32
	lspOld []uint32
	lspNew []uint32

	typeI *typeIState

	threshold float64
	encoding  bool
	rateMode  bool

	bits   *bitio.Buffer
	bitIdx uint64
	budget uint64
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// initSets bootstraps LIS (and, for a 2D coefficient plane, the TypeI
// slot) by mirroring the DWT's own dyadic/hybrid level structure:
// octree partitioning while both the XY plane and Z axis still have
// levels left, falling back to XY-only or Z-only partitioning once one
// axis runs out. See wavelet.Engine.Forward3D for the matching
// transform-side structure.
func (c *Coder) initSets() {
	lxy := wavelet.NumLevels(minInt(c.dimX, c.dimY))
	lz := wavelet.NumLevels(c.dimZ)

	if c.dimZ == 1 && lxy > 0 {
		// 2D coefficient plane: S + I, not an eager quadrant tiling.
		// The single root S set is the LL approximation square left
		// after lxy halvings; everything outside it is the L-shaped
		// remainder, owned exclusively by the dedicated TypeI slot
		// (see typei.go). Running partitionXY here as well would tile
		// that same remainder a second time, coding and refining every
		// position in it twice.
		root := Set{Length: [3]uint32{
			uint32(approxLenLocal(c.dimX, lxy)),
			uint32(approxLenLocal(c.dimY, lxy)),
			1,
		}}
		c.lis = ensureLevel(c.lis, root.Level)
		c.lis[root.Level] = append([]Set{root}, c.lis[root.Level]...)
		c.typeI = newTypeIState(c.dimX, c.dimY, lxy)

		c.lip = c.lip[:0]
		c.lspOld = c.lspOld[:0]
		c.lspNew = c.lspNew[:0]
		return
	}

	big := Set{Length: [3]uint32{uint32(c.dimX), uint32(c.dimY), uint32(c.dimZ)}}
	xf := 0
	for xf < lxy && xf < lz {
		subsets := partitionOctants(big)
		big = subsets[0]
		for i := 1; i < len(subsets); i++ {
			c.pushLIS(subsets[i])
		}
		xf++
	}
	if xf < lxy {
		for xf < lxy {
			subsets := partitionXY(big)
			big = subsets[0]
			for i := 1; i < len(subsets); i++ {
				c.pushLIS(subsets[i])
			}
			xf++
		}
	} else {
		for xf < lz {
			subsets := partitionZ(big)
			big = subsets[0]
			c.pushLIS(subsets[1])
			xf++
		}
	}
	c.lis = ensureLevel(c.lis, big.Level)
	c.lis[big.Level] = append([]Set{big}, c.lis[big.Level]...)

	c.lip = c.lip[:0]
	c.lspOld = c.lspOld[:0]
	c.lspNew = c.lspNew[:0]
}

func (c *Coder) pushLIS(s Set) {
	if s.IsEmpty() {
		return
	}
	c.lis = ensureLevel(c.lis, s.Level)
	c.lis[s.Level] = append(c.lis[s.Level], s)
}

func ensureLevel(lis [][]Set, level int) [][]Set {
	for len(lis) <= level {
		lis = append(lis, nil)
	}
	return lis
}

func (c *Coder) pixelIndex(s Set) uint32 {
	return uint32(int(s.Start[2])*c.dimY*c.dimX + int(s.Start[1])*c.dimX + int(s.Start[0]))
}

func (c *Coder) setSignificant(s Set) bool {
	for z := s.Start[2]; z < s.Start[2]+s.Length[2]; z++ {
		for y := s.Start[1]; y < s.Start[1]+s.Length[1]; y++ {
			base := int(z)*c.dimY*c.dimX + int(y)*c.dimX
			row := c.coeffs[base+int(s.Start[0]) : base+int(s.Start[0]+s.Length[0])]
			for _, v := range row {
				if v >= c.threshold {
					return true
				}
			}
		}
	}
	return false
}

func (c *Coder) typeISignificant() bool {
	cw, ch := c.typeI.covered()
	for y := 0; y < c.dimY; y++ {
		base := y * c.dimX
		for x := 0; x < c.dimX; x++ {
			if x < cw && y < ch {
				continue
			}
			if c.coeffs[base+x] >= c.threshold {
				return true
			}
		}
	}
	return false
}

func (c *Coder) emit(bit bool) error {
	c.bits.AppendBit(bit)
	if c.rateMode && c.bits.Len() >= c.budget {
		return errBitBudgetMet
	}
	return nil
}

func (c *Coder) readBit() (bool, error) {
	if c.bitIdx >= c.budget {
		return false, errBitBudgetMet
	}
	b := c.bits.Bit(c.bitIdx)
	c.bitIdx++
	return b, nil
}

func (c *Coder) processPEncode(loc int) error {
	idx := c.lip[loc]
	sig := c.coeffs[idx] >= c.threshold
	if err := c.emit(sig); err != nil {
		return err
	}
	if sig {
		if err := c.emit(c.signs[idx]); err != nil {
			return err
		}
		c.lspNew = append(c.lspNew, idx)
		c.lip[loc] = lipGarbage
	}
	return nil
}

func (c *Coder) processPDecode(loc int) error {
	sig, err := c.readBit()
	if err != nil {
		return err
	}
	if sig {
		idx := c.lip[loc]
		sign, err := c.readBit()
		if err != nil {
			return err
		}
		c.signs[idx] = sign
		c.lspNew = append(c.lspNew, idx)
		c.lip[loc] = lipGarbage
	}
	return nil
}

func (c *Coder) codeS(s Set) error {
	children := partitionOctants(s)
	for _, ch := range children {
		if ch.IsEmpty() {
			continue
		}
		if ch.IsPixel() {
			c.lip = append(c.lip, c.pixelIndex(ch))
			loc := len(c.lip) - 1
			var err error
			if c.encoding {
				err = c.processPEncode(loc)
			} else {
				err = c.processPDecode(loc)
			}
			if err != nil {
				return err
			}
			continue
		}
		c.lis = ensureLevel(c.lis, ch.Level)
		c.lis[ch.Level] = append(c.lis[ch.Level], ch)
		l2 := len(c.lis[ch.Level]) - 1
		var err error
		if c.encoding {
			err = c.processSEncode(ch.Level, l2)
		} else {
			err = c.processSDecode(ch.Level, l2)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Coder) processSEncode(l1, l2 int) error {
	s := c.lis[l1][l2]
	sig := c.setSignificant(s)
	if err := c.emit(sig); err != nil {
		return err
	}
	if sig {
		if err := c.codeS(s); err != nil {
			return err
		}
		c.lis[l1][l2].Garbage = true
	}
	return nil
}

func (c *Coder) processSDecode(l1, l2 int) error {
	sig, err := c.readBit()
	if err != nil {
		return err
	}
	if sig {
		s := c.lis[l1][l2]
		if err := c.codeS(s); err != nil {
			return err
		}
		c.lis[l1][l2].Garbage = true
	}
	return nil
}

func (c *Coder) processTypeI() error {
	var sig bool
	if c.encoding {
		sig = c.typeISignificant()
		if err := c.emit(sig); err != nil {
			return err
		}
	} else {
		var err error
		sig, err = c.readBit()
		if err != nil {
			return err
		}
	}
	if !sig {
		return nil
	}
	newLevel := c.typeI.transitions + 1
	children := c.typeI.advance(newLevel)
	for _, ch := range children {
		if ch.IsEmpty() {
			continue
		}
		c.lis = ensureLevel(c.lis, ch.Level)
		c.lis[ch.Level] = append(c.lis[ch.Level], ch)
		l2 := len(c.lis[ch.Level]) - 1
		var err error
		if c.encoding {
			err = c.processSEncode(ch.Level, l2)
		} else {
			err = c.processSDecode(ch.Level, l2)
		}
		if err != nil {
			return err
		}
	}
	if !c.typeI.exhausted() {
		return c.processTypeI()
	}
	return nil
}

// sortingPass runs one bit-plane's sorting pass: LIP first, then the
// TypeI slot (2D only), then LIS from the deepest level down to level
// 0. The deepest-first LIS sweep matches the reference SPECK3D driver:
// the 3D LIS bootstrap leaves the most-likely-significant root subcube at
// the highest level number, at the front of its bucket, so scanning
// from the end visits it first. Any order is correctness-preserving as
// long as the encoder and decoder agree, which this does structurally.
func (c *Coder) sortingPass() error {
	for i := 0; i < len(c.lip); i++ {
		if c.lip[i] == lipGarbage {
			continue
		}
		var err error
		if c.encoding {
			err = c.processPEncode(i)
		} else {
			err = c.processPDecode(i)
		}
		if err != nil {
			return err
		}
	}

	if c.typeI != nil && !c.typeI.exhausted() {
		if err := c.processTypeI(); err != nil {
			return err
		}
	}

	for l1 := len(c.lis) - 1; l1 >= 0; l1-- {
		for l2 := 0; l2 < len(c.lis[l1]); l2++ {
			if c.lis[l1][l2].Garbage {
				continue
			}
			var err error
			if c.encoding {
				err = c.processSEncode(l1, l2)
			} else {
				err = c.processSDecode(l1, l2)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// refinementPass emits (or consumes) one more bit of precision for
// every coefficient already in LSP, then folds the newly-significant
// coefficients from this bit-plane's sorting pass into LSP for the
// next one.
func (c *Coder) refinementPass() error {
	for _, idx := range c.lspOld {
		if c.encoding {
			bit := c.coeffs[idx] >= c.threshold
			if bit {
				c.coeffs[idx] -= c.threshold
			}
			if err := c.emit(bit); err != nil {
				return err
			}
		} else {
			bit, err := c.readBit()
			if err != nil {
				return err
			}
			if bit {
				c.coeffs[idx] += c.threshold * 0.5
			} else {
				c.coeffs[idx] -= c.threshold * 0.5
			}
		}
	}

	if c.encoding {
		for _, idx := range c.lspNew {
			c.coeffs[idx] -= c.threshold
		}
	} else {
		for _, idx := range c.lspNew {
			c.coeffs[idx] = c.threshold * 1.5
		}
	}

	c.lspOld = append(c.lspOld, c.lspNew...)
	c.lspNew = c.lspNew[:0]
	return nil
}

func (c *Coder) cleanLIS() {
	for lvl := range c.lis {
		garbage := 0
		for _, s := range c.lis[lvl] {
			if s.Garbage {
				garbage++
			}
		}
		if garbage == 0 || garbage*2 <= len(c.lis[lvl]) {
			continue
		}
		kept := c.lis[lvl][:0]
		for _, s := range c.lis[lvl] {
			if !s.Garbage {
				kept = append(kept, s)
			}
		}
		c.lis[lvl] = kept
	}

	if len(c.lip) == 0 {
		return
	}
	garbage := 0
	for _, idx := range c.lip {
		if idx == lipGarbage {
			garbage++
		}
	}
	if garbage*2 <= len(c.lip) {
		return
	}
	kept := c.lip[:0]
	for _, idx := range c.lip {
		if idx != lipGarbage {
			kept = append(kept, idx)
		}
	}
	c.lip = kept
}

// EncodeOptions selects rate mode (a bit budget) or fixed-quality mode
// (a termination quantization level).
type EncodeOptions struct {
	RateMode   bool
	BudgetBits uint64
	QzLevel    int32
}

// Result is the coded bitstream for one chunk plus the fields the
// caller must carry in the chunk header to decode it again.
type Result struct {
	Bits     []byte
	NumBits  uint64
	Exponent int32
}

// Encode runs the SPECK bit-plane coder over coeffs, a dimX*dimY*dimZ
// row-major (X fastest) array of wavelet coefficients with the mean
// already removed.
func Encode(coeffs []float64, dimX, dimY, dimZ int, opts EncodeOptions) Result {
	c := &Coder{
		dimX:     dimX,
		dimY:     dimY,
		dimZ:     dimZ,
		encoding: true,
		rateMode: opts.RateMode,
		bits:     bitio.New(),
	}
	c.coeffs = make([]float64, len(coeffs))
	c.signs = make([]bool, len(coeffs))
	maxCoeff := 0.0
	for i, v := range coeffs {
		c.signs[i] = v >= 0
		a := math.Abs(v)
		c.coeffs[i] = a
		if a > maxCoeff {
			maxCoeff = a
		}
	}

	var exponent int32
	if maxCoeff > 0 {
		exponent = int32(math.Floor(math.Log2(maxCoeff)))
	}
	c.threshold = math.Pow(2, float64(exponent))
	c.initSets()

	if opts.RateMode {
		budget := opts.BudgetBits
		if rem := budget % 8; rem != 0 {
			budget += 8 - rem
		}
		c.budget = budget
	}

	currentQz := exponent
	for plane := 0; plane < maxBitPlanes; plane++ {
		if err := c.sortingPass(); err != nil {
			break
		}
		if err := c.refinementPass(); err != nil {
			break
		}
		if !opts.RateMode {
			if currentQz <= opts.QzLevel {
				break
			}
			currentQz--
		}
		c.threshold *= 0.5
		c.cleanLIS()
	}

	if !opts.RateMode {
		for c.bits.Len()%8 != 0 {
			c.bits.AppendBit(false)
		}
	}

	return Result{Bits: c.bits.Bytes(), NumBits: c.bits.Len(), Exponent: exponent}
}

// Decode reconstructs dimX*dimY*dimZ wavelet coefficients from a
// bitstream produced by Encode, given the exponent from that chunk's
// header. budgetBits limits how many bits are consumed (0 or a value
// beyond nbits means "decode everything available").
func Decode(bits []byte, nbits uint64, dimX, dimY, dimZ int, exponent int32, budgetBits uint64) []float64 {
	c := &Coder{dimX: dimX, dimY: dimY, dimZ: dimZ, encoding: false, rateMode: true}
	c.bits = bitio.NewFromBytes(bits, nbits)
	if budgetBits == 0 || budgetBits > nbits {
		budgetBits = nbits
	}
	c.budget = budgetBits

	n := dimX * dimY * dimZ
	c.coeffs = make([]float64, n)
	c.signs = make([]bool, n)
	for i := range c.signs {
		c.signs[i] = true
	}

	c.threshold = math.Pow(2, float64(exponent))
	c.initSets()

	for plane := 0; plane < maxBitPlanes; plane++ {
		if err := c.sortingPass(); err != nil {
			break
		}
		if err := c.refinementPass(); err != nil {
			break
		}
		c.threshold *= 0.5
		c.cleanLIS()
	}

	for _, idx := range c.lspNew {
		c.coeffs[idx] = c.threshold * 1.5
	}

	out := make([]float64, n)
	for i, v := range c.coeffs {
		if c.signs[i] {
			out[i] = v
		} else {
			out[i] = -v
		}
	}
	return out
}
