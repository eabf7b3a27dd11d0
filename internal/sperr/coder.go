package sperr

import (
	"errors"
	"math"
	"sort"

	"github.com/mrjoshuak/speckvol/internal/bitio"
)

// errBitBudgetMet unwinds the sorting/refinement recursion once decode
// runs out of available bits. It never escapes the package.
var errBitBudgetMet = errors.New("sperr: bit budget met")

const maxBitPlanes = 64

type coder struct {
	totalLen uint64

	mag      []float64 // encode only: abs(error) at each location, 0 elsewhere
	signsEnc []bool    // encode only: true if error >= 0, at each location
	recon    []float64 // decode only: reconstructed magnitude estimate per location
	signs    []bool    // decode only: sign per location

	lis    [][]Set1D
	lspOld []uint64
	lspNew []uint64

	threshold float64
	encoding  bool

	bits   *bitio.Buffer
	bitIdx uint64
	budget uint64
}

func ensureLevel1D(lis [][]Set1D, level int) [][]Set1D {
	for len(lis) <= level {
		lis = append(lis, nil)
	}
	return lis
}

func (c *coder) initLIS() {
	whole := Set1D{Start: 0, Length: c.totalLen}
	children := partition1D(whole)
	for _, ch := range children {
		if ch.Length == 0 {
			continue
		}
		c.lis = ensureLevel1D(c.lis, ch.Level)
		c.lis[ch.Level] = append(c.lis[ch.Level], ch)
	}
	c.lspOld = c.lspOld[:0]
	c.lspNew = c.lspNew[:0]
}

func (c *coder) emit(bit bool) error {
	c.bits.AppendBit(bit)
	return nil
}

func (c *coder) readBit() (bool, error) {
	if c.bitIdx >= c.budget {
		return false, errBitBudgetMet
	}
	b := c.bits.Bit(c.bitIdx)
	c.bitIdx++
	return b, nil
}

func (c *coder) significant(s Set1D) bool {
	for i := s.Start; i < s.Start+s.Length; i++ {
		if c.mag[i] >= c.threshold {
			return true
		}
	}
	return false
}

func (c *coder) processS(l1, l2 int) error {
	s := c.lis[l1][l2]
	var sig bool
	if c.encoding {
		sig = c.significant(s)
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
	if s.Length == 1 {
		loc := s.Start
		var err error
		if c.encoding {
			err = c.emit(c.signsEnc[loc])
		} else {
			var positive bool
			positive, err = c.readBit()
			if err == nil {
				c.signs[loc] = positive
			}
		}
		if err != nil {
			return err
		}
		c.lspNew = append(c.lspNew, loc)
	} else if err := c.codeS(s); err != nil {
		return err
	}
	c.lis[l1][l2].Garbage = true
	return nil
}

func (c *coder) codeS(s Set1D) error {
	children := partition1D(s)
	for _, ch := range children {
		if ch.Length == 0 {
			continue
		}
		c.lis = ensureLevel1D(c.lis, ch.Level)
		c.lis[ch.Level] = append(c.lis[ch.Level], ch)
		l2 := len(c.lis[ch.Level]) - 1
		if err := c.processS(ch.Level, l2); err != nil {
			return err
		}
	}
	return nil
}

func (c *coder) sortingPass() error {
	for l1 := 0; l1 < len(c.lis); l1++ {
		for l2 := 0; l2 < len(c.lis[l1]); l2++ {
			if c.lis[l1][l2].Garbage {
				continue
			}
			if err := c.processS(l1, l2); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *coder) refinementPass() error {
	for _, loc := range c.lspOld {
		if c.encoding {
			bit := c.mag[loc] >= c.threshold
			if bit {
				c.mag[loc] -= c.threshold
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
				c.recon[loc] += c.threshold * 0.5
			} else {
				c.recon[loc] -= c.threshold * 0.5
			}
		}
	}

	if c.encoding {
		for _, loc := range c.lspNew {
			c.mag[loc] -= c.threshold
		}
	} else {
		for _, loc := range c.lspNew {
			c.recon[loc] = c.threshold * 1.5
		}
	}

	c.lspOld = append(c.lspOld, c.lspNew...)
	c.lspNew = c.lspNew[:0]
	return nil
}

func (c *coder) cleanLIS() {
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
}

// Result is a SPERR chunk-level outlier bitstream plus the fields the
// caller must carry alongside it (the chunk stream stores Exponent as a
// 4-byte field after the SPECK payload) to decode it.
type Result struct {
	Bits     []byte
	NumBits  uint64
	Exponent int32
}

// Encode codes outliers (positions where the SPECK-reconstructed
// residual exceeds tolerance) against a domain of totalLen locations
// (the chunk's coefficient count). It runs bit-planes until the current
// threshold is at or below tolerance, so every outlier has become
// significant and its reconstructed error is within half that threshold
// of its true value.
func Encode(outliers []Outlier, totalLen uint64, tolerance float64) Result {
	c := &coder{totalLen: totalLen, encoding: true, bits: bitio.New()}
	c.mag = make([]float64, totalLen)
	c.signsEnc = make([]bool, totalLen)

	sorted := append([]Outlier(nil), outliers...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Location < sorted[j].Location })

	maxMag := 0.0
	for _, o := range sorted {
		a := math.Abs(o.Error)
		c.mag[o.Location] = a
		c.signsEnc[o.Location] = o.Error >= 0
		if a > maxMag {
			maxMag = a
		}
	}

	var exponent int32
	if maxMag > 0 {
		exponent = int32(math.Floor(math.Log2(maxMag)))
	}
	c.threshold = math.Pow(2, float64(exponent))

	if len(sorted) == 0 {
		return Result{Bits: nil, NumBits: 0, Exponent: exponent}
	}

	c.initLIS()
	for plane := 0; plane < maxBitPlanes; plane++ {
		if err := c.sortingPass(); err != nil {
			break
		}
		if err := c.refinementPass(); err != nil {
			break
		}
		if c.threshold <= tolerance {
			break
		}
		c.threshold *= 0.5
		c.cleanLIS()
	}

	for c.bits.Len()%8 != 0 {
		c.bits.AppendBit(false)
	}

	return Result{Bits: c.bits.Bytes(), NumBits: c.bits.Len(), Exponent: exponent}
}

// Decode reconstructs the outlier corrections coded by Encode.
func Decode(bits []byte, nbits uint64, totalLen uint64, exponent int32, tolerance float64) []Outlier {
	if nbits == 0 {
		return nil
	}
	c := &coder{totalLen: totalLen, encoding: false, bits: bitio.NewFromBytes(bits, nbits), budget: nbits}
	c.recon = make([]float64, totalLen)
	c.signs = make([]bool, totalLen)
	for i := range c.signs {
		c.signs[i] = true
	}

	c.threshold = math.Pow(2, float64(exponent))
	c.initLIS()

	for plane := 0; plane < maxBitPlanes; plane++ {
		if err := c.sortingPass(); err != nil {
			break
		}
		if err := c.refinementPass(); err != nil {
			break
		}
		if c.threshold <= tolerance {
			break
		}
		c.threshold *= 0.5
		c.cleanLIS()
	}

	for _, loc := range c.lspNew {
		c.recon[loc] = c.threshold * 1.5
	}

	var out []Outlier
	for i, v := range c.recon {
		if v == 0 {
			continue
		}
		if !c.signs[i] {
			v = -v
		}
		out = append(out, Outlier{Location: uint64(i), Error: v})
	}
	return out
}
