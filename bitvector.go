package kbioreg

import (
	"math/bits"
	"strings"
)

const wordBits = 64

// BitVector is a fixed-width bin membership vector. Bit i set means "bin i
// may contain (or, after verification, does contain) a match". The width is
// always the index bin count and is carried with the vector; all vectors
// participating in one query share it.
type BitVector struct {
	words []uint64
	width uint32
}

// NewBitVector returns an all-zero vector of the given width.
func NewBitVector(width uint32) *BitVector {
	return &BitVector{
		words: make([]uint64, (int(width)+wordBits-1)/wordBits),
		width: width,
	}
}

// NewOnesVector returns an all-ones vector of the given width. Bits past
// the width are kept clear so popcounts and equality stay exact.
func NewOnesVector(width uint32) *BitVector {
	v := NewBitVector(width)
	for i := range v.words {
		v.words[i] = ^uint64(0)
	}
	v.maskTail()
	return v
}

func (v *BitVector) maskTail() {
	if rem := v.width % wordBits; rem != 0 && len(v.words) > 0 {
		v.words[len(v.words)-1] &= (uint64(1) << rem) - 1
	}
}

// Width returns the number of bins the vector spans.
func (v *BitVector) Width() uint32 { return v.width }

// Set sets bit i.
func (v *BitVector) Set(i uint32) {
	v.words[i/wordBits] |= uint64(1) << (i % wordBits)
}

// Clear clears bit i.
func (v *BitVector) Clear(i uint32) {
	v.words[i/wordBits] &^= uint64(1) << (i % wordBits)
}

// Test reports whether bit i is set.
func (v *BitVector) Test(i uint32) bool {
	return v.words[i/wordBits]&(uint64(1)<<(i%wordBits)) != 0
}

// And intersects other into v word by word. Both vectors must share the
// same width.
func (v *BitVector) And(other *BitVector) {
	for i := range v.words {
		v.words[i] &= other.words[i]
	}
}

// Or unions other into v word by word.
func (v *BitVector) Or(other *BitVector) {
	for i := range v.words {
		v.words[i] |= other.words[i]
	}
}

// IsZero reports whether no bit is set.
func (v *BitVector) IsZero() bool {
	for _, w := range v.words {
		if w != 0 {
			return false
		}
	}
	return true
}

// OnesCount returns the number of set bits.
func (v *BitVector) OnesCount() int {
	n := 0
	for _, w := range v.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// Clone returns an independent copy of v.
func (v *BitVector) Clone() *BitVector {
	c := NewBitVector(v.width)
	copy(c.words, v.words)
	return c
}

// Equal reports whether v and other have identical width and bits.
func (v *BitVector) Equal(other *BitVector) bool {
	if other == nil || v.width != other.width {
		return false
	}
	for i := range v.words {
		if v.words[i] != other.words[i] {
			return false
		}
	}
	return true
}

// String renders the vector as a bin-ordered run of '0'/'1' characters,
// bin 0 first, as printed in the driver's diagnostics and the CLI result.
func (v *BitVector) String() string {
	var sb strings.Builder
	sb.Grow(int(v.width))
	for i := uint32(0); i < v.width; i++ {
		if v.Test(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
