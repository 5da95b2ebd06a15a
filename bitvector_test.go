package kbioreg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBitVectorBasics(t *testing.T) {
	v := NewBitVector(70)
	require.True(t, v.IsZero())
	v.Set(0)
	v.Set(69)
	require.True(t, v.Test(0))
	require.True(t, v.Test(69))
	require.False(t, v.Test(1))
	require.Equal(t, 2, v.OnesCount())
	v.Clear(0)
	require.False(t, v.Test(0))
}

func TestOnesVectorMasksTail(t *testing.T) {
	v := NewOnesVector(70)
	require.Equal(t, 70, v.OnesCount())
	w := NewOnesVector(64)
	require.Equal(t, 64, w.OnesCount())
}

func TestBitVectorAndOr(t *testing.T) {
	a := NewBitVector(8)
	b := NewBitVector(8)
	a.Set(1)
	a.Set(3)
	b.Set(3)
	b.Set(5)

	and := a.Clone()
	and.And(b)
	require.Equal(t, "00010000", and.String())

	or := a.Clone()
	or.Or(b)
	require.Equal(t, "01010100", or.String())
}

func TestBitVectorAndAbsorbsZero(t *testing.T) {
	ones := NewOnesVector(130)
	zero := NewBitVector(130)
	ones.And(zero)
	require.True(t, ones.IsZero())
}

func TestBitVectorEqualClone(t *testing.T) {
	a := NewBitVector(33)
	a.Set(32)
	b := a.Clone()
	require.True(t, a.Equal(b))
	b.Set(0)
	require.False(t, a.Equal(b))
	require.False(t, a.Equal(NewBitVector(32)))
}
