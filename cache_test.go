package kbioreg

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProbeCacheSingleFlight(t *testing.T) {
	cache := newProbeCache()
	var probes int32
	probe := func(uint64) *BitVector {
		atomic.AddInt32(&probes, 1)
		return NewOnesVector(8)
	}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				v := cache.lookup(42, probe)
				require.NotNil(t, v)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, atomic.LoadInt32(&probes))
	require.Equal(t, 1, cache.size())
}

func TestProbeCacheShardsByDigest(t *testing.T) {
	cache := newProbeCache()
	probe := func(digest uint64) *BitVector {
		v := NewBitVector(64)
		v.Set(uint32(digest % 64))
		return v
	}
	for d := uint64(0); d < 1000; d++ {
		cache.lookup(d, probe)
	}
	require.Equal(t, 1000, cache.size())
	for d := uint64(0); d < 1000; d++ {
		v, ok := cache.get(d)
		require.True(t, ok)
		require.True(t, v.Test(uint32(d%64)))
	}
	_, ok := cache.get(1000)
	require.False(t, ok)
}

func TestProbeCacheReturnsInstalledVector(t *testing.T) {
	cache := newProbeCache()
	first := cache.lookup(7, func(uint64) *BitVector { return NewOnesVector(4) })
	second := cache.lookup(7, func(uint64) *BitVector {
		t.Fatal("probe ran twice for one digest")
		return nil
	})
	require.Same(t, first, second)
}
