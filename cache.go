package kbioreg

import "sync"

const cacheShardCount = 16

// probeCache memoizes IBF membership probes for one query: exactly one
// probe per distinct k-mer digest. Shards are selected by the low-order
// digest bits so concurrent path workers rarely contend; installation is
// single-flight because the probe runs under the shard lock and the IBF
// membership operation is pure.
type probeCache struct {
	shards [cacheShardCount]cacheShard
}

type cacheShard struct {
	mu sync.Mutex
	m  map[uint64]*BitVector
}

func newProbeCache() *probeCache {
	c := &probeCache{}
	for i := range c.shards {
		c.shards[i].m = make(map[uint64]*BitVector)
	}
	return c
}

// lookup returns the membership bitvector for digest, probing at most once
// per digest across the cache lifetime.
func (c *probeCache) lookup(digest uint64, probe func(uint64) *BitVector) *BitVector {
	sh := &c.shards[digest&(cacheShardCount-1)]
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if v, ok := sh.m[digest]; ok {
		return v
	}
	v := probe(digest)
	sh.m[digest] = v
	return v
}

// get returns the cached bitvector for digest, if present.
func (c *probeCache) get(digest uint64) (*BitVector, bool) {
	sh := &c.shards[digest&(cacheShardCount-1)]
	sh.mu.Lock()
	defer sh.mu.Unlock()
	v, ok := sh.m[digest]
	return v, ok
}

// size returns the number of distinct digests probed so far.
func (c *probeCache) size() int {
	n := 0
	for i := range c.shards {
		sh := &c.shards[i]
		sh.mu.Lock()
		n += len(sh.m)
		sh.mu.Unlock()
	}
	return n
}

// release drops all cached vectors. The cache must not be used afterwards.
func (c *probeCache) release() {
	for i := range c.shards {
		sh := &c.shards[i]
		sh.mu.Lock()
		sh.m = nil
		sh.mu.Unlock()
	}
}
