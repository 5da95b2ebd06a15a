package kbioreg

import (
	"context"
	"fmt"
	"strings"
)

// pathSep joins the k-mers of one path into its encoded form. It is not a
// symbol of any alphabet, so encoding is unambiguous.
const pathSep = ","

// enumeratePaths walks the kNFA from every start emission and returns the
// deduplicated k-mer path matrix. Paths are emitted in DFS discovery order;
// the in-memory dedupe backend keeps that order, while the spill backend
// returns paths in its key order. Before descending
// through an emission state the walker probes the index once for that
// window's digest (through the cache); a window no bin contains prunes the
// whole subtree, since an all-zero vector annihilates any intersection it
// joins. Cancellation is honored between start states and between emitted
// paths.
func enumeratePaths(ctx context.Context, g *kNFA, cache *probeCache, probe func(uint64) *BitVector) ([][]string, error) {
	results := make(chan string, 100)
	var walkErr error
	go func() {
		defer close(results)
		walkErr = walkPaths(ctx, g, cache, probe, results)
	}()

	d := NewPathDedupe(results, g.estimateMatrixBytes())
	d.Drain()

	var matrix [][]string
	for encoded := range d.GetResults() {
		matrix = append(matrix, strings.Split(encoded, pathSep))
	}
	if walkErr != nil {
		return nil, walkErr
	}
	return matrix, nil
}

func walkPaths(ctx context.Context, g *kNFA, cache *probeCache, probe func(uint64) *BitVector, results chan<- string) error {
	var (
		path   []string
		onPath = make(map[int32]bool)
	)
	var dfs func(id int32) error
	dfs = func(id int32) error {
		node := &g.nodes[id]
		hits := cache.lookup(node.digest, probe)
		if hits.IsZero() {
			// no bin can satisfy any path through this window
			return nil
		}
		path = append(path, node.window)
		onPath[id] = true
		defer func() {
			path = path[:len(path)-1]
			onPath[id] = false
		}()
		if node.terminal {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("%w: %v", ErrCancelled, err)
			}
			results <- strings.Join(path, pathSep)
		}
		for _, succ := range node.out {
			if onPath[succ] {
				continue
			}
			if err := dfs(succ); err != nil {
				return err
			}
		}
		return nil
	}

	for _, start := range g.starts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrCancelled, err)
		}
		if err := dfs(start); err != nil {
			return err
		}
	}
	return nil
}

// estimateMatrixBytes is a rough estimate of the encoded matrix size (one
// path per node plus one, each visiting every node), used only to pick
// between the in-memory and spill dedupe backends. It is not a bound: the
// number of acyclic paths can grow faster than the node count.
func (g *kNFA) estimateMatrixBytes() int {
	perPath := len(g.nodes) * (g.k + len(pathSep))
	return perPath * (len(g.nodes) + 1)
}

// intersectPath reduces one path to its candidate bin-set: the bitwise AND
// of the cached bitvectors of its constituent k-mers, seeded with the
// all-ones vector of the index width. Every k-mer of an enumerated path is
// guaranteed to be cached by the time the matrix exists.
func intersectPath(cache *probeCache, alpha *Alphabet, width uint32, path []string) (*BitVector, error) {
	acc := NewOnesVector(width)
	for _, kmer := range path {
		digest, err := alpha.KmerDigest(kmer)
		if err != nil {
			return nil, err
		}
		hits, ok := cache.get(digest)
		if !ok {
			return nil, fmt.Errorf("k-mer %q missing from probe cache", kmer)
		}
		acc.And(hits)
	}
	return acc, nil
}
