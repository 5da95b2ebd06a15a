package kbioreg

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/coregx/ahocorasick"
	"github.com/coregx/coregex"
	"github.com/projectdiscovery/gologger"
)

// verifyBins is the correctness gate: the IBF stage over-approximates
// (Bloom collisions plus k-mer decomposition), so every candidate bin is
// re-read from disk and checked with an exact regex engine. A bin whose
// file cannot be read is reported as unverified and keeps its bit set, per
// the convention that unverified bins are potential hits. Bins are scanned
// in parallel; the confirmed-hit counter is the only cross-worker tally.
//
// Before paying for the full regex, each bin is prescanned with an
// Aho-Corasick automaton over every k-mer of the path matrix: a matching
// text must contain at least one of them, so a bin containing none can be
// rejected without running the engine.
func verifyBins(ctx context.Context, ix *Index, candidates *BitVector, kmers []string, pattern string, workers int) (*BitVector, int, map[uint32]error, error) {
	engine, err := coregex.Compile(pattern)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("%w: verification pattern: %v", ErrRegexParse, err)
	}

	var prescan *ahocorasick.Automaton
	if len(kmers) > 0 {
		builder := ahocorasick.NewBuilder()
		for _, kmer := range kmers {
			builder.AddPattern(unsafeToBytes(kmer))
		}
		if auto, err := builder.Build(); err == nil {
			prescan = auto
		} else {
			gologger.Verbose().Msgf("k-mer prescan unavailable, verifying with regex only: %v", err)
		}
	}

	var (
		confirmed  = NewBitVector(ix.BinCount())
		unverified = make(map[uint32]error)
		hitCount   uint64
		mu         sync.Mutex
		wg         sync.WaitGroup
	)

	bins := make(chan uint32)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for bin := range bins {
				data, err := os.ReadFile(ix.binPaths[bin])
				if err != nil {
					gologger.Warning().Msgf("could not read bin %d (%s): %v", bin, ix.binPaths[bin], err)
					mu.Lock()
					unverified[bin] = err
					confirmed.Set(bin)
					mu.Unlock()
					continue
				}
				if prescan != nil && !prescan.IsMatch(data) {
					continue
				}
				if engine.Match(data) {
					atomic.AddUint64(&hitCount, 1)
					mu.Lock()
					confirmed.Set(bin)
					mu.Unlock()
				}
			}
		}()
	}

	var cancelErr error
feed:
	for bin := uint32(0); bin < candidates.Width(); bin++ {
		if !candidates.Test(bin) {
			continue
		}
		if err := ctx.Err(); err != nil {
			cancelErr = fmt.Errorf("%w: %v", ErrCancelled, err)
			break feed
		}
		select {
		case <-ctx.Done():
			cancelErr = fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
			break feed
		case bins <- bin:
		}
	}
	close(bins)
	wg.Wait()

	if cancelErr != nil {
		return nil, 0, nil, cancelErr
	}
	return confirmed, int(atomic.LoadUint64(&hitCount)), unverified, nil
}
