package kbioreg

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/projectdiscovery/gologger"
)

// QueryOptions describe one query against a loaded index.
type QueryOptions struct {
	// Query is the postfix-form expression compiled into the kNFA
	Query string
	// Pattern is the infix-form expression used by the verifier; the two
	// must accept the same language
	Pattern string
	// GraphPath, when set, receives a Graphviz dump of the kNFA
	GraphPath string
	// Workers bounds path intersection and bin verification parallelism
	// (default: GOMAXPROCS)
	Workers int
	// SkipVerify stops after the IBF stage and reports candidates only
	SkipVerify bool
}

func (o *QueryOptions) Validate() error {
	if o.Query == "" {
		return fmt.Errorf("%w: no postfix expression given", ErrRegexParse)
	}
	if !o.SkipVerify && o.Pattern == "" {
		return fmt.Errorf("%w: no verification pattern given", ErrRegexParse)
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	return nil
}

// QueryTimings is the per-stage wall-clock breakdown of one query.
type QueryTimings struct {
	Compile   time.Duration
	Transform time.Duration
	Enumerate time.Duration
	Search    time.Duration
	Verify    time.Duration
}

// QueryResult is the outcome of one driven query.
type QueryResult struct {
	// Candidates is the pre-verification union across all paths
	Candidates *BitVector
	// Hits is the post-verification bitvector (equal to Candidates when
	// verification is skipped); unverified bins keep their bit set
	Hits *BitVector
	// Paths is the size of the deduplicated path matrix
	Paths int
	// DistinctKmers is the number of distinct digests probed
	DistinctKmers int
	// Confirmed is the number of bins the verifier confirmed
	Confirmed int
	// Unverified maps bins whose files could not be read to the error
	Unverified map[uint32]error
	Timings    QueryTimings
}

// DriveQuery runs the full pipeline: postfix → Thompson NFA → kNFA →
// path matrix → per-path intersection → union → verification. The
// Thompson arena is dropped as soon as the kNFA exists; the kNFA, matrix
// and probe cache are dropped before verification touches the disk.
// Cancellation is cooperative: the context is checked between DFS start
// states, between paths, and between bin verifications.
func DriveQuery(ctx context.Context, ix *Index, opts *QueryOptions) (*QueryResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	result := &QueryResult{}
	gologger.Info().Msgf("Querying k=%d %s index with %q", ix.K(), ix.Alphabet().Kind(), opts.Query)

	stage := time.Now()
	nfa, err := compilePostfix(opts.Query, ix.Alphabet())
	if err != nil {
		return nil, err
	}
	result.Timings.Compile = time.Since(stage)
	gologger.Verbose().Msgf("constructed Thompson NFA (%d states) in %v", len(nfa.states), result.Timings.Compile)

	stage = time.Now()
	knfa := buildKNFA(nfa, ix.Alphabet(), ix.K())
	nfa = nil // Thompson arena dies here
	result.Timings.Transform = time.Since(stage)
	gologger.Verbose().Msgf("constructed kNFA (%d emission states, %d starts) in %v",
		len(knfa.nodes), len(knfa.starts), result.Timings.Transform)

	cache := newProbeCache()
	defer cache.release()

	stage = time.Now()
	matrix, err := enumeratePaths(ctx, knfa, cache, ix.Membership)
	if err != nil {
		return nil, err
	}
	result.Timings.Enumerate = time.Since(stage)
	result.Paths = len(matrix)
	result.DistinctKmers = cache.size()
	gologger.Verbose().Msgf("enumerated %d paths over %d distinct k-mers in %v",
		result.Paths, result.DistinctKmers, result.Timings.Enumerate)

	if opts.GraphPath != "" {
		if err := dumpGraph(knfa, opts.GraphPath); err != nil {
			gologger.Error().Msgf("failed to write kNFA graph to %s got: %v", opts.GraphPath, err)
		} else {
			gologger.Info().Msgf("Wrote kNFA graph to %s", opts.GraphPath)
		}
	}
	knfa = nil // kNFA is not needed past the matrix

	stage = time.Now()
	candidates, err := unionPaths(ctx, ix, cache, matrix, opts.Workers)
	if err != nil {
		return nil, err
	}
	result.Timings.Search = time.Since(stage)
	result.Candidates = candidates
	cache.release() // probe cache is not needed past the union
	gologger.Info().Msgf("IBF stage: %d candidate bins of %d (%s)", candidates.OnesCount(), ix.BinCount(), candidates)

	if opts.SkipVerify {
		result.Hits = candidates.Clone()
		return result, nil
	}

	prescan := distinctKmers(matrix)
	matrix = nil

	stage = time.Now()
	hits, confirmed, unverified, err := verifyBins(ctx, ix, candidates, prescan, opts.Pattern, opts.Workers)
	if err != nil {
		return nil, err
	}
	result.Timings.Verify = time.Since(stage)
	result.Hits = hits
	result.Confirmed = confirmed
	result.Unverified = unverified
	gologger.Info().Msgf("Confirmed %d of %d candidate bins (%s)", confirmed, candidates.OnesCount(), hits)
	if len(unverified) > 0 {
		gologger.Warning().Msgf("%d bins could not be verified and are reported as potential hits", len(unverified))
	}
	return result, nil
}

// unionPaths folds the matrix into the pre-verification hit vector: each
// path is intersected to its candidate bin-set, and the sets are OR'd
// together. Paths are distributed across workers; each worker folds into
// a thread-local vector and the locals are merged under a single lock.
func unionPaths(ctx context.Context, ix *Index, cache *probeCache, matrix [][]string, workers int) (*BitVector, error) {
	union := NewBitVector(ix.BinCount())
	if len(matrix) == 0 {
		// the expression accepts no word of length >= k
		return union, nil
	}
	if workers > len(matrix) {
		workers = len(matrix)
	}

	jobs := make(chan []string)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := NewBitVector(ix.BinCount())
			for path := range jobs {
				hits, err := intersectPath(cache, ix.Alphabet(), ix.BinCount(), path)
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					// keep draining so the feeder never blocks
					for range jobs {
					}
					return
				}
				local.Or(hits)
			}
			mu.Lock()
			union.Or(local)
			mu.Unlock()
		}()
	}

	var cancelErr error
feed:
	for _, path := range matrix {
		if err := ctx.Err(); err != nil {
			cancelErr = fmt.Errorf("%w: %v", ErrCancelled, err)
			break feed
		}
		select {
		case <-ctx.Done():
			cancelErr = fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
			break feed
		case jobs <- path:
		}
	}
	close(jobs)
	wg.Wait()

	if cancelErr != nil {
		return nil, cancelErr
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return union, nil
}

// distinctKmers flattens the matrix into its distinct k-mer strings, in
// first-appearance order.
func distinctKmers(matrix [][]string) []string {
	seen := make(map[string]struct{})
	var kmers []string
	for _, path := range matrix {
		for _, kmer := range path {
			if _, ok := seen[kmer]; ok {
				continue
			}
			seen[kmer] = struct{}{}
			kmers = append(kmers, kmer)
		}
	}
	return kmers
}
