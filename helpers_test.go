package kbioreg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildTestIndex writes one file per bin text under a temp dir and indexes
// them with small bloom geometry.
func buildTestIndex(t *testing.T, kind AlphabetKind, k int, bins []string) *Index {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, len(bins))
	for i, text := range bins {
		paths[i] = filepath.Join(dir, fmt.Sprintf("bin%d.txt", i))
		require.Nil(t, os.WriteFile(paths[i], []byte(text+"\n"), 0644))
	}
	ix, err := BuildIndex(&BuildOptions{
		BinPaths:  paths,
		K:         k,
		Kind:      kind,
		BloomRows: 1 << 12,
		HashCount: 2,
	})
	require.Nil(t, err)
	return ix
}

// matrixFor compiles and enumerates a postfix expression against an index,
// returning the deduplicated path matrix.
func matrixFor(t *testing.T, ix *Index, postfix string) [][]string {
	t.Helper()
	nfa, err := compilePostfix(postfix, ix.Alphabet())
	require.Nil(t, err)
	g := buildKNFA(nfa, ix.Alphabet(), ix.K())
	cache := newProbeCache()
	defer cache.release()
	matrix, err := enumeratePaths(context.Background(), g, cache, ix.Membership)
	require.Nil(t, err)
	return matrix
}

func pathStrings(matrix [][]string) []string {
	var out []string
	for _, p := range matrix {
		out = append(out, fmt.Sprintf("%v", p))
	}
	return out
}
