package kbioreg

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIndexMembershipNoFalseNegatives(t *testing.T) {
	ix := buildTestIndex(t, Nucleotide, 3, []string{"ACGTACG", "AAAA", "GGGGG", "CGTAC"})

	contains := func(text, kmer string) bool {
		for i := 0; i+3 <= len(text); i++ {
			if text[i:i+3] == kmer {
				return true
			}
		}
		return false
	}
	texts := []string{"ACGTACG", "AAAA", "GGGGG", "CGTAC"}
	for _, kmer := range []string{"ACG", "CGT", "GTA", "AAA", "GGG", "TAC", "ACT"} {
		digest, err := ix.Alphabet().KmerDigest(kmer)
		require.Nil(t, err)
		hits := ix.Membership(digest)
		for bin, text := range texts {
			if contains(text, kmer) {
				require.True(t, hits.Test(uint32(bin)), "kmer %s bin %d", kmer, bin)
			}
		}
	}
}

func TestIndexMembershipDeterministic(t *testing.T) {
	ix := buildTestIndex(t, Nucleotide, 3, []string{"ACGTACG", "AAAA"})
	digest, err := ix.Alphabet().KmerDigest("ACG")
	require.Nil(t, err)
	require.True(t, ix.Membership(digest).Equal(ix.Membership(digest)))
}

func TestIndexSaveLoadRoundtrip(t *testing.T) {
	ix := buildTestIndex(t, Nucleotide, 3, []string{"ACGTACG", "AAAA", "GGGGG", "CGTAC"})
	dir := t.TempDir()
	manifest := filepath.Join(dir, "index.yaml")
	require.Nil(t, ix.Save(manifest))

	loaded, err := LoadIndex(manifest)
	require.Nil(t, err)
	require.Equal(t, ix.K(), loaded.K())
	require.Equal(t, ix.BinCount(), loaded.BinCount())
	require.Equal(t, ix.Alphabet().Kind(), loaded.Alphabet().Kind())
	require.Equal(t, ix.BinPaths(), loaded.BinPaths())

	for _, kmer := range []string{"ACG", "AAA", "GGG", "TTT", "CGT"} {
		digest, err := ix.Alphabet().KmerDigest(kmer)
		require.Nil(t, err)
		require.True(t, ix.Membership(digest).Equal(loaded.Membership(digest)), kmer)
	}
}

func TestLoadIndexFailures(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing manifest", func(t *testing.T) {
		_, err := LoadIndex(filepath.Join(dir, "nope.yaml"))
		require.True(t, errors.Is(err, ErrIndexLoad))
	})

	t.Run("bad yaml", func(t *testing.T) {
		p := filepath.Join(dir, "bad.yaml")
		require.Nil(t, os.WriteFile(p, []byte("bins: [unclosed"), 0644))
		_, err := LoadIndex(p)
		require.True(t, errors.Is(err, ErrIndexLoad))
	})

	t.Run("version mismatch", func(t *testing.T) {
		p := filepath.Join(dir, "ver.yaml")
		require.Nil(t, os.WriteFile(p, []byte("version: 99\nalphabet: dna\nk: 3\nbin_count: 0\n"), 0644))
		_, err := LoadIndex(p)
		require.True(t, errors.Is(err, ErrIndexLoad))
	})

	t.Run("alphabet mismatch", func(t *testing.T) {
		p := filepath.Join(dir, "alpha.yaml")
		require.Nil(t, os.WriteFile(p, []byte("version: 1\nalphabet: rna\nk: 3\nbin_count: 0\n"), 0644))
		_, err := LoadIndex(p)
		require.True(t, errors.Is(err, ErrIndexLoad))
	})

	t.Run("missing filter blob", func(t *testing.T) {
		ix := buildTestIndex(t, Nucleotide, 3, []string{"ACGT"})
		sub := t.TempDir()
		manifest := filepath.Join(sub, "index.yaml")
		require.Nil(t, ix.Save(manifest))
		require.Nil(t, os.Remove(filepath.Join(sub, "index.filter")))
		_, err := LoadIndex(manifest)
		require.True(t, errors.Is(err, ErrIndexLoad))
	})

	t.Run("truncated filter blob", func(t *testing.T) {
		ix := buildTestIndex(t, Nucleotide, 3, []string{"ACGT"})
		sub := t.TempDir()
		manifest := filepath.Join(sub, "index.yaml")
		require.Nil(t, ix.Save(manifest))
		blobPath := filepath.Join(sub, "index.filter")
		blob, err := os.ReadFile(blobPath)
		require.Nil(t, err)
		require.Nil(t, os.WriteFile(blobPath, blob[:len(blob)/2], 0644))
		_, err = LoadIndex(manifest)
		require.True(t, errors.Is(err, ErrIndexLoad))
	})
}

func TestNewIndexValidation(t *testing.T) {
	_, err := NewIndex(Nucleotide, 0, []string{"a"}, 0, 0)
	require.NotNil(t, err)
	_, err = NewIndex(Nucleotide, 28, []string{"a"}, 0, 0)
	require.NotNil(t, err)
	_, err = NewIndex(AminoAcid, 14, []string{"a"}, 0, 0)
	require.NotNil(t, err)
	_, err = NewIndex(Nucleotide, 3, nil, 0, 0)
	require.NotNil(t, err)

	ix, err := NewIndex(AminoAcid, 13, []string{"a"}, 0, 0)
	require.Nil(t, err)
	require.EqualValues(t, 1, ix.BinCount())
}

func TestAddSequenceSkipsForeignWindows(t *testing.T) {
	ix, err := NewIndex(Nucleotide, 3, []string{"a", "b"}, 1<<12, 2)
	require.Nil(t, err)
	ix.AddSequence(0, "ACXGT") // X poisons the windows it touches
	ix.AddSequence(1, "ACGT")

	digest, err := ix.Alphabet().KmerDigest("ACG")
	require.Nil(t, err)
	hits := ix.Membership(digest)
	require.True(t, hits.Test(1))
}
