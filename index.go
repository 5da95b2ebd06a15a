package kbioreg

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/projectdiscovery/gologger"
	errorutil "github.com/projectdiscovery/utils/errors"
	"gopkg.in/yaml.v3"
)

// indexVersion is bumped whenever the manifest or filter blob layout
// changes; a mismatch at load time is fatal.
const indexVersion = 1

var filterMagic = [6]byte{'K', 'B', 'I', 'B', 'F', indexVersion}

// Defaults for index construction. Two hash functions and 64Ki rows per
// bin keep the false-positive rate low for the corpus sizes the tool
// targets; both are tunable per build.
const (
	DefaultBloomRows  = 1 << 16
	DefaultHashCount  = 2
	maxNucleotideKLen = 27 // 5^27 still fits a u64 digest
	maxAminoAcidKLen  = 13 // 27^13 still fits a u64 digest
)

// Index is a loaded corpus index: an interleaved Bloom filter over every
// sliding k-mer of every bin, plus the bin file paths needed for
// verification. The filter is read-only after load/build; Membership is
// pure and safe for concurrent use.
type Index struct {
	alpha    *Alphabet
	k        int
	binPaths []string
	filter   *ibf
}

// ibf is the interleaved Bloom filter proper: rows of bin-width bitslices.
// Row r occupies words [r*binWords, (r+1)*binWords); querying a digest
// ANDs the rows selected by each hash function, yielding a per-bin
// membership bitvector in one pass.
type ibf struct {
	rows     uint64
	hashes   uint32
	binCount uint32
	binWords uint32
	data     []uint64
}

func newIBF(rows uint64, hashes, binCount uint32) *ibf {
	binWords := (binCount + wordBits - 1) / wordBits
	return &ibf{
		rows:     rows,
		hashes:   hashes,
		binCount: binCount,
		binWords: binWords,
		data:     make([]uint64, rows*uint64(binWords)),
	}
}

// mix64 is the murmur3 finalizer, used as the double-hashing kernel: the
// mixed digest's halves generate the per-function row indices.
func mix64(x uint64) uint64 {
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	x *= 0xc4ceb9fe1a85ec53
	x ^= x >> 33
	return x
}

func (f *ibf) rowFor(digest uint64, i uint32) uint64 {
	h := mix64(digest)
	lower := h & 0xffffffff
	upper := h >> 32
	return (lower + upper*uint64(i)) % f.rows
}

func (f *ibf) insert(digest uint64, bin uint32) {
	for i := uint32(0); i < f.hashes; i++ {
		row := f.rowFor(digest, i)
		f.data[row*uint64(f.binWords)+uint64(bin/wordBits)] |= uint64(1) << (bin % wordBits)
	}
}

// contains returns the bin membership bitvector for a digest: bit i set
// means bin i may contain the k-mer, clear means it certainly does not.
func (f *ibf) contains(digest uint64) *BitVector {
	v := NewOnesVector(f.binCount)
	for i := uint32(0); i < f.hashes; i++ {
		row := f.rowFor(digest, i)
		base := row * uint64(f.binWords)
		for w := uint32(0); w < f.binWords; w++ {
			v.words[w] &= f.data[base+uint64(w)]
		}
	}
	return v
}

// NewIndex creates an empty index over the given bins. The bin order is
// the bit order of every bitvector the index will ever produce.
func NewIndex(kind AlphabetKind, k int, binPaths []string, bloomRows uint64, hashCount uint32) (*Index, error) {
	alpha := NewAlphabet(kind)
	if err := validateK(kind, k); err != nil {
		return nil, err
	}
	if len(binPaths) == 0 {
		return nil, fmt.Errorf("index needs at least one bin")
	}
	if bloomRows == 0 {
		bloomRows = DefaultBloomRows
	}
	if hashCount == 0 {
		hashCount = DefaultHashCount
	}
	return &Index{
		alpha:    alpha,
		k:        k,
		binPaths: append([]string{}, binPaths...),
		filter:   newIBF(bloomRows, hashCount, uint32(len(binPaths))),
	}, nil
}

func validateK(kind AlphabetKind, k int) error {
	limit := maxNucleotideKLen
	if kind == AminoAcid {
		limit = maxAminoAcidKLen
	}
	if k < 1 || k > limit {
		return fmt.Errorf("k=%d out of range for %s alphabet (1..%d)", k, kind, limit)
	}
	return nil
}

// K returns the k-mer length the index was built with.
func (ix *Index) K() int { return ix.k }

// Alphabet returns the index's alphabet descriptor.
func (ix *Index) Alphabet() *Alphabet { return ix.alpha }

// BinCount returns the number of corpus partitions.
func (ix *Index) BinCount() uint32 { return ix.filter.binCount }

// BinPaths returns the ordered bin file paths; index i backs bit i.
func (ix *Index) BinPaths() []string { return ix.binPaths }

// Membership maps a k-mer digest to its bin membership bitvector. It is
// deterministic and pure.
func (ix *Index) Membership(digest uint64) *BitVector {
	return ix.filter.contains(digest)
}

// AddSequence inserts every sliding k-mer of seq into the given bin.
// Windows containing symbols outside the alphabet are skipped.
func (ix *Index) AddSequence(bin uint32, seq string) {
	if len(seq) < ix.k {
		return
	}
	for i := 0; i+ix.k <= len(seq); i++ {
		digest, err := ix.alpha.KmerDigest(seq[i : i+ix.k])
		if err != nil {
			continue
		}
		ix.filter.insert(digest, bin)
	}
}

// BuildOptions configures index construction from bin files on disk.
type BuildOptions struct {
	BinPaths  []string
	K         int
	Kind      AlphabetKind
	BloomRows uint64
	HashCount uint32
}

// BuildIndex reads every bin file and inserts its sliding k-mers. Lines
// starting with '>' are treated as FASTA headers and skipped; every other
// line is a sequence.
func BuildIndex(opts *BuildOptions) (*Index, error) {
	ix, err := NewIndex(opts.Kind, opts.K, opts.BinPaths, opts.BloomRows, opts.HashCount)
	if err != nil {
		return nil, err
	}
	for bin, path := range ix.binPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errorutil.NewWithTag("kbioreg", "failed to read bin %d (%s) got %v", bin, path, err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, ">") {
				continue
			}
			ix.AddSequence(uint32(bin), line)
		}
		gologger.Verbose().Msgf("indexed bin %d (%s)", bin, path)
	}
	gologger.Info().Msgf("Built %s index: %d bins, k=%d, %d rows, %d hash functions",
		ix.alpha.Kind(), ix.BinCount(), ix.k, ix.filter.rows, ix.filter.hashes)
	return ix, nil
}

// indexManifest is the on-disk YAML descriptor of an index. The filter
// blob lives next to the manifest.
type indexManifest struct {
	Version  int      `yaml:"version"`
	Alphabet string   `yaml:"alphabet"`
	K        int      `yaml:"k"`
	BinCount uint32   `yaml:"bin_count"`
	Rows     uint64   `yaml:"rows"`
	Hashes   uint32   `yaml:"hashes"`
	Filter   string   `yaml:"filter"`
	Bins     []string `yaml:"bins"`
}

// Save writes the manifest to manifestPath and the filter blob alongside
// it (same name with a .filter suffix).
func (ix *Index) Save(manifestPath string) error {
	filterName := strings.TrimSuffix(filepath.Base(manifestPath), filepath.Ext(manifestPath)) + ".filter"
	man := indexManifest{
		Version:  indexVersion,
		Alphabet: ix.alpha.Kind().String(),
		K:        ix.k,
		BinCount: ix.BinCount(),
		Rows:     ix.filter.rows,
		Hashes:   ix.filter.hashes,
		Filter:   filterName,
		Bins:     ix.binPaths,
	}
	bin, err := yaml.Marshal(man)
	if err != nil {
		return err
	}
	if err := os.WriteFile(manifestPath, bin, 0644); err != nil {
		return err
	}
	var blob bytes.Buffer
	blob.Write(filterMagic[:])
	for _, v := range []interface{}{ix.filter.rows, ix.filter.hashes, ix.filter.binCount, ix.filter.data} {
		if err := binary.Write(&blob, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return os.WriteFile(filepath.Join(filepath.Dir(manifestPath), filterName), blob.Bytes(), 0644)
}

// LoadIndex reads a manifest and its filter blob. Bin and filter paths in
// the manifest resolve relative to the manifest's directory. Any
// structural problem (missing files, version or alphabet mismatch,
// truncated blob) wraps ErrIndexLoad.
func LoadIndex(manifestPath string) (*Index, error) {
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexLoad, err)
	}
	var man indexManifest
	if err := yaml.Unmarshal(raw, &man); err != nil {
		return nil, fmt.Errorf("%w: bad manifest: %v", ErrIndexLoad, err)
	}
	if man.Version != indexVersion {
		return nil, fmt.Errorf("%w: manifest version %d, want %d", ErrIndexLoad, man.Version, indexVersion)
	}
	kind, err := ParseAlphabetKind(man.Alphabet)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexLoad, err)
	}
	if err := validateK(kind, man.K); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexLoad, err)
	}
	if uint32(len(man.Bins)) != man.BinCount {
		return nil, fmt.Errorf("%w: manifest lists %d bins, bin_count says %d", ErrIndexLoad, len(man.Bins), man.BinCount)
	}

	dir := filepath.Dir(manifestPath)
	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}

	blob, err := os.ReadFile(resolve(man.Filter))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexLoad, err)
	}
	r := bytes.NewReader(blob)
	var magic [6]byte
	if _, err := r.Read(magic[:]); err != nil || magic != filterMagic {
		return nil, fmt.Errorf("%w: filter blob has wrong magic", ErrIndexLoad)
	}
	f := &ibf{}
	for _, v := range []interface{}{&f.rows, &f.hashes, &f.binCount} {
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("%w: truncated filter blob: %v", ErrIndexLoad, err)
		}
	}
	if f.binCount != man.BinCount || f.rows != man.Rows || f.hashes != man.Hashes {
		return nil, fmt.Errorf("%w: filter blob geometry disagrees with manifest", ErrIndexLoad)
	}
	f.binWords = (f.binCount + wordBits - 1) / wordBits
	f.data = make([]uint64, f.rows*uint64(f.binWords))
	if err := binary.Read(r, binary.LittleEndian, f.data); err != nil {
		return nil, fmt.Errorf("%w: truncated filter blob: %v", ErrIndexLoad, err)
	}

	bins := make([]string, len(man.Bins))
	for i, p := range man.Bins {
		bins[i] = resolve(p)
	}
	return &Index{
		alpha:    NewAlphabet(kind),
		k:        man.K,
		binPaths: bins,
		filter:   f,
	}, nil
}
