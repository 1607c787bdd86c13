package storage

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/BKrowchuk/Horizon/core"
)

// indexMagic identifies the on-disk flat index format.
const indexMagic = "HRZNIDX1"

// FlatIndex is an exact squared-L2 index over dense float32 vectors. Vector
// position equals chunk id for the lifetime of a build; at transcript scale
// (tens to low hundreds of chunks) brute force beats any approximate
// structure on both accuracy and simplicity.
type FlatIndex struct {
	dim     int
	vectors [][]float32
}

func NewFlatIndex(dim int) *FlatIndex {
	return &FlatIndex{dim: dim}
}

func (ix *FlatIndex) Dimension() int { return ix.dim }

func (ix *FlatIndex) Ntotal() int { return len(ix.vectors) }

func (ix *FlatIndex) Add(vec []float32) error {
	if len(vec) != ix.dim {
		return fmt.Errorf("vector dimension %d does not match index dimension %d", len(vec), ix.dim)
	}
	ix.vectors = append(ix.vectors, vec)
	return nil
}

// Search returns the ids and squared-L2 distances of the k nearest vectors,
// ascending by distance with ties broken by ascending id. Fewer than k
// vectors returns all of them; an empty index returns empty results.
func (ix *FlatIndex) Search(query []float32, k int) ([]int, []float32, error) {
	if len(query) != ix.dim {
		return nil, nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(query), ix.dim)
	}
	n := ix.Ntotal()
	if n == 0 || k <= 0 {
		return []int{}, []float32{}, nil
	}
	if k > n {
		k = n
	}

	dists := make([]float32, n)
	for i, vec := range ix.vectors {
		dists[i] = squaredL2(query, vec)
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		if dists[order[a]] != dists[order[b]] {
			return dists[order[a]] < dists[order[b]]
		}
		return order[a] < order[b]
	})

	ids := make([]int, k)
	topDists := make([]float32, k)
	for i := 0; i < k; i++ {
		ids[i] = order[i]
		topDists[i] = dists[order[i]]
	}
	return ids, topDists, nil
}

func squaredL2(a, b []float32) float32 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return float32(sum)
}

// Similarity converts a squared-L2 distance to a score in (0, 1]; distance
// zero maps to exactly 1 and the score decreases monotonically from there.
func Similarity(distance float32) float64 {
	return 1.0 / (1.0 + float64(distance))
}

// ---------------- Persistence ----------------

// Save writes the index as magic, dimension, count, then the vectors as
// little-endian float32s. The file is written to a temp sibling and renamed
// so a crash never leaves a half-written index behind.
func (ix *FlatIndex) Save(path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}

	w := bufio.NewWriter(f)
	if _, err := w.WriteString(indexMagic); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write index header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(ix.dim)); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write index header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(ix.vectors))); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write index header: %w", err)
	}
	for _, vec := range ix.vectors {
		if err := binary.Write(w, binary.LittleEndian, vec); err != nil {
			f.Close()
			os.Remove(tmp)
			return fmt.Errorf("write index vectors: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("flush index file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close index file: %w", err)
	}
	return os.Rename(tmp, path)
}

// LoadFlatIndex reads an index written by Save. A missing file is NotFound;
// a bad magic, impossible header or truncated body is Corrupt.
func LoadFlatIndex(path string) (*FlatIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.Ef(core.KindNotFound, "index.load", "index file not found: %s", path)
		}
		return nil, fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat index file: %w", err)
	}

	r := bufio.NewReader(f)
	magic := make([]byte, len(indexMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, core.Ef(core.KindCorrupt, "index.load", "index header truncated: %v", err)
	}
	if string(magic) != indexMagic {
		return nil, core.Ef(core.KindCorrupt, "index.load", "bad index magic %q", string(magic))
	}

	var dim, count uint64
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return nil, core.Ef(core.KindCorrupt, "index.load", "index header truncated: %v", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, core.Ef(core.KindCorrupt, "index.load", "index header truncated: %v", err)
	}
	if dim == 0 || dim > 1<<20 {
		return nil, core.Ef(core.KindCorrupt, "index.load", "implausible index dimension %d", dim)
	}

	expected := int64(len(indexMagic)) + 16 + int64(count)*int64(dim)*4
	if info.Size() != expected {
		return nil, core.Ef(core.KindCorrupt, "index.load", "index file size %d does not match header (want %d)", info.Size(), expected)
	}

	ix := NewFlatIndex(int(dim))
	for i := uint64(0); i < count; i++ {
		vec := make([]float32, dim)
		if err := binary.Read(r, binary.LittleEndian, vec); err != nil {
			return nil, core.Ef(core.KindCorrupt, "index.load", "index vectors truncated: %v", err)
		}
		ix.vectors = append(ix.vectors, vec)
	}
	return ix, nil
}
