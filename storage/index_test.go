package storage

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/BKrowchuk/Horizon/core"
)

func buildTestIndex(t *testing.T, vectors [][]float32) *FlatIndex {
	t.Helper()
	if len(vectors) == 0 {
		return NewFlatIndex(4)
	}
	ix := NewFlatIndex(len(vectors[0]))
	for i, v := range vectors {
		if err := ix.Add(v); err != nil {
			t.Fatalf("Add vector %d: %v", i, err)
		}
	}
	return ix
}

func TestFlatIndexExactMatch(t *testing.T) {
	ix := buildTestIndex(t, [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	})

	ids, dists, err := ix.Search([]float32{0, 1, 0}, 1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != 1 {
		t.Fatalf("expected nearest id 1, got %v", ids)
	}
	if dists[0] != 0 {
		t.Errorf("expected distance 0 for exact match, got %v", dists[0])
	}
	if s := Similarity(dists[0]); s != 1.0 {
		t.Errorf("expected similarity 1.0 for exact match, got %v", s)
	}
}

func TestFlatIndexOrdering(t *testing.T) {
	ix := buildTestIndex(t, [][]float32{
		{3, 0}, // distance 9
		{1, 0}, // distance 1
		{2, 0}, // distance 4
	})

	ids, dists, err := ix.Search([]float32{0, 0}, 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	wantIDs := []int{1, 2, 0}
	wantDists := []float32{1, 4, 9}
	for i := range wantIDs {
		if ids[i] != wantIDs[i] {
			t.Errorf("rank %d: expected id %d, got %d", i, wantIDs[i], ids[i])
		}
		if dists[i] != wantDists[i] {
			t.Errorf("rank %d: expected distance %v, got %v", i, wantDists[i], dists[i])
		}
	}
	for i := 1; i < len(dists); i++ {
		if dists[i] < dists[i-1] {
			t.Errorf("distances not ascending at rank %d: %v", i, dists)
		}
	}
}

func TestFlatIndexTiesBreakByID(t *testing.T) {
	same := []float32{1, 1}
	ix := buildTestIndex(t, [][]float32{same, same, same})

	ids, _, err := ix.Search([]float32{0, 0}, 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	for i, id := range ids {
		if id != i {
			t.Errorf("tied distances should order by ascending id, got %v", ids)
			break
		}
	}
}

func TestFlatIndexKLargerThanTotal(t *testing.T) {
	ix := buildTestIndex(t, [][]float32{
		{1, 0},
		{0, 1},
	})

	ids, dists, err := ix.Search([]float32{0, 0}, 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(ids) != 2 || len(dists) != 2 {
		t.Errorf("expected all 2 vectors when k exceeds total, got %d", len(ids))
	}
}

func TestFlatIndexEmpty(t *testing.T) {
	ix := NewFlatIndex(8)
	ids, dists, err := ix.Search(make([]float32, 8), 5)
	if err != nil {
		t.Fatalf("Search on empty index failed: %v", err)
	}
	if len(ids) != 0 || len(dists) != 0 {
		t.Errorf("expected empty results from empty index, got %v %v", ids, dists)
	}
}

func TestFlatIndexDimensionMismatch(t *testing.T) {
	ix := NewFlatIndex(4)
	if err := ix.Add([]float32{1, 2}); err == nil {
		t.Error("expected error adding 2-dim vector to 4-dim index")
	}
	if _, _, err := ix.Search([]float32{1, 2}, 1); err == nil {
		t.Error("expected error searching with 2-dim query in 4-dim index")
	}
}

func TestFlatIndexSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "meeting.index")

	ix := buildTestIndex(t, [][]float32{
		{0.25, -1.5, 3.75},
		{1e-7, 42.0, -0.001},
		{0, 0, 0},
	})
	if err := ix.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should not remain after Save")
	}

	loaded, err := LoadFlatIndex(path)
	if err != nil {
		t.Fatalf("LoadFlatIndex failed: %v", err)
	}
	if loaded.Dimension() != ix.Dimension() {
		t.Fatalf("dimension mismatch after load: %d vs %d", loaded.Dimension(), ix.Dimension())
	}
	if loaded.Ntotal() != ix.Ntotal() {
		t.Fatalf("count mismatch after load: %d vs %d", loaded.Ntotal(), ix.Ntotal())
	}
	for i := range ix.vectors {
		for j := range ix.vectors[i] {
			if math.Abs(float64(loaded.vectors[i][j]-ix.vectors[i][j])) > 1e-6 {
				t.Errorf("vector %d component %d changed across save/load: %v vs %v",
					i, j, loaded.vectors[i][j], ix.vectors[i][j])
			}
		}
	}
}

func TestLoadFlatIndexMissing(t *testing.T) {
	_, err := LoadFlatIndex(filepath.Join(t.TempDir(), "nope.index"))
	if !core.IsNotFound(err) {
		t.Errorf("expected not_found for missing index file, got %v", err)
	}
}

func TestLoadFlatIndexBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.index")
	if err := os.WriteFile(path, []byte("NOTANIDXsomebytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadFlatIndex(path)
	if !core.IsCorrupt(err) {
		t.Errorf("expected corrupt for bad magic, got %v", err)
	}
}

func TestLoadFlatIndexTruncated(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trunc.index")

	ix := buildTestIndex(t, [][]float32{{1, 2, 3}, {4, 5, 6}})
	if err := ix.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data[:len(data)-5], 0o644); err != nil {
		t.Fatal(err)
	}

	_, err = LoadFlatIndex(path)
	if !core.IsCorrupt(err) {
		t.Errorf("expected corrupt for truncated index, got %v", err)
	}
}

func TestLoadFlatIndexHeaderSizeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lying.index")

	buf := []byte(indexMagic)
	hdr := make([]byte, 16)
	binary.LittleEndian.PutUint64(hdr[0:8], 3)    // dim
	binary.LittleEndian.PutUint64(hdr[8:16], 100) // count the body cannot hold
	buf = append(buf, hdr...)
	buf = append(buf, make([]byte, 3*4)...) // one vector only
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFlatIndex(path)
	if !core.IsCorrupt(err) {
		t.Errorf("expected corrupt when header count disagrees with file size, got %v", err)
	}
}

func TestSimilarity(t *testing.T) {
	cases := []struct {
		distance float32
		want     float64
	}{
		{0, 1.0},
		{1, 0.5},
		{3, 0.25},
	}
	for _, c := range cases {
		if got := Similarity(c.distance); math.Abs(got-c.want) > 1e-9 {
			t.Errorf("Similarity(%v) = %v, want %v", c.distance, got, c.want)
		}
	}
}
