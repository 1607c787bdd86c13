package storage

import (
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/BKrowchuk/Horizon/core"
)

func newTestRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if err := core.EnsureDataDirs(root); err != nil {
		t.Fatalf("EnsureDataDirs failed: %v", err)
	}
	return root
}

func TestQueryLogAppendAndList(t *testing.T) {
	log := NewQueryLog(newTestRoot(t))

	first := core.QueryResult{
		MeetingID: "m1",
		Query:     "what was decided?",
		Answer:    "the launch moves to June",
		Timestamp: "2025-01-02T03:04:05Z",
	}
	second := core.QueryResult{
		MeetingID: "m1",
		Query:     "who owns the followup?",
		Answer:    "Jordan",
		Timestamp: "2025-01-02T03:05:00Z",
	}
	if err := log.Append("m1", first); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := log.Append("m1", second); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	records, err := log.List("m1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Query != first.Query || records[1].Query != second.Query {
		t.Errorf("records out of order: %q then %q", records[0].Query, records[1].Query)
	}
}

func TestQueryLogListMissing(t *testing.T) {
	log := NewQueryLog(newTestRoot(t))

	records, err := log.List("never-queried")
	if err != nil {
		t.Fatalf("List on missing log failed: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Errorf("expected empty slice for missing log, got %v", records)
	}
}

func TestQueryLogConcurrentAppends(t *testing.T) {
	log := NewQueryLog(newTestRoot(t))

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := core.QueryResult{MeetingID: "m1", Query: fmt.Sprintf("q%d", i), Answer: "a"}
			if err := log.Append("m1", rec); err != nil {
				t.Errorf("Append failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	records, err := log.List("m1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != n {
		t.Errorf("expected %d records after concurrent appends, got %d", n, len(records))
	}
}

func TestQueryLogCorruptFile(t *testing.T) {
	root := newTestRoot(t)
	log := NewQueryLog(root)

	if err := os.WriteFile(OutputPath(root, "m1", "queries"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := log.List("m1"); !core.IsCorrupt(err) {
		t.Errorf("expected corrupt error from List, got %v", err)
	}
	if err := log.Append("m1", core.QueryResult{Query: "q"}); !core.IsCorrupt(err) {
		t.Errorf("Append should refuse to clobber a corrupt log, got %v", err)
	}
}
