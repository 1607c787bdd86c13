package processors

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/BKrowchuk/Horizon/core"
)

func newTestActions(t *testing.T) (*ActionStore, string) {
	t.Helper()
	root := newAnalysisRoot(t)
	return NewActionStore(root), root
}

func TestActionCreateGetUpdate(t *testing.T) {
	store, _ := newTestActions(t)

	rec, err := store.Create("send_summary_email", "m1", map[string]interface{}{"to": "team@example.com"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Status != "pending" || rec.ActionType != "send_summary_email" || rec.MeetingID != "m1" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.ActionID == "" || rec.CreatedAt == "" || rec.UpdatedAt == "" {
		t.Fatalf("missing identifiers: %+v", rec)
	}

	got, err := store.Get(rec.ActionID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(got.Parameters, map[string]interface{}{"to": "team@example.com"}) {
		t.Fatalf("parameters lost: %+v", got.Parameters)
	}

	updated, err := store.UpdateStatus(rec.ActionID, "completed")
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != "completed" {
		t.Fatalf("status not updated: %+v", updated)
	}
	got, err = store.Get(rec.ActionID)
	if err != nil {
		t.Fatalf("Get after update: %v", err)
	}
	if got.Status != "completed" {
		t.Fatalf("update not persisted: %+v", got)
	}
}

func TestActionValidation(t *testing.T) {
	store, _ := newTestActions(t)

	if _, err := store.Create("", "m1", nil); !core.IsValidation(err) {
		t.Fatalf("empty action_type: %v", err)
	}
	if _, err := store.Create("notify", "", nil); !core.IsValidation(err) {
		t.Fatalf("empty meeting_id: %v", err)
	}
	if _, err := store.Get(""); !core.IsValidation(err) {
		t.Fatalf("empty action_id: %v", err)
	}
	if _, err := store.Get("../etc/passwd"); !core.IsValidation(err) {
		t.Fatalf("path traversal id: %v", err)
	}
	if _, err := store.Get("action_20250101_000000"); !core.IsNotFound(err) {
		t.Fatalf("missing action: %v", err)
	}
	if _, err := store.UpdateStatus("action_20250101_000000", ""); !core.IsValidation(err) {
		t.Fatalf("empty status: %v", err)
	}
}

func TestActionIDsDistinctWithinSecond(t *testing.T) {
	store, _ := newTestActions(t)

	a, err := store.Create("notify", "m1", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	b, err := store.Create("notify", "m1", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.ActionID == b.ActionID {
		t.Fatalf("coinciding action ids: %s", a.ActionID)
	}

	records, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
}

func newTestExtractor(t *testing.T, chat ChatClient) (*ActionExtractor, *ActionStore, string) {
	t.Helper()
	store, root := newTestActions(t)
	return &ActionExtractor{Chat: chat, Store: store, Model: "gpt-3.5-turbo", Timeout: time.Second, Root: root}, store, root
}

func TestExtractActionItems(t *testing.T) {
	chat := &fakeChat{replies: []string{"- Alice to send the revised budget\n- Bob to book the demo room"}}
	ex, store, root := newTestExtractor(t, chat)
	writeTranscript(t, root, "m1", "Alice will send the revised budget. Bob books the demo room.")

	rec, err := ex.Extract(context.Background(), "m1")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if rec.Status != "completed" || rec.ActionType != ActionTypeExtract {
		t.Fatalf("unexpected record: %+v", rec)
	}
	items, ok := rec.Result["action_items"].([]string)
	if !ok || len(items) != 2 {
		t.Fatalf("unexpected items: %+v", rec.Result)
	}
	if items[0] != "Alice to send the revised budget" {
		t.Fatalf("unexpected first item: %q", items[0])
	}

	persisted, err := store.Get(rec.ActionID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	raw, ok := persisted.Result["action_items"].([]interface{})
	if !ok || len(raw) != 2 {
		t.Fatalf("persisted items malformed: %+v", persisted.Result)
	}
}

func TestExtractActionItemsNone(t *testing.T) {
	chat := &fakeChat{replies: []string{"NONE"}}
	ex, _, root := newTestExtractor(t, chat)
	writeTranscript(t, root, "m1", "Short social chat, nothing assigned.")

	rec, err := ex.Extract(context.Background(), "m1")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	items, ok := rec.Result["action_items"].([]string)
	if !ok || len(items) != 0 {
		t.Fatalf("expected empty items, got %+v", rec.Result)
	}
}

func TestExtractProviderFailureMarksRecordFailed(t *testing.T) {
	chat := &fakeChat{err: errors.New("boom")}
	ex, store, root := newTestExtractor(t, chat)
	writeTranscript(t, root, "m1", "Alice will send the budget.")

	if _, err := ex.Extract(context.Background(), "m1"); !core.IsProvider(err) {
		t.Fatalf("expected provider error, got %v", err)
	}
	records, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 || records[0].Status != "failed" {
		t.Fatalf("expected one failed record, got %+v", records)
	}
}

func TestExtractMissingTranscript(t *testing.T) {
	ex, store, _ := newTestExtractor(t, &fakeChat{})
	if _, err := ex.Extract(context.Background(), "ghost"); !core.IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
	records, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("no record should be created, got %+v", records)
	}
}

func TestParseActionItems(t *testing.T) {
	items := ParseActionItems("- first task\n* second task\n\n- \nthird line")
	want := []string{"first task", "second task", "third line"}
	if !reflect.DeepEqual(items, want) {
		t.Fatalf("got %v want %v", items, want)
	}
	if got := ParseActionItems("  NONE  "); len(got) != 0 || got == nil {
		t.Fatalf("NONE should give empty non-nil slice, got %#v", got)
	}
}
