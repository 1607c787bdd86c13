package processors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BKrowchuk/Horizon/core"
	"github.com/BKrowchuk/Horizon/storage"
)

func newTestSummarizer(t *testing.T, chat ChatClient) (*Summarizer, string) {
	t.Helper()
	root := newAnalysisRoot(t)
	return &Summarizer{Chat: chat, Model: "gpt-4", Timeout: time.Second, Root: root}, root
}

func TestSummarize(t *testing.T) {
	chat := &fakeChat{replies: []string{"The team reviewed the budget and set owners."}}
	s, root := newTestSummarizer(t, chat)
	writeTranscript(t, root, "m1", "Long discussion about the quarterly budget.")

	doc, err := s.Summarize(context.Background(), "m1")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if doc.Summary != "The team reviewed the budget and set owners." {
		t.Fatalf("unexpected summary: %q", doc.Summary)
	}
	if doc.ProjectID != "demo_project" || doc.CreatedAt == "" {
		t.Fatalf("doc fields: %+v", doc)
	}

	req := chat.reqs[0]
	if req.Messages[0].Content != summarySystemPrompt {
		t.Fatalf("system prompt: %q", req.Messages[0].Content)
	}
	if req.Messages[1].Content != "Long discussion about the quarterly budget." {
		t.Fatalf("user content: %q", req.Messages[1].Content)
	}
	if req.Temperature != 0.3 || req.MaxTokens != 1000 {
		t.Fatalf("request settings: temp=%v max=%d", req.Temperature, req.MaxTokens)
	}

	var saved core.SummaryDoc
	if err := storage.LoadJSON("test", storage.OutputPath(root, "m1", "summary"), &saved); err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
	if saved.Summary != doc.Summary {
		t.Fatalf("persisted summary differs: %q", saved.Summary)
	}
}

func TestSummarizeDefaultsProjectID(t *testing.T) {
	chat := &fakeChat{replies: []string{"Short summary."}}
	s, root := newTestSummarizer(t, chat)
	if err := storage.SaveTranscript(root, core.TranscriptDoc{MeetingID: "m1", Transcript: "hello"}); err != nil {
		t.Fatalf("SaveTranscript: %v", err)
	}
	doc, err := s.Summarize(context.Background(), "m1")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if doc.ProjectID != "unknown" {
		t.Fatalf("project id default: %q", doc.ProjectID)
	}
}

func TestSummarizeValidation(t *testing.T) {
	s, root := newTestSummarizer(t, &fakeChat{})
	if _, err := s.Summarize(context.Background(), "ghost"); !core.IsNotFound(err) {
		t.Fatalf("missing transcript: %v", err)
	}
	writeTranscript(t, root, "m1", "")
	if _, err := s.Summarize(context.Background(), "m1"); !core.IsValidation(err) {
		t.Fatalf("empty transcript: %v", err)
	}
}

func TestSummarizeProviderFailure(t *testing.T) {
	s, root := newTestSummarizer(t, &fakeChat{err: errors.New("boom")})
	writeTranscript(t, root, "m1", "hello")
	if _, err := s.Summarize(context.Background(), "m1"); !core.IsProvider(err) {
		t.Fatalf("expected provider error, got %v", err)
	}
	var saved core.SummaryDoc
	if err := storage.LoadJSON("test", storage.OutputPath(root, "m1", "summary"), &saved); !core.IsNotFound(err) {
		t.Fatalf("no artifact should be written on failure, got %v", err)
	}
}
