package processors

import (
	"context"
	"testing"
	"time"

	"github.com/BKrowchuk/Horizon/core"
	"github.com/BKrowchuk/Horizon/storage"
)

const graphJSON = `{
  "nodes": [
    {"id": "start", "label": "Start", "type": "start", "position": {"x": 0, "y": 0}, "content": "Meeting opens"},
    {"id": "budget", "label": "Budget review", "type": "process", "position": {"x": 0, "y": 120}, "content": "Finance walkthrough"}
  ],
  "connections": [
    {"from_node": "start", "to_node": "budget", "label": "first topic"}
  ]
}`

func newTestFlowchart(t *testing.T, chat ChatClient) (*FlowchartBuilder, string) {
	t.Helper()
	root := newAnalysisRoot(t)
	return &FlowchartBuilder{Chat: chat, Model: "gpt-3.5-turbo", Timeout: time.Second, Root: root}, root
}

func TestFlowchartFormatValidation(t *testing.T) {
	b, root := newTestFlowchart(t, &fakeChat{})
	writeTranscript(t, root, "m1", "We agreed to ship on Friday.")

	if _, err := b.Build(context.Background(), "m1", "png"); !core.IsValidation(err) {
		t.Fatalf("expected validation error for bad format, got %v", err)
	}
	if _, err := b.Build(context.Background(), "missing", "mermaid"); !core.IsNotFound(err) {
		t.Fatalf("expected not-found for missing transcript, got %v", err)
	}
	writeTranscript(t, root, "m2", "")
	if _, err := b.Build(context.Background(), "m2", "mermaid"); !core.IsValidation(err) {
		t.Fatalf("expected validation error for empty transcript, got %v", err)
	}
}

func TestFlowchartMermaid(t *testing.T) {
	chat := &fakeChat{replies: []string{"flowchart TD\n    A[Start] --> B[Budget review]"}}
	b, root := newTestFlowchart(t, chat)
	writeTranscript(t, root, "m1", "We reviewed the budget and agreed to ship on Friday.")

	doc, err := b.Build(context.Background(), "m1", "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if doc.FormatType != "mermaid" || doc.Status != "completed" {
		t.Fatalf("unexpected doc state: %+v", doc)
	}
	if doc.Mermaid != "flowchart TD\n    A[Start] --> B[Budget review]" {
		t.Fatalf("unexpected mermaid: %q", doc.Mermaid)
	}
	if doc.Graph != nil || doc.ParseError != "" {
		t.Fatalf("mermaid format should not carry a graph: %+v", doc)
	}
	if doc.Render.MermaidVersion != "10.x" || doc.Render.InteractiveLibrary != "" {
		t.Fatalf("unexpected render info: %+v", doc.Render)
	}
	if chat.calls != 1 {
		t.Fatalf("expected one completion call, got %d", chat.calls)
	}

	var saved core.FlowchartDoc
	if err := storage.LoadJSON("test", storage.OutputPath(root, "m1", "flowchart"), &saved); err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
	if saved.Mermaid != doc.Mermaid {
		t.Fatalf("persisted artifact differs: %q", saved.Mermaid)
	}
}

func TestFlowchartMermaidPrefixAdded(t *testing.T) {
	chat := &fakeChat{replies: []string{"A[Start] --> B[End]"}}
	b, root := newTestFlowchart(t, chat)
	writeTranscript(t, root, "m1", "Quick sync.")

	doc, err := b.Build(context.Background(), "m1", "mermaid")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if doc.Mermaid != "flowchart TD\nA[Start] --> B[End]" {
		t.Fatalf("missing flowchart TD prefix: %q", doc.Mermaid)
	}
}

func TestFlowchartInteractive(t *testing.T) {
	chat := &fakeChat{replies: []string{"flowchart TD\nA --> B", graphJSON}}
	b, root := newTestFlowchart(t, chat)
	writeTranscript(t, root, "m1", "We reviewed the budget.")

	doc, err := b.Build(context.Background(), "m1", "interactive")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if chat.calls != 2 {
		t.Fatalf("interactive format needs two completions, got %d", chat.calls)
	}
	if doc.Status != "completed" || doc.Graph == nil {
		t.Fatalf("expected completed doc with graph: %+v", doc)
	}
	if len(doc.Graph.Nodes) != 2 || len(doc.Graph.Connections) != 1 {
		t.Fatalf("unexpected graph: %+v", doc.Graph)
	}
	if doc.Render.InteractiveLibrary != "D3.js" {
		t.Fatalf("unexpected render info: %+v", doc.Render)
	}
}

func TestFlowchartInteractiveDegradedOnBadJSON(t *testing.T) {
	chat := &fakeChat{replies: []string{"flowchart TD\nA --> B", "here is your flowchart!"}}
	b, root := newTestFlowchart(t, chat)
	writeTranscript(t, root, "m1", "We reviewed the budget.")

	doc, err := b.Build(context.Background(), "m1", "interactive")
	if err != nil {
		t.Fatalf("degraded parse must not fail the build: %v", err)
	}
	if doc.Status != "degraded" || doc.ParseError == "" {
		t.Fatalf("expected degraded doc with parse error: %+v", doc)
	}
	if doc.Graph != nil {
		t.Fatalf("degraded doc must not invent a graph: %+v", doc.Graph)
	}
	if doc.Mermaid != "flowchart TD\nA --> B" {
		t.Fatalf("mermaid rendering should be retained: %q", doc.Mermaid)
	}

	var saved core.FlowchartDoc
	if err := storage.LoadJSON("test", storage.OutputPath(root, "m1", "flowchart"), &saved); err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
	if saved.Status != "degraded" {
		t.Fatalf("persisted status %q", saved.Status)
	}
}

func TestParseFlowchartGraph(t *testing.T) {
	if _, err := ParseFlowchartGraph("```json\n" + graphJSON + "\n```"); err != nil {
		t.Fatalf("fenced JSON should parse: %v", err)
	}
	if _, err := ParseFlowchartGraph(`{"nodes": [], "connections": []}`); err == nil {
		t.Fatalf("empty node list should be rejected")
	}
	if _, err := ParseFlowchartGraph(`{"nodes": [{"id": "a", "label": "A", "type": "blob"}]}`); err == nil {
		t.Fatalf("unknown node type should be rejected")
	}
	if _, err := ParseFlowchartGraph(`{"nodes": [{"id": "a", "label": "A", "type": "start"}], "connections": [{"from_node": "a", "to_node": "ghost"}]}`); err == nil {
		t.Fatalf("dangling connection should be rejected")
	}
	if _, err := ParseFlowchartGraph(`{"nodes": [{"id": "a", "type": "start"}, {"id": "a", "type": "end"}]}`); err == nil {
		t.Fatalf("duplicate node id should be rejected")
	}
}
