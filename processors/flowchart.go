package processors

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/BKrowchuk/Horizon/config"
	"github.com/BKrowchuk/Horizon/core"
	"github.com/BKrowchuk/Horizon/storage"
)

const mermaidSystemPrompt = "You are an expert at creating flowcharts from meeting discussions. Analyze this meeting transcript and create a Mermaid.js flowchart that represents the key discussion flow, decision points, and process steps discussed. Use appropriate flowchart symbols (rectangles for processes, diamonds for decisions, circles for start/end). The output should be valid Mermaid.js syntax that can be rendered directly. Start with 'flowchart TD' for top-down flow. Keep it concise but informative, focusing on the main discussion points and decisions."

const interactiveSystemPrompt = "You are an expert at creating interactive flowcharts from meeting discussions. Analyze this meeting transcript and create a JSON structure representing nodes and connections for an interactive flowchart. Each node should have: id, label, type (process/decision/start/end), position (x,y coordinates), and content (detailed description). Each connection should have: from_node, to_node, label (if any). Make it clickable and informative. Return only valid JSON without any markdown formatting."

// FlowchartBuilder renders a meeting's discussion flow as mermaid syntax,
// optionally with an interactive node/edge graph.
type FlowchartBuilder struct {
	Chat    ChatClient
	Model   string
	Timeout time.Duration
	Root    string
}

func NewFlowchartBuilder(cfg *config.Config) *FlowchartBuilder {
	return &FlowchartBuilder{
		Chat:    NewChatClient(cfg),
		Model:   cfg.ChatModel,
		Timeout: cfg.ProviderTimeout(),
		Root:    cfg.StorageRoot,
	}
}

// Build generates the flowchart artifact. The mermaid rendering is always
// produced; the interactive format additionally asks for a node/edge graph.
// If the graph JSON does not parse or validate, the result is marked
// degraded with the parse error, keeping the mermaid rendering usable.
func (b *FlowchartBuilder) Build(ctx context.Context, meetingID, formatType string) (core.FlowchartDoc, error) {
	if formatType == "" {
		formatType = "mermaid"
	}
	if formatType != "mermaid" && formatType != "interactive" {
		return core.FlowchartDoc{}, core.Ef(core.KindValidation, "flowchart", "format_type must be 'mermaid' or 'interactive'")
	}

	doc, err := storage.LoadTranscript(b.Root, meetingID)
	if err != nil {
		return core.FlowchartDoc{}, err
	}
	if doc.Transcript == "" {
		return core.FlowchartDoc{}, core.Ef(core.KindValidation, "flowchart", "no transcript text found for meeting: %s", meetingID)
	}

	projectID := doc.ProjectID
	if projectID == "" {
		projectID = "demo_project"
	}

	mermaid, err := b.mermaidFlowchart(ctx, doc.Transcript)
	if err != nil {
		return core.FlowchartDoc{}, err
	}

	out := core.FlowchartDoc{
		MeetingID:  meetingID,
		ProjectID:  projectID,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
		FormatType: formatType,
		Status:     "completed",
		Mermaid:    mermaid,
		Render:     core.RenderInfo{MermaidVersion: "10.x"},
	}

	if formatType == "interactive" {
		out.Render.InteractiveLibrary = "D3.js"
		graph, gerr := b.interactiveGraph(ctx, doc.Transcript)
		switch {
		case gerr == nil:
			out.Graph = graph
		case core.IsProvider(gerr):
			return core.FlowchartDoc{}, gerr
		default:
			out.Status = "degraded"
			out.ParseError = gerr.Error()
		}
	}

	if err := storage.SaveJSON(storage.OutputPath(b.Root, meetingID, "flowchart"), out); err != nil {
		return core.FlowchartDoc{}, core.E(core.KindInternal, "flowchart.save", err)
	}
	return out, nil
}

func (b *FlowchartBuilder) mermaidFlowchart(ctx context.Context, transcript string) (string, error) {
	code, err := chatText(ctx, b.Chat, b.Timeout, openai.ChatCompletionRequest{
		Model: b.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: mermaidSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Create a Mermaid.js flowchart from this meeting transcript:\n\n" + transcript},
		},
		Temperature: 0.3,
		MaxTokens:   1200,
	})
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(code, "flowchart TD") {
		code = "flowchart TD\n" + code
	}
	return code, nil
}

func (b *FlowchartBuilder) interactiveGraph(ctx context.Context, transcript string) (*core.FlowchartGraph, error) {
	raw, err := chatText(ctx, b.Chat, b.Timeout, openai.ChatCompletionRequest{
		Model: b.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: interactiveSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Create an interactive flowchart JSON structure from this meeting transcript:\n\n" + transcript},
		},
		Temperature: 0.3,
		MaxTokens:   1500,
	})
	if err != nil {
		return nil, err
	}
	return ParseFlowchartGraph(raw)
}

var validNodeTypes = map[string]bool{"process": true, "decision": true, "start": true, "end": true}

// ParseFlowchartGraph decodes and validates the model's graph JSON: at least
// one node, known node types, and connections that reference real nodes.
func ParseFlowchartGraph(raw string) (*core.FlowchartGraph, error) {
	cleaned := strings.TrimSpace(raw)
	// Models wrap JSON in fences often enough to be worth stripping.
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var graph core.FlowchartGraph
	if err := json.Unmarshal([]byte(cleaned), &graph); err != nil {
		return nil, fmt.Errorf("flowchart graph is not valid JSON: %v", err)
	}
	if len(graph.Nodes) == 0 {
		return nil, fmt.Errorf("flowchart graph has no nodes")
	}

	ids := make(map[string]bool, len(graph.Nodes))
	for _, n := range graph.Nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("flowchart node missing id")
		}
		if ids[n.ID] {
			return nil, fmt.Errorf("duplicate flowchart node id %q", n.ID)
		}
		if !validNodeTypes[n.Type] {
			return nil, fmt.Errorf("flowchart node %q has unknown type %q", n.ID, n.Type)
		}
		ids[n.ID] = true
	}
	for _, c := range graph.Connections {
		if !ids[c.FromNode] || !ids[c.ToNode] {
			return nil, fmt.Errorf("flowchart connection %q -> %q references unknown node", c.FromNode, c.ToNode)
		}
	}
	return &graph, nil
}
