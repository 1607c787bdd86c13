package processors

import (
	"context"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/BKrowchuk/Horizon/config"
	"github.com/BKrowchuk/Horizon/core"
	"github.com/BKrowchuk/Horizon/storage"
)

const summarySystemPrompt = "You are a professional meeting summarizer. Create a concise but comprehensive summary of the following meeting transcript. Focus on key discussion points, decisions made, and the overall narrative flow."

// Summarizer turns a meeting transcript into a narrative summary artifact.
type Summarizer struct {
	Chat    ChatClient
	Model   string
	Timeout time.Duration
	Root    string
}

func NewSummarizer(cfg *config.Config) *Summarizer {
	return &Summarizer{
		Chat:    NewChatClient(cfg),
		Model:   cfg.SummaryModel,
		Timeout: cfg.ProviderTimeout(),
		Root:    cfg.StorageRoot,
	}
}

// Summarize loads the transcript, asks the model for a summary, and writes
// the summary artifact. A missing transcript is NotFound; an empty one is a
// validation error rather than a wasted completion call.
func (s *Summarizer) Summarize(ctx context.Context, meetingID string) (core.SummaryDoc, error) {
	doc, err := storage.LoadTranscript(s.Root, meetingID)
	if err != nil {
		return core.SummaryDoc{}, err
	}
	if doc.Transcript == "" {
		return core.SummaryDoc{}, core.Ef(core.KindValidation, "summarize", "transcript text is empty")
	}

	projectID := doc.ProjectID
	if projectID == "" {
		projectID = "unknown"
	}

	text, err := chatText(ctx, s.Chat, s.Timeout, openai.ChatCompletionRequest{
		Model: s.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summarySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: doc.Transcript},
		},
		Temperature: 0.3,
		MaxTokens:   1000,
	})
	if err != nil {
		return core.SummaryDoc{}, err
	}

	summary := core.SummaryDoc{
		MeetingID: meetingID,
		ProjectID: projectID,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Summary:   text,
	}
	if err := storage.SaveJSON(storage.OutputPath(s.Root, meetingID, "summary"), summary); err != nil {
		return core.SummaryDoc{}, core.E(core.KindInternal, "summarize.save", err)
	}
	return summary, nil
}
