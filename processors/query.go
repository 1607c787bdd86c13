package processors

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/BKrowchuk/Horizon/config"
	"github.com/BKrowchuk/Horizon/core"
	"github.com/BKrowchuk/Horizon/storage"
)

const querySystemPrompt = "You are an assistant that answers questions about meeting content. Use only the provided meeting transcript chunks to answer the question. If the answer isn't contained in the chunks, say you don't have enough information. Be specific and cite relevant parts of the transcript."

// NoEvidenceAnswer is returned without a completion call when retrieval
// produces nothing to ground an answer on.
const NoEvidenceAnswer = "I don't have enough information to answer this question based on the meeting content."

const sourceLimit = 3

// QueryEngine answers questions about a meeting from its indexed transcript
// chunks and records every exchange in the per-meeting query log.
type QueryEngine struct {
	Store   *storage.IndexStore
	Chat    ChatClient
	Log     *storage.QueryLog
	Model   string
	Timeout time.Duration
}

func NewQueryEngine(cfg *config.Config, store *storage.IndexStore, log *storage.QueryLog) *QueryEngine {
	return &QueryEngine{
		Store:   store,
		Chat:    NewChatClient(cfg),
		Log:     log,
		Model:   cfg.ChatModel,
		Timeout: cfg.ProviderTimeout(),
	}
}

// Answer retrieves the closest transcript chunks, composes a grounded answer,
// and appends the exchange to the query log. With no retrieved evidence the
// canned no-evidence answer is returned and logged without calling the model.
func (e *QueryEngine) Answer(ctx context.Context, meetingID, query string) (core.QueryResult, error) {
	if strings.TrimSpace(query) == "" {
		return core.QueryResult{}, core.Ef(core.KindValidation, "query", "query is required")
	}

	rows, err := e.Store.Search(ctx, meetingID, query, storage.DefaultTopK)
	if err != nil {
		return core.QueryResult{}, err
	}
	sort.SliceStable(rows, func(a, b int) bool {
		return rows[a].SimilarityScore > rows[b].SimilarityScore
	})

	result := core.QueryResult{
		MeetingID: meetingID,
		Query:     query,
		Sources:   []core.Source{},
	}

	if len(rows) == 0 {
		result.Answer = NoEvidenceAnswer
	} else {
		top := rows
		if len(top) > sourceLimit {
			top = top[:sourceLimit]
		}
		parts := make([]string, len(top))
		for i, row := range top {
			parts[i] = fmt.Sprintf("Chunk %d: %s", i+1, row.Text)
		}
		answer, err := chatText(ctx, e.Chat, e.Timeout, openai.ChatCompletionRequest{
			Model: e.Model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: querySystemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Question: %s\n\nMeeting transcript chunks:\n%s", query, strings.Join(parts, "\n\n"))},
			},
			Temperature: 0.2,
			MaxTokens:   800,
		})
		if err != nil {
			return core.QueryResult{}, err
		}
		result.Answer = answer
		for _, row := range top {
			result.Sources = append(result.Sources, core.Source{
				ChunkID:         row.ChunkID,
				SimilarityScore: row.SimilarityScore,
				TextPreview:     previewText(row.Text),
			})
		}
	}

	result.Timestamp = time.Now().UTC().Format(time.RFC3339)
	if err := e.Log.Append(meetingID, result); err != nil {
		return core.QueryResult{}, err
	}
	return result, nil
}

// previewText truncates to 100 characters, counting runes so multibyte text
// is never split mid-character.
func previewText(text string) string {
	runes := []rune(text)
	if len(runes) <= 100 {
		return text
	}
	return string(runes[:100]) + "..."
}
