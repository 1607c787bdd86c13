package processors

import (
	"context"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/BKrowchuk/Horizon/config"
	"github.com/BKrowchuk/Horizon/core"
)

// ChatClient is the slice of the OpenAI client the processors need. Tests
// substitute a canned implementation.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

func newOpenAIClient(cfg *config.Config) *openai.Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(oc)
}

// NewChatClient builds the real completion client from config.
func NewChatClient(cfg *config.Config) ChatClient {
	return newOpenAIClient(cfg)
}

// chatText runs one completion and returns the trimmed message content.
// Provider failures and empty responses come back as provider errors.
func chatText(ctx context.Context, cli ChatClient, timeout time.Duration, req openai.ChatCompletionRequest) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	resp, err := cli.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", core.E(core.KindProvider, "chat.completion", err)
	}
	if len(resp.Choices) == 0 {
		return "", core.Ef(core.KindProvider, "chat.completion", "no completion choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
