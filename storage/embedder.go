package storage

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/BKrowchuk/Horizon/config"
	"github.com/BKrowchuk/Horizon/core"
)

// Embedder turns text into dense vectors. EmbedBatch preserves input order:
// result i is always the vector for texts[i].
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	ModelInfo() string
}

// ---------------- OpenAI implementation ----------------

type OpenAIEmbedder struct {
	cli         *openai.Client
	model       string
	timeout     time.Duration
	concurrency int
}

func NewOpenAIEmbedder(cfg *config.Config) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		cli:         newOpenAIClient(cfg),
		model:       cfg.EmbeddingModel,
		timeout:     cfg.ProviderTimeout(),
		concurrency: cfg.EmbedConcurrency,
	}
}

func (e *OpenAIEmbedder) Dimension() int {
	switch e.model {
	case "text-embedding-3-large":
		return 3072
	default:
		// text-embedding-ada-002 and text-embedding-3-small
		return 1536
	}
}

func (e *OpenAIEmbedder) ModelInfo() string { return e.model }

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req := openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{text},
	}
	resp, err := e.cli.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, core.Ef(core.KindProvider, "embedder.embed", "embedding API failed: %v", err)
	}
	if len(resp.Data) == 0 {
		return nil, core.Ef(core.KindProvider, "embedder.embed", "no embeddings returned")
	}
	return resp.Data[0].Embedding, nil
}

// EmbedBatch runs bounded concurrent per-text calls and writes each vector at
// its input position, so completion order can never reorder results. The
// first failure cancels the rest and fails the whole batch.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := e.concurrency
	if workers <= 0 {
		workers = 8
	}

	embeddings := make([][]float32, len(texts))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i, text := range texts {
		wg.Add(1)
		go func(idx int, text string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()

			vec, err := e.Embed(ctx, text)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("chunk %d: %w", idx, err)
					cancel()
				}
				mu.Unlock()
				return
			}
			embeddings[idx] = vec
		}(i, text)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return embeddings, nil
}

// ---------------- Mock implementation ----------------

// MockEmbedder hashes tokens into a fixed number of buckets and L2-normalizes
// the counts. Deterministic, and texts sharing vocabulary land close together,
// which is enough for retrieval tests without an API key.
type MockEmbedder struct {
	Dim int
}

func (m *MockEmbedder) Dimension() int {
	if m.Dim > 0 {
		return m.Dim
	}
	return 64
}

func (m *MockEmbedder) ModelInfo() string { return "mock-embedding" }

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	dim := m.Dimension()
	vec := make([]float32, dim)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[int(h.Sum32()%uint32(dim))]++
	}
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum > 0 {
		norm := float32(math.Sqrt(sum))
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// PickEmbedder selects the embedding provider. EMBEDDER=mock forces the mock;
// a missing API key falls back to it with a warning so the service still runs.
func PickEmbedder(cfg *config.Config) Embedder {
	if strings.ToLower(strings.TrimSpace(os.Getenv("EMBEDDER"))) == "mock" {
		return &MockEmbedder{}
	}
	if !cfg.HasValidAPI() {
		fmt.Println("Warning: API configuration not found, using mock embedder")
		return &MockEmbedder{}
	}
	return NewOpenAIEmbedder(cfg)
}

func newOpenAIClient(cfg *config.Config) *openai.Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientConfig)
}
