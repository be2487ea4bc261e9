package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
)

// dummyAPIKey mirrors the original engine's offline-test affordance: a
// fixed sentinel key short-circuits the network call and returns a
// constant vector, so retrieval-pipeline tests don't need live credentials
// (spec.md §6, "A dummy key yields a constant vector").
const dummyAPIKey = "dummy-api-key"

// EmbeddingDim is the vector width produced by the configured embedding
// model (spec.md §6: "embed(text) → vector[1536]").
const EmbeddingDim = 1536

// Embedder produces a fixed-width embedding vector for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type embedder struct {
	openai openai.Client
	model  string
	apiKey string
}

// NewEmbedder builds an Embedder over the same OpenAI configuration shape
// used for chat completions.
func NewEmbedder(cfg Config) (Embedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "text-embedding-3-small"
	}

	if cfg.APIKey == dummyAPIKey {
		return &embedder{model: model, apiKey: cfg.APIKey}, nil
	}

	c, err := New(cfg)
	if err != nil {
		return nil, err
	}
	inner := c.(*client)
	return &embedder{openai: inner.openai, model: model, apiKey: cfg.APIKey}, nil
}

func (e *embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.apiKey == dummyAPIKey {
		return constantVector(), nil
	}

	resp, err := e.openai.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: e.model,
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding data in response")
	}

	raw := resp.Data[0].Embedding
	out := make([]float32, len(raw))
	for i, v := range raw {
		out[i] = float32(v)
	}
	return out, nil
}

func constantVector() []float32 {
	v := make([]float32, EmbeddingDim)
	for i := range v {
		v[i] = 0.1
	}
	return v
}
