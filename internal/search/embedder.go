package search

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GenaiEmbedder computes embeddings through the Gemini embeddings API.
type GenaiEmbedder struct {
	client *genai.Client
	model  string
}

func NewGenaiEmbedder(client *genai.Client, model string) *GenaiEmbedder {
	if model == "" {
		model = "text-embedding-004"
	}
	return &GenaiEmbedder{client: client, model: model}
}

func (e *GenaiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Models.EmbedContent(ctx, e.model, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("empty embedding for model %s", e.model)
	}
	return resp.Embeddings[0].Values, nil
}

var _ Embedder = (*GenaiEmbedder)(nil)
