package embedding

import (
	"context"

	"github.com/hyperjump/wadai/internal/openai"
)

// OpenAIEmbedder embeds text with the OpenAI embeddings endpoint.
type OpenAIEmbedder struct {
	client     *openai.Client
	dimensions int
}

// NewOpenAIEmbedder returns an embedder backed by client. dimensions is the
// expected vector length of the configured model.
func NewOpenAIEmbedder(client *openai.Client, dimensions int) *OpenAIEmbedder {
	return &OpenAIEmbedder{client: client, dimensions: dimensions}
}

// Embed calls the embeddings endpoint.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.client.Embed(ctx, text)
}

// Dimensions returns the configured dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the HTTP client is shared.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
