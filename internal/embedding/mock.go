package embedding

import (
	"context"
	"math"
	"strings"

	"github.com/hyperjump/wadai/pkg/utils"
)

// MockEmbedder is a deterministic embedder for tests and offline runs. Each word
// contributes a hash-derived direction, so texts sharing most of their words
// land close together and the same text always gets the same embedding.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns an embedder that produces deterministic embeddings of the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns the normalized sum of the word vectors of text.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	words := SplitWords(strings.ToLower(text))
	if len(words) == 0 {
		return nil, ErrUnavailable
	}
	emb := make([]float32, e.dimensions)
	for _, w := range words {
		h := HashString(w)
		for i := range emb {
			emb[i] += float32(math.Sin(float64(h * (i + 1))))
		}
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}
