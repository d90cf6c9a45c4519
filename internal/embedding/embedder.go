// Package embedding provides text embedding providers and an LRU cache in front of them.
package embedding

import (
	"context"
	"errors"
)

// ErrUnavailable means no embedding could be produced for the text. Callers treat
// it as "no embedding" rather than a failure.
var ErrUnavailable = errors.New("embedding unavailable")

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// Dimensions returns the vector length, or 0 when unknown.
	Dimensions() int
	Close() error
}

// Unavailable is an Embedder that never produces a vector.
type Unavailable struct{}

// Embed always returns ErrUnavailable.
func (Unavailable) Embed(context.Context, string) ([]float32, error) {
	return nil, ErrUnavailable
}

// Dimensions returns 0.
func (Unavailable) Dimensions() int { return 0 }

// Close is a no-op.
func (Unavailable) Close() error { return nil }
