package embedding

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/wadai/internal/config"
	"github.com/hyperjump/wadai/internal/openai"
)

// New builds the configured provider wrapped in a cache. client may be nil, in
// which case the openai provider degrades to Unavailable.
func New(cfg config.EmbeddingConfig, client *openai.Client, logger *zap.Logger) (Embedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var inner Embedder
	switch cfg.Provider {
	case "openai":
		if client == nil {
			logger.Warn("no OpenAI client; embeddings disabled")
			inner = Unavailable{}
		} else {
			inner = NewOpenAIEmbedder(client, cfg.Dimensions)
		}
	case "onnx":
		e, err := NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
		if err != nil {
			return nil, fmt.Errorf("failed to create onnx embedder: %w", err)
		}
		inner = e
	case "mock":
		inner = NewMockEmbedder(cfg.Dimensions)
	case "none":
		inner = Unavailable{}
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
	return NewCachedEmbedder(inner, cfg.CacheSize), nil
}
