package config

import "time"

// DefaultSimilarityThreshold is the minimum cosine similarity for a note to join an existing topic.
const DefaultSimilarityThreshold = 0.83

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3000
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "sqlite"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/wadai/data/db/wadai.db"
	}
	if cfg.Storage.JSONServerURL == "" {
		cfg.Storage.JSONServerURL = "http://localhost:4000"
	}
	if cfg.Storage.KeywordIndexPath == "" {
		cfg.Storage.KeywordIndexPath = "/usr/local/var/wadai/data/indices/topics.bleve"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "openai"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/wadai/data/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		switch cfg.Embedding.Provider {
		case "openai":
			cfg.Embedding.Dimensions = 1536
		case "onnx", "mock":
			cfg.Embedding.Dimensions = 384
		}
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.OpenAI.BaseURL == "" {
		cfg.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.OpenAI.ChatModel == "" {
		cfg.OpenAI.ChatModel = "gpt-4o-mini"
	}
	if cfg.OpenAI.EmbeddingModel == "" {
		cfg.OpenAI.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.OpenAI.Timeout == 0 {
		cfg.OpenAI.Timeout = 30 * time.Second
	}
	if cfg.OpenAI.RequestsPerSecond == 0 {
		cfg.OpenAI.RequestsPerSecond = 5
	}
	if cfg.Classifier.Provider == "" {
		cfg.Classifier.Provider = "llm"
	}
	if cfg.Topics.SimilarityThreshold == 0 {
		cfg.Topics.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if cfg.Topics.Matcher == "" {
		cfg.Topics.Matcher = "linear"
	}
	if cfg.Topics.SeedConcurrency == 0 {
		cfg.Topics.SeedConcurrency = 4
	}
	if cfg.Inbox.Extensions == nil {
		cfg.Inbox.Extensions = []string{".txt", ".md"}
	}
}
