package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/hyperjump/wadai/internal/classify"
	"github.com/hyperjump/wadai/internal/config"
	"github.com/hyperjump/wadai/internal/embedding"
	"github.com/hyperjump/wadai/internal/ingest"
	"github.com/hyperjump/wadai/internal/keyword"
	"github.com/hyperjump/wadai/internal/openai"
	"github.com/hyperjump/wadai/internal/search"
	"github.com/hyperjump/wadai/internal/storage"
	"github.com/hyperjump/wadai/internal/summarize"
	"github.com/hyperjump/wadai/internal/topic"
	"github.com/hyperjump/wadai/internal/vector"
)

// Components holds initialized services.
type Components struct {
	Config       *config.Config
	Storage      storage.Storage
	OpenAI       *openai.Client
	Embedder     embedding.Embedder
	Classifier   classify.Classifier
	Summarizer   summarize.Summarizer
	Engine       *topic.Engine
	KeywordIndex *keyword.TopicIndex
	Search       *search.Engine
	Pipeline     *ingest.Pipeline
	Registry     *prometheus.Registry
}

// Close releases the store, embedder and keyword index.
func (c *Components) Close() {
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func newOpenAIClient(cfg *config.Config, logger *zap.Logger) (*openai.Client, error) {
	client, err := openai.NewClient(openai.Config{
		APIKey:            cfg.OpenAI.APIKey,
		BaseURL:           cfg.OpenAI.BaseURL,
		ChatModel:         cfg.OpenAI.ChatModel,
		EmbeddingModel:    cfg.OpenAI.EmbeddingModel,
		Timeout:           cfg.OpenAI.Timeout,
		RequestsPerSecond: cfg.OpenAI.RequestsPerSecond,
	}, openai.WithLogger(logger))
	if errors.Is(err, openai.ErrNoAPIKey) {
		logger.Warn("OPENAI_API_KEY not set; using rule classifier and no generated topic text")
		return nil, nil
	}
	return client, err
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{Config: cfg, Registry: prometheus.NewRegistry()}
	c.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	ok := false
	defer func() {
		if !ok {
			c.Close()
		}
	}()

	var err error
	c.Storage, err = storage.Open(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	c.OpenAI, err = newOpenAIClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize openai client: %w", err)
	}

	c.Embedder, err = embedding.New(cfg.Embedding, c.OpenAI, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	c.Classifier = classify.RuleClassifier{}
	c.Summarizer = summarize.Noop{}
	if c.OpenAI != nil {
		if cfg.Classifier.Provider == "llm" {
			c.Classifier = classify.NewLLMClassifier(c.OpenAI, logger)
		}
		c.Summarizer = summarize.NewLLMSummarizer(c.OpenAI, logger)
	}

	matcher, err := vector.NewMatcher(cfg.Topics.Matcher)
	if err != nil {
		return nil, err
	}
	c.Engine = topic.NewEngine(c.Storage, c.Embedder, c.Summarizer,
		topic.WithLogger(logger),
		topic.WithThreshold(cfg.Topics.SimilarityThreshold),
		topic.WithDimensions(c.Embedder.Dimensions()),
		topic.WithMatcher(matcher),
		topic.WithMetrics(topic.NewMetrics(c.Registry)),
	)

	c.KeywordIndex, err = keyword.NewTopicIndex(cfg.Storage.KeywordIndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}
	if err := reindexTopics(ctx, c); err != nil {
		return nil, err
	}

	c.Search = search.NewEngine(c.KeywordIndex, c.Storage, c.Embedder, search.WithLogger(logger))

	c.Pipeline = ingest.NewPipeline(c.Storage, c.Classifier, c.Embedder, c.Engine,
		ingest.WithLogger(logger),
		ingest.WithTopicIndex(c.KeywordIndex),
		ingest.WithMetrics(ingest.NewMetrics(c.Registry)),
	)

	logger.Info("components initialized",
		zap.String("storage", cfg.Storage.Backend),
		zap.String("embedding", cfg.Embedding.Provider),
		zap.Int("dimensions", c.Embedder.Dimensions()),
		zap.Bool("llm", c.OpenAI != nil),
		zap.Float64("threshold", c.Engine.Threshold()))
	ok = true
	return c, nil
}

// reindexTopics rebuilds the keyword index from the store, which owns the topics.
func reindexTopics(ctx context.Context, c *Components) error {
	topics, err := c.Storage.ListTopics(ctx)
	if err != nil {
		return fmt.Errorf("failed to list topics for keyword index: %w", err)
	}
	if err := c.KeywordIndex.Rebuild(ctx, topics); err != nil {
		return fmt.Errorf("failed to rebuild keyword index: %w", err)
	}
	return nil
}
