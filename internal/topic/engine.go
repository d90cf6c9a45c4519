// Package topic assigns notes to topics incrementally. Each note embedding either
// merges into the most similar existing topic or starts a new one.
package topic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/hyperjump/wadai/internal/config"
	"github.com/hyperjump/wadai/internal/embedding"
	"github.com/hyperjump/wadai/internal/models"
	"github.com/hyperjump/wadai/internal/storage"
	"github.com/hyperjump/wadai/internal/summarize"
	"github.com/hyperjump/wadai/internal/vector"
)

// Assignment is the outcome of AssignOrCreate.
type Assignment struct {
	TopicID    string
	Created    bool
	Similarity float64
}

// Assigned reports whether a topic was touched.
func (a Assignment) Assigned() bool {
	return a.TopicID != ""
}

// Engine owns topic writes. A one-slot semaphore serializes every read-modify-write
// of the topic collection within the process; waiters give up when their context ends.
type Engine struct {
	store      storage.Storage
	embedder   embedding.Embedder
	summarizer summarize.Summarizer
	matcher    vector.Matcher
	threshold  float64
	dimensions int
	metrics    *Metrics
	logger     *zap.Logger
	now        func() time.Time

	writeLock *semaphore.Weighted
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithThreshold sets the minimum similarity for merging into an existing topic.
func WithThreshold(t float64) EngineOption {
	return func(e *Engine) { e.threshold = t }
}

// WithDimensions makes AssignOrCreate reject embeddings of any other length. 0 disables the check.
func WithDimensions(n int) EngineOption {
	return func(e *Engine) { e.dimensions = n }
}

// WithMatcher replaces the linear best-match scan.
func WithMatcher(m vector.Matcher) EngineOption {
	return func(e *Engine) { e.matcher = m }
}

// WithMetrics records assignment outcomes.
func WithMetrics(m *Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates an engine. embedder and summarizer may be nil, in which case
// topics are created without generated text and keep the note embedding.
func NewEngine(store storage.Storage, embedder embedding.Embedder, summarizer summarize.Summarizer, opts ...EngineOption) *Engine {
	if embedder == nil {
		embedder = embedding.Unavailable{}
	}
	if summarizer == nil {
		summarizer = summarize.Noop{}
	}
	e := &Engine{
		store:      store,
		embedder:   embedder,
		summarizer: summarizer,
		matcher:    vector.NewLinearMatcher(),
		threshold:  config.DefaultSimilarityThreshold,
		logger:     zap.NewNop(),
		now:        func() time.Time { return time.Now().UTC() },
		writeLock:  semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// lock takes the collection lock, or returns ctx.Err() if ctx ends first.
func (e *Engine) lock(ctx context.Context) error {
	if err := e.writeLock.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("waiting for topic lock: %w", err)
	}
	return nil
}

func (e *Engine) unlock() {
	e.writeLock.Release(1)
}

// Threshold returns the merge threshold.
func (e *Engine) Threshold() float64 {
	return e.threshold
}

// AssignOrCreate merges noteID into the most similar topic at or above the
// threshold, or creates a new topic for it. rawText seeds the generated title and
// summary of a new topic. An empty embedding is a no-op and returns a zero Assignment.
func (e *Engine) AssignOrCreate(ctx context.Context, emb []float32, noteID, rawText string) (Assignment, error) {
	if len(emb) == 0 {
		e.metrics.observeSkipped()
		return Assignment{}, nil
	}
	if e.dimensions > 0 && len(emb) != e.dimensions {
		return Assignment{}, &vector.DimensionMismatchError{Expected: e.dimensions, Actual: len(emb)}
	}

	if err := e.lock(ctx); err != nil {
		return Assignment{}, err
	}
	defer e.unlock()

	topics, err := e.store.ListTopics(ctx)
	if err != nil {
		return Assignment{}, fmt.Errorf("failed to list topics: %w", err)
	}

	match, found, err := e.bestMatch(ctx, emb, topics)
	if err != nil {
		return Assignment{}, err
	}
	if found {
		return e.merge(ctx, topics[match.Index], emb, noteID, match.Score)
	}
	return e.create(ctx, emb, noteID, rawText)
}

// bestMatch scans comparable topics. Match.Index refers to topics.
func (e *Engine) bestMatch(ctx context.Context, emb []float32, topics []*models.Topic) (vector.Match, bool, error) {
	candidates := make([]vector.Candidate, 0, len(topics))
	positions := make([]int, 0, len(topics))
	for i, t := range topics {
		if !vector.Comparable(t.Embedding, emb) {
			e.logger.Warn("skipping topic with mismatched embedding dimension",
				zap.String("topic_id", t.ID),
				zap.Int("topic_dimensions", len(t.Embedding)),
				zap.Int("input_dimensions", len(emb)))
			continue
		}
		candidates = append(candidates, vector.Candidate{ID: t.ID, Vector: t.Embedding})
		positions = append(positions, i)
	}

	match, found, err := e.matcher.BestMatch(ctx, emb, candidates, e.threshold)
	if err != nil {
		return vector.Match{}, false, fmt.Errorf("best match: %w", err)
	}
	if found {
		match.Index = positions[match.Index]
	}
	return match, found, nil
}

func (e *Engine) merge(ctx context.Context, existing *models.Topic, emb []float32, noteID string, score float64) (Assignment, error) {
	t := existing.Clone()
	t.InputIDs = append(t.InputIDs, noteID)
	t.Embedding = vector.AverageEmbeddings(t.Embedding, emb, len(t.InputIDs))
	t.Stats.LifetimeSize++
	t.Stats.Activity7d++

	if err := e.store.UpdateTopic(ctx, t.ID, t); err != nil {
		return Assignment{}, fmt.Errorf("failed to update topic %s: %w", t.ID, err)
	}
	e.metrics.observeMerged(score)
	e.logger.Debug("note merged into topic",
		zap.String("topic_id", t.ID),
		zap.String("note_id", noteID),
		zap.Float64("similarity", score),
		zap.Int("members", len(t.InputIDs)))
	return Assignment{TopicID: t.ID, Similarity: score}, nil
}

func (e *Engine) create(ctx context.Context, emb []float32, noteID, rawText string) (Assignment, error) {
	t := &models.Topic{
		ID:        uuid.New().String(),
		Embedding: append([]float32(nil), emb...),
		InputIDs:  []string{noteID},
		CreatedAt: e.now(),
		Stats:     models.NewTopicStats(),
	}

	if strings.TrimSpace(rawText) != "" {
		res, err := e.summarizer.Summarize(ctx, rawText)
		if err != nil {
			e.logger.Warn("topic summary generation failed", zap.String("topic_id", t.ID), zap.Error(err))
		} else {
			t.Title = res.Title
			t.Summary = res.Summary
		}
		if t.Summary != nil {
			e.useSummaryEmbedding(ctx, t)
		}
	}

	if err := e.store.CreateTopic(ctx, t); err != nil {
		return Assignment{}, fmt.Errorf("failed to create topic: %w", err)
	}
	e.metrics.observeCreated()
	e.logger.Debug("topic created",
		zap.String("topic_id", t.ID),
		zap.String("note_id", noteID),
		zap.Bool("has_title", t.Title != nil))
	return Assignment{TopicID: t.ID, Created: true}, nil
}

// useSummaryEmbedding replaces the topic embedding with the embedding of its summary
// when one of the same dimension can be produced.
func (e *Engine) useSummaryEmbedding(ctx context.Context, t *models.Topic) {
	summaryEmb, err := e.embedder.Embed(ctx, *t.Summary)
	switch {
	case errors.Is(err, embedding.ErrUnavailable):
		return
	case err != nil:
		e.logger.Warn("summary embedding failed; keeping note embedding", zap.String("topic_id", t.ID), zap.Error(err))
		return
	case len(summaryEmb) != len(t.Embedding):
		e.logger.Warn("summary embedding has different dimension; keeping note embedding",
			zap.String("topic_id", t.ID),
			zap.Int("summary_dimensions", len(summaryEmb)),
			zap.Int("topic_dimensions", len(t.Embedding)))
		return
	}
	t.Embedding = summaryEmb
}
