package search

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/wadai/internal/embedding"
	"github.com/hyperjump/wadai/internal/keyword"
	"github.com/hyperjump/wadai/internal/models"
)

const (
	DefaultKeywordWeight    = 0.5
	DefaultSemanticWeight   = 0.5
	DefaultMinSemanticScore = 0.35
	minCandidates           = 50
)

// KeywordSearcher is the keyword leg of a hybrid search.
type KeywordSearcher interface {
	Search(ctx context.Context, query string, limit int, opts *keyword.SearchOptions) ([]*keyword.Result, error)
}

// TopicLister supplies topics and their embeddings for the semantic leg.
type TopicLister interface {
	ListTopics(ctx context.Context) ([]*models.Topic, error)
}

// Engine runs hybrid (keyword + semantic) search over topics.
type Engine struct {
	keyword        KeywordSearcher
	topics         TopicLister
	embedder       embedding.Embedder
	logger         *zap.Logger
	keywordWeight  float64
	semanticWeight float64
	minSemantic    float64
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithWeights sets the weight of each leg in the fused score.
func WithWeights(keywordWeight, semanticWeight float64) Option {
	return func(e *Engine) {
		e.keywordWeight = keywordWeight
		e.semanticWeight = semanticWeight
	}
}

// WithMinSemanticScore drops semantic candidates below score.
func WithMinSemanticScore(score float64) Option {
	return func(e *Engine) { e.minSemantic = score }
}

// NewEngine creates a search engine. A nil embedder disables the semantic leg.
func NewEngine(kw KeywordSearcher, topics TopicLister, embedder embedding.Embedder, opts ...Option) *Engine {
	if embedder == nil {
		embedder = embedding.Unavailable{}
	}
	e := &Engine{
		keyword:        kw,
		topics:         topics,
		embedder:       embedder,
		logger:         zap.NewNop(),
		keywordWeight:  DefaultKeywordWeight,
		semanticWeight: DefaultSemanticWeight,
		minSemantic:    DefaultMinSemanticScore,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search returns up to limit topic hits for query, best first. The semantic leg
// is skipped when the query cannot be embedded; keyword errors fail the search.
func (e *Engine) Search(ctx context.Context, query string, limit int, opts *keyword.SearchOptions) ([]*keyword.Result, error) {
	if limit <= 0 {
		return nil, nil
	}
	candidates := max(limit*4, minCandidates)

	var (
		keywordResults []*keyword.Result
		semanticScores map[string]float64
	)
	g, gctx := errgroup.WithContext(ctx)
	if e.keywordWeight > 0 {
		g.Go(func() error {
			results, err := e.keyword.Search(gctx, query, candidates, opts)
			if err != nil {
				return fmt.Errorf("keyword search failed: %w", err)
			}
			keywordResults = results
			return nil
		})
	}
	if e.semanticWeight > 0 {
		g.Go(func() error {
			scores, err := e.semantic(gctx, query)
			if err != nil {
				return err
			}
			semanticScores = scores
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := Fuse(NormalizeKeywordScores(keywordResults), semanticScores, e.keywordWeight, e.semanticWeight)
	if len(fused) > limit {
		fused = fused[:limit]
	}
	results := make([]*keyword.Result, len(fused))
	for i, r := range fused {
		results[i] = &keyword.Result{ID: r.TopicID, Score: r.Score}
	}
	return results, nil
}

func (e *Engine) semantic(ctx context.Context, query string) (map[string]float64, error) {
	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		if !errors.Is(err, embedding.ErrUnavailable) {
			e.logger.Warn("query embedding failed; keyword results only", zap.Error(err))
		}
		return nil, nil
	}
	topics, err := e.topics.ListTopics(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	return SemanticScores(vec, topics, e.minSemantic), nil
}
