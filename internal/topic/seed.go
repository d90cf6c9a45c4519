package topic

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/wadai/internal/embedding"
	"github.com/hyperjump/wadai/internal/models"
	"github.com/hyperjump/wadai/internal/storage"
	"github.com/hyperjump/wadai/internal/summarize"
)

// DefaultConcepts are anchor themes used when no seed file is configured.
var DefaultConcepts = []string{
	"I need to buy groceries for the week, milk, eggs, and bread.",
	"We should build a new feature for the app that allows users to collaborate.",
	"Remember to call the dentist for an appointment next Tuesday.",
	"What if we used a graph database instead of a relational one?",
	"Plan the team building event for next month, maybe bowling or karaoke.",
}

// SeedResult reports what happened to one concept.
type SeedResult struct {
	Concept    string `json:"concept"`
	TopicID    string `json:"topic_id,omitempty"`
	Title      string `json:"title,omitempty"`
	SkipReason string `json:"skip_reason,omitempty"`
}

// Seeder creates anchor topics from free-text concepts. Anchors have a generated
// title and summary, the summary embedding, no members and zeroed activity stats.
type Seeder struct {
	store       storage.Storage
	embedder    embedding.Embedder
	summarizer  summarize.Summarizer
	concurrency int
	logger      *zap.Logger
}

// NewSeeder creates a seeder that generates up to concurrency concepts at a time.
func NewSeeder(store storage.Storage, embedder embedding.Embedder, summarizer summarize.Summarizer, concurrency int, logger *zap.Logger) *Seeder {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{store: store, embedder: embedder, summarizer: summarizer, concurrency: concurrency, logger: logger}
}

// Seed generates and stores an anchor topic per concept. Generation runs
// concurrently; topics are stored in concept order. Concepts whose title, summary
// or embedding cannot be produced are skipped. Store errors abort the run.
func (s *Seeder) Seed(ctx context.Context, concepts []string) ([]SeedResult, error) {
	results := make([]SeedResult, len(concepts))
	topics := make([]*models.Topic, len(concepts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, concept := range concepts {
		results[i].Concept = concept
		g.Go(func() error {
			t, reason := s.generate(gctx, concept)
			topics[i] = t
			results[i].SkipReason = reason
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, t := range topics {
		if t == nil {
			s.logger.Warn("skipping seed concept", zap.String("concept", concepts[i]), zap.String("reason", results[i].SkipReason))
			continue
		}
		if err := s.store.CreateTopic(ctx, t); err != nil {
			return results, fmt.Errorf("failed to store seed topic: %w", err)
		}
		results[i].TopicID = t.ID
		results[i].Title = t.TitleOrEmpty()
		s.logger.Info("seed topic created", zap.String("topic_id", t.ID), zap.String("title", t.TitleOrEmpty()))
	}
	return results, nil
}

func (s *Seeder) generate(ctx context.Context, concept string) (*models.Topic, string) {
	if strings.TrimSpace(concept) == "" {
		return nil, "empty concept"
	}
	res, err := s.summarizer.Summarize(ctx, concept)
	if err != nil {
		s.logger.Warn("seed summary failed", zap.String("concept", concept), zap.Error(err))
		return nil, "could not generate title and summary"
	}
	if res.Title == nil || res.Summary == nil {
		return nil, "could not generate title and summary"
	}
	emb, err := s.embedder.Embed(ctx, *res.Summary)
	if err != nil || len(emb) == 0 {
		return nil, "could not embed summary"
	}
	return &models.Topic{
		ID:        uuid.New().String(),
		Title:     res.Title,
		Summary:   res.Summary,
		Embedding: emb,
		InputIDs:  []string{},
		CreatedAt: time.Now().UTC(),
		Stats:     models.TopicStats{RecencyStrength: 1.0},
	}, ""
}

// ReadConcepts reads one concept per non-blank line; lines starting with '#' are ignored.
func ReadConcepts(r io.Reader) ([]string, error) {
	var concepts []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		concepts = append(concepts, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read concepts: %w", err)
	}
	return concepts, nil
}
