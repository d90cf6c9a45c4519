// Package ingest stores notes and routes them through classification, embedding
// and topic assignment.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/wadai/internal/classify"
	"github.com/hyperjump/wadai/internal/embedding"
	"github.com/hyperjump/wadai/internal/models"
	"github.com/hyperjump/wadai/internal/storage"
	"github.com/hyperjump/wadai/internal/topic"
)

// DefaultGibberishScore is stored for gibberish notes whose classifier gave no score.
const DefaultGibberishScore = 0.9

var (
	// ErrEmptyText is returned when the note text is blank.
	ErrEmptyText = errors.New("text is required")
	// ErrInvalidRequest wraps other request validation failures.
	ErrInvalidRequest = errors.New("invalid request")
)

var validate = validator.New()

// IngestRequest is a note to store. ID is optional; a random uuid is used when empty.
type IngestRequest struct {
	ID   string `json:"id,omitempty" validate:"omitempty,max=128,printascii"`
	Text string `json:"text" validate:"required"`
}

// Assigner places an embedded note into a topic.
type Assigner interface {
	AssignOrCreate(ctx context.Context, emb []float32, noteID, rawText string) (topic.Assignment, error)
}

// TopicIndexer receives newly created topics for keyword search.
type TopicIndexer interface {
	Index(ctx context.Context, t *models.Topic) error
}

// Pipeline ingests notes.
type Pipeline struct {
	store      storage.Storage
	classifier classify.Classifier
	embedder   embedding.Embedder
	assigner   Assigner
	index      TopicIndexer
	metrics    *Metrics
	logger     *zap.Logger
	now        func() time.Time

	// claimed holds note ids with an Ingest in flight.
	claimMu sync.Mutex
	claimed map[string]struct{}
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithTopicIndex indexes topics created during ingestion.
func WithTopicIndex(idx TopicIndexer) Option {
	return func(p *Pipeline) { p.index = idx }
}

// WithMetrics records ingested notes by category.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// NewPipeline creates a pipeline. A nil classifier falls back to the rule
// classifier and a nil embedder stores every note without a topic.
func NewPipeline(store storage.Storage, classifier classify.Classifier, embedder embedding.Embedder, assigner Assigner, opts ...Option) *Pipeline {
	if classifier == nil {
		classifier = classify.RuleClassifier{}
	}
	if embedder == nil {
		embedder = embedding.Unavailable{}
	}
	p := &Pipeline{
		store:      store,
		classifier: classifier,
		embedder:   embedder,
		assigner:   assigner,
		logger:     zap.NewNop(),
		now:        func() time.Time { return time.Now().UTC() },
		claimed:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest classifies, embeds and assigns the note, then stores it. Gibberish is
// stored without an embedding or topic. Notes whose embedding cannot be produced
// are stored without a topic. The stored note is returned.
func (p *Pipeline) Ingest(ctx context.Context, req IngestRequest) (*models.Input, error) {
	req.ID = strings.TrimSpace(req.ID)
	req.Text = strings.TrimSpace(req.Text)
	if err := checkRequest(req); err != nil {
		return nil, err
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	} else {
		if !p.claim(req.ID) {
			return nil, fmt.Errorf("input %s: %w", req.ID, storage.ErrAlreadyExists)
		}
		defer p.release(req.ID)
		if _, err := p.store.GetInput(ctx, req.ID); err == nil {
			return nil, fmt.Errorf("input %s: %w", req.ID, storage.ErrAlreadyExists)
		} else if !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("failed to look up input: %w", err)
		}
	}

	c := p.classifier.Classify(ctx, req.Text)
	in := &models.Input{
		ID:        req.ID,
		Text:      req.Text,
		Category:  c.Label,
		CreatedAt: p.now(),
		IsTask:    c.IsTask,
	}
	if c.ExpandedIdea != "" {
		in.ExpandedIdea = models.StringPtr(c.ExpandedIdea)
	}

	if c.Label == models.CategoryGibberish {
		score := DefaultGibberishScore
		if c.GibberishScore != nil {
			score = *c.GibberishScore
		}
		in.GibberishScore = &score
		p.logger.Debug("gibberish note stored without topic", zap.String("input_id", in.ID))
	} else if err := p.assign(ctx, in); err != nil {
		return nil, err
	}

	if err := p.store.CreateInput(ctx, in); err != nil {
		return nil, fmt.Errorf("failed to store input: %w", err)
	}
	p.metrics.observe(in)
	p.logger.Info("input ingested",
		zap.String("input_id", in.ID),
		zap.String("category", string(in.Category)),
		zap.Stringp("topic_id", in.TopicID))
	return in, nil
}

// claim reserves id for one in-flight Ingest. It reports false when another
// call already holds it.
func (p *Pipeline) claim(id string) bool {
	p.claimMu.Lock()
	defer p.claimMu.Unlock()
	if _, busy := p.claimed[id]; busy {
		return false
	}
	p.claimed[id] = struct{}{}
	return true
}

func (p *Pipeline) release(id string) {
	p.claimMu.Lock()
	delete(p.claimed, id)
	p.claimMu.Unlock()
}

func (p *Pipeline) assign(ctx context.Context, in *models.Input) error {
	emb, err := p.embedder.Embed(ctx, in.Text)
	switch {
	case errors.Is(err, embedding.ErrUnavailable):
		p.logger.Debug("no embedding; storing input without topic", zap.String("input_id", in.ID))
		return nil
	case err != nil:
		p.logger.Warn("embedding failed; storing input without topic", zap.String("input_id", in.ID), zap.Error(err))
		return nil
	case len(emb) == 0:
		return nil
	}
	in.Embedding = emb
	if p.assigner == nil {
		return nil
	}

	a, err := p.assigner.AssignOrCreate(ctx, emb, in.ID, in.Text)
	if err != nil {
		return fmt.Errorf("failed to assign topic: %w", err)
	}
	if !a.Assigned() {
		return nil
	}
	in.TopicID = models.StringPtr(a.TopicID)
	if a.Created {
		p.indexTopic(ctx, a.TopicID)
	}
	return nil
}

func (p *Pipeline) indexTopic(ctx context.Context, id string) {
	if p.index == nil {
		return
	}
	t, err := p.store.GetTopic(ctx, id)
	if err == nil {
		err = p.index.Index(ctx, t)
	}
	if err != nil {
		p.logger.Warn("failed to index new topic", zap.String("topic_id", id), zap.Error(err))
	}
}

func checkRequest(req IngestRequest) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Field() == "Text" {
			return ErrEmptyText
		}
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "printascii":
		return fmt.Sprintf("%s must be printable ascii", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
