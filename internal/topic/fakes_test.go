package topic

import (
	"context"
	"fmt"
	"sync"

	"github.com/hyperjump/wadai/internal/models"
	"github.com/hyperjump/wadai/internal/storage"
	"github.com/hyperjump/wadai/internal/summarize"
)

// memStore is an in-memory storage.Storage that copies records on the way in and
// out, counts calls, and can be told to fail.
type memStore struct {
	mu      sync.Mutex
	topics  []*models.Topic
	inputs  map[string]*models.Input
	lists   int
	creates int
	updates int

	listErr   error
	createErr error
	updateErr error
}

func newMemStore(topics ...*models.Topic) *memStore {
	s := &memStore{inputs: map[string]*models.Input{}}
	for _, t := range topics {
		s.topics = append(s.topics, t.Clone())
	}
	return s
}

func (s *memStore) ListTopics(ctx context.Context) ([]*models.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists++
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]*models.Topic, len(s.topics))
	for i, t := range s.topics {
		out[i] = t.Clone()
	}
	return out, nil
}

func (s *memStore) GetTopic(ctx context.Context, id string) (*models.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.topics {
		if t.ID == id {
			return t.Clone(), nil
		}
	}
	return nil, fmt.Errorf("topic %s: %w", id, storage.ErrNotFound)
}

func (s *memStore) CreateTopic(ctx context.Context, topic *models.Topic) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	if s.createErr != nil {
		return s.createErr
	}
	s.topics = append(s.topics, topic.Clone())
	return nil
}

func (s *memStore) UpdateTopic(ctx context.Context, id string, topic *models.Topic) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++
	if s.updateErr != nil {
		return s.updateErr
	}
	for i, t := range s.topics {
		if t.ID == id {
			s.topics[i] = topic.Clone()
			return nil
		}
	}
	return fmt.Errorf("topic %s: %w", id, storage.ErrNotFound)
}

func (s *memStore) CreateInput(ctx context.Context, input *models.Input) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *input
	s.inputs[input.ID] = &cp
	return nil
}

func (s *memStore) GetInput(ctx context.Context, id string) (*models.Input, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.inputs[id]
	if !ok {
		return nil, fmt.Errorf("input %s: %w", id, storage.ErrNotFound)
	}
	cp := *in
	return &cp, nil
}

func (s *memStore) ListInputs(ctx context.Context, offset, limit int) ([]*models.Input, error) {
	return nil, nil
}

func (s *memStore) CountTopics(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.topics)), nil
}

func (s *memStore) CountInputs(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.inputs)), nil
}

func (s *memStore) Close() error { return nil }

func (s *memStore) snapshot() []*models.Topic {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Topic, len(s.topics))
	for i, t := range s.topics {
		out[i] = t.Clone()
	}
	return out
}

func (s *memStore) mutations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creates + s.updates
}

// mapEmbedder returns fixed vectors per text.
type mapEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	err     error
	calls   []string
}

func (e *mapEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, text)
	if e.err != nil {
		return nil, e.err
	}
	v, ok := e.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no vector for %q", text)
	}
	return v, nil
}

func (e *mapEmbedder) Dimensions() int { return 0 }
func (e *mapEmbedder) Close() error    { return nil }

// stubSummarizer returns title "T:<text>" and summary "S:<text>" unless configured otherwise.
type stubSummarizer struct {
	mu     sync.Mutex
	result *summarize.Result
	err    error
	calls  []string
}

func (s *stubSummarizer) Summarize(ctx context.Context, text string) (summarize.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, text)
	if s.err != nil {
		if s.result != nil {
			return *s.result, s.err
		}
		return summarize.Result{}, s.err
	}
	if s.result != nil {
		return *s.result, nil
	}
	return summarize.Result{Title: models.StringPtr("T:" + text), Summary: models.StringPtr("S:" + text)}, nil
}

// blockingSummarizer signals entered and then waits for release.
type blockingSummarizer struct {
	entered chan struct{}
	release chan struct{}
}

func (s *blockingSummarizer) Summarize(ctx context.Context, text string) (summarize.Result, error) {
	close(s.entered)
	<-s.release
	return summarize.Result{}, nil
}
