package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hyperjump/wadai/internal/models"
)

const (
	topicsCollection = "topics"
	inputsCollection = "inputs"
)

// JSONServerStorage implements Storage against a json-server style REST API
// where each collection is served at /{collection} and /{collection}/{id}.
type JSONServerStorage struct {
	baseURL string
	http    *http.Client
}

// NewJSONServerStorage returns a store for the API at baseURL. hc may be nil.
func NewJSONServerStorage(baseURL string, hc *http.Client) (*JSONServerStorage, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid json server url: %q", baseURL)
	}
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &JSONServerStorage{baseURL: strings.TrimRight(baseURL, "/"), http: hc}, nil
}

// ListTopics returns every topic in the order the server keeps them.
func (s *JSONServerStorage) ListTopics(ctx context.Context) ([]*models.Topic, error) {
	topics := make([]*models.Topic, 0)
	if err := s.do(ctx, http.MethodGet, "/"+topicsCollection, nil, &topics); err != nil {
		return nil, err
	}
	for _, t := range topics {
		if t.InputIDs == nil {
			t.InputIDs = []string{}
		}
	}
	return topics, nil
}

// GetTopic returns a topic by ID.
func (s *JSONServerStorage) GetTopic(ctx context.Context, id string) (*models.Topic, error) {
	var t models.Topic
	if err := s.do(ctx, http.MethodGet, itemPath(topicsCollection, id), nil, &t); err != nil {
		return nil, fmt.Errorf("topic %s: %w", id, err)
	}
	return &t, nil
}

// CreateTopic posts a topic. CreatedAt is set when zero.
func (s *JSONServerStorage) CreateTopic(ctx context.Context, topic *models.Topic) error {
	if topic.CreatedAt.IsZero() {
		topic.CreatedAt = time.Now().UTC()
	}
	if topic.InputIDs == nil {
		topic.InputIDs = []string{}
	}
	return s.do(ctx, http.MethodPost, "/"+topicsCollection, topic, nil)
}

// UpdateTopic replaces the topic with the given ID.
func (s *JSONServerStorage) UpdateTopic(ctx context.Context, id string, topic *models.Topic) error {
	if err := s.do(ctx, http.MethodPut, itemPath(topicsCollection, id), topic, nil); err != nil {
		return fmt.Errorf("topic %s: %w", id, err)
	}
	return nil
}

// CreateInput posts a note. CreatedAt is set when zero.
func (s *JSONServerStorage) CreateInput(ctx context.Context, input *models.Input) error {
	if input.CreatedAt.IsZero() {
		input.CreatedAt = time.Now().UTC()
	}
	return s.do(ctx, http.MethodPost, "/"+inputsCollection, input, nil)
}

// GetInput returns a note by ID.
func (s *JSONServerStorage) GetInput(ctx context.Context, id string) (*models.Input, error) {
	var in models.Input
	if err := s.do(ctx, http.MethodGet, itemPath(inputsCollection, id), nil, &in); err != nil {
		return nil, fmt.Errorf("input %s: %w", id, err)
	}
	return &in, nil
}

// ListInputs returns notes in server order with pagination applied client-side.
func (s *JSONServerStorage) ListInputs(ctx context.Context, offset, limit int) ([]*models.Input, error) {
	inputs := make([]*models.Input, 0)
	if err := s.do(ctx, http.MethodGet, "/"+inputsCollection, nil, &inputs); err != nil {
		return nil, err
	}
	if offset >= len(inputs) {
		return []*models.Input{}, nil
	}
	inputs = inputs[offset:]
	if limit > 0 && limit < len(inputs) {
		inputs = inputs[:limit]
	}
	return inputs, nil
}

// CountTopics returns the number of topics.
func (s *JSONServerStorage) CountTopics(ctx context.Context) (int64, error) {
	topics, err := s.ListTopics(ctx)
	return int64(len(topics)), err
}

// CountInputs returns the number of notes.
func (s *JSONServerStorage) CountInputs(ctx context.Context) (int64, error) {
	var inputs []json.RawMessage
	if err := s.do(ctx, http.MethodGet, "/"+inputsCollection, nil, &inputs); err != nil {
		return 0, err
	}
	return int64(len(inputs)), nil
}

// Close is a no-op.
func (s *JSONServerStorage) Close() error {
	return nil
}

func itemPath(collection, id string) string {
	return "/" + collection + "/" + url.PathEscape(id)
}

func (s *JSONServerStorage) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s: %w", method, path, err)
	}
	return nil
}
