package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/wadai/internal/embedding"
	"github.com/hyperjump/wadai/internal/keyword"
	"github.com/hyperjump/wadai/internal/models"
)

type topicList []*models.Topic

func (l topicList) ListTopics(context.Context) ([]*models.Topic, error) { return l, nil }

type failingKeyword struct{}

func (failingKeyword) Search(context.Context, string, int, *keyword.SearchOptions) ([]*keyword.Result, error) {
	return nil, errors.New("index closed")
}

func strPtr(s string) *string { return &s }

func setupEngine(t *testing.T, embedder embedding.Embedder) (*Engine, topicList) {
	t.Helper()
	ctx := context.Background()
	mock := embedding.NewMockEmbedder(384)

	gardenVec, err := mock.Embed(ctx, "tomato seedlings in the greenhouse")
	require.NoError(t, err)
	dentistVec, err := mock.Embed(ctx, "book a dentist checkup")
	require.NoError(t, err)

	topics := topicList{
		{ID: "dentist", Title: strPtr("Dentist visits"), Summary: strPtr("Appointments and checkups."), Embedding: dentistVec},
		{ID: "garden", Embedding: gardenVec},
	}
	idx, err := keyword.NewMemTopicIndex()
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	require.NoError(t, idx.Rebuild(ctx, topics))

	return NewEngine(idx, topics, embedder), topics
}

func TestEngine_Search_keywordAndSemantic(t *testing.T) {
	e, _ := setupEngine(t, embedding.NewMockEmbedder(384))
	ctx := context.Background()

	hits, err := e.Search(ctx, "dentist", 5, nil)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "dentist", hits[0].ID)

	// The garden topic has no title, so only the semantic leg can find it.
	hits, err = e.Search(ctx, "tomato seedlings in the greenhouse", 5, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "garden", hits[0].ID)
	assert.InDelta(t, DefaultSemanticWeight, hits[0].Score, 1e-6)
}

func TestEngine_Search_keywordOnlyWhenEmbeddingUnavailable(t *testing.T) {
	e, _ := setupEngine(t, embedding.Unavailable{})

	hits, err := e.Search(context.Background(), "tomato seedlings in the greenhouse", 5, nil)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = e.Search(context.Background(), "checkups", 5, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "dentist", hits[0].ID)
}

func TestEngine_Search_limit(t *testing.T) {
	e, _ := setupEngine(t, embedding.NewMockEmbedder(384))

	hits, err := e.Search(context.Background(), "dentist", 0, nil)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestEngine_Search_keywordError(t *testing.T) {
	e := NewEngine(failingKeyword{}, topicList{}, nil)

	_, err := e.Search(context.Background(), "anything", 5, nil)
	assert.ErrorContains(t, err, "keyword search failed")
}

func TestEngine_Search_weights(t *testing.T) {
	idx, err := keyword.NewMemTopicIndex()
	require.NoError(t, err)
	defer idx.Close()

	e := NewEngine(idx, topicList{}, embedding.NewMockEmbedder(8), WithWeights(0, 1), WithMinSemanticScore(0.99))
	hits, err := e.Search(context.Background(), "anything", 5, nil)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
