package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/wadai/internal/keyword"
	"github.com/hyperjump/wadai/internal/models"
)

func TestNormalizeKeywordScores(t *testing.T) {
	results := []*keyword.Result{
		{ID: "a", Score: 2},
		{ID: "b", Score: 4},
		{ID: "c", Score: 1},
	}
	m := NormalizeKeywordScores(results)
	assert.Len(t, m, 3)
	assert.Equal(t, 1.0, m["b"])
	assert.Equal(t, 0.5, m["a"])
	assert.Empty(t, NormalizeKeywordScores(nil))
}

func TestSemanticScores(t *testing.T) {
	topics := []*models.Topic{
		{ID: "same", Embedding: []float32{1, 0}},
		{ID: "orthogonal", Embedding: []float32{0, 1}},
		{ID: "other-dims", Embedding: []float32{1, 0, 0}},
		{ID: "no-embedding"},
	}
	scores := SemanticScores([]float32{1, 0}, topics, 0.5)
	require.Len(t, scores, 1)
	assert.InDelta(t, 1.0, scores["same"], 1e-6)
}

func TestFuse(t *testing.T) {
	kw := map[string]float64{"t1": 1.0, "t2": 0.5}
	sem := map[string]float64{"t2": 1.0, "t3": 0.4}
	results := Fuse(kw, sem, 0.5, 0.5)
	require.Len(t, results, 3)
	assert.Equal(t, "t2", results[0].TopicID)
	assert.InDelta(t, 0.75, results[0].Score, 1e-9)
	assert.Equal(t, "t1", results[1].TopicID)
	assert.Equal(t, "t3", results[2].TopicID)
	assert.Equal(t, 0.4, results[2].SemanticScore)
	assert.Zero(t, results[2].KeywordScore)
}

func TestFuse_tiesOrderedByID(t *testing.T) {
	results := Fuse(map[string]float64{"b": 1, "a": 1}, nil, 1, 1)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].TopicID)
	assert.Equal(t, "b", results[1].TopicID)
}
