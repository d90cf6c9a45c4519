// Package search ranks topics for a free-text query by fusing keyword and
// semantic scores.
package search

import (
	"sort"

	"github.com/hyperjump/wadai/internal/keyword"
	"github.com/hyperjump/wadai/internal/models"
	"github.com/hyperjump/wadai/internal/vector"
)

// FusedResult holds a topic ID and its fused keyword/semantic scores.
type FusedResult struct {
	TopicID       string
	Score         float64
	KeywordScore  float64
	SemanticScore float64
}

// NormalizeKeywordScores normalizes keyword scores to [0,1] by max.
func NormalizeKeywordScores(results []*keyword.Result) map[string]float64 {
	normalized := make(map[string]float64, len(results))
	if len(results) == 0 {
		return normalized
	}
	maxScore := results[0].Score
	for _, r := range results {
		maxScore = max(maxScore, r.Score)
	}
	for _, r := range results {
		if maxScore > 0 {
			normalized[r.ID] = r.Score / maxScore
		} else {
			normalized[r.ID] = 0
		}
	}
	return normalized
}

// SemanticScores returns the cosine similarity of query to every topic embedding
// that is comparable with it and scores at least minScore.
func SemanticScores(query []float32, topics []*models.Topic, minScore float64) map[string]float64 {
	scores := make(map[string]float64)
	for _, t := range topics {
		if !vector.Comparable(query, t.Embedding) {
			continue
		}
		if s := vector.CosineSimilarity(query, t.Embedding); s >= minScore {
			scores[t.ID] = s
		}
	}
	return scores
}

// Fuse merges keyword and semantic score maps with weights and returns results
// sorted by score, ties broken by topic ID.
func Fuse(keywordScores, semanticScores map[string]float64, keywordWeight, semanticWeight float64) []*FusedResult {
	scoreMap := make(map[string]*FusedResult, len(keywordScores)+len(semanticScores))
	for id, score := range keywordScores {
		scoreMap[id] = &FusedResult{TopicID: id, KeywordScore: score}
	}
	for id, score := range semanticScores {
		if r, ok := scoreMap[id]; ok {
			r.SemanticScore = score
		} else {
			scoreMap[id] = &FusedResult{TopicID: id, SemanticScore: score}
		}
	}
	results := make([]*FusedResult, 0, len(scoreMap))
	for _, r := range scoreMap {
		r.Score = keywordWeight*r.KeywordScore + semanticWeight*r.SemanticScore
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].TopicID < results[j].TopicID
	})
	return results
}
