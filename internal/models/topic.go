// Package models defines core data structures for topics, notes, and classifications.
package models

import "time"

// TopicStats holds engagement counters for a topic. The topic engine only
// increments LifetimeSize and Activity7d; the rest are owned elsewhere.
type TopicStats struct {
	LifetimeSize    int     `json:"lifetime_size"`
	Activity7d      int     `json:"activity_7d"`
	CompletionCount int     `json:"completion_count"`
	ExecutionRatio  float64 `json:"execution_ratio"`
	RecencyStrength float64 `json:"recency_strength"`
}

// NewTopicStats returns the stats of a topic seeded with a single member.
func NewTopicStats() TopicStats {
	return TopicStats{
		LifetimeSize:    1,
		Activity7d:      1,
		CompletionCount: 0,
		ExecutionRatio:  0,
		RecencyStrength: 1.0,
	}
}

// Topic is an evolving cluster of related notes represented by a centroid-like embedding.
type Topic struct {
	ID        string     `json:"id"`
	Title     *string    `json:"title"`
	Summary   *string    `json:"summary"`
	Embedding []float32  `json:"embedding"`
	InputIDs  []string   `json:"inputIds"`
	CreatedAt time.Time  `json:"created_at"`
	Stats     TopicStats `json:"stats"`
}

// Clone returns a deep copy so callers can mutate it without touching shared state.
func (t *Topic) Clone() *Topic {
	if t == nil {
		return nil
	}
	c := *t
	if t.Title != nil {
		title := *t.Title
		c.Title = &title
	}
	if t.Summary != nil {
		summary := *t.Summary
		c.Summary = &summary
	}
	if t.Embedding != nil {
		c.Embedding = make([]float32, len(t.Embedding))
		copy(c.Embedding, t.Embedding)
	}
	if t.InputIDs != nil {
		c.InputIDs = make([]string, len(t.InputIDs))
		copy(c.InputIDs, t.InputIDs)
	}
	return &c
}

// TitleOrEmpty returns the title, or "" when it has not been generated yet.
func (t *Topic) TitleOrEmpty() string {
	if t.Title == nil {
		return ""
	}
	return *t.Title
}

// SummaryOrEmpty returns the summary, or "" when it has not been generated yet.
func (t *Topic) SummaryOrEmpty() string {
	if t.Summary == nil {
		return ""
	}
	return *t.Summary
}

// MissingText reports whether the title or the summary is absent or blank.
func (t *Topic) MissingText() bool {
	return isBlank(t.Title) || isBlank(t.Summary)
}

func isBlank(s *string) bool {
	if s == nil {
		return true
	}
	for _, r := range *s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
