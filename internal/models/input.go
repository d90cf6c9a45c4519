package models

import "time"

// Category is the label assigned to a note by the classifier.
type Category string

const (
	CategoryGibberish Category = "gibberish"
	CategoryThought   Category = "thought"
	CategoryIdea      Category = "idea"
	CategoryTask      Category = "task"
)

// ParseCategory normalizes a label to one of the known categories. Unknown labels map to thought.
func ParseCategory(label string) Category {
	switch c := Category(label); c {
	case CategoryGibberish, CategoryThought, CategoryIdea, CategoryTask:
		return c
	default:
		return CategoryThought
	}
}

// Classification is the result of classifying a note.
type Classification struct {
	Label          Category `json:"label"`
	Confidence     *float64 `json:"confidence,omitempty"`
	Reason         string   `json:"reason,omitempty"`
	GibberishScore *float64 `json:"gibberishScore,omitempty"`
	ExpandedIdea   string   `json:"expanded_idea,omitempty"`
	IsTask         bool     `json:"is_task"`
}

// Input is a stored note together with its classification and topic assignment.
type Input struct {
	ID             string    `json:"id"`
	Text           string    `json:"text"`
	Category       Category  `json:"category"`
	CreatedAt      time.Time `json:"created_at"`
	Embedding      []float32 `json:"embedding"`
	TopicID        *string   `json:"topicId"`
	ExpandedIdea   *string   `json:"expanded_idea"`
	IsTask         bool      `json:"is_task"`
	GibberishScore *float64  `json:"gibberishScore,omitempty"`
}
