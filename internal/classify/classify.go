// Package classify labels notes as gibberish, thought, idea or task.
package classify

import (
	"context"
	"regexp"
	"strings"

	"github.com/hyperjump/wadai/internal/models"
)

// DefaultGibberishScore is reported for gibberish notes when no better score is known.
const DefaultGibberishScore = 0.95

// Classifier labels a note. It never fails; implementations fall back to rules.
type Classifier interface {
	Classify(ctx context.Context, text string) models.Classification
}

var (
	taskPattern = regexp.MustCompile(`(?i)(schedule|todo|remind|call|email|buy|book|complete|finish|due|tomorrow|by tomorrow|by next)`)
	ideaPattern = regexp.MustCompile(`(?i)(idea|what if|plan|proposal|could be|maybe we)`)
	alnumSpace  = regexp.MustCompile(`[a-zA-Z0-9 ]`)
)

// RuleClassifier classifies with keyword heuristics and needs no network.
type RuleClassifier struct{}

// Classify applies the heuristics in order: emptiness, noise, task words, idea words.
func (RuleClassifier) Classify(_ context.Context, text string) models.Classification {
	t := strings.TrimSpace(text)
	if t == "" {
		return models.Classification{
			Label:          models.CategoryGibberish,
			Confidence:     floatPtr(1),
			Reason:         "Empty or whitespace-only text",
			GibberishScore: floatPtr(DefaultGibberishScore),
		}
	}

	words := len(strings.Fields(t))
	ratio := float64(len(alnumSpace.FindAllStringIndex(t, -1))) / float64(max(1, len(t)))
	if words <= 2 || ratio < 0.5 {
		return models.Classification{
			Label:          models.CategoryGibberish,
			Confidence:     floatPtr(0.95),
			Reason:         "Too short or mostly non-alphanumeric",
			GibberishScore: floatPtr(DefaultGibberishScore),
		}
	}

	switch {
	case taskPattern.MatchString(t):
		return models.Classification{
			Label:      models.CategoryTask,
			Confidence: floatPtr(0.85),
			Reason:     "Imperative or temporal language detected",
		}
	case ideaPattern.MatchString(t):
		return models.Classification{
			Label:      models.CategoryIdea,
			Confidence: floatPtr(0.78),
			Reason:     "Idea-like phrases found",
		}
	default:
		return models.Classification{
			Label:      models.CategoryThought,
			Confidence: floatPtr(0.6),
			Reason:     "Defaulting to thought for free-form text",
		}
	}
}

func floatPtr(f float64) *float64 {
	return &f
}
