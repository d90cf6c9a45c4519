package classify

import (
	"context"
	"testing"

	"github.com/hyperjump/wadai/internal/models"
)

func TestRuleClassifier(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		want       models.Category
		confidence float64
	}{
		{"empty", "   ", models.CategoryGibberish, 1},
		{"noise", "!!??", models.CategoryGibberish, 0.95},
		{"two words", "hello there", models.CategoryGibberish, 0.95},
		{"mostly symbols", "#$%^ &*() ^^%$ ##@@", models.CategoryGibberish, 0.95},
		{"task", "Schedule dentist appointment tomorrow", models.CategoryTask, 0.85},
		{"task beats idea", "plan to email the landlord", models.CategoryTask, 0.85},
		{"idea", "Idea: start a podcast about city history", models.CategoryIdea, 0.78},
		{"what if", "what if we moved the garden", models.CategoryIdea, 0.78},
		{"thought", "I had an odd dream about the ocean last night", models.CategoryThought, 0.6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RuleClassifier{}.Classify(context.Background(), tt.text)
			if got.Label != tt.want {
				t.Errorf("label = %s, want %s", got.Label, tt.want)
			}
			if got.Confidence == nil || *got.Confidence != tt.confidence {
				t.Errorf("confidence = %v, want %v", got.Confidence, tt.confidence)
			}
			isGibberish := tt.want == models.CategoryGibberish
			if isGibberish != (got.GibberishScore != nil) {
				t.Errorf("gibberish score presence: got %v", got.GibberishScore)
			}
			if isGibberish && *got.GibberishScore != DefaultGibberishScore {
				t.Errorf("gibberish score = %f", *got.GibberishScore)
			}
		})
	}
}
