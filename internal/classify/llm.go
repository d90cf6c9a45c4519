package classify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/wadai/internal/models"
	"github.com/hyperjump/wadai/internal/openai"
)

// ChatClient is the part of the OpenAI client the LLM classifier needs.
type ChatClient interface {
	ChatJSON(ctx context.Context, req openai.ChatRequest) (string, error)
}

const systemPrompt = `You are a strict JSON-only classifier. Given a text, return ONLY a JSON object with fields: ` +
	`{"label": one of ["gibberish","thought","idea","task"], "confidence": number 0-1, "reason": "one-line explanation", ` +
	`"gibberishScore": optional number 0-1 when label is "gibberish", ` +
	`"expanded_idea": "Reword the input into a clear, complete sentence (max 20 words)", "is_task": boolean }. ` +
	`No extra commentary.`

// LLMClassifier asks a chat model for the label and falls back to RuleClassifier
// on any error or unusable reply.
type LLMClassifier struct {
	client   ChatClient
	fallback Classifier
	logger   *zap.Logger
}

// NewLLMClassifier returns a classifier backed by client. logger may be nil.
func NewLLMClassifier(client ChatClient, logger *zap.Logger) *LLMClassifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMClassifier{client: client, fallback: RuleClassifier{}, logger: logger}
}

type llmReply struct {
	Label          *string  `json:"label"`
	Confidence     *float64 `json:"confidence"`
	Reason         *string  `json:"reason"`
	GibberishScore *float64 `json:"gibberishScore"`
	ExpandedIdea   *string  `json:"expanded_idea"`
	IsTask         *bool    `json:"is_task"`
}

// Classify labels text with the chat model.
func (c *LLMClassifier) Classify(ctx context.Context, text string) models.Classification {
	t := strings.TrimSpace(text)
	if t == "" {
		return c.fallback.Classify(ctx, t)
	}

	raw, err := c.client.ChatJSON(ctx, openai.ChatRequest{
		System:      systemPrompt,
		User:        fmt.Sprintf("Classify the following user input:\n\"\"\"%s\"\"\"", t),
		Temperature: 0,
		MaxTokens:   150,
	})
	if err != nil {
		c.logger.Warn("classification request failed; using rules", zap.Error(err))
		return c.fallback.Classify(ctx, t)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return c.fallback.Classify(ctx, t)
	}

	var reply llmReply
	if err := openai.DecodeJSONObject(raw, &reply); err != nil || reply.Label == nil || *reply.Label == "" {
		c.logger.Warn("unusable classification reply; using rules", zap.String("reply", raw))
		return c.fallback.Classify(ctx, t)
	}

	out := models.Classification{
		Label: models.ParseCategory(strings.ToLower(*reply.Label)),
	}
	if reply.Confidence != nil && *reply.Confidence >= 0 && *reply.Confidence <= 1 {
		out.Confidence = reply.Confidence
	}
	if reply.Reason != nil {
		out.Reason = *reply.Reason
	}
	if reply.ExpandedIdea != nil {
		out.ExpandedIdea = *reply.ExpandedIdea
	}
	if reply.IsTask != nil {
		out.IsTask = *reply.IsTask
	}
	if out.Label == models.CategoryGibberish {
		out.GibberishScore = floatPtr(DefaultGibberishScore)
		if reply.GibberishScore != nil && *reply.GibberishScore >= 0 {
			out.GibberishScore = reply.GibberishScore
		}
	}
	return out
}
