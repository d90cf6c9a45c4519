// Package summarize generates a short title and summary for a topic from note text.
package summarize

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/wadai/internal/openai"
)

const (
	maxTitleRunes   = 120
	maxSummaryRunes = 500
)

// Result holds generated text. Either field may be nil when nothing usable was produced.
type Result struct {
	Title   *string
	Summary *string
}

// Summarizer generates a title and summary from text.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (Result, error)
}

// Noop never generates anything.
type Noop struct{}

// Summarize returns an empty result.
func (Noop) Summarize(context.Context, string) (Result, error) {
	return Result{}, nil
}

// ChatClient is the part of the OpenAI client the summarizer needs.
type ChatClient interface {
	ChatJSON(ctx context.Context, req openai.ChatRequest) (string, error)
}

const systemPrompt = `You are a strict JSON-only assistant. Given a short user note or thought, output ONLY a JSON object ` +
	`with exactly two fields: "title" (a very short topic title, 3-8 words, no quotes inside) and "summary" ` +
	`(one or two sentences summarizing the theme, max 100 words). No other text or commentary.`

// LLMSummarizer asks a chat model for {title, summary}.
type LLMSummarizer struct {
	client ChatClient
	logger *zap.Logger
}

// NewLLMSummarizer returns a summarizer backed by client. logger may be nil.
func NewLLMSummarizer(client ChatClient, logger *zap.Logger) *LLMSummarizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMSummarizer{client: client, logger: logger}
}

type reply struct {
	Title   any `json:"title"`
	Summary any `json:"summary"`
}

// Summarize returns the generated title and summary. Blank text yields an empty
// result without calling the model; request and decode failures are returned.
func (s *LLMSummarizer) Summarize(ctx context.Context, text string) (Result, error) {
	t := strings.TrimSpace(text)
	if t == "" {
		return Result{}, nil
	}

	s.logger.Debug("generating title and summary")
	raw, err := s.client.ChatJSON(ctx, openai.ChatRequest{
		System:      systemPrompt,
		User:        fmt.Sprintf("Generate a topic title and brief summary for this input:\n\"\"\"%s\"\"\"", t),
		Temperature: 0.3,
		MaxTokens:   150,
	})
	if err != nil {
		return Result{}, fmt.Errorf("summary request failed: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Result{}, nil
	}

	var r reply
	if err := openai.DecodeJSONObject(raw, &r); err != nil {
		return Result{}, err
	}
	res := Result{
		Title:   clip(r.Title, maxTitleRunes),
		Summary: clip(r.Summary, maxSummaryRunes),
	}
	s.logger.Debug("generated topic text", zap.Bool("title", res.Title != nil), zap.Bool("summary", res.Summary != nil))
	return res, nil
}

// clip returns the trimmed string cut to n runes, or nil when v is not a non-blank string.
func clip(v any, n int) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if r := []rune(s); len(r) > n {
		s = string(r[:n])
	}
	return &s
}
