package topic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/wadai/internal/models"
	"github.com/hyperjump/wadai/internal/storage"
)

// FillOptions controls FillMissingText.
type FillOptions struct {
	// DryRun reports what would change without writing.
	DryRun bool
	// TopicID and Text override the source text for a single topic.
	TopicID string
	Text    string
}

// TopicText is a title and summary snapshot.
type TopicText struct {
	Title   *string `json:"title"`
	Summary *string `json:"summary"`
}

// FillEntry reports one topic that lacked a title or summary.
type FillEntry struct {
	TopicID    string    `json:"topic_id"`
	SourceText string    `json:"source_text,omitempty"`
	Before     TopicText `json:"before"`
	After      TopicText `json:"after"`
	Updated    bool      `json:"updated"`
	SkipReason string    `json:"skip_reason,omitempty"`
}

// FillReport summarizes a FillMissingText run.
type FillReport struct {
	TotalTopics int         `json:"total_topics"`
	Entries     []FillEntry `json:"entries"`
	Updated     int         `json:"updated"`
	DryRun      bool        `json:"dry_run"`
}

// MissingText lists topics whose title or summary is blank, with the text of
// their first member note when available. Nothing is generated or written.
func (e *Engine) MissingText(ctx context.Context) (*FillReport, error) {
	topics, err := e.store.ListTopics(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	entries, err := e.missingEntries(ctx, topics)
	if err != nil {
		return nil, err
	}
	return &FillReport{TotalTopics: len(topics), Entries: entries, DryRun: true}, nil
}

// FillMissingText generates a title and summary for topics that lack either,
// filling only the missing fields. The source text is the first member note, or
// opts.Text for opts.TopicID. Writes happen under the engine lock.
func (e *Engine) FillMissingText(ctx context.Context, opts FillOptions) (*FillReport, error) {
	if err := e.lock(ctx); err != nil {
		return nil, err
	}
	defer e.unlock()

	topics, err := e.store.ListTopics(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	entries, err := e.missingEntries(ctx, topics)
	if err != nil {
		return nil, err
	}
	report := &FillReport{TotalTopics: len(topics), Entries: entries, DryRun: opts.DryRun}

	byID := make(map[string]*models.Topic, len(topics))
	for _, t := range topics {
		byID[t.ID] = t
	}
	overrideText := strings.TrimSpace(opts.Text)

	for i := range report.Entries {
		entry := &report.Entries[i]
		if opts.TopicID != "" && opts.TopicID == entry.TopicID && overrideText != "" {
			entry.SourceText = overrideText
		}
		if entry.SourceText == "" {
			entry.SkipReason = "no input text available"
			continue
		}
		t := byID[entry.TopicID]

		res, err := e.summarizer.Summarize(ctx, entry.SourceText)
		if err != nil {
			e.logger.Warn("summary generation failed", zap.String("topic_id", t.ID), zap.Error(err))
			entry.SkipReason = "summary generation failed"
			continue
		}
		next := t.Clone()
		changed := false
		if isBlankPtr(next.Title) && res.Title != nil {
			next.Title = res.Title
			changed = true
		}
		if isBlankPtr(next.Summary) && res.Summary != nil {
			next.Summary = res.Summary
			changed = true
		}
		entry.After = TopicText{Title: next.Title, Summary: next.Summary}
		if !changed {
			entry.SkipReason = "nothing generated"
			continue
		}
		entry.Updated = true
		report.Updated++
		if opts.DryRun {
			continue
		}
		if err := e.store.UpdateTopic(ctx, t.ID, next); err != nil {
			return report, fmt.Errorf("failed to update topic %s: %w", t.ID, err)
		}
		e.logger.Info("topic text filled", zap.String("topic_id", t.ID))
	}
	return report, nil
}

func (e *Engine) missingEntries(ctx context.Context, topics []*models.Topic) ([]FillEntry, error) {
	entries := []FillEntry{}
	for _, t := range topics {
		if !t.MissingText() {
			continue
		}
		text, err := e.firstMemberText(ctx, t)
		if err != nil {
			return nil, err
		}
		snapshot := TopicText{Title: t.Title, Summary: t.Summary}
		entries = append(entries, FillEntry{TopicID: t.ID, SourceText: text, Before: snapshot, After: snapshot})
	}
	return entries, nil
}

func (e *Engine) firstMemberText(ctx context.Context, t *models.Topic) (string, error) {
	if len(t.InputIDs) == 0 {
		return "", nil
	}
	in, err := e.store.GetInput(ctx, t.InputIDs[0])
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load note %s: %w", t.InputIDs[0], err)
	}
	return strings.TrimSpace(in.Text), nil
}

func isBlankPtr(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}
