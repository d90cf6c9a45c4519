package topic

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/wadai/internal/models"
	"github.com/hyperjump/wadai/internal/summarize"
)

func fillFixture(t *testing.T) *memStore {
	t.Helper()
	complete := seededTopic("complete", []float32{1, 0}, "n1")
	complete.Title = models.StringPtr("Done")
	complete.Summary = models.StringPtr("Has both.")

	noSummary := seededTopic("no-summary", []float32{0, 1}, "n2")
	noSummary.Title = models.StringPtr("Keep me")

	blank := seededTopic("blank", []float32{1, 1}, "n3")
	blank.Title = models.StringPtr("   ")

	orphan := seededTopic("orphan", []float32{1, -1})

	store := newMemStore(complete, noSummary, blank, orphan)
	ctx := context.Background()
	require.NoError(t, store.CreateInput(ctx, &models.Input{ID: "n2", Text: " second note "}))
	require.NoError(t, store.CreateInput(ctx, &models.Input{ID: "n3", Text: "third note"}))
	return store
}

func TestEngine_MissingText(t *testing.T) {
	store := fillFixture(t)
	report, err := NewEngine(store, nil, nil).MissingText(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, report.TotalTopics)
	require.Len(t, report.Entries, 3)
	assert.Equal(t, "no-summary", report.Entries[0].TopicID)
	assert.Equal(t, "second note", report.Entries[0].SourceText)
	assert.Equal(t, "", report.Entries[2].SourceText, "topic without members has no source text")
	assert.Equal(t, 0, store.mutations())
}

func TestEngine_FillMissingText(t *testing.T) {
	store := fillFixture(t)
	summ := &stubSummarizer{}
	report, err := NewEngine(store, nil, summ).FillMissingText(context.Background(), FillOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Updated)
	assert.Equal(t, "no input text available", report.Entries[2].SkipReason)
	assert.Equal(t, []string{"second note", "third note"}, summ.calls)

	byID := map[string]*models.Topic{}
	for _, tp := range store.snapshot() {
		byID[tp.ID] = tp
	}
	assert.Equal(t, "Keep me", byID["no-summary"].TitleOrEmpty(), "existing title is never replaced")
	assert.Equal(t, "S:second note", byID["no-summary"].SummaryOrEmpty())
	assert.Equal(t, "T:third note", byID["blank"].TitleOrEmpty())
	assert.Equal(t, "Done", byID["complete"].TitleOrEmpty())
	assert.Equal(t, 2, store.updates)
}

func TestEngine_FillMissingText_dryRun(t *testing.T) {
	store := fillFixture(t)
	report, err := NewEngine(store, nil, &stubSummarizer{}).FillMissingText(context.Background(), FillOptions{DryRun: true})
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, 2, report.Updated)
	assert.Equal(t, "S:second note", *report.Entries[0].After.Summary)
	assert.Nil(t, report.Entries[0].Before.Summary)
	assert.Equal(t, 0, store.updates)
}

func TestEngine_FillMissingText_overrideText(t *testing.T) {
	store := fillFixture(t)
	summ := &stubSummarizer{}
	_, err := NewEngine(store, nil, summ).FillMissingText(context.Background(), FillOptions{TopicID: "orphan", Text: "manual text"})
	require.NoError(t, err)
	assert.Contains(t, summ.calls, "manual text")

	orphan, err := store.GetTopic(context.Background(), "orphan")
	require.NoError(t, err)
	assert.Equal(t, "T:manual text", orphan.TitleOrEmpty())
}

func TestEngine_FillMissingText_summarizerFailure(t *testing.T) {
	store := fillFixture(t)
	report, err := NewEngine(store, nil, &stubSummarizer{err: errors.New("503")}).FillMissingText(context.Background(), FillOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Updated)
	assert.Equal(t, "summary generation failed", report.Entries[0].SkipReason)
	assert.Equal(t, 0, store.updates)
}

func TestEngine_FillMissingText_nothingGenerated(t *testing.T) {
	store := fillFixture(t)
	report, err := NewEngine(store, nil, &stubSummarizer{result: &summarize.Result{}}).FillMissingText(context.Background(), FillOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Updated)
	assert.Equal(t, "nothing generated", report.Entries[0].SkipReason)
}
