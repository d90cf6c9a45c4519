// Package cli formats wadai results for the terminal.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hyperjump/wadai/internal/models"
	"github.com/hyperjump/wadai/internal/topic"
	"github.com/hyperjump/wadai/pkg/utils"
)

// OutputFormat selects how results are written.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is indented JSON for other programs.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat maps a flag value to a format. Unknown values are an error.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use text or json)", s)
	}
}

const rule = "─────────────────────────────────────────────────────────"

// TopicRow is the listing view of a topic, without its embedding.
type TopicRow struct {
	ID        string    `json:"id"`
	Title     *string   `json:"title"`
	Summary   *string   `json:"summary"`
	Members   int       `json:"members"`
	CreatedAt time.Time `json:"created_at"`
}

func rows(topics []*models.Topic) []TopicRow {
	out := make([]TopicRow, len(topics))
	for i, t := range topics {
		out[i] = TopicRow{
			ID:        t.ID,
			Title:     t.Title,
			Summary:   t.Summary,
			Members:   len(t.InputIDs),
			CreatedAt: t.CreatedAt,
		}
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(untitled)"
	}
	return s
}

// WriteTopics writes a topic listing.
func WriteTopics(w io.Writer, topics []*models.Topic, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, rows(topics))
	}
	fmt.Fprintf(w, "%d topic(s)\n", len(topics))
	for _, r := range rows(topics) {
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "%s  [%d note(s)]\n", orPlaceholder(deref(r.Title)), r.Members)
		fmt.Fprintf(w, "ID: %s\n", r.ID)
		if s := deref(r.Summary); s != "" {
			fmt.Fprintf(w, "%s\n", utils.Truncate(s, 160))
		}
	}
	return nil
}

// WriteTopic writes one topic in full. The embedding is only included in JSON.
func WriteTopic(w io.Writer, t *models.Topic, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, t)
	}
	fmt.Fprintf(w, "Title:    %s\n", orPlaceholder(t.TitleOrEmpty()))
	fmt.Fprintf(w, "ID:       %s\n", t.ID)
	fmt.Fprintf(w, "Created:  %s\n", t.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Members:  %d\n", len(t.InputIDs))
	fmt.Fprintf(w, "Activity: lifetime %d, 7d %d, recency %.2f\n",
		t.Stats.LifetimeSize, t.Stats.Activity7d, t.Stats.RecencyStrength)
	if s := t.SummaryOrEmpty(); s != "" {
		fmt.Fprintf(w, "\n%s\n", s)
	}
	if len(t.InputIDs) > 0 {
		fmt.Fprintln(w, "\nNotes:")
		for _, id := range t.InputIDs {
			fmt.Fprintf(w, "  - %s\n", id)
		}
	}
	return nil
}

// WriteInput writes a stored note.
func WriteInput(w io.Writer, in *models.Input, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, in)
	}
	fmt.Fprintf(w, "Stored note %s (%s)\n", in.ID, in.Category)
	if in.TopicID != nil {
		fmt.Fprintf(w, "Topic: %s\n", *in.TopicID)
	} else {
		fmt.Fprintln(w, "Topic: none")
	}
	return nil
}

// WriteFillReport writes the outcome of filling missing topic text.
func WriteFillReport(w io.Writer, r *topic.FillReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, r)
	}
	mode := ""
	if r.DryRun {
		mode = " (dry run)"
	}
	fmt.Fprintf(w, "%d of %d topic(s) missing a title or summary; %d updated%s\n",
		len(r.Entries), r.TotalTopics, r.Updated, mode)
	for _, e := range r.Entries {
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "ID: %s\n", e.TopicID)
		if e.SourceText != "" {
			fmt.Fprintf(w, "Source:  %s\n", utils.Truncate(e.SourceText, 80))
		}
		fmt.Fprintf(w, "Title:   %q -> %q\n", deref(e.Before.Title), deref(e.After.Title))
		fmt.Fprintf(w, "Summary: %q -> %q\n", utils.Truncate(deref(e.Before.Summary), 80), utils.Truncate(deref(e.After.Summary), 80))
		if e.SkipReason != "" {
			fmt.Fprintf(w, "Skipped: %s\n", e.SkipReason)
		}
	}
	return nil
}

// WriteSeedResults writes one line per seeded concept.
func WriteSeedResults(w io.Writer, results []topic.SeedResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, results)
	}
	created := 0
	for _, r := range results {
		if r.TopicID != "" {
			created++
			fmt.Fprintf(w, "created %s  %s\n", r.TopicID, r.Title)
			continue
		}
		fmt.Fprintf(w, "skipped %q: %s\n", utils.Truncate(r.Concept, 60), r.SkipReason)
	}
	fmt.Fprintf(w, "%d of %d concept(s) seeded\n", created, len(results))
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
