package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/wadai/internal/models"
	"github.com/hyperjump/wadai/internal/topic"
)

func sampleTopics() []*models.Topic {
	return []*models.Topic{
		{
			ID:        "t1",
			Title:     models.StringPtr("Dental care"),
			Summary:   models.StringPtr("Appointments and reminders about the dentist."),
			Embedding: []float32{0.1, 0.2},
			InputIDs:  []string{"n1", "n2"},
			CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
			Stats:     models.NewTopicStats(),
		},
		{ID: "t2", InputIDs: []string{"n3"}},
	}
}

func TestParseOutputFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": OutputText, "text": OutputText, "JSON": OutputJSON} {
		got, err := ParseOutputFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseOutputFormat("yaml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestWriteTopics_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTopics(&buf, sampleTopics(), OutputJSON); err != nil {
		t.Fatalf("WriteTopics: %v", err)
	}
	var decoded []TopicRow
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 2 || decoded[0].Members != 2 || decoded[1].Title != nil {
		t.Errorf("decoded = %+v", decoded)
	}
	if strings.Contains(buf.String(), "embedding") {
		t.Error("listing should not include embeddings")
	}
}

func TestWriteTopics_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTopics(&buf, sampleTopics(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"2 topic(s)", "Dental care  [2 note(s)]", "ID: t1", "(untitled)  [1 note(s)]", "Appointments and reminders"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteTopic(t *testing.T) {
	tp := sampleTopics()[0]
	var buf bytes.Buffer
	if err := WriteTopic(&buf, tp, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Title:    Dental care", "Members:  2", "  - n2", "2026-03-01T09:00:00Z"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := WriteTopic(&buf, tp, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.Topic
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded.Embedding) != 2 {
		t.Errorf("JSON detail should include the embedding, got %v", decoded.Embedding)
	}
}

func TestWriteInput(t *testing.T) {
	var buf bytes.Buffer
	in := &models.Input{ID: "n1", Category: models.CategoryTask, TopicID: models.StringPtr("t1")}
	if err := WriteInput(&buf, in, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Stored note n1 (task)") || !strings.Contains(buf.String(), "Topic: t1") {
		t.Errorf("got %q", buf.String())
	}

	buf.Reset()
	_ = WriteInput(&buf, &models.Input{ID: "n2", Category: models.CategoryGibberish}, OutputText)
	if !strings.Contains(buf.String(), "Topic: none") {
		t.Errorf("got %q", buf.String())
	}
}

func TestWriteFillReport(t *testing.T) {
	r := &topic.FillReport{
		TotalTopics: 3,
		DryRun:      true,
		Entries: []topic.FillEntry{{
			TopicID:    "t2",
			SourceText: "call the plumber",
			After:      topic.TopicText{Title: models.StringPtr("Home repairs")},
		}},
	}
	var buf bytes.Buffer
	if err := WriteFillReport(&buf, r, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"1 of 3 topic(s)", "(dry run)", `Title:   "" -> "Home repairs"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := WriteFillReport(&buf, r, OutputJSON); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"dry_run": true`) {
		t.Errorf("json = %s", buf.String())
	}
}

func TestWriteSeedResults(t *testing.T) {
	results := []topic.SeedResult{
		{Concept: "dentist", TopicID: "t1", Title: "Dental care"},
		{Concept: "nothing", SkipReason: "no summary generated"},
	}
	var buf bytes.Buffer
	if err := WriteSeedResults(&buf, results, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"created t1  Dental care", `skipped "nothing": no summary generated`, "1 of 2 concept(s) seeded"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
