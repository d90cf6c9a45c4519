package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/wadai/internal/classify"
	"github.com/hyperjump/wadai/internal/embedding"
	"github.com/hyperjump/wadai/internal/fileid"
	"github.com/hyperjump/wadai/internal/topic"
)

func TestExtensionAllowed(t *testing.T) {
	tests := []struct {
		ext     string
		allowed []string
		want    bool
	}{
		{".txt", []string{".txt", ".md"}, true},
		{".TXT", []string{"txt"}, true},
		{".md", []string{".txt", ".md"}, true},
		{".go", []string{".txt"}, false},
		{"", []string{".txt"}, false},
	}
	for _, tt := range tests {
		if got := extensionAllowed(tt.ext, tt.allowed); got != tt.want {
			t.Errorf("extensionAllowed(%q, %v) = %v, want %v", tt.ext, tt.allowed, got, tt.want)
		}
	}
}

func filePipeline(t *testing.T) (*Pipeline, *recordingAssigner) {
	t.Helper()
	assigner := &recordingAssigner{result: topic.Assignment{TopicID: "t1"}}
	return NewPipeline(newStore(t), classify.RuleClassifier{}, embedding.NewMockEmbedder(8), assigner), assigner
}

func TestIngestFile_onceOnly(t *testing.T) {
	ctx := context.Background()
	p, assigner := filePipeline(t)
	path := filepath.Join(t.TempDir(), "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("buy a birthday present for mum\n"), 0o600))

	in, err := p.IngestFile(ctx, path, []string{".txt"})
	require.NoError(t, err)
	assert.Equal(t, fileid.NoteID(path), in.ID)
	assert.Equal(t, "buy a birthday present for mum", in.Text)

	_, err = p.IngestFile(ctx, path, []string{".txt"})
	assert.ErrorIs(t, err, ErrAlreadyIngested)
	assert.Len(t, assigner.calls, 1)
}

func TestIngestFile_rejects(t *testing.T) {
	ctx := context.Background()
	p, _ := filePipeline(t)
	dir := t.TempDir()

	md := filepath.Join(dir, "note.md")
	require.NoError(t, os.WriteFile(md, []byte("some thoughts about the garden"), 0o600))
	_, err := p.IngestFile(ctx, md, []string{".txt"})
	assert.Error(t, err, "extension outside the allowed list")

	blank := filepath.Join(dir, "blank.txt")
	require.NoError(t, os.WriteFile(blank, []byte("  \n"), 0o600))
	_, err = p.IngestFile(ctx, blank, nil)
	assert.ErrorIs(t, err, ErrEmptyText)

	_, err = p.IngestFile(ctx, dir, nil)
	assert.Error(t, err, "directories are not notes")

	_, err = p.IngestFile(ctx, filepath.Join(dir, "missing.txt"), nil)
	assert.Error(t, err)
}

func TestIngestDirectory(t *testing.T) {
	ctx := context.Background()
	p, _ := filePipeline(t)
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	files := map[string]string{
		filepath.Join(dir, "a.txt"): "call the bank about the mortgage",
		filepath.Join(dir, "b.md"):  "idea for a podcast about local history",
		filepath.Join(dir, "c.bin"): "ignored binary",
		filepath.Join(dir, "d.txt"): "",
		filepath.Join(sub, "e.txt"): "nested note about running shoes",
	}
	for path, body := range files {
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	}

	n, err := p.IngestDirectory(ctx, dir, []string{".txt", ".md"}, false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = p.IngestDirectory(ctx, dir, []string{".txt", ".md"}, true)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only the nested note is new")

	_, err = p.IngestDirectory(ctx, filepath.Join(dir, "a.txt"), nil, false)
	assert.Error(t, err)
}
