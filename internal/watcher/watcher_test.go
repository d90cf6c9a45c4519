package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) handle(_ context.Context, path string) {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func (r *recorder) has(suffix string) bool {
	for _, p := range r.seen() {
		if strings.HasSuffix(p, suffix) {
			return true
		}
	}
	return false
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func startInbox(t *testing.T, dirs, exts []string, recursive bool, r *recorder) *Inbox {
	t.Helper()
	in := NewInbox(dirs, exts, recursive, r.handle, WithDebounce(100*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		in.Stop()
	})
	if err := in.Start(ctx); err != nil {
		t.Fatal(err)
	}
	return in
}

func TestInbox_DebounceAndExtensionFilter(t *testing.T) {
	dir := t.TempDir()
	r := &recorder{}
	startInbox(t, []string{dir}, []string{".txt"}, false, r)

	path := filepath.Join(dir, "note.txt")
	for i := 0; i < 5; i++ {
		if err := writeFile(path, strings.Repeat("x", i+1)); err != nil {
			t.Fatal(err)
		}
	}
	if err := writeFile(filepath.Join(dir, "skip.xyz"), "nope"); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(dir, ".hidden.txt"), "nope"); err != nil {
		t.Fatal(err)
	}

	if !waitFor(t, func() bool { return r.has("note.txt") }) {
		t.Fatalf("note.txt was not handled: %v", r.seen())
	}
	time.Sleep(250 * time.Millisecond)
	got := r.seen()
	if len(got) != 1 {
		t.Errorf("burst of writes should settle into one call, got %v", got)
	}
}

func TestMatchExtension(t *testing.T) {
	tests := []struct {
		path       string
		extensions []string
		want       bool
	}{
		{"/a/b.txt", []string{".txt"}, true},
		{"/a/b.TXT", []string{"txt"}, true},
		{"/a/b.md", []string{".txt"}, false},
		{"/a/b", nil, true},
		{"/a/b", []string{".md"}, false},
	}
	for _, tt := range tests {
		if got := matchExtension(tt.path, tt.extensions); got != tt.want {
			t.Errorf("matchExtension(%q, %v) = %v, want %v", tt.path, tt.extensions, got, tt.want)
		}
	}
}

func TestInbox_SyncExistingFiles(t *testing.T) {
	dir := t.TempDir()
	if err := writeFile(filepath.Join(dir, "a.txt"), "hello"); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(dir, "ignore.xyz"), "x"); err != nil {
		t.Fatal(err)
	}
	if err := mkdirAll(filepath.Join(dir, "sub")); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(dir, "sub", "nested.txt"), "x"); err != nil {
		t.Fatal(err)
	}

	r := &recorder{}
	in := startInbox(t, []string{dir}, []string{".txt"}, false, r)
	in.SyncExistingFiles()

	got := r.seen()
	if len(got) != 1 || !strings.HasSuffix(got[0], "a.txt") {
		t.Errorf("expected only a.txt, got %v", got)
	}
}

func TestInbox_SyncExistingFiles_recursive(t *testing.T) {
	dir := t.TempDir()
	if err := mkdirAll(filepath.Join(dir, "sub")); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(dir, "sub", "nested.txt"), "x"); err != nil {
		t.Fatal(err)
	}

	r := &recorder{}
	in := startInbox(t, []string{dir}, []string{".txt"}, true, r)
	in.SyncExistingFiles()

	if !r.has("nested.txt") {
		t.Errorf("expected nested.txt, got %v", r.seen())
	}
}

func TestInbox_Start_createsMissingDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "inbox", "notes")
	startInbox(t, []string{root}, nil, false, &recorder{})

	if _, err := os.Stat(root); err != nil {
		t.Errorf("inbox directory should exist after Start: %v", err)
	}
}

func TestInbox_NewDirectoryIsWatchedWhenRecursive(t *testing.T) {
	dir := t.TempDir()
	r := &recorder{}
	startInbox(t, []string{dir}, []string{".txt", ".md"}, true, r)

	nested := filepath.Join(dir, "level1", "level2")
	if err := mkdirAll(nested); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(nested, "deep.txt"), "deep content"); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(nested, "ignore.xyz"), "skip"); err != nil {
		t.Fatal(err)
	}

	if !waitFor(t, func() bool { return r.has("deep.txt") }) {
		t.Errorf("expected deep.txt to be handled, got %v", r.seen())
	}
	if r.has("ignore.xyz") {
		t.Error("ignore.xyz should not be handled")
	}
}

func TestInbox_StopDropsPendingFiles(t *testing.T) {
	dir := t.TempDir()
	r := &recorder{}
	in := NewInbox([]string{dir}, nil, false, r.handle, WithDebounce(300*time.Millisecond))
	if err := in.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(dir, "late.txt"), "x"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	in.Stop()
	in.Stop()

	time.Sleep(400 * time.Millisecond)
	if got := r.seen(); len(got) != 0 {
		t.Errorf("no file should be handled after Stop, got %v", got)
	}
}

func TestInbox_Directories(t *testing.T) {
	in := NewInbox([]string{"/tmp/a/", "/tmp/b/../c"}, nil, false, nil)
	got := in.Directories()
	if len(got) != 2 || got[0] != "/tmp/a" || got[1] != "/tmp/c" {
		t.Errorf("Directories() = %v", got)
	}
}

func mkdirAll(path string) error {
	return os.MkdirAll(path, 0o755)
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}
