// Package watcher hands files dropped into inbox directories to a handler once
// they stop changing.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// Handler processes one settled inbox file.
type Handler func(ctx context.Context, path string)

// Inbox watches directories for new or rewritten files.
type Inbox struct {
	dirs       []string
	extensions []string
	recursive  bool
	handle     Handler
	debounce   time.Duration
	logger     *zap.Logger

	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	ctx      context.Context
	pending  map[string]*time.Timer
	inflight sync.WaitGroup
	done     chan struct{}
	stopOnce sync.Once
}

// Option configures an Inbox.
type Option func(*Inbox)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(in *Inbox) { in.logger = l }
}

// WithDebounce sets how long a file must be quiet before it is handled.
func WithDebounce(d time.Duration) Option {
	return func(in *Inbox) { in.debounce = d }
}

// NewInbox creates a watcher over dirs. Only files whose extension is in
// extensions are handled; an empty list accepts every file.
func NewInbox(dirs, extensions []string, recursive bool, handle Handler, opts ...Option) *Inbox {
	in := &Inbox{
		dirs:       cleanAll(dirs),
		extensions: extensions,
		recursive:  recursive,
		handle:     handle,
		debounce:   defaultDebounce,
		logger:     zap.NewNop(),
		pending:    make(map[string]*time.Timer),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

func cleanAll(dirs []string) []string {
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if abs, err := filepath.Abs(d); err == nil {
			d = abs
		}
		out = append(out, filepath.Clean(d))
	}
	return out
}

// Start creates missing inbox directories and begins watching. Events are
// processed until ctx is cancelled or Stop is called.
func (in *Inbox) Start(ctx context.Context) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.fsw != nil {
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, dir := range in.dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			_ = fsw.Close()
			return err
		}
		if err := in.watchTree(fsw, dir); err != nil {
			_ = fsw.Close()
			return err
		}
	}
	in.fsw = fsw
	in.ctx = ctx
	in.logger.Info("inbox watcher started",
		zap.Strings("dirs", in.dirs),
		zap.Strings("extensions", in.extensions),
		zap.Bool("recursive", in.recursive))
	go in.loop(ctx, fsw)
	return nil
}

// watchTree adds dir, and its subdirectories when recursive.
func (in *Inbox) watchTree(fsw *fsnotify.Watcher, dir string) error {
	if !in.recursive {
		return fsw.Add(dir)
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
}

func (in *Inbox) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			in.Stop()
			return
		case <-in.done:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			in.onEvent(fsw, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			in.logger.Warn("inbox watcher error", zap.Error(err))
		}
	}
}

func (in *Inbox) onEvent(fsw *fsnotify.Watcher, ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
			in.cancel(ev.Name)
		}
		return
	}
	info, err := os.Stat(ev.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if in.recursive {
			if err := in.watchTree(fsw, ev.Name); err != nil {
				in.logger.Warn("failed to watch new directory", zap.String("path", ev.Name), zap.Error(err))
			}
			in.syncDir(ev.Name)
		}
		return
	}
	if in.accepts(ev.Name) {
		in.schedule(ev.Name)
	}
}

func (in *Inbox) accepts(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	return matchExtension(path, in.extensions)
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

// schedule restarts the quiet period for path.
func (in *Inbox) schedule(path string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.fsw == nil {
		return
	}
	if t, ok := in.pending[path]; ok {
		t.Stop()
	}
	in.pending[path] = time.AfterFunc(in.debounce, func() {
		in.mu.Lock()
		delete(in.pending, path)
		if in.fsw == nil {
			in.mu.Unlock()
			return
		}
		ctx := in.ctx
		in.inflight.Add(1)
		in.mu.Unlock()
		defer in.inflight.Done()
		in.run(ctx, path)
	})
}

func (in *Inbox) cancel(path string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if t, ok := in.pending[path]; ok {
		t.Stop()
		delete(in.pending, path)
	}
}

func (in *Inbox) run(ctx context.Context, path string) {
	if ctx == nil || ctx.Err() != nil || in.handle == nil {
		return
	}
	in.logger.Debug("inbox file settled", zap.String("path", path))
	in.handle(ctx, path)
}

// SyncExistingFiles hands every matching file already present in the inbox
// directories to the handler. Call it after Start.
func (in *Inbox) SyncExistingFiles() {
	for _, dir := range in.Directories() {
		in.syncDir(dir)
	}
}

func (in *Inbox) syncDir(root string) {
	in.mu.Lock()
	ctx := in.ctx
	in.mu.Unlock()
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && !in.recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if in.accepts(path) {
			in.run(ctx, path)
		}
		return nil
	})
}

// Directories returns the watched inbox directories.
func (in *Inbox) Directories() []string {
	return append([]string(nil), in.dirs...)
}

// Stop stops watching, drops pending files and waits for running handlers.
func (in *Inbox) Stop() {
	in.mu.Lock()
	for path, t := range in.pending {
		t.Stop()
		delete(in.pending, path)
	}
	fsw := in.fsw
	in.fsw = nil
	in.mu.Unlock()

	in.stopOnce.Do(func() { close(in.done) })
	if fsw != nil {
		_ = fsw.Close()
	}
	in.inflight.Wait()
}
