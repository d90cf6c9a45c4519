package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/wadai/internal/extract"
	"github.com/hyperjump/wadai/internal/fileid"
	"github.com/hyperjump/wadai/internal/models"
	"github.com/hyperjump/wadai/internal/storage"
)

// ErrAlreadyIngested is returned by IngestFile when the file's note is already stored.
var ErrAlreadyIngested = errors.New("file already ingested")

// IngestFile stores the file at path as a note whose id is derived from the path.
// If allowedExts is non-empty the extension must be in it. A file whose note
// exists returns ErrAlreadyIngested, and a blank file returns ErrEmptyText.
func (p *Pipeline) IngestFile(ctx context.Context, path string, allowedExts []string) (*models.Input, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	ext := filepath.Ext(absPath)
	if len(allowedExts) > 0 && !extensionAllowed(ext, allowedExts) {
		return nil, fmt.Errorf("extension %q not in allowed list", ext)
	}
	if !extract.Supported(ext) {
		return nil, fmt.Errorf("%w: %q", extract.ErrUnsupported, ext)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}

	id := fileid.NoteID(absPath)
	if _, err := p.store.GetInput(ctx, id); err == nil {
		p.logger.Debug("inbox file already ingested", zap.String("path", absPath), zap.String("input_id", id))
		return nil, ErrAlreadyIngested
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up input: %w", err)
	}

	text, err := extract.ReadFile(absPath)
	if err != nil {
		return nil, err
	}
	in, err := p.Ingest(ctx, IngestRequest{ID: id, Text: text})
	if errors.Is(err, storage.ErrAlreadyExists) {
		return nil, ErrAlreadyIngested
	}
	if err != nil {
		return nil, err
	}
	p.logger.Debug("inbox file ingested", zap.String("path", absPath), zap.String("input_id", id))
	return in, nil
}

// IngestDirectory walks dir and ingests every regular file with an allowed
// extension. Files that are already ingested, blank or unreadable are skipped
// and logged. It returns the number of notes stored.
func (p *Pipeline) IngestDirectory(ctx context.Context, dir string, allowedExts []string, recursive bool) (int, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return 0, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", absDir)
	}

	n := 0
	err = filepath.WalkDir(absDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != absDir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		ext := filepath.Ext(path)
		if !extract.Supported(ext) || (len(allowedExts) > 0 && !extensionAllowed(ext, allowedExts)) {
			return nil
		}
		_, err := p.IngestFile(ctx, path, allowedExts)
		switch {
		case err == nil:
			n++
		case errors.Is(err, ErrAlreadyIngested), errors.Is(err, ErrEmptyText):
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		default:
			p.logger.Warn("failed to ingest inbox file", zap.String("path", path), zap.Error(err))
		}
		return nil
	})
	return n, err
}

func extensionAllowed(ext string, allowed []string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == ext {
			return true
		}
	}
	return false
}
