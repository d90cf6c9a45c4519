// Package fileid derives stable note ids for files dropped into an inbox.
package fileid

import (
	"path/filepath"

	"github.com/google/uuid"
)

// namespace scopes inbox note ids so they cannot collide with other name-based uuids.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("wadai:inbox"))

// NoteID returns a name-based uuid for the file at path. Relative paths are
// resolved against the working directory first, so the same file always maps to
// the same note.
func NoteID(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return uuid.NewSHA1(namespace, []byte(filepath.Clean(path))).String()
}
