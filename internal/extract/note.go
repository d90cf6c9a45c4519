// Package extract turns inbox files into note text.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ErrUnsupported is returned for file types that cannot hold a note.
var ErrUnsupported = errors.New("unsupported note format")

type decoder func(content []byte) (string, error)

var decoders = map[string]decoder{
	".txt":      plainText,
	".md":       plainText,
	".markdown": plainText,
	".org":      plainText,
	".pdf":      pdfText,
	".docx":     docxText,
	".xlsx":     sheetText,
}

// Supported reports whether files with extension ext can be read as notes.
// ext is matched case-insensitively, with or without the leading dot.
func Supported(ext string) bool {
	_, ok := decoders[normalizeExt(ext)]
	return ok
}

// ReadFile reads the note stored at path.
func ReadFile(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read note: %w", err)
	}
	return FromBytes(content, filepath.Ext(path))
}

// FromBytes decodes content according to ext and trims the result.
func FromBytes(content []byte, ext string) (string, error) {
	dec, ok := decoders[normalizeExt(ext)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
	text, err := dec(content)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// plainText replaces invalid UTF-8 with the replacement character.
func plainText(content []byte) (string, error) {
	if utf8.Valid(content) {
		return string(content), nil
	}
	return strings.ToValidUTF8(string(content), "\ufffd"), nil
}
