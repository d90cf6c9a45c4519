// Package utils provides shared helpers for text, vectors and logging.
package utils

// Truncate returns s cut to at most maxRunes runes, with "..." appended if it was cut.
// If maxRunes is 0 or negative, s is returned unchanged.
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i] + "..."
		}
		n++
	}
	return s
}
