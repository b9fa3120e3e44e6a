// Package validate holds the acceptance gates for user-submitted content.
package validate

import (
	"strings"
	"unicode/utf8"
)

// MaxContentLen matches the Discord modal input limit for document content.
// Discord counts characters, not bytes.
const MaxContentLen = 2000

// Content reports whether text is acceptable as document content.
// Empty and whitespace-only input is always rejected.
func Content(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	if utf8.RuneCountInString(text) > MaxContentLen {
		return false
	}
	return true
}

// Filename strips everything but alphanumerics, dots, underscores and dashes
// so generated attachment names are safe to upload.
func Filename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}
