package validate

import (
	"strings"
	"testing"
)

func TestContentRejectsEmpty(t *testing.T) {
	if Content("") {
		t.Error("empty string should be rejected")
	}
}

func TestContentRejectsWhitespaceOnly(t *testing.T) {
	for _, s := range []string{" ", "   ", "\t", "\n", " \t\r\n "} {
		if Content(s) {
			t.Errorf("whitespace-only %q should be rejected", s)
		}
	}
}

func TestContentAcceptsSingleCharacter(t *testing.T) {
	if !Content("a") {
		t.Error("single non-whitespace character should be accepted")
	}
}

func TestContentRejectsOversized(t *testing.T) {
	long := strings.Repeat("x", MaxContentLen+1)
	if Content(long) {
		t.Errorf("content longer than %d should be rejected", MaxContentLen)
	}
	if !Content(strings.Repeat("x", MaxContentLen)) {
		t.Errorf("content of exactly %d should be accepted", MaxContentLen)
	}
}

func TestContentCountsCharactersNotBytes(t *testing.T) {
	// 1500 accented characters are 3000 bytes but well under the modal's
	// 2000-character limit.
	if !Content(strings.Repeat("è", 1500)) {
		t.Error("multi-byte content under the character limit should be accepted")
	}
	if !Content(strings.Repeat("è", MaxContentLen)) {
		t.Errorf("content of exactly %d multi-byte characters should be accepted", MaxContentLen)
	}
	if Content(strings.Repeat("è", MaxContentLen+1)) {
		t.Errorf("content longer than %d characters should be rejected", MaxContentLen)
	}
}

func TestFilename(t *testing.T) {
	got := Filename("ispezione_Bar Roma_20240101.txt")
	want := "ispezione_BarRoma_20240101.txt"
	if got != want {
		t.Errorf("Filename = %q, want %q", got, want)
	}

	if got := Filename("../../etc/passwd"); got != "......etcpasswd" {
		t.Errorf("Filename should drop path separators, got %q", got)
	}
}
