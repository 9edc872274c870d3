package ui

import (
	"strings"
	"testing"
)

func TestTruncateKeepsShortStrings(t *testing.T) {
	if got := truncate("Pump", 10); got != "Pump" {
		t.Errorf("expected untouched string, got %q", got)
	}
	if got := truncate("", 5); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestTruncateAddsEllipsis(t *testing.T) {
	got := truncate("VeryLongNodeName", 8)
	if !strings.HasSuffix(got, "…") {
		t.Errorf("expected ellipsis suffix, got %q", got)
	}
	if got != "VeryLon…" {
		t.Errorf("expected %q, got %q", "VeryLon…", got)
	}
}

func TestTruncateHandlesWideRunes(t *testing.T) {
	// CJK runes occupy two cells each; the budget is cells, not runes.
	got := truncateRunesHelper("日本語テスト", 7, "…")
	if got != "日本語…" {
		t.Errorf("expected %q, got %q", "日本語…", got)
	}

	if got := truncateRunesHelper("anything", 0, "…"); got != "" {
		t.Errorf("zero width must yield empty, got %q", got)
	}
}

func TestPadRight(t *testing.T) {
	if got := padRight("ab", 5); got != "ab   " {
		t.Errorf("expected %q, got %q", "ab   ", got)
	}
	if got := padRight("abcdef", 3); got != "abcdef" {
		t.Errorf("over-long input must pass through, got %q", got)
	}
	// Rune count, not byte count.
	if got := padRight("héé", 5); got != "héé  " {
		t.Errorf("expected %q, got %q", "héé  ", got)
	}
}
