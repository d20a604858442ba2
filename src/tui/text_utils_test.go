package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

func TestWrap_ShortText(t *testing.T) {
	if got := Wrap("hello world", 20); got != "hello world" {
		t.Errorf("expected 'hello world', got '%s'", got)
	}
}

func TestWrap_MultipleLines(t *testing.T) {
	width := 15
	result := Wrap("hello world this is a test", width)

	lines := strings.Split(result, "\n")
	if len(lines) < 2 {
		t.Fatalf("expected wrapped output, got %q", result)
	}
	for i, line := range lines {
		if w := VisualWidth(line); w > width {
			t.Errorf("line %d exceeds width %d: width=%d, content='%s'", i, width, w, line)
		}
	}
}

func TestWrap_LongWord(t *testing.T) {
	width := 10
	result := Wrap(strings.Repeat("x", 35), width)

	for i, line := range strings.Split(result, "\n") {
		if w := VisualWidth(line); w > width {
			t.Errorf("line %d exceeds width %d: %q", i, width, line)
		}
	}
	if got := strings.ReplaceAll(result, "\n", ""); got != strings.Repeat("x", 35) {
		t.Errorf("wrapping lost characters: %q", got)
	}
}

func TestWrap_ZeroWidth(t *testing.T) {
	if got := Wrap("unchanged text", 0); got != "unchanged text" {
		t.Errorf("expected text unchanged, got %q", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		maxLen   int
		ellipsis bool
		want     string
	}{
		{"fits", "4.14", 10, true, "4.14"},
		{"ellipsis", "maintenance only release", 10, true, "mainten..."},
		{"no ellipsis", "maintenance only release", 5, false, "maint"},
		{"zero", "anything", 0, true, ""},
		{"trims", "  spaced  ", 10, false, "spaced"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.in, tt.maxLen, tt.ellipsis); got != tt.want {
				t.Errorf("Truncate(%q, %d, %v) = %q, want %q", tt.in, tt.maxLen, tt.ellipsis, got, tt.want)
			}
		})
	}
}

func TestTruncateAndPad(t *testing.T) {
	got := TruncateAndPad("4.9", 6, false)
	if got != "4.9   " {
		t.Errorf("TruncateAndPad() = %q, want %q", got, "4.9   ")
	}
	if w := VisualWidth(TruncateAndPad("a very long bucket note", 8, true)); w != 8 {
		t.Errorf("padded width = %d, want 8", w)
	}
}

func TestTruncateStyled_KeepsEscapes(t *testing.T) {
	styled := lipgloss.NewStyle().Bold(true).Render("OpenShift 4.14 dashboard")
	got := TruncateStyled(styled, 9)

	if w := ansi.StringWidth(got); w > 9 {
		t.Errorf("width = %d, want <= 9", w)
	}
	if plain := ansi.Strip(got); plain != "OpenShift" {
		t.Errorf("plain text = %q, want %q", plain, "OpenShift")
	}
}
