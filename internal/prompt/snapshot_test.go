package prompt

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestNormalize_StripsTerminalNoise(t *testing.T) {
	raw := "\x1b[1;32m❯ 1. Yes\x1b[0m   \r\n\x1b]0;title\x07  2. No\t\n\n\n\n⠸ Thinking (3s · 12 tokens)"
	got := Normalize(raw)
	want := "❯ 1. Yes\n  2. No\n\n Thinking..."
	if got != want {
		t.Fatalf("unexpected normalized text:\n%q\nwant\n%q", got, want)
	}
}

func TestSnapshot_LinesDropsTrailingBlank(t *testing.T) {
	s := NewSnapshot("a\nb\n\n\n", time.Now())
	if diff := cmp.Diff([]string{"a", "b"}, s.Lines()); diff != "" {
		t.Fatalf("lines mismatch (-want +got):\n%s", diff)
	}
}

func TestCompilePattern(t *testing.T) {
	p, err := CompilePattern("re:^\\s*1\\.")
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if !p.Match("  1. yes") || p.Match("x 1. yes") {
		t.Fatal("regexp pattern mismatch")
	}
	s, err := CompilePattern("Do You Want")
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if !s.Match("do you want to proceed?") {
		t.Fatal("substring pattern must be case-insensitive")
	}
	if _, err := CompilePattern("  "); err == nil {
		t.Fatal("expected empty pattern error")
	}
}
