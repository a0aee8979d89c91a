package prompt

import (
	"regexp"
	"strings"
	"time"
)

// Snapshot is one capture of terminal text.
type Snapshot struct {
	Text       string
	CapturedAt time.Time
}

func NewSnapshot(text string, at time.Time) Snapshot {
	return Snapshot{Text: text, CapturedAt: at}
}

// Normalized returns the text with terminal noise removed.
func (s Snapshot) Normalized() string {
	return Normalize(s.Text)
}

// Lines splits the normalized text and drops trailing blank lines.
func (s Snapshot) Lines() []string {
	return splitLines(Normalize(s.Text))
}

var (
	ansiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]|\x1b\][^\x07\x1b]*(?:\x07|\x1b\\)|\x1b[@-Z\\-_]`)

	// "(45s · 1234 tokens · esc to interrupt)"
	statusCounterPattern = regexp.MustCompile(`\([^)]*\d+s\s*·[^)]*tokens?[^)]*\)`)
	thinkingPattern      = regexp.MustCompile(`(Thinking|Connecting|Working)[^(\n]*\([^)]*\)`)
	blankRunPattern      = regexp.MustCompile(`\n{3,}`)

	spinnerReplacer = strings.NewReplacer(
		"⠋", "", "⠙", "", "⠹", "", "⠸", "", "⠼", "",
		"⠴", "", "⠦", "", "⠧", "", "⠇", "", "⠏", "",
	)
)

func StripANSI(text string) string {
	if !strings.Contains(text, "\x1b") {
		return text
	}
	return ansiPattern.ReplaceAllString(text, "")
}

// Normalize strips escape sequences, control characters, spinner glyphs and
// ticking counters so that two renders of the same screen compare equal.
func Normalize(text string) string {
	out := StripANSI(text)
	out = strings.ReplaceAll(out, "\r\n", "\n")
	out = stripControlChars(out)
	out = spinnerReplacer.Replace(out)
	out = statusCounterPattern.ReplaceAllString(out, "(status)")
	out = thinkingPattern.ReplaceAllString(out, "$1...")

	lines := strings.Split(out, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	out = strings.Join(lines, "\n")
	return blankRunPattern.ReplaceAllString(out, "\n\n")
}

func stripControlChars(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if (r >= 32 && r != 127) || r == '\t' || r == '\n' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func splitLines(text string) []string {
	text = strings.TrimRight(text, "\n")
	if strings.TrimSpace(text) == "" {
		return []string{}
	}
	return strings.Split(text, "\n")
}

func tailLines(lines []string, n int) []string {
	if n <= 0 || len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}
