package prompt

import (
	"fmt"
	"regexp"
	"strings"
)

const regexPrefix = "re:"

// Pattern is a case-insensitive line matcher. Raw values prefixed with "re:"
// are regular expressions, anything else is a plain substring.
type Pattern struct {
	raw   string
	lower string
	re    *regexp.Regexp
}

func CompilePattern(raw string) (Pattern, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Pattern{}, fmt.Errorf("empty pattern")
	}
	if strings.HasPrefix(trimmed, regexPrefix) {
		expr := strings.TrimSpace(strings.TrimPrefix(trimmed, regexPrefix))
		if expr == "" {
			return Pattern{}, fmt.Errorf("empty regexp in pattern %q", raw)
		}
		re, err := regexp.Compile("(?i)" + expr)
		if err != nil {
			return Pattern{}, fmt.Errorf("compile pattern %q: %w", raw, err)
		}
		return Pattern{raw: trimmed, re: re}, nil
	}
	return Pattern{raw: trimmed, lower: strings.ToLower(trimmed)}, nil
}

func compilePatterns(raws []string) ([]Pattern, error) {
	out := make([]Pattern, 0, len(raws))
	for _, raw := range raws {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		p, err := CompilePattern(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (p Pattern) Match(line string) bool {
	if p.re != nil {
		return p.re.MatchString(line)
	}
	if p.lower == "" {
		return false
	}
	return strings.Contains(strings.ToLower(line), p.lower)
}

func (p Pattern) String() string {
	return p.raw
}

func matchAny(patterns []Pattern, line string) (Pattern, bool) {
	for _, p := range patterns {
		if p.Match(line) {
			return p, true
		}
	}
	return Pattern{}, false
}
