package prompt

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const DefaultWindow = 5

// Rule describes one family of confirmation prompts and the answer to give.
type Rule struct {
	Name           string   `json:"name"`
	PromptMarkers  []string `json:"prompt_markers"`
	ContextMarkers []string `json:"context_markers"`
	Window         int      `json:"window"`
	Response       string   `json:"response"`
	Confirm        bool     `json:"confirm"`
}

type Options struct {
	Rules      []Rule
	Exclusions []string
	// ScanTailLines limits classification to the last N lines; 0 scans all.
	ScanTailLines int
}

type compiledRule struct {
	name     string
	markers  []Pattern
	contexts []Pattern
	window   int
	response string
	confirm  bool
}

// Classifier is immutable once built and safe for concurrent use.
type Classifier struct {
	rules      []compiledRule
	exclusions []Pattern
	tail       int
}

func NewClassifier(opts Options) (*Classifier, error) {
	if len(opts.Rules) == 0 {
		return nil, errors.New("at least one rule is required")
	}
	c := &Classifier{tail: opts.ScanTailLines}
	if c.tail < 0 {
		c.tail = 0
	}
	seen := map[string]bool{}
	for i, rule := range opts.Rules {
		name := strings.TrimSpace(rule.Name)
		if name == "" {
			name = fmt.Sprintf("rule-%d", i+1)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate rule name %q", name)
		}
		seen[name] = true
		markers, err := compilePatterns(rule.PromptMarkers)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", name, err)
		}
		if len(markers) == 0 {
			return nil, fmt.Errorf("rule %s: prompt markers are required", name)
		}
		contexts, err := compilePatterns(rule.ContextMarkers)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", name, err)
		}
		if len(contexts) == 0 {
			return nil, fmt.Errorf("rule %s: context markers are required", name)
		}
		if rule.Response == "" && !rule.Confirm {
			return nil, fmt.Errorf("rule %s: response or confirm is required", name)
		}
		window := rule.Window
		if window <= 0 {
			window = DefaultWindow
		}
		c.rules = append(c.rules, compiledRule{
			name:     name,
			markers:  markers,
			contexts: contexts,
			window:   window,
			response: rule.Response,
			confirm:  rule.Confirm,
		})
	}
	exclusions, err := compilePatterns(opts.Exclusions)
	if err != nil {
		return nil, fmt.Errorf("exclusions: %w", err)
	}
	c.exclusions = exclusions
	return c, nil
}

func MustClassifier(opts Options) *Classifier {
	c, err := NewClassifier(opts)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Classifier) RuleNames() []string {
	out := make([]string, 0, len(c.rules))
	for _, r := range c.rules {
		out = append(out, r.name)
	}
	return out
}

// Classify never fails: anything that does not clearly look like a prompt is
// NoPrompt. Exclusions win over every positive match.
func (c *Classifier) Classify(s Snapshot) Decision {
	lines := tailLines(s.Lines(), c.tail)
	if len(lines) == 0 {
		return noPrompt(ReasonEmpty)
	}
	for _, line := range lines {
		if p, ok := matchAny(c.exclusions, line); ok {
			d := noPrompt(ReasonExcluded)
			d.Exclusion = p.String()
			return d
		}
	}

	ambiguous := false
	for _, rule := range c.rules {
		for i, line := range lines {
			if _, ok := matchAny(rule.markers, line); !ok {
				continue
			}
			j, ok := nearestContext(lines, i, rule)
			if !ok {
				ambiguous = true
				continue
			}
			region := promptRegion(lines, i, j)
			return Decision{
				Kind:        PromptDetected,
				Rule:        rule.name,
				Signature:   ComputeSignature(rule.name, region),
				Region:      region,
				Response:    rule.response,
				Confirm:     rule.confirm,
				MarkerLine:  i,
				ContextLine: j,
			}
		}
	}
	if ambiguous {
		return noPrompt(ReasonAmbiguous)
	}
	return noPrompt(ReasonNoMarker)
}

func nearestContext(lines []string, marker int, rule compiledRule) (int, bool) {
	for d := 0; d <= rule.window; d++ {
		for _, j := range []int{marker - d, marker + d} {
			if j < 0 || j >= len(lines) {
				continue
			}
			if _, ok := matchAny(rule.contexts, lines[j]); ok {
				return j, true
			}
			if d == 0 {
				break
			}
		}
	}
	return -1, false
}

var optionLinePattern = regexp.MustCompile(`^[\s│|]*(?:[❯›▶→►>*]\s*)?\d+[.)]\s*\S`)

// maxRegionLead bounds how far above the marker and context lines the region
// reaches for the subject of the prompt (the command or file being approved).
const maxRegionLead = 12

// promptRegion spans the marker and context lines, extends downwards over the
// remaining numbered options and upwards to the top of the prompt block.
func promptRegion(lines []string, marker, context int) []string {
	lo, hi := marker, context
	if lo > hi {
		lo, hi = hi, lo
	}
	for hi+1 < len(lines) && optionLinePattern.MatchString(lines[hi+1]) {
		hi++
	}
	for n := 0; n < maxRegionLead && lo > 0 && !isBlockBoundary(lines[lo-1]); n++ {
		lo--
	}
	for lo < hi && strings.TrimSpace(lines[lo]) == "" {
		lo++
	}
	out := make([]string, hi-lo+1)
	copy(out, lines[lo:hi+1])
	return out
}

// isBlockBoundary reports box top and bottom borders and horizontal rules.
func isBlockBoundary(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	if strings.IndexAny(trimmed, "╭┌╰└") == 0 {
		return true
	}
	return utf8.RuneCountInString(trimmed) >= 3 && strings.Trim(trimmed, "─━═-╌┄") == ""
}
