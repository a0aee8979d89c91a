package prompt

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"
)

// Signature fingerprints one prompt occurrence.
type Signature string

func (s Signature) Short() string {
	if len(s) <= 8 {
		return string(s)
	}
	return string(s[:8])
}

var (
	cursorGlyphPattern = regexp.MustCompile(`^[\s│|]*(?:[❯›▶→►>*]\s*)?`)
	spacePattern       = regexp.MustCompile(`\s+`)
)

// ComputeSignature hashes the region lines after removing the selection cursor
// and sorting, so moving the cursor between options keeps the same signature.
func ComputeSignature(rule string, region []string) Signature {
	keys := make([]string, 0, len(region))
	for _, line := range region {
		key := signatureLineKey(line)
		if key == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	sum := sha1.Sum([]byte(rule + "\x00" + strings.Join(keys, "\n")))
	return Signature(hex.EncodeToString(sum[:]))
}

func signatureLineKey(line string) string {
	line = cursorGlyphPattern.ReplaceAllString(line, "")
	line = strings.Trim(line, " \t│|")
	return spacePattern.ReplaceAllString(line, " ")
}
