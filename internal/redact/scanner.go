package redact

import (
	"sort"
	"strings"

	"github.com/ppiankov/promptguard/internal/rules"
)

// Match is a single occurrence of PII in text.
type Match struct {
	Type  string
	Value string
	Start int
	End   int
}

// ScanPattern returns every match of p in text, in order of appearance.
// Matches adjacent to one of p's rejected characters are dropped.
func ScanPattern(text string, p rules.PIIPattern) []Match {
	re := p.Compiled()
	if re == nil {
		return nil
	}
	var matches []Match
	for _, loc := range re.FindAllStringIndex(text, -1) {
		if rejected(text, loc[0], loc[1], p) {
			continue
		}
		matches = append(matches, Match{Type: p.Name, Value: text[loc[0]:loc[1]], Start: loc[0], End: loc[1]})
	}
	return matches
}

// Scan runs every pattern over text and returns all matches sorted by
// position (earliest first).
func Scan(text string, patterns []rules.PIIPattern) []Match {
	var matches []Match
	for _, p := range patterns {
		matches = append(matches, ScanPattern(text, p)...)
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Start < matches[j].Start
	})
	return matches
}

// Values returns the literal values of matches.
func Values(matches []Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Value
	}
	return out
}

func rejected(text string, start, end int, p rules.PIIPattern) bool {
	if start > 0 && p.RejectBefore != "" && strings.IndexByte(p.RejectBefore, text[start-1]) >= 0 {
		return true
	}
	if end < len(text) && p.RejectAfter != "" && strings.IndexByte(p.RejectAfter, text[end]) >= 0 {
		return true
	}
	return false
}
