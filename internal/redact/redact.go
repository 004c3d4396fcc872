// Package redact finds PII spans in text and replaces them with a fixed token.
package redact

import (
	"sort"
	"strings"
)

// Redact replaces every occurrence of each value in text with token.
// Longer values are replaced first so a value that contains another is
// never partially substituted.
func Redact(text string, values []string, token string) string {
	if len(values) == 0 {
		return text
	}
	ordered := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		ordered = append(ordered, v)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i]) > len(ordered[j])
	})

	result := text
	for _, v := range ordered {
		result = strings.ReplaceAll(result, v, token)
	}
	return result
}

// Leaks returns the values that still appear literally in text.
// An empty result means redaction removed every value.
func Leaks(text string, values []string) []string {
	var leaks []string
	for _, v := range values {
		if v != "" && strings.Contains(text, v) {
			leaks = append(leaks, v)
		}
	}
	return leaks
}
