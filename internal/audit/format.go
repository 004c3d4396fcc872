package audit

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const separator = "──────────────────────────────────────────────────────────────────"

// FormatTimeline renders a ReplayResult as a human-readable text timeline.
func FormatTimeline(result *ReplayResult) string {
	if len(result.Entries) == 0 {
		return "No events found.\n"
	}

	var b strings.Builder

	first := formatDateTime(result.Summary.FirstTimestamp)
	last := formatTimeOnly(result.Summary.LastTimestamp)
	b.WriteString(fmt.Sprintf("Events: %d | %s–%s UTC\n", result.Summary.Total, first, last))
	b.WriteString(separator + "\n")

	for _, e := range result.Entries {
		status := "SAFE"
		if !e.Safe {
			status = "UNSAFE"
		}
		sev := string(e.MaxSeverity())
		if sev == "" {
			sev = "-"
		}
		b.WriteString(fmt.Sprintf("%-10s %-7s %-7s %-7s %-24s %s\n",
			formatTimeOnly(e.Timestamp), e.Direction, status, sev,
			truncate(validators(e), 24), truncate(e.ContentPreview, 40)))
	}

	b.WriteString(separator + "\n")
	b.WriteString(formatSummary(result.Summary))

	return b.String()
}

// FormatJSON renders a ReplayResult as indented JSON.
func FormatJSON(result *ReplayResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal replay result: %w", err)
	}
	return string(data), nil
}

func validators(e Entry) string {
	seen := make(map[string]bool)
	var names []string
	for _, v := range e.Violations {
		name := string(v.Validator)
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ",")
}

func formatDateTime(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatTimeOnly(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("15:04:05")
}

func formatSummary(s ReplaySummary) string {
	parts := []string{
		fmt.Sprintf("%d input", s.InputCount),
		fmt.Sprintf("%d output", s.OutputCount),
	}
	if s.HighCount > 0 {
		parts = append(parts, fmt.Sprintf("%d high", s.HighCount))
	}
	if s.MediumCount > 0 {
		parts = append(parts, fmt.Sprintf("%d medium", s.MediumCount))
	}
	if s.LowCount > 0 {
		parts = append(parts, fmt.Sprintf("%d low", s.LowCount))
	}
	return fmt.Sprintf("Summary: %s | Violations: %d/%d\n",
		strings.Join(parts, ", "), s.ViolationCount, s.Total)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
