package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/promptguard/internal/model"
)

// ReplayFilter selects entries from a log file.
type ReplayFilter struct {
	Direction      model.Direction // empty = both
	ViolationsOnly bool
	From           time.Time // zero value = no lower bound
	To             time.Time // zero value = no upper bound
}

// ReplaySummary holds counts for the selected entries.
type ReplaySummary struct {
	Total          int    `json:"total"`
	InputCount     int    `json:"input_count"`
	OutputCount    int    `json:"output_count"`
	ViolationCount int    `json:"violation_count"`
	HighCount      int    `json:"high_count"`
	MediumCount    int    `json:"medium_count"`
	LowCount       int    `json:"low_count"`
	FirstTimestamp string `json:"first_timestamp"`
	LastTimestamp  string `json:"last_timestamp"`
}

// ReplayResult holds filtered entries and their summary.
type ReplayResult struct {
	Entries []Entry       `json:"entries"`
	Summary ReplaySummary `json:"summary"`
}

// Replay reads the log and returns entries matching the filter.
// Malformed lines are skipped.
func Replay(path string, filter ReplayFilter) (*ReplayResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audit: open log: %w", err)
	}
	defer f.Close()

	result := &ReplayResult{}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		if !filter.match(entry) {
			continue
		}
		result.Entries = append(result.Entries, entry)
		updateSummary(&result.Summary, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("audit: read log: %w", err)
	}

	return result, nil
}

// Tail returns the last n entries of the log. n <= 0 returns every entry.
func Tail(path string, n int) ([]Entry, error) {
	res, err := Replay(path, ReplayFilter{})
	if err != nil {
		return nil, err
	}
	if n <= 0 || n >= len(res.Entries) {
		return res.Entries, nil
	}
	return res.Entries[len(res.Entries)-n:], nil
}

func (f ReplayFilter) match(e Entry) bool {
	if f.Direction != "" && e.Direction != f.Direction {
		return false
	}
	if f.ViolationsOnly && e.Safe {
		return false
	}
	if f.From.IsZero() && f.To.IsZero() {
		return true
	}
	ts, err := time.Parse(TimestampFormat, e.Timestamp)
	if err != nil {
		return false
	}
	if !f.From.IsZero() && ts.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && ts.After(f.To) {
		return false
	}
	return true
}

func updateSummary(s *ReplaySummary, e Entry) {
	s.Total++

	switch e.Direction {
	case model.DirectionInput:
		s.InputCount++
	case model.DirectionOutput:
		s.OutputCount++
	}
	if !e.Safe {
		s.ViolationCount++
	}
	switch e.MaxSeverity() {
	case model.SeverityHigh:
		s.HighCount++
	case model.SeverityMedium:
		s.MediumCount++
	case model.SeverityLow:
		s.LowCount++
	}

	if s.FirstTimestamp == "" {
		s.FirstTimestamp = e.Timestamp
	}
	s.LastTimestamp = e.Timestamp
}
