package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/promptguard/internal/model"
)

var replayBase = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// writeTestLog writes five events: three input (two unsafe) and two output
// (one unsafe), one minute apart.
func writeTestLog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.jsonl")
	l, err := OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	events := []struct {
		dir  model.Direction
		viol []model.Violation
	}{
		{model.DirectionInput, []model.Violation{{Validator: model.CheckLength, Severity: model.SeverityLow}}},
		{model.DirectionInput, nil},
		{model.DirectionOutput, []model.Violation{
			{Validator: model.CheckPII, Severity: model.SeverityHigh},
			{Validator: model.CheckBias, Severity: model.SeverityLow},
		}},
		{model.DirectionInput, []model.Violation{{Validator: model.CheckRelevance, Severity: model.SeverityMedium}}},
		{model.DirectionOutput, nil},
	}
	for i, e := range events {
		ev := model.SafetyEvent{
			ID:             "ev-" + string(rune('a'+i)),
			Timestamp:      replayBase.Add(time.Duration(i) * time.Minute),
			Direction:      e.dir,
			Verdict:        model.NewVerdict("text", e.viol, "text"),
			ContentPreview: "text",
		}
		if err := l.Write(context.Background(), ev); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func TestReplayAll(t *testing.T) {
	result, err := Replay(writeTestLog(t), ReplayFilter{})
	if err != nil {
		t.Fatal(err)
	}

	s := result.Summary
	if s.Total != 5 || s.InputCount != 3 || s.OutputCount != 2 {
		t.Fatalf("unexpected counts: %+v", s)
	}
	if s.ViolationCount != 3 {
		t.Errorf("expected 3 violations, got %d", s.ViolationCount)
	}
	if s.HighCount != 1 || s.MediumCount != 1 || s.LowCount != 1 {
		t.Errorf("unexpected severity counts: %+v", s)
	}
	if s.FirstTimestamp != "2026-03-01T10:00:00.000Z" || s.LastTimestamp != "2026-03-01T10:04:00.000Z" {
		t.Errorf("unexpected range %s – %s", s.FirstTimestamp, s.LastTimestamp)
	}
}

func TestReplayFilters(t *testing.T) {
	path := writeTestLog(t)

	tests := []struct {
		name   string
		filter ReplayFilter
		want   []string
	}{
		{"input only", ReplayFilter{Direction: model.DirectionInput}, []string{"ev-a", "ev-b", "ev-d"}},
		{"violations only", ReplayFilter{ViolationsOnly: true}, []string{"ev-a", "ev-c", "ev-d"}},
		{"output violations", ReplayFilter{Direction: model.DirectionOutput, ViolationsOnly: true}, []string{"ev-c"}},
		{"time window", ReplayFilter{From: replayBase.Add(time.Minute), To: replayBase.Add(3 * time.Minute)}, []string{"ev-b", "ev-c", "ev-d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Replay(path, tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			if len(result.Entries) != len(tt.want) {
				t.Fatalf("expected %v, got %d entries", tt.want, len(result.Entries))
			}
			for i, id := range tt.want {
				if result.Entries[i].ID != id {
					t.Errorf("entry %d: expected %s, got %s", i, id, result.Entries[i].ID)
				}
			}
		})
	}
}

func TestReplayMissingFile(t *testing.T) {
	if _, err := Replay(filepath.Join(t.TempDir(), "none.jsonl"), ReplayFilter{}); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestTail(t *testing.T) {
	path := writeTestLog(t)

	last, err := Tail(path, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(last) != 2 || last[0].ID != "ev-d" || last[1].ID != "ev-e" {
		t.Fatalf("unexpected tail: %+v", last)
	}

	all, err := Tail(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 5 {
		t.Fatalf("expected all 5 entries, got %d", len(all))
	}

	more, _ := Tail(path, 50)
	if len(more) != 5 {
		t.Fatalf("expected 5 entries when n exceeds length, got %d", len(more))
	}
}
