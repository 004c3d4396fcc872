package audit

import (
	"github.com/ppiankov/promptguard/internal/model"
)

// TimestampFormat is the layout used in entry timestamps.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// Entry is one line in the hash-chained JSONL event log.
// All fields are structs or slices of structs (no map[string]any) so that
// json.Marshal output is deterministic and hashes are reproducible.
// The full text and its sanitized variant are never written; only the preview.
type Entry struct {
	Timestamp      string            `json:"ts"`
	ID             string            `json:"id"`
	Direction      model.Direction   `json:"direction"`
	Safe           bool              `json:"safe"`
	Violations     []model.Violation `json:"violations"`
	ContentPreview string            `json:"content_preview"`
	PrevHash       string            `json:"prev_hash"`
}

// EntryFromEvent flattens an event into a log entry without a chain hash.
func EntryFromEvent(ev model.SafetyEvent) Entry {
	viols := ev.Verdict.Violations
	if viols == nil {
		viols = []model.Violation{}
	}
	return Entry{
		Timestamp:      ev.Timestamp.UTC().Format(TimestampFormat),
		ID:             ev.ID,
		Direction:      ev.Direction,
		Safe:           ev.Verdict.Valid,
		Violations:     viols,
		ContentPreview: ev.ContentPreview,
	}
}

// MaxSeverity returns the highest violation severity in the entry.
func (e Entry) MaxSeverity() model.Severity {
	var max model.Severity
	for _, v := range e.Violations {
		if v.Severity.Rank() > max.Rank() {
			max = v.Severity
		}
	}
	return max
}
