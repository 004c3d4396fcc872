package alert

import (
	"time"

	"github.com/ppiankov/promptguard/internal/audit"
	"github.com/ppiankov/promptguard/internal/model"
)

// AlertConfig defines a webhook alert destination.
type AlertConfig struct {
	URL     string            `yaml:"url"     json:"url"     validate:"required,url"`
	Format  string            `yaml:"format"  json:"format"  validate:"omitempty,oneof=generic slack pagerduty"`
	Events  []string          `yaml:"events"  json:"events"  validate:"min=1,dive,oneof=input output high medium low all"`
	Headers map[string]string `yaml:"headers" json:"headers"`
}

// AlertEvent is the payload sent to webhook endpoints.
type AlertEvent struct {
	Timestamp      string   `json:"timestamp"`
	EventID        string   `json:"event_id"`
	Direction      string   `json:"direction"`
	Safe           bool     `json:"safe"`
	Severity       string   `json:"severity,omitempty"`
	Validators     []string `json:"validators,omitempty"`
	Reasons        []string `json:"reasons,omitempty"`
	ContentPreview string   `json:"content_preview"`
}

// EventFromSafety builds the webhook payload for a logged safety event.
func EventFromSafety(ev model.SafetyEvent) AlertEvent {
	out := AlertEvent{
		Timestamp:      ev.Timestamp.UTC().Format(audit.TimestampFormat),
		EventID:        ev.ID,
		Direction:      string(ev.Direction),
		Safe:           ev.Verdict.Valid,
		Severity:       string(ev.Verdict.MaxSeverity()),
		ContentPreview: ev.ContentPreview,
	}
	if ev.Timestamp.IsZero() {
		out.Timestamp = time.Now().UTC().Format(audit.TimestampFormat)
	}
	seen := make(map[model.CheckKind]bool)
	for _, v := range ev.Verdict.Violations {
		if !seen[v.Validator] {
			seen[v.Validator] = true
			out.Validators = append(out.Validators, string(v.Validator))
		}
		out.Reasons = append(out.Reasons, v.Reason)
	}
	return out
}
