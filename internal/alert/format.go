package alert

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatPayload builds the webhook body for the given format.
func FormatPayload(format string, event AlertEvent) ([]byte, error) {
	switch format {
	case "slack":
		return formatSlack(event)
	case "pagerduty":
		return formatPagerDuty(event)
	default:
		return formatGeneric(event)
	}
}

func formatGeneric(event AlertEvent) ([]byte, error) {
	return json.Marshal(event)
}

func formatSlack(event AlertEvent) ([]byte, error) {
	payload := map[string]any{
		"blocks": []any{
			map[string]any{
				"type": "header",
				"text": map[string]any{
					"type": "plain_text",
					"text": fmt.Sprintf("promptguard: unsafe %s", event.Direction),
				},
			},
			map[string]any{
				"type": "section",
				"fields": []any{
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Severity:* %s", event.Severity)},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Checks:* %s", strings.Join(event.Validators, ", "))},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Reason:* %s", strings.Join(event.Reasons, "; "))},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Preview:* %s", event.ContentPreview)},
				},
			},
		},
	}
	return json.Marshal(payload)
}

func formatPagerDuty(event AlertEvent) ([]byte, error) {
	payload := map[string]any{
		"event_action": "trigger",
		"payload": map[string]any{
			"summary":  fmt.Sprintf("promptguard unsafe %s: %s", event.Direction, strings.Join(event.Validators, ", ")),
			"severity": pagerDutySeverity(event.Severity),
			"source":   "promptguard",
			"custom_details": map[string]any{
				"event_id":        event.EventID,
				"direction":       event.Direction,
				"reasons":         event.Reasons,
				"content_preview": event.ContentPreview,
			},
		},
	}
	return json.Marshal(payload)
}

func pagerDutySeverity(sev string) string {
	switch sev {
	case "high":
		return "critical"
	case "medium":
		return "warning"
	default:
		return "info"
	}
}
