package model

import "fmt"

// Action is the enforcement applied to an unsafe output.
type Action string

const (
	ActionSanitize Action = "sanitize"
	ActionRefuse   Action = "refuse"
)

// ParseAction maps a string to an Action.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionSanitize, ActionRefuse:
		return Action(s), nil
	default:
		return "", fmt.Errorf("invalid action %q (want sanitize or refuse)", s)
	}
}

// Outcome is the terminal state of one checked item.
type Outcome string

const (
	OutcomeSafe      Outcome = "safe"
	OutcomeSanitized Outcome = "sanitized"
	OutcomeRefused   Outcome = "refused"
	// OutcomeUnsafe marks an input that failed checks. Inputs are never rewritten.
	OutcomeUnsafe Outcome = "unsafe"
)

// InputResult is returned by a policy input check.
type InputResult struct {
	Safe           bool        `json:"safe"`
	Violations     []Violation `json:"violations"`
	SanitizedQuery string      `json:"sanitized_query"`
	Error          string      `json:"error,omitempty"`
}

// Outcome reports the terminal state for the checked query.
func (r InputResult) Outcome() Outcome {
	if r.Safe {
		return OutcomeSafe
	}
	return OutcomeUnsafe
}

// OutputResult is returned by a policy output check. Response holds the text
// the caller should deliver: original, sanitized or the refusal message.
type OutputResult struct {
	Safe       bool        `json:"safe"`
	Violations []Violation `json:"violations"`
	Response   string      `json:"response"`
	Action     Action      `json:"action,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Outcome reports the terminal state for the checked response.
func (r OutputResult) Outcome() Outcome {
	switch {
	case r.Safe:
		return OutcomeSafe
	case r.Action == ActionSanitize:
		return OutcomeSanitized
	default:
		return OutcomeRefused
	}
}

// Stats aggregates the current event log.
type Stats struct {
	TotalEvents   int     `json:"total_events"`
	InputChecks   int     `json:"input_checks"`
	OutputChecks  int     `json:"output_checks"`
	Violations    int     `json:"violations"`
	ViolationRate float64 `json:"violation_rate"`
}

// ComputeStats derives Stats from a slice of events.
func ComputeStats(events []SafetyEvent) Stats {
	var s Stats
	s.TotalEvents = len(events)
	for _, ev := range events {
		switch ev.Direction {
		case DirectionInput:
			s.InputChecks++
		case DirectionOutput:
			s.OutputChecks++
		}
		if !ev.Verdict.Valid {
			s.Violations++
		}
	}
	if s.TotalEvents > 0 {
		s.ViolationRate = float64(s.Violations) / float64(s.TotalEvents)
	}
	return s
}
