package model

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Severity grades how serious a violation is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// severityRank maps severity to a comparable integer.
var severityRank = map[Severity]int{
	SeverityLow:    1,
	SeverityMedium: 2,
	SeverityHigh:   3,
}

// Rank returns a comparable integer for the severity. Unknown values rank 0.
func (s Severity) Rank() int {
	return severityRank[s]
}

// ParseSeverity maps a string to a Severity. Unknown strings are an error.
func ParseSeverity(s string) (Severity, error) {
	switch Severity(s) {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return Severity(s), nil
	default:
		return "", fmt.Errorf("invalid severity %q", s)
	}
}

// UnmarshalYAML rejects severities outside low/medium/high.
func (s *Severity) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ParseSeverity(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// CheckKind names the check that produced a violation.
type CheckKind string

const (
	CheckLength             CheckKind = "length"
	CheckPromptInjection    CheckKind = "prompt_injection"
	CheckToxicLanguage      CheckKind = "toxic_language"
	CheckRelevance          CheckKind = "relevance"
	CheckPII                CheckKind = "pii"
	CheckHarmfulContent     CheckKind = "harmful_content"
	CheckBias               CheckKind = "bias_detection"
	CheckFactualConsistency CheckKind = "factual_consistency"
	CheckClassifier         CheckKind = "classifier"
)

// Direction tells which side of the pipeline a check ran on.
type Direction string

const (
	DirectionInput  Direction = "input"
	DirectionOutput Direction = "output"
)

// Details is the optional structured payload attached to a violation.
type Details struct {
	PIIType  string   `json:"pii_type,omitempty"`
	Matches  []string `json:"matches,omitempty"`
	Category string   `json:"category,omitempty"`
	BiasType string   `json:"bias_type,omitempty"`
	Terms    []string `json:"terms,omitempty"`
	Method   string   `json:"method,omitempty"`
}

// Violation is one flagged rule failure. Treat as immutable once produced.
type Violation struct {
	Validator CheckKind `json:"validator"`
	Reason    string    `json:"reason"`
	Severity  Severity  `json:"severity"`
	Details   *Details  `json:"details,omitempty"`
}

// Verdict is the outcome of one validation pass.
type Verdict struct {
	Valid         bool        `json:"valid"`
	Violations    []Violation `json:"violations"`
	SanitizedText string      `json:"sanitized_text"`
}

// NewVerdict builds a Verdict whose validity is derived from the violation list.
// A valid verdict always carries the original text.
func NewVerdict(text string, violations []Violation, sanitized string) Verdict {
	if len(violations) == 0 {
		return Verdict{Valid: true, Violations: []Violation{}, SanitizedText: text}
	}
	out := make([]Violation, len(violations))
	copy(out, violations)
	return Verdict{Valid: false, Violations: out, SanitizedText: sanitized}
}

// MaxSeverity returns the highest severity in the verdict, or "" when valid.
func (v Verdict) MaxSeverity() Severity {
	var max Severity
	for _, viol := range v.Violations {
		if viol.Severity.Rank() > max.Rank() {
			max = viol.Severity
		}
	}
	return max
}

// HasKind reports whether any violation was produced by the given check.
func (v Verdict) HasKind(kind CheckKind) bool {
	for _, viol := range v.Violations {
		if viol.Validator == kind {
			return true
		}
	}
	return false
}

// Source is a citation record used by the factual-consistency check.
type Source struct {
	Title string `json:"title" yaml:"title"`
	URL   string `json:"url" yaml:"url"`
}

// PreviewLength is the number of characters kept in SafetyEvent.ContentPreview.
const PreviewLength = 100

// SafetyEvent records one logged check. Never mutated after creation.
type SafetyEvent struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Direction      Direction `json:"direction"`
	Verdict        Verdict   `json:"verdict"`
	ContentPreview string    `json:"content_preview"`
}

// Preview returns the first PreviewLength characters of text.
func Preview(text string) string {
	runes := []rune(text)
	if len(runes) <= PreviewLength {
		return text
	}
	return string(runes[:PreviewLength])
}
