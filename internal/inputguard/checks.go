package inputguard

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/promptguard/internal/detect"
	"github.com/ppiankov/promptguard/internal/model"
	"github.com/ppiankov/promptguard/internal/rules"
)

// builtins returns the deterministic checks in execution order.
// The first entry is the length check, which always runs.
func (v *Validator) builtins() []detect.Detector {
	return []detect.Detector{
		detect.Func{ID: string(model.CheckLength), Fn: v.checkLength},
		detect.Func{ID: string(model.CheckPromptInjection), Fn: v.checkInjection},
		detect.Func{ID: string(model.CheckToxicLanguage), Fn: v.checkToxic},
		detect.Func{ID: string(model.CheckRelevance), Fn: v.checkRelevance},
	}
}

func (v *Validator) checkLength(query string) []model.Violation {
	n := utf8.RuneCountInString(query)
	var out []model.Violation
	if n < v.rules.Length.Min {
		out = append(out, model.Violation{
			Validator: model.CheckLength,
			Reason:    fmt.Sprintf("Query too short (minimum %d characters)", v.rules.Length.Min),
			Severity:  model.SeverityLow,
		})
	}
	if n > v.rules.Length.Max {
		out = append(out, model.Violation{
			Validator: model.CheckLength,
			Reason:    fmt.Sprintf("Query too long (maximum %d characters)", v.rules.Length.Max),
			Severity:  model.SeverityMedium,
		})
	}
	return out
}

func (v *Validator) checkInjection(query string) []model.Violation {
	found := rules.MatchAll(query, v.rules.InjectionPhrases)
	if len(found) == 0 {
		return nil
	}
	return []model.Violation{{
		Validator: model.CheckPromptInjection,
		Reason:    "Potential prompt injection detected: " + strings.Join(found, ", "),
		Severity:  model.SeverityHigh,
		Details:   &model.Details{Matches: found},
	}}
}

func (v *Validator) checkToxic(query string) []model.Violation {
	found := rules.MatchAll(query, v.rules.ToxicKeywords)
	if len(found) == 0 {
		return nil
	}
	return []model.Violation{{
		Validator: model.CheckToxicLanguage,
		Reason:    "Contains potentially toxic language: " + strings.Join(found, ", "),
		Severity:  model.SeverityHigh,
		Details:   &model.Details{Terms: found},
	}}
}

// checkRelevance stops at the first stage that fires.
func (v *Validator) checkRelevance(query string) []model.Violation {
	if v.topic == "" {
		return nil
	}
	rel := v.rules.Relevance
	topic := strings.ToLower(v.topic)

	if rules.MatchAny(query, rel.MaliciousIntent) && rules.MatchAny(query, rel.HarmfulTargets) {
		return []model.Violation{{
			Validator: model.CheckRelevance,
			Reason:    fmt.Sprintf("Query requests malicious content that is not related to %s research", topic),
			Severity:  model.SeverityHigh,
			Details: &model.Details{
				Matches: append(rules.MatchAll(query, rel.MaliciousIntent), rules.MatchAll(query, rel.HarmfulTargets)...),
			},
		}}
	}

	for _, pattern := range rel.OffTopic {
		if rules.MatchAny(query, []string{pattern}) {
			return []model.Violation{{
				Validator: model.CheckRelevance,
				Reason:    fmt.Sprintf("Query appears off-topic for %s research", topic),
				Severity:  model.SeverityHigh,
				Details:   &model.Details{Matches: []string{pattern}},
			}}
		}
	}

	if len(strings.Fields(query)) > rel.MinTokens && !rules.MatchAny(query, v.topicKeywords) {
		reason := fmt.Sprintf("Query does not appear related to %s.", topic)
		if rel.Guidance != "" {
			reason += " " + rel.Guidance
		}
		return []model.Violation{{
			Validator: model.CheckRelevance,
			Reason:    reason,
			Severity:  model.SeverityMedium,
		}}
	}
	return nil
}
