// Package outputguard validates candidate responses before delivery and
// produces a redacted variant with PII spans masked.
package outputguard

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ppiankov/promptguard/internal/detect"
	"github.com/ppiankov/promptguard/internal/model"
	"github.com/ppiankov/promptguard/internal/redact"
	"github.com/ppiankov/promptguard/internal/rules"
)

// Validator runs PII, harmful-content, bias and factual-consistency checks.
type Validator struct {
	rules      *rules.Set
	prohibited map[string]bool
	advanced   []detect.Detector
	logger     zerolog.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithProhibitedCategories limits the harmful-content scan to the named
// categories. An empty list checks every category.
func WithProhibitedCategories(categories []string) Option {
	return func(v *Validator) {
		v.prohibited = make(map[string]bool, len(categories))
		for _, c := range categories {
			v.prohibited[c] = true
		}
	}
}

// WithDetectors adds advanced detectors whose violations follow the built-in ones.
func WithDetectors(d ...detect.Detector) Option {
	return func(v *Validator) { v.advanced = append(v.advanced, d...) }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(v *Validator) { v.logger = l }
}

// New builds a Validator. A nil set uses rules.Default().
func New(set *rules.Set, opts ...Option) *Validator {
	if set == nil {
		set = rules.Default()
	}
	v := &Validator{rules: set, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks response. The factual-consistency check runs only when
// sources is non-empty. Sanitized text differs from response only by PII
// redaction.
func (v *Validator) Validate(ctx context.Context, response string, sources []model.Source) (model.Verdict, error) {
	piiViolations, spans := v.checkPII(response)

	violations := piiViolations
	violations = append(violations, v.checkHarmful(response)...)
	violations = append(violations, v.checkBias(response)...)
	if len(sources) > 0 {
		violations = append(violations, v.checkFactual(response)...)
	}

	for _, d := range v.advanced {
		viols, err := d.Check(ctx, response)
		if err != nil {
			if detect.IsUnavailable(err) {
				v.logger.Warn().Err(err).Str("detector", d.Name()).Msg("advanced detector unavailable")
				continue
			}
			return model.Verdict{}, fmt.Errorf("outputguard: detector %s: %w", d.Name(), err)
		}
		violations = append(violations, viols...)
	}

	sanitized := response
	if len(spans) > 0 {
		sanitized = redact.Redact(response, spans, v.rules.RedactionToken)
	}

	v.logger.Debug().
		Int("violations", len(violations)).
		Int("redacted", len(spans)).
		Msg("output validated")

	return model.NewVerdict(response, violations, sanitized), nil
}

func (v *Validator) checkPII(text string) ([]model.Violation, []string) {
	var (
		out   []model.Violation
		spans []string
	)
	for _, p := range v.rules.PII {
		matches := redact.ScanPattern(text, p)
		if len(matches) == 0 {
			continue
		}
		values := redact.Values(matches)
		spans = append(spans, values...)
		out = append(out, model.Violation{
			Validator: model.CheckPII,
			Reason:    "Contains " + p.Name,
			Severity:  model.SeverityHigh,
			Details:   &model.Details{PIIType: p.Name, Matches: values},
		})
	}
	return out, spans
}

func (v *Validator) checkHarmful(text string) []model.Violation {
	var out []model.Violation
	for _, cat := range v.rules.HarmfulCategories {
		if len(v.prohibited) > 0 && !v.prohibited[cat.Name] {
			continue
		}
		found := rules.MatchAll(text, cat.Keywords)
		if len(found) == 0 {
			continue
		}
		out = append(out, model.Violation{
			Validator: model.CheckHarmfulContent,
			Reason:    fmt.Sprintf("Contains potentially %s content: %s", cat.Name, strings.Join(found, ", ")),
			Severity:  model.SeverityHigh,
			Details:   &model.Details{Category: cat.Name, Terms: found},
		})
	}
	return out
}

func (v *Validator) checkBias(text string) []model.Violation {
	var out []model.Violation
	for _, cat := range v.rules.BiasCategories {
		found := rules.MatchAll(text, cat.Keywords)
		if len(found) == 0 {
			continue
		}
		out = append(out, model.Violation{
			Validator: model.CheckBias,
			Reason:    fmt.Sprintf("Contains potentially biased language (%s): %s", cat.Name, strings.Join(found, ", ")),
			Severity:  model.SeverityLow,
			Details:   &model.Details{BiasType: cat.Name, Terms: found},
		})
	}
	return out
}

func (v *Validator) checkFactual(text string) []model.Violation {
	var out []model.Violation
	cited := strings.Contains(text, "[") && strings.Contains(text, "]")
	if !cited && !rules.MatchAny(text, v.rules.CitationWords) {
		out = append(out, model.Violation{
			Validator: model.CheckFactualConsistency,
			Reason:    "Response does not cite sources",
			Severity:  model.SeverityMedium,
		})
	}
	if hedges := rules.MatchAll(text, v.rules.HedgingPhrases); len(hedges) > 0 {
		out = append(out, model.Violation{
			Validator: model.CheckFactualConsistency,
			Reason:    "Response contains uncertainty indicators: " + strings.Join(hedges, ", "),
			Severity:  model.SeverityLow,
			Details:   &model.Details{Terms: hedges},
		})
	}
	return out
}
