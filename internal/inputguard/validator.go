// Package inputguard validates inbound queries before they reach the
// generation pipeline. Inputs are never rewritten: a verdict's sanitized
// text is always the query itself.
package inputguard

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ppiankov/promptguard/internal/detect"
	"github.com/ppiankov/promptguard/internal/model"
	"github.com/ppiankov/promptguard/internal/rules"
)

// Validator runs the deterministic input checks plus any advanced detectors.
type Validator struct {
	rules         *rules.Set
	topic         string
	topicKeywords []string
	advanced      []detect.Detector
	logger        zerolog.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithTopic enables the relevance check for topic.
func WithTopic(topic string) Option {
	return func(v *Validator) { v.topic = topic }
}

// WithTopicKeywords overrides the rule set's topic keyword list.
// An empty list keeps the rule set defaults.
func WithTopicKeywords(keywords []string) Option {
	return func(v *Validator) {
		if len(keywords) > 0 {
			v.topicKeywords = keywords
		}
	}
}

// WithDetectors adds advanced detectors that run alongside the built-in checks.
func WithDetectors(d ...detect.Detector) Option {
	return func(v *Validator) { v.advanced = append(v.advanced, d...) }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(v *Validator) { v.logger = l }
}

// New builds a Validator. A nil set uses rules.Default().
func New(set *rules.Set, opts ...Option) *Validator {
	if set == nil {
		set = rules.Default()
	}
	v := &Validator{
		rules:         set,
		topicKeywords: set.Relevance.TopicKeywords,
		logger:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Topic returns the configured topic, empty when relevance is disabled.
func (v *Validator) Topic() string { return v.topic }

// Validate checks query. Every check runs; violations are ordered by check.
// Advanced detector violations follow the built-in ones. When an advanced
// detector reports ErrUnavailable, only the length check runs from the
// built-in set. Any other detector failure is returned as an error.
func (v *Validator) Validate(ctx context.Context, query string) (model.Verdict, error) {
	var advanced []model.Violation
	unavailable := false
	for _, d := range v.advanced {
		viols, err := d.Check(ctx, query)
		if err != nil {
			if detect.IsUnavailable(err) {
				v.logger.Warn().Err(err).Str("detector", d.Name()).Msg("advanced detector unavailable")
				unavailable = true
				continue
			}
			return model.Verdict{}, fmt.Errorf("inputguard: detector %s: %w", d.Name(), err)
		}
		advanced = append(advanced, viols...)
	}

	checks := v.builtins()
	if unavailable {
		checks = checks[:1]
	}

	var violations []model.Violation
	for _, c := range checks {
		viols, err := c.Check(ctx, query)
		if err != nil {
			return model.Verdict{}, fmt.Errorf("inputguard: check %s: %w", c.Name(), err)
		}
		violations = append(violations, viols...)
	}
	violations = append(violations, advanced...)

	v.logger.Debug().
		Int("violations", len(violations)).
		Bool("degraded", unavailable).
		Msg("input validated")

	return model.NewVerdict(query, violations, query), nil
}
