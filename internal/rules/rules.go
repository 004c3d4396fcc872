// Package rules holds the declarative rule data the validators run against:
// phrase and keyword lists, PII patterns, category tables and length bounds.
// A Set carries no behavior beyond validation, compilation and matching helpers.
package rules

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var embedded []byte

// Length bounds a query in characters.
type Length struct {
	Min int `yaml:"min" validate:"gte=0"`
	Max int `yaml:"max" validate:"gtfield=Min"`
}

// Relevance configures the topical relevance check.
type Relevance struct {
	MaliciousIntent []string `yaml:"malicious_intent" validate:"dive,required"`
	HarmfulTargets  []string `yaml:"harmful_targets" validate:"dive,required"`
	OffTopic        []string `yaml:"off_topic" validate:"dive,required"`
	MinTokens       int      `yaml:"min_tokens" validate:"gte=0"`
	TopicKeywords   []string `yaml:"topic_keywords" validate:"dive,required"`
	Guidance        string   `yaml:"guidance"`
}

// PIIPattern is one PII kind. RejectBefore and RejectAfter list characters
// that, when adjacent to a match, disqualify it.
type PIIPattern struct {
	Name         string `yaml:"name" validate:"required"`
	Regex        string `yaml:"regex" validate:"required"`
	RejectBefore string `yaml:"reject_before,omitempty"`
	RejectAfter  string `yaml:"reject_after,omitempty"`

	compiled *regexp.Regexp
}

// Compiled returns the compiled regex, or nil before Set.Compile.
func (p PIIPattern) Compiled() *regexp.Regexp {
	return p.compiled
}

// Category is a named keyword list.
type Category struct {
	Name     string   `yaml:"name" validate:"required"`
	Keywords []string `yaml:"keywords" validate:"min=1,dive,required"`
}

// Set is the full rule set.
type Set struct {
	Length            Length       `yaml:"length"`
	InjectionPhrases  []string     `yaml:"injection_phrases" validate:"dive,required"`
	ToxicKeywords     []string     `yaml:"toxic_keywords" validate:"dive,required"`
	Relevance         Relevance    `yaml:"relevance"`
	PII               []PIIPattern `yaml:"pii" validate:"dive"`
	HarmfulCategories []Category   `yaml:"harmful_categories" validate:"dive"`
	BiasCategories    []Category   `yaml:"bias_categories" validate:"dive"`
	CitationWords     []string     `yaml:"citation_words" validate:"dive,required"`
	HedgingPhrases    []string     `yaml:"hedging_phrases" validate:"dive,required"`
	RedactionToken    string       `yaml:"redaction_token" validate:"required"`

	compiled bool
}

var (
	defaultOnce sync.Once
	defaultSet  *Set
)

// Default returns the compiled built-in rule set. The result is shared and
// must be treated as read-only.
func Default() *Set {
	defaultOnce.Do(func() {
		s, err := parse(embedded)
		if err != nil {
			panic(fmt.Sprintf("rules: embedded rule set: %v", err))
		}
		defaultSet = s
	})
	return defaultSet
}

// DefaultYAML returns the embedded rule file, useful as a starting point for overrides.
func DefaultYAML() []byte {
	out := make([]byte, len(embedded))
	copy(out, embedded)
	return out
}

// LoadFile reads an override file. Keys absent from the file keep the
// built-in values; lists present in the file replace the built-in list.
func LoadFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rules: read %s: %w", path, err)
	}
	var s Set
	if err := yaml.Unmarshal(embedded, &s); err != nil {
		return nil, fmt.Errorf("rules: parse embedded: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("rules: parse %s: %w", path, err)
	}
	if err := s.Compile(); err != nil {
		return nil, err
	}
	return &s, nil
}

func parse(data []byte) (*Set, error) {
	var s Set
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("rules: parse: %w", err)
	}
	if err := s.Compile(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Compile validates the set, lowercases every phrase list and compiles the
// PII patterns. Calling it twice is a no-op.
func (s *Set) Compile() error {
	if s.compiled {
		return nil
	}
	if err := validator.New().Struct(s); err != nil {
		return fmt.Errorf("rules: invalid rule set: %w", err)
	}

	seen := make(map[string]bool, len(s.PII))
	for i := range s.PII {
		p := &s.PII[i]
		if seen[p.Name] {
			return fmt.Errorf("rules: duplicate pii pattern %q", p.Name)
		}
		seen[p.Name] = true
		re, err := regexp.Compile(p.Regex)
		if err != nil {
			return fmt.Errorf("rules: compile pii pattern %q: %w", p.Name, err)
		}
		p.compiled = re
	}

	lowerAll(s.InjectionPhrases)
	lowerAll(s.ToxicKeywords)
	lowerAll(s.Relevance.MaliciousIntent)
	lowerAll(s.Relevance.HarmfulTargets)
	lowerAll(s.Relevance.OffTopic)
	lowerAll(s.Relevance.TopicKeywords)
	lowerAll(s.CitationWords)
	lowerAll(s.HedgingPhrases)
	for i := range s.HarmfulCategories {
		lowerAll(s.HarmfulCategories[i].Keywords)
	}
	for i := range s.BiasCategories {
		lowerAll(s.BiasCategories[i].Keywords)
	}

	s.compiled = true
	return nil
}

// HarmfulCategoryNames lists harmful category names in table order.
func (s *Set) HarmfulCategoryNames() []string {
	names := make([]string, len(s.HarmfulCategories))
	for i, c := range s.HarmfulCategories {
		names[i] = c.Name
	}
	return names
}

func lowerAll(list []string) {
	for i, v := range list {
		list[i] = strings.ToLower(v)
	}
}

// MatchAll returns every phrase contained in text, case-insensitively, in list order.
func MatchAll(text string, phrases []string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, p := range phrases {
		if strings.Contains(lower, strings.ToLower(p)) {
			found = append(found, p)
		}
	}
	return found
}

// MatchAny reports whether text contains any phrase, case-insensitively.
func MatchAny(text string, phrases []string) bool {
	lower := strings.ToLower(text)
	for _, p := range phrases {
		if strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
