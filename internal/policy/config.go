package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/promptguard/internal/alert"
	"github.com/ppiankov/promptguard/internal/audit"
	"github.com/ppiankov/promptguard/internal/model"
)

// DefaultRefusalMessage replaces unsafe output under the refuse action.
const DefaultRefusalMessage = "I cannot provide this response due to safety policies."

// SystemConfig describes the deployment's subject area.
type SystemConfig struct {
	// Topic enables the input relevance check. Empty disables it.
	Topic string `yaml:"topic" json:"topic"`
	// TopicKeywords replaces the rule set's topic keywords when non-empty.
	TopicKeywords []string `yaml:"topic_keywords" json:"topic_keywords" validate:"dive,required"`
}

// OnViolation is the enforcement applied to unsafe output.
type OnViolation struct {
	Action  model.Action `yaml:"action" json:"action" validate:"oneof=sanitize refuse"`
	Message string       `yaml:"message" json:"message" validate:"required_if=Action refuse"`
}

// ClassifierConfig enables the model-backed advanced detector.
type ClassifierConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Region  string `yaml:"region" json:"region" validate:"required_if=Enabled true"`
	ModelID string `yaml:"model_id" json:"model_id"`
	// Output also classifies responses. Inputs are always classified when enabled.
	Output bool `yaml:"output" json:"output"`
}

// RedisSinkConfig publishes events to a Redis stream when Addr is set.
type RedisSinkConfig struct {
	Addr string `yaml:"addr" json:"addr" validate:"omitempty,hostname_port"`
	// Password is read from PROMPTGUARD_REDIS_PASSWORD when empty.
	Password string `yaml:"password" json:"-"`
	Stream   string `yaml:"stream" json:"stream"`
	MaxLen   int64  `yaml:"max_len" json:"max_len" validate:"gte=0"`
}

// SQLiteSinkConfig stores events in a SQLite database when Path is set.
type SQLiteSinkConfig struct {
	Path string `yaml:"path" json:"path"`
}

// SinksConfig lists the optional durable event sinks beyond the JSONL file.
type SinksConfig struct {
	Redis  RedisSinkConfig  `yaml:"redis" json:"redis"`
	SQLite SQLiteSinkConfig `yaml:"sqlite" json:"sqlite"`
}

// SafetyConfig holds the enforcement policy.
type SafetyConfig struct {
	Enabled      bool `yaml:"enabled" json:"enabled"`
	LogEvents    bool `yaml:"log_events" json:"log_events"`
	LogAllChecks bool `yaml:"log_all_checks" json:"log_all_checks"`
	// ProhibitedCategories limits the harmful-content scan. Empty checks all.
	ProhibitedCategories []string           `yaml:"prohibited_categories" json:"prohibited_categories" validate:"dive,required"`
	OnViolation          OnViolation        `yaml:"on_violation" json:"on_violation"`
	SafetyLogFile        string             `yaml:"safety_log_file" json:"safety_log_file"`
	RulesFile            string             `yaml:"rules_file" json:"rules_file"`
	Classifier           ClassifierConfig   `yaml:"classifier" json:"classifier"`
	Sinks                SinksConfig        `yaml:"sinks" json:"sinks"`
	Alerts               []alert.AlertConfig `yaml:"alerts" json:"alerts" validate:"dive"`
}

// Config is the full policy file.
type Config struct {
	System SystemConfig `yaml:"system" json:"system"`
	Safety SafetyConfig `yaml:"safety" json:"safety"`
}

// DefaultConfig returns the built-in policy.
func DefaultConfig() *Config {
	return &Config{
		System: SystemConfig{
			Topic: "AI-Generated Synthetic Realities",
		},
		Safety: SafetyConfig{
			Enabled:   true,
			LogEvents: true,
			OnViolation: OnViolation{
				Action:  model.ActionRefuse,
				Message: DefaultRefusalMessage,
			},
			Classifier: ClassifierConfig{
				Region: "us-east-1",
			},
			Sinks: SinksConfig{
				Redis: RedisSinkConfig{Stream: audit.DefaultStream},
			},
		},
	}
}

// Validate checks the config against its struct constraints.
// Failures are returned as *ConfigurationError.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
		}
		return &ConfigurationError{Field: verrs[0].Namespace(), Err: fmt.Errorf("invalid fields: %s", strings.Join(fields, ", "))}
	}
	return &ConfigurationError{Err: err}
}

// DefaultPath is ~/.promptguard/policy.yaml, or "" when no home directory is known.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".promptguard", "policy.yaml")
}

// LoadConfig loads policy configuration from a YAML file.
// Empty path falls back to ~/.promptguard/policy.yaml.
// Missing file returns defaults. Invalid YAML or invalid values return a
// *ConfigurationError.
func LoadConfig(path string) (*Config, error) {
	cfg, _, err := LoadConfigWithHash(path)
	return cfg, err
}

// LoadConfigWithHash loads policy configuration and returns its SHA-256 hash.
// The hash is computed over the raw YAML bytes on disk.
// When no file exists (defaults used), the hash is the SHA-256 of empty input.
func LoadConfigWithHash(path string) (*Config, string, error) {
	if path == "" {
		path = DefaultPath()
	}

	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, "", &ConfigurationError{Field: "path", Err: fmt.Errorf("read %s: %w", path, err)}
		}
	}

	h := sha256.Sum256(data)
	hash := "sha256:" + hex.EncodeToString(h[:])

	// Start with defaults, YAML overwrites only specified fields
	cfg := DefaultConfig()
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, "", &ConfigurationError{Err: fmt.Errorf("parse %s: %w", path, err)}
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	return cfg, hash, nil
}

// DefaultConfigYAML returns a commented YAML string for init-policy.
func DefaultConfigYAML() string {
	return `# promptguard policy configuration
# Generated by: promptguard init-policy

system:
  # Subject area for the input relevance check. Empty disables relevance.
  topic: "AI-Generated Synthetic Realities"
  # Replaces the built-in topic keywords when non-empty.
  topic_keywords: []

safety:
  # false: every check passes without inspecting text, nothing is logged.
  enabled: true
  # Record events for checks with violations.
  log_events: true
  # Also record checks that passed.
  log_all_checks: false

  # Harmful-content categories to scan output for.
  # Empty scans all: violent, hateful, dangerous, inappropriate.
  prohibited_categories: []

  # Applied to unsafe output.
  #   sanitize: redact PII spans and deliver the rest
  #   refuse:   replace the whole response with message
  on_violation:
    action: refuse
    message: "I cannot provide this response due to safety policies."

  # Append-only, hash-chained JSONL event log. Empty disables it.
  safety_log_file: ""

  # Rule override file (same schema as the built-in rules). Empty uses built-ins.
  rules_file: ""

  # Model-backed classifier via AWS Bedrock. Runs alongside the rule checks.
  classifier:
    enabled: false
    region: us-east-1
    model_id: ""
    output: false

  # Additional durable event sinks.
  sinks:
    redis:
      addr: ""
      stream: promptguard:events
      max_len: 0
    sqlite:
      path: ""

  # Webhook alerts for recorded unsafe events.
  # events: input | output | high | medium | low | all
  # format: generic | slack | pagerduty
  alerts: []
`
}
