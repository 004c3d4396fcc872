package policy

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/promptguard/internal/model"
)

func writePolicy(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.Safety.Enabled {
		t.Error("expected safety enabled by default")
	}
	if !cfg.Safety.LogEvents {
		t.Error("expected log_events on by default")
	}
	if cfg.Safety.LogAllChecks {
		t.Error("expected log_all_checks off by default")
	}
	if cfg.Safety.OnViolation.Action != model.ActionRefuse {
		t.Errorf("expected refuse action, got %s", cfg.Safety.OnViolation.Action)
	}
	if cfg.Safety.OnViolation.Message != DefaultRefusalMessage {
		t.Errorf("unexpected refusal message %q", cfg.Safety.OnViolation.Message)
	}
	if len(cfg.Safety.ProhibitedCategories) != 0 {
		t.Errorf("expected empty prohibited categories, got %v", cfg.Safety.ProhibitedCategories)
	}
	if cfg.System.Topic == "" {
		t.Error("expected a default topic")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/policy.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if cfg.Safety.OnViolation.Action != model.ActionRefuse {
		t.Errorf("expected default action, got %s", cfg.Safety.OnViolation.Action)
	}
}

func TestLoadConfigFromYAML(t *testing.T) {
	path := writePolicy(t, `
system:
  topic: "procedural worlds"
  topic_keywords: [terrain, biome]
safety:
  enabled: false
  log_all_checks: true
  prohibited_categories: [violent, dangerous]
  on_violation:
    action: sanitize
  safety_log_file: /tmp/events.jsonl
  alerts:
    - url: https://hooks.example.com/x
      format: slack
      events: [output, high]
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.System.Topic != "procedural worlds" {
		t.Errorf("expected topic override, got %q", cfg.System.Topic)
	}
	if len(cfg.System.TopicKeywords) != 2 {
		t.Errorf("expected 2 topic keywords, got %v", cfg.System.TopicKeywords)
	}
	if cfg.Safety.Enabled {
		t.Error("expected enabled=false")
	}
	if !cfg.Safety.LogAllChecks {
		t.Error("expected log_all_checks=true")
	}
	if cfg.Safety.OnViolation.Action != model.ActionSanitize {
		t.Errorf("expected sanitize, got %s", cfg.Safety.OnViolation.Action)
	}
	if len(cfg.Safety.Alerts) != 1 || cfg.Safety.Alerts[0].Format != "slack" {
		t.Errorf("unexpected alerts %+v", cfg.Safety.Alerts)
	}
}

func TestLoadConfigPartialYAML(t *testing.T) {
	// Only the action changes; everything else keeps defaults.
	path := writePolicy(t, `
safety:
  on_violation:
    action: sanitize
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if !cfg.Safety.Enabled || !cfg.Safety.LogEvents {
		t.Error("expected enabled and log_events to keep defaults")
	}
	if cfg.Safety.OnViolation.Message != DefaultRefusalMessage {
		t.Errorf("expected default message kept, got %q", cfg.Safety.OnViolation.Message)
	}
	if cfg.System.Topic != DefaultConfig().System.Topic {
		t.Errorf("expected default topic, got %q", cfg.System.Topic)
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := writePolicy(t, "{{invalid yaml")

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
	var cerr *ConfigurationError
	if !errors.As(err, &cerr) {
		t.Errorf("expected *ConfigurationError, got %T", err)
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"unknown action", "safety:\n  on_violation:\n    action: block\n", "Action"},
		{"refuse without message", "safety:\n  on_violation:\n    action: refuse\n    message: \"\"\n", "Message"},
		{"classifier without region", "safety:\n  classifier:\n    enabled: true\n    region: \"\"\n", "Region"},
		{"bad alert url", "safety:\n  alerts:\n    - url: not-a-url\n      events: [input]\n", "URL"},
		{"alert without events", "safety:\n  alerts:\n    - url: https://x.example.com\n", "Events"},
		{"bad alert event", "safety:\n  alerts:\n    - url: https://x.example.com\n      events: [deny]\n", "Events"},
		{"empty category", "safety:\n  prohibited_categories: ['']\n", "ProhibitedCategories"},
		{"negative stream cap", "safety:\n  sinks:\n    redis:\n      max_len: -1\n", "MaxLen"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writePolicy(t, tt.body))
			if err == nil {
				t.Fatal("expected validation error")
			}
			var cerr *ConfigurationError
			if !errors.As(err, &cerr) {
				t.Fatalf("expected *ConfigurationError, got %T: %v", err, err)
			}
			if !strings.Contains(cerr.Error(), tt.field) {
				t.Errorf("expected error to name %s, got %v", tt.field, cerr)
			}
		})
	}
}

func TestLoadConfigWithHash(t *testing.T) {
	content := "safety:\n  log_all_checks: true\n"
	path := writePolicy(t, content)

	_, hash1, err := LoadConfigWithHash(path)
	if err != nil {
		t.Fatal(err)
	}
	_, hash2, err := LoadConfigWithHash(path)
	if err != nil {
		t.Fatal(err)
	}
	if hash1 != hash2 {
		t.Error("expected stable hash for identical content")
	}
	if !strings.HasPrefix(hash1, "sha256:") {
		t.Errorf("expected sha256: prefix, got %s", hash1)
	}

	if err := os.WriteFile(path, []byte(content+"# changed\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, hash3, err := LoadConfigWithHash(path)
	if err != nil {
		t.Fatal(err)
	}
	if hash3 == hash1 {
		t.Error("expected hash to change with content")
	}

	_, emptyHash, err := LoadConfigWithHash(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if emptyHash != "sha256:e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Errorf("expected empty-input hash for missing file, got %s", emptyHash)
	}
}

func TestDefaultConfigYAMLMatchesDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(DefaultConfigYAML()), cfg); err != nil {
		t.Fatalf("default YAML does not parse: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default YAML does not validate: %v", err)
	}

	def := DefaultConfig()
	if cfg.Safety.OnViolation != def.Safety.OnViolation {
		t.Errorf("on_violation drifted: %+v vs %+v", cfg.Safety.OnViolation, def.Safety.OnViolation)
	}
	if cfg.System.Topic != def.System.Topic {
		t.Errorf("topic drifted: %q vs %q", cfg.System.Topic, def.System.Topic)
	}
	if cfg.Safety.Sinks.Redis.Stream != def.Safety.Sinks.Redis.Stream {
		t.Errorf("redis stream drifted: %q", cfg.Safety.Sinks.Redis.Stream)
	}
}
