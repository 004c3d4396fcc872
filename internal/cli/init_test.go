package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/ppiankov/promptguard/internal/policy"
)

func TestRunInitPolicy(t *testing.T) {
	tmpDir := t.TempDir()
	configPath = filepath.Join(tmpDir, ".promptguard", "policy.yaml")
	initForce = false
	initRules = true
	defer func() { configPath, initRules = "", false }()

	var buf strings.Builder
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	if err := runInitPolicy(cmd, nil); err != nil {
		t.Fatalf("runInitPolicy failed: %v", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("policy.yaml not created: %v", err)
	}
	if !strings.Contains(string(data), "on_violation") {
		t.Error("policy.yaml missing on_violation")
	}

	// The generated file must load cleanly.
	if _, err := policy.LoadConfig(configPath); err != nil {
		t.Errorf("generated policy does not load: %v", err)
	}

	rulesData, err := os.ReadFile(filepath.Join(tmpDir, ".promptguard", "rules.yaml"))
	if err != nil {
		t.Fatalf("rules.yaml not created: %v", err)
	}
	if !strings.Contains(string(rulesData), "injection_phrases") {
		t.Error("rules.yaml missing injection_phrases")
	}
	if !strings.Contains(buf.String(), "Created") {
		t.Errorf("expected Created message, got %q", buf.String())
	}
}

func TestRunInitPolicy_NoOverwriteWithoutForce(t *testing.T) {
	tmpDir := t.TempDir()
	configPath = filepath.Join(tmpDir, "policy.yaml")
	initRules = false
	defer func() { configPath, initForce = "", false }()

	sentinel := "# sentinel content\n"
	if err := os.WriteFile(configPath, []byte(sentinel), 0o644); err != nil {
		t.Fatal(err)
	}

	initForce = false
	if err := runInitPolicy(&cobra.Command{}, nil); err == nil {
		t.Fatal("expected error when policy.yaml exists")
	}
	data, _ := os.ReadFile(configPath)
	if string(data) != sentinel {
		t.Error("policy.yaml was overwritten without --force")
	}

	initForce = true
	if err := runInitPolicy(&cobra.Command{}, nil); err != nil {
		t.Fatalf("runInitPolicy --force failed: %v", err)
	}
	data, _ = os.ReadFile(configPath)
	if string(data) == sentinel {
		t.Error("policy.yaml not overwritten with --force")
	}
}

func TestPolicyPathResolution(t *testing.T) {
	configPath = ""
	t.Setenv(envConfig, "/etc/promptguard/policy.yaml")
	if got := policyPath(); got != "/etc/promptguard/policy.yaml" {
		t.Errorf("expected env path, got %q", got)
	}

	configPath = "/tmp/flag.yaml"
	defer func() { configPath = "" }()
	if got := policyPath(); got != "/tmp/flag.yaml" {
		t.Errorf("expected flag path, got %q", got)
	}
}
