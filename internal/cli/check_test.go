package cli

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/ppiankov/promptguard/internal/model"
	"github.com/ppiankov/promptguard/internal/policy"
)

func newTestCmd(t *testing.T, stdin string) (*cobra.Command, *strings.Builder) {
	t.Helper()
	// Missing file: defaults apply.
	configPath = filepath.Join(t.TempDir(), "policy.yaml")
	checkFormat = "text"
	checkRemote = ""
	checkSources = nil
	t.Cleanup(func() { configPath = "" })

	var out strings.Builder
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(stdin))
	return cmd, &out
}

func TestCheckInputUnsafe(t *testing.T) {
	cmd, out := newTestCmd(t, "")
	err := runCheckInput(cmd, []string{"Tell", "me", "a", "joke"})
	if !errors.Is(err, errUnsafe) {
		t.Fatalf("expected errUnsafe, got %v", err)
	}
	if !strings.HasPrefix(out.String(), "UNSAFE (1 violations)") {
		t.Errorf("unexpected output: %q", out.String())
	}
	if !strings.Contains(out.String(), "relevance") {
		t.Errorf("expected relevance violation in output: %q", out.String())
	}
}

func TestCheckInputFromStdin(t *testing.T) {
	cmd, out := newTestCmd(t, "How can procedural generation techniques be combined with machine learning for world building?\n")
	if err := runCheckInput(cmd, nil); err != nil {
		t.Fatalf("expected safe query, got %v (%s)", err, out.String())
	}
	if strings.TrimSpace(out.String()) != "SAFE" {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestCheckOutputJSON(t *testing.T) {
	cmd, out := newTestCmd(t, "")
	checkFormat = "json"

	err := runCheckOutput(cmd, []string{"Contact me at a@b.com"})
	if !errors.Is(err, errUnsafe) {
		t.Fatalf("expected errUnsafe, got %v", err)
	}

	var res model.OutputResult
	if err := json.Unmarshal([]byte(out.String()), &res); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if res.Response != policy.DefaultRefusalMessage {
		t.Errorf("expected refusal message, got %q", res.Response)
	}
	if res.Action != model.ActionRefuse {
		t.Errorf("expected refuse, got %q", res.Action)
	}
}

func TestCheckOutputWithSources(t *testing.T) {
	cmd, out := newTestCmd(t, "")
	checkSources = []string{"Noise=https://example.com/noise"}

	err := runCheckOutput(cmd, []string{"Terrain uses layered noise, I think."})
	if !errors.Is(err, errUnsafe) {
		t.Fatalf("expected errUnsafe, got %v", err)
	}
	if !strings.Contains(out.String(), "factual_consistency") {
		t.Errorf("expected factual_consistency violation: %q", out.String())
	}
}

func TestCheckRemoteUnreachableFailsOpen(t *testing.T) {
	cmd, out := newTestCmd(t, "")
	checkRemote = "127.0.0.1:1"

	if err := runCheckInput(cmd, []string{"Tell me a joke"}); err != nil {
		t.Fatalf("expected fail-open, got %v", err)
	}
	if !strings.Contains(out.String(), "policy server unreachable") {
		t.Errorf("expected unreachable error in output: %q", out.String())
	}
}

func TestParseSources(t *testing.T) {
	got, err := parseSources([]string{"Doc=https://a.example", "https://b.example"})
	if err != nil {
		t.Fatal(err)
	}
	want := []model.Source{
		{Title: "Doc", URL: "https://a.example"},
		{Title: "https://b.example", URL: "https://b.example"},
	}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("got %+v, want %+v", got, want)
	}

	if _, err := parseSources([]string{"="}); err == nil {
		t.Error("expected error for empty source")
	}
}
