package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/promptguard/internal/policy"
	"github.com/ppiankov/promptguard/internal/rules"
)

var (
	initForce bool
	initRules bool
)

func init() {
	rootCmd.AddCommand(initPolicyCmd)
	initPolicyCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing files")
	initPolicyCmd.Flags().BoolVar(&initRules, "rules", false, "Also write the built-in rules.yaml next to the policy for editing")
}

var initPolicyCmd = &cobra.Command{
	Use:   "init-policy",
	Short: "Generate default policy.yaml with comments",
	Long:  "Creates ~/.promptguard/policy.yaml (or --config) with the default topic, actions and sinks.\nEdit this file to customize promptguard policy behavior.",
	RunE:  runInitPolicy,
}

func runInitPolicy(cmd *cobra.Command, args []string) error {
	path := policyPath()
	if path == "" {
		return fmt.Errorf("cannot determine home directory")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	if err := writeIfAbsent(path, []byte(policy.DefaultConfigYAML())); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)

	if initRules {
		rulesPath := filepath.Join(dir, "rules.yaml")
		if err := writeIfAbsent(rulesPath, rules.DefaultYAML()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s (set safety.rules_file to use it)\n", rulesPath)
	}
	return nil
}

func writeIfAbsent(path string, data []byte) error {
	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
