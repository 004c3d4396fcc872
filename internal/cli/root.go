package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ppiankov/promptguard/internal/logging"
	"github.com/ppiankov/promptguard/internal/policy"
)

const (
	envConfig   = "PROMPTGUARD_CONFIG"
	envLogLevel = "PROMPTGUARD_LOG_LEVEL"
)

// errUnsafe makes a check command exit 1 after printing its verdict.
var errUnsafe = errors.New("content failed safety checks")

var (
	configPath string
	logLevel   string
	logger     = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:           "promptguard",
	Short:         "Input and output guardrails for LLM pipelines",
	Long:          "Validates user queries before they reach a model and model responses before they reach a user.\nUnsafe output is sanitized or refused according to policy; every flagged check is logged.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional.
		_ = godotenv.Load()
		if !cmd.Flags().Changed("log-level") {
			if lvl := os.Getenv(envLogLevel); lvl != "" {
				logLevel = lvl
			}
		}
		logger = logging.Console(logLevel)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to policy YAML (default $"+envConfig+" or ~/.promptguard/policy.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug|info|warn|error)")
}

// policyPath resolves --config, then $PROMPTGUARD_CONFIG, then the default location.
func policyPath() string {
	if configPath != "" {
		return configPath
	}
	if p := os.Getenv(envConfig); p != "" {
		return p
	}
	return policy.DefaultPath()
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errUnsafe) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}
