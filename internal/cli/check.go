package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/promptguard/internal/client"
	"github.com/ppiankov/promptguard/internal/model"
	"github.com/ppiankov/promptguard/internal/policy"
)

var (
	checkFormat  string
	checkRemote  string
	checkSources []string
)

func init() {
	rootCmd.AddCommand(checkInputCmd)
	rootCmd.AddCommand(checkOutputCmd)
	for _, c := range []*cobra.Command{checkInputCmd, checkOutputCmd} {
		c.Flags().StringVarP(&checkFormat, "format", "f", "text", "Output format (text|json)")
		c.Flags().StringVar(&checkRemote, "remote", "", "Policy server address (host:port); checks run locally when empty")
	}
	checkOutputCmd.Flags().StringArrayVar(&checkSources, "source", nil, "Source as title=url; repeatable. Enables the factual-consistency check")
}

var checkInputCmd = &cobra.Command{
	Use:   "check-input [query]",
	Short: "Validate a user query",
	Long: "Runs the length, prompt-injection, toxic-language and relevance checks.\n" +
		"The query is read from the arguments, or from stdin when none are given.\n\n" +
		"Exit code 0 if safe, 1 if any check fails.",
	RunE: runCheckInput,
}

var checkOutputCmd = &cobra.Command{
	Use:   "check-output [response]",
	Short: "Validate a model response",
	Long: "Runs the PII, harmful-content, bias and factual-consistency checks and\n" +
		"prints the text to deliver: the original, a sanitized copy or the refusal message.\n\n" +
		"Exit code 0 if safe, 1 if any check fails.",
	RunE: runCheckOutput,
}

// checker is satisfied by both the local policy manager and the gRPC client.
type checker interface {
	CheckInput(ctx context.Context, query string) model.InputResult
	CheckOutput(ctx context.Context, response string, sources []model.Source) model.OutputResult
	Close() error
}

func newChecker(ctx context.Context) (checker, error) {
	if checkRemote != "" {
		return client.New(checkRemote)
	}
	cfg, err := policy.LoadConfig(policyPath())
	if err != nil {
		return nil, err
	}
	return policy.New(ctx, cfg, policy.WithLogger(logger))
}

func runCheckInput(cmd *cobra.Command, args []string) error {
	query, err := textArg(cmd, args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	c, err := newChecker(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	res := c.CheckInput(ctx, query)
	if err := printResult(cmd.OutOrStdout(), res, res.Safe, res.Violations, res.Error, ""); err != nil {
		return err
	}
	if !res.Safe {
		return errUnsafe
	}
	return nil
}

func runCheckOutput(cmd *cobra.Command, args []string) error {
	response, err := textArg(cmd, args)
	if err != nil {
		return err
	}
	sources, err := parseSources(checkSources)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	c, err := newChecker(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	res := c.CheckOutput(ctx, response, sources)
	if err := printResult(cmd.OutOrStdout(), res, res.Safe, res.Violations, res.Error, res.Response); err != nil {
		return err
	}
	if !res.Safe {
		return errUnsafe
	}
	return nil
}

func textArg(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// parseSources turns "title=url" flags into sources. A bare value is used as both.
func parseSources(raw []string) ([]model.Source, error) {
	sources := make([]model.Source, 0, len(raw))
	for _, r := range raw {
		title, url, ok := strings.Cut(r, "=")
		if !ok {
			title, url = r, r
		}
		title, url = strings.TrimSpace(title), strings.TrimSpace(url)
		if title == "" && url == "" {
			return nil, fmt.Errorf("invalid --source %q (want title=url)", r)
		}
		sources = append(sources, model.Source{Title: title, URL: url})
	}
	return sources, nil
}

func printResult(w io.Writer, res any, safe bool, viols []model.Violation, errMsg, deliver string) error {
	if checkFormat == "json" {
		out, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		fmt.Fprintln(w, string(out))
		return nil
	}

	if safe {
		fmt.Fprintln(w, "SAFE")
	} else {
		fmt.Fprintf(w, "UNSAFE (%d violations)\n", len(viols))
	}
	for _, v := range viols {
		fmt.Fprintf(w, "  [%s] %s: %s\n", v.Severity, v.Validator, v.Reason)
	}
	if errMsg != "" {
		fmt.Fprintf(w, "  check error: %s\n", errMsg)
	}
	if deliver != "" {
		fmt.Fprintf(w, "\n%s\n", deliver)
	}
	return nil
}
