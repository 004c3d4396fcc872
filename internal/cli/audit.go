package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/promptguard/internal/audit"
	"github.com/ppiankov/promptguard/internal/model"
)

var (
	tailLines      int
	queryDirection string
	queryLimit     int
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditTailCmd)
	auditCmd.AddCommand(auditQueryCmd)
	auditTailCmd.Flags().IntVarP(&tailLines, "lines", "n", 10, "Number of recent entries to show")
	auditQueryCmd.Flags().StringVar(&queryDirection, "direction", "", "Filter by direction (input|output)")
	auditQueryCmd.Flags().IntVarP(&queryLimit, "limit", "n", 20, "Maximum number of entries")
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Safety event log operations",
	Long:  "Commands for verifying and inspecting the hash-chained safety log and the SQLite sink.",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify <path>",
	Short: "Verify hash chain integrity of a safety log",
	Long:  "Walks the JSONL safety log and validates that every entry's prev_hash\nmatches the SHA-256 of the previous entry. Exits 0 if valid, 1 if tampered.",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditVerify,
}

var auditTailCmd = &cobra.Command{
	Use:   "tail <path>",
	Short: "Show recent safety log entries",
	Long:  "Reads the last N entries from the JSONL safety log and pretty-prints them.",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditTail,
}

var auditQueryCmd = &cobra.Command{
	Use:   "query <sqlite-path>",
	Short: "Query events stored by the SQLite sink",
	Long:  "Lists the most recent events from the SQLite sink database, newest first.",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditQuery,
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	result := audit.Verify(args[0])
	if result.Valid {
		fmt.Fprintf(cmd.OutOrStdout(), "OK: %d entries verified (%d input, %d output)\n", result.Lines, result.Input, result.Output)
		return nil
	}
	return fmt.Errorf("FAILED at line %d: %s", result.ErrorLine, result.Error)
}

func runAuditTail(cmd *cobra.Command, args []string) error {
	entries, err := audit.Tail(args[0], tailLines)
	if err != nil {
		return err
	}
	return printEntries(cmd, entries)
}

func runAuditQuery(cmd *cobra.Command, args []string) error {
	dir := model.Direction(queryDirection)
	if dir != "" && dir != model.DirectionInput && dir != model.DirectionOutput {
		return fmt.Errorf("invalid --direction %q (want input or output)", queryDirection)
	}

	store, err := audit.OpenSQLite(args[0])
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Entries(context.Background(), dir, queryLimit)
	if err != nil {
		return err
	}
	return printEntries(cmd, entries)
}

func printEntries(cmd *cobra.Command, entries []audit.Entry) error {
	for _, e := range entries {
		out, err := json.MarshalIndent(e, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal entry: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
	}
	return nil
}
