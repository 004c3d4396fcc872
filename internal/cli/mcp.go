package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	guardmcp "github.com/ppiankov/promptguard/internal/mcp"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP tool server for agent integration",
	Long:  "Runs promptguard as an MCP (Model Context Protocol) server over stdio.\nExposes tools: promptguard_check_input, promptguard_check_output, promptguard_stats, promptguard_events.",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := guardmcp.New(ctx, guardmcp.Config{
		PolicyPath: policyPath(),
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer srv.Close()

	fmt.Fprintln(os.Stderr, "promptguard MCP server running on stdio")
	return srv.Run(ctx)
}
