package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/ppiankov/promptguard/internal/model"
	"github.com/ppiankov/promptguard/internal/policy"
)

// Version is reported to MCP clients during initialization.
const Version = "0.1.0"

// Guard is the policy surface the tools call into. Both *policy.Manager and
// *server.Server satisfy it.
type Guard interface {
	CheckInput(ctx context.Context, query string) model.InputResult
	CheckOutput(ctx context.Context, response string, sources []model.Source) model.OutputResult
	Stats() model.Stats
	Events() []model.SafetyEvent
}

// Config holds MCP server configuration. When Guard is nil a policy manager
// is built from PolicyPath.
type Config struct {
	PolicyPath string
	Guard      Guard
	Logger     zerolog.Logger
}

// Server wraps the MCP SDK server with promptguard checks.
type Server struct {
	mcpServer *mcpsdk.Server
	guard     Guard
	owned     *policy.Manager
	logger    zerolog.Logger
}

// New creates an MCP server with its tools registered.
func New(ctx context.Context, cfg Config) (*Server, error) {
	s := &Server{guard: cfg.Guard, logger: cfg.Logger}

	if s.guard == nil {
		policyCfg, err := policy.LoadConfig(cfg.PolicyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load policy config: %w", err)
		}
		mgr, err := policy.New(ctx, policyCfg, policy.WithLogger(cfg.Logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create policy manager: %w", err)
		}
		s.guard = mgr
		s.owned = mgr
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "promptguard",
			Version: Version,
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// Run starts the MCP server on stdio transport. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info().Msg("mcp server listening on stdio")
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// Close releases the policy manager when the server built its own.
func (s *Server) Close() error {
	if s.owned != nil {
		return s.owned.Close()
	}
	return nil
}
