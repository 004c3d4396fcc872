// Package server hosts the policy manager behind the gRPC SafetyService
// and swaps in a freshly built manager when the policy file changes.
package server

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	pb "github.com/ppiankov/promptguard/api/promptguard/v1"
	"github.com/ppiankov/promptguard/internal/audit"
	"github.com/ppiankov/promptguard/internal/model"
	"github.com/ppiankov/promptguard/internal/policy"
)

// Config holds gRPC server configuration.
type Config struct {
	Addr       string
	PolicyPath string
	Logger     zerolog.Logger
}

// Server owns the current policy manager and the event log shared across
// reloads. It serves gRPC and is also the Guard used by the HTTP and MCP
// surfaces, so every surface sees the same policy and events.
type Server struct {
	mu         sync.RWMutex
	manager    *policy.Manager
	policyHash string

	events *audit.EventLog
	cfg    Config
	logger zerolog.Logger

	grpcServer *grpc.Server
}

// New loads the policy, opens the event log sinks and builds the first manager.
func New(ctx context.Context, cfg Config) (*Server, error) {
	policyCfg, policyHash, err := policy.LoadConfigWithHash(cfg.PolicyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load policy config: %w", err)
	}

	events, err := policy.NewEventLog(ctx, policyCfg, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}

	m, err := policy.New(ctx, policyCfg, policy.WithEventLog(events), policy.WithLogger(cfg.Logger))
	if err != nil {
		events.Close()
		return nil, fmt.Errorf("failed to build policy manager: %w", err)
	}

	s := &Server{
		manager:    m,
		policyHash: policyHash,
		events:     events,
		cfg:        cfg,
		logger:     cfg.Logger,
		grpcServer: grpc.NewServer(),
	}

	pb.RegisterSafetyServiceServer(s.grpcServer, &grpcService{s: s})
	return s, nil
}

// Serve starts the gRPC server on the configured address. Blocks until stopped.
func (s *Server) Serve() error {
	lis, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.grpcServer.Serve(lis)
}

// ServeOn starts the gRPC server on the given listener. For testing.
func (s *Server) ServeOn(lis net.Listener) error {
	return s.grpcServer.Serve(lis)
}

// GracefulStop gracefully shuts down the gRPC server.
func (s *Server) GracefulStop() {
	s.grpcServer.GracefulStop()
}

// Close closes the event log sinks.
func (s *Server) Close() error {
	return s.events.Close()
}

// PolicyHash returns the hash of the policy file currently in force.
func (s *Server) PolicyHash() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policyHash
}

func (s *Server) current() *policy.Manager {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.manager
}

// CheckInput runs the current policy's input check.
func (s *Server) CheckInput(ctx context.Context, query string) model.InputResult {
	return s.current().CheckInput(ctx, query)
}

// CheckOutput runs the current policy's output check.
func (s *Server) CheckOutput(ctx context.Context, response string, sources []model.Source) model.OutputResult {
	return s.current().CheckOutput(ctx, response, sources)
}

// Stats aggregates the shared event log.
func (s *Server) Stats() model.Stats { return s.events.Stats() }

// Events returns a copy of the shared event log.
func (s *Server) Events() []model.SafetyEvent { return s.events.Events() }

// ClearEvents empties the shared event log.
func (s *Server) ClearEvents() { s.events.Clear() }

// ReloadPolicy rebuilds the manager from the policy file and swaps it in.
// Events and sinks carry over; sink and alert settings take effect on restart.
// An unchanged file is a no-op. A broken file leaves the current policy in force.
func (s *Server) ReloadPolicy(ctx context.Context) error {
	policyCfg, policyHash, err := policy.LoadConfigWithHash(s.cfg.PolicyPath)
	if err != nil {
		return fmt.Errorf("failed to reload policy config: %w", err)
	}
	if policyHash == s.PolicyHash() {
		return nil
	}

	m, err := policy.New(ctx, policyCfg, policy.WithEventLog(s.events), policy.WithLogger(s.logger))
	if err != nil {
		return fmt.Errorf("failed to rebuild policy manager: %w", err)
	}

	s.mu.Lock()
	old := s.manager
	s.manager = m
	s.policyHash = policyHash
	s.mu.Unlock()

	return old.Close()
}

// grpcService adapts Server to the SafetyService wire API.
type grpcService struct {
	s *Server
}

func (g *grpcService) CheckInput(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req pb.CheckInputRequest
	if err := pb.Decode(in, &req); err != nil {
		return nil, err
	}
	return pb.Encode(g.s.CheckInput(ctx, req.Query))
}

func (g *grpcService) CheckOutput(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req pb.CheckOutputRequest
	if err := pb.Decode(in, &req); err != nil {
		return nil, err
	}
	return pb.Encode(g.s.CheckOutput(ctx, req.Response, req.Sources))
}

func (g *grpcService) Stats(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return pb.Encode(g.s.Stats())
}

func (g *grpcService) ClearEvents(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	n := g.s.events.Len()
	g.s.ClearEvents()
	return pb.Encode(pb.ClearEventsResponse{Cleared: n})
}
