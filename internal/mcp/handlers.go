package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/promptguard/internal/audit"
	"github.com/ppiankov/promptguard/internal/model"
)

// CheckInputArgs is the input for promptguard_check_input.
type CheckInputArgs struct {
	Query string `json:"query" jsonschema:"User query to validate before it reaches the model"`
}

// SourceArg is one citation passed to promptguard_check_output.
type SourceArg struct {
	Title string `json:"title,omitempty" jsonschema:"Source title"`
	URL   string `json:"url,omitempty" jsonschema:"Source URL"`
}

// CheckOutputArgs is the input for promptguard_check_output.
type CheckOutputArgs struct {
	Response string      `json:"response" jsonschema:"Model response to validate before delivery"`
	Sources  []SourceArg `json:"sources,omitempty" jsonschema:"Sources the response is expected to cite"`
}

// StatsArgs is the (empty) input for promptguard_stats.
type StatsArgs struct{}

// EventsArgs is the input for promptguard_events.
type EventsArgs struct {
	Limit int `json:"limit,omitempty" jsonschema:"Return only the most recent N events (all when omitted)"`
}

// EventsResult is the output of promptguard_events. Events are flattened to
// log entries so timestamps travel as strings.
type EventsResult struct {
	Events []audit.Entry `json:"events"`
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "promptguard_check_input",
		Description: "Validate a user query for length, prompt injection, toxic language and topical relevance. Returns safe plus any violations.",
	}, s.handleCheckInput)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "promptguard_check_output",
		Description: "Validate a model response for PII, harmful content, bias and factual consistency. Returns the text to deliver: original, sanitized or a refusal.",
	}, s.handleCheckOutput)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "promptguard_stats",
		Description: "Aggregate counts over the safety event log.",
	}, s.handleStats)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "promptguard_events",
		Description: "List logged safety events, oldest first.",
	}, s.handleEvents)
}

func (s *Server) handleCheckInput(ctx context.Context, req *mcpsdk.CallToolRequest, input CheckInputArgs) (*mcpsdk.CallToolResult, model.InputResult, error) {
	res := s.guard.CheckInput(ctx, input.Query)
	if !res.Safe {
		s.logger.Debug().Int("violations", len(res.Violations)).Msg("mcp input check flagged")
	}
	return nil, res, nil
}

func (s *Server) handleCheckOutput(ctx context.Context, req *mcpsdk.CallToolRequest, input CheckOutputArgs) (*mcpsdk.CallToolResult, model.OutputResult, error) {
	sources := make([]model.Source, 0, len(input.Sources))
	for _, src := range input.Sources {
		sources = append(sources, model.Source{Title: src.Title, URL: src.URL})
	}
	res := s.guard.CheckOutput(ctx, input.Response, sources)
	if !res.Safe {
		s.logger.Debug().
			Str("action", string(res.Action)).
			Int("violations", len(res.Violations)).
			Msg("mcp output check flagged")
	}
	return nil, res, nil
}

func (s *Server) handleStats(ctx context.Context, req *mcpsdk.CallToolRequest, input StatsArgs) (*mcpsdk.CallToolResult, model.Stats, error) {
	return nil, s.guard.Stats(), nil
}

func (s *Server) handleEvents(ctx context.Context, req *mcpsdk.CallToolRequest, input EventsArgs) (*mcpsdk.CallToolResult, EventsResult, error) {
	events := s.guard.Events()
	if input.Limit > 0 && len(events) > input.Limit {
		events = events[len(events)-input.Limit:]
	}
	entries := make([]audit.Entry, 0, len(events))
	for _, ev := range events {
		entries = append(entries, audit.EntryFromEvent(ev))
	}
	return nil, EventsResult{Events: entries}, nil
}
