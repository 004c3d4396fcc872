package promptguard

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ppiankov/promptguard/internal/client"
	"github.com/ppiankov/promptguard/internal/model"
	"github.com/ppiankov/promptguard/internal/policy"
)

type checker interface {
	CheckInput(ctx context.Context, query string) model.InputResult
	CheckOutput(ctx context.Context, response string, sources []model.Source) model.OutputResult
	Close() error
}

// Client runs input and output checks. Safe for concurrent use.
type Client struct {
	checker checker
	manager *policy.Manager
}

// New creates a Client with the given options.
func New(opts ...Option) (*Client, error) {
	cfg := clientConfig{logger: zerolog.Nop()}
	for _, o := range opts {
		o(&cfg)
	}

	if cfg.remoteAddr != "" {
		rc, err := client.New(cfg.remoteAddr)
		if err != nil {
			return nil, fmt.Errorf("promptguard: %w", err)
		}
		return &Client{checker: rc}, nil
	}

	policyCfg, err := policy.LoadConfig(cfg.policyPath)
	if err != nil {
		return nil, fmt.Errorf("promptguard: failed to load policy config: %w", err)
	}
	mgr, err := policy.New(context.Background(), policyCfg, policy.WithLogger(cfg.logger))
	if err != nil {
		return nil, fmt.Errorf("promptguard: failed to create policy manager: %w", err)
	}
	return &Client{checker: mgr, manager: mgr}, nil
}

// CheckInput validates a user query.
func (c *Client) CheckInput(ctx context.Context, query string) InputResult {
	return c.checker.CheckInput(ctx, query)
}

// CheckOutput validates a model response and applies the violation action.
func (c *Client) CheckOutput(ctx context.Context, response string, sources []Source) OutputResult {
	return c.checker.CheckOutput(ctx, response, sources)
}

// Stats reports event log counts for an in-process client. Remote clients
// return zero stats; query the server instead.
func (c *Client) Stats() Stats {
	if c.manager == nil {
		return Stats{}
	}
	return c.manager.Stats()
}

// Close releases the policy manager or the server connection.
func (c *Client) Close() error {
	return c.checker.Close()
}
