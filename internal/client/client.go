package client

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	pb "github.com/ppiankov/promptguard/api/promptguard/v1"
	"github.com/ppiankov/promptguard/internal/model"
)

const callTimeout = 5 * time.Second

// Client connects to a promptguard gRPC policy server.
type Client struct {
	conn   *grpc.ClientConn
	client pb.SafetyServiceClient
}

// New creates a gRPC client connected to the given address.
// Fail-open: if the server cannot be reached, checks return safe with Error set.
func New(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to policy server: %w", err)
	}
	return &Client{
		conn:   conn,
		client: pb.NewSafetyServiceClient(conn),
	}, nil
}

// CheckInput sends a query to the remote policy server.
// Fail-open: returns safe on any RPC or decoding error.
func (c *Client) CheckInput(ctx context.Context, query string) model.InputResult {
	var res model.InputResult
	if err := c.call(ctx, c.client.CheckInput, pb.CheckInputRequest{Query: query}, &res); err != nil {
		return model.InputResult{
			Safe:           true,
			Violations:     []model.Violation{},
			SanitizedQuery: query,
			Error:          fmt.Sprintf("policy server unreachable: %v", err),
		}
	}
	return res
}

// CheckOutput sends a response to the remote policy server.
// Fail-open: returns the original response on any RPC or decoding error.
func (c *Client) CheckOutput(ctx context.Context, response string, sources []model.Source) model.OutputResult {
	var res model.OutputResult
	req := pb.CheckOutputRequest{Response: response, Sources: sources}
	if err := c.call(ctx, c.client.CheckOutput, req, &res); err != nil {
		return model.OutputResult{
			Safe:       true,
			Violations: []model.Violation{},
			Response:   response,
			Error:      fmt.Sprintf("policy server unreachable: %v", err),
		}
	}
	return res
}

// Stats returns the remote event log statistics.
func (c *Client) Stats(ctx context.Context) (model.Stats, error) {
	var stats model.Stats
	err := c.call(ctx, c.client.Stats, struct{}{}, &stats)
	return stats, err
}

// ClearEvents empties the remote event log and returns how many events were dropped.
func (c *Client) ClearEvents(ctx context.Context) (int, error) {
	var resp pb.ClearEventsResponse
	err := c.call(ctx, c.client.ClearEvents, struct{}{}, &resp)
	return resp.Cleared, err
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

type rpc func(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)

func (c *Client) call(ctx context.Context, method rpc, req, resp any) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	in, err := pb.Encode(req)
	if err != nil {
		return err
	}
	out, err := method(ctx, in)
	if err != nil {
		return err
	}
	return pb.Decode(out, resp)
}
