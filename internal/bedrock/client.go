// Package bedrock is a thin AWS Bedrock client for Anthropic Claude models.
package bedrock

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// DefaultModelID is used when no model is configured.
const DefaultModelID = "anthropic.claude-3-haiku-20240307-v1:0"

// RuntimeAPI is the subset of the bedrockruntime client used here.
type RuntimeAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Client invokes one Claude model through Bedrock.
type Client struct {
	api     RuntimeAPI
	modelID string
}

// NewClient loads the default AWS configuration for region and builds a client.
func NewClient(ctx context.Context, region, modelID string) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("bedrock: load aws config: %w", err)
	}
	return NewWithAPI(bedrockruntime.NewFromConfig(cfg), modelID), nil
}

// NewWithAPI wraps an existing runtime client.
func NewWithAPI(api RuntimeAPI, modelID string) *Client {
	if modelID == "" {
		modelID = DefaultModelID
	}
	return &Client{api: api, modelID: modelID}
}

// ModelID returns the configured model identifier.
func (c *Client) ModelID() string {
	return c.modelID
}
