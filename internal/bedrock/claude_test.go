package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRuntime struct {
	gotInput *bedrockruntime.InvokeModelInput
	body     string
	err      error
}

func (f *fakeRuntime) InvokeModel(_ context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.gotInput = in
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: []byte(f.body)}, nil
}

func TestInvokeModel(t *testing.T) {
	api := &fakeRuntime{body: `{"content":[{"type":"text","text":"DECISION: ALLOW"}],"stop_reason":"end_turn"}`}
	c := NewWithAPI(api, "")

	resp, err := c.InvokeModel(context.Background(), ClaudeRequest{Prompt: "hi", MaxTokens: 50})
	require.NoError(t, err)
	assert.Equal(t, "DECISION: ALLOW", resp.Content)
	assert.Equal(t, "end_turn", resp.StopReason)

	require.NotNil(t, api.gotInput)
	assert.Equal(t, DefaultModelID, *api.gotInput.ModelId)
	assert.Equal(t, "application/json", *api.gotInput.ContentType)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(api.gotInput.Body, &sent))
	assert.Equal(t, anthropicVersion, sent["anthropic_version"])
	assert.EqualValues(t, 50, sent["max_tokens"])
}

func TestInvokeModelErrors(t *testing.T) {
	_, err := NewWithAPI(&fakeRuntime{err: errors.New("throttled")}, "m").InvokeModel(context.Background(), ClaudeRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")

	_, err = NewWithAPI(&fakeRuntime{body: "not json"}, "m").InvokeModel(context.Background(), ClaudeRequest{})
	assert.Error(t, err)

	_, err = NewWithAPI(&fakeRuntime{body: `{"content":[]}`}, "m").InvokeModel(context.Background(), ClaudeRequest{})
	assert.Error(t, err)
}
