package promptguardv1

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/promptguard/internal/model"
)

func TestEncodeDecodeOutputResult(t *testing.T) {
	in := model.OutputResult{
		Safe: false,
		Violations: []model.Violation{{
			Validator: model.CheckPII,
			Reason:    "Contains email",
			Severity:  model.SeverityHigh,
			Details:   &model.Details{PIIType: "email", Matches: []string{"a@b.com"}},
		}},
		Response: "[REDACTED]",
		Action:   model.ActionSanitize,
	}

	s, err := Encode(in)
	require.NoError(t, err)
	assert.Equal(t, "[REDACTED]", s.Fields["response"].GetStringValue())

	var out model.OutputResult
	require.NoError(t, Decode(s, &out))
	assert.Equal(t, in, out)
}

func TestDecodeNilLeavesValue(t *testing.T) {
	req := CheckInputRequest{Query: "kept"}
	require.NoError(t, Decode(nil, &req))
	assert.Equal(t, "kept", req.Query)
}

func TestServiceDescMethods(t *testing.T) {
	names := make([]string, len(ServiceDesc.Methods))
	for i, m := range ServiceDesc.Methods {
		names[i] = m.MethodName
	}
	assert.Equal(t, []string{"CheckInput", "CheckOutput", "Stats", "ClearEvents"}, names)
	assert.Equal(t, "promptguard.v1.SafetyService", ServiceDesc.ServiceName)
}
