package policy

import "github.com/ppiankov/promptguard/internal/model"

// InputDecision maps an input verdict to the caller-facing result.
// Inputs are accepted or rejected, never rewritten.
func InputDecision(query string, v model.Verdict) model.InputResult {
	return model.InputResult{
		Safe:           v.Valid,
		Violations:     v.Violations,
		SanitizedQuery: query,
	}
}

// OutputDecision applies the on_violation action to an output verdict.
//
// Safe output passes through unchanged. Unsafe output is either replaced by
// the redacted text (sanitize) or by the refusal message (refuse); the
// generated text is discarded entirely on refuse. Unknown actions refuse.
func OutputDecision(response string, v model.Verdict, ov OnViolation) model.OutputResult {
	res := model.OutputResult{
		Safe:       v.Valid,
		Violations: v.Violations,
		Response:   response,
	}
	if v.Valid {
		return res
	}

	switch ov.Action {
	case model.ActionSanitize:
		res.Action = model.ActionSanitize
		res.Response = v.SanitizedText
	default:
		res.Action = model.ActionRefuse
		res.Response = ov.Message
		if res.Response == "" {
			res.Response = DefaultRefusalMessage
		}
	}
	return res
}

// failOpenInput is the result returned when the input check itself failed.
func failOpenInput(query string, err error) model.InputResult {
	return model.InputResult{
		Safe:           true,
		Violations:     []model.Violation{},
		SanitizedQuery: query,
		Error:          err.Error(),
	}
}

// failOpenOutput is the result returned when the output check itself failed.
func failOpenOutput(response string, err error) model.OutputResult {
	return model.OutputResult{
		Safe:       true,
		Violations: []model.Violation{},
		Response:   response,
		Error:      err.Error(),
	}
}
