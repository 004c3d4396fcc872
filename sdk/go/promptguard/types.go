package promptguard

import (
	"fmt"

	"github.com/ppiankov/promptguard/internal/model"
)

type (
	// Source is a citation the response is expected to reference.
	Source = model.Source
	// Violation is one failed check.
	Violation = model.Violation
	// InputResult is the outcome of an input check.
	InputResult = model.InputResult
	// OutputResult is the outcome of an output check.
	OutputResult = model.OutputResult
	// Stats aggregates the event log.
	Stats = model.Stats
)

// InputRejectedError is returned by a wrapped function when the query fails
// input checks. The model is not called.
type InputRejectedError struct {
	Query      string
	Violations []Violation
}

func (e *InputRejectedError) Error() string {
	return fmt.Sprintf("promptguard rejected input: %s", summarize(e.Violations))
}

// RefusedError is returned alongside the refusal message when policy refuses
// an unsafe response.
type RefusedError struct {
	Message    string
	Violations []Violation
}

func (e *RefusedError) Error() string {
	return fmt.Sprintf("promptguard refused output: %s", summarize(e.Violations))
}

func summarize(viols []Violation) string {
	if len(viols) == 0 {
		return "no violations"
	}
	if len(viols) == 1 {
		return viols[0].Reason
	}
	return fmt.Sprintf("%s (+%d more)", viols[0].Reason, len(viols)-1)
}
