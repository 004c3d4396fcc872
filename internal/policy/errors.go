package policy

import (
	"fmt"

	"github.com/ppiankov/promptguard/internal/model"
)

// ConfigurationError reports a malformed policy. It is fatal at construction.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("policy: configuration: %v", e.Err)
	}
	return fmt.Sprintf("policy: configuration %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// CheckExecutionError reports a validator that failed or panicked. The
// manager recovers it and fails open.
type CheckExecutionError struct {
	Direction model.Direction
	Err       error
}

func (e *CheckExecutionError) Error() string {
	return fmt.Sprintf("policy: %s check failed: %v", e.Direction, e.Err)
}

func (e *CheckExecutionError) Unwrap() error { return e.Err }
