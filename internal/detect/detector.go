// Package detect defines the Detector capability shared by built-in rule
// checks and pluggable model-backed classifiers.
package detect

//go:generate mockgen -destination=mocks/mock_detect.go -package=mocks github.com/ppiankov/promptguard/internal/detect Detector,Invoker

import (
	"context"
	"errors"

	"github.com/ppiankov/promptguard/internal/model"
)

// ErrUnavailable is returned (possibly wrapped) by a detector that cannot
// serve the current call, e.g. because its backing model is unreachable.
var ErrUnavailable = errors.New("detector unavailable")

// Detector inspects text and reports violations.
type Detector interface {
	Name() string
	Check(ctx context.Context, text string) ([]model.Violation, error)
}

// Func adapts a plain function to the Detector interface.
type Func struct {
	ID string
	Fn func(text string) []model.Violation
}

// Name returns the detector id.
func (f Func) Name() string { return f.ID }

// Check runs the wrapped function. It never fails.
func (f Func) Check(_ context.Context, text string) ([]model.Violation, error) {
	return f.Fn(text), nil
}

// IsUnavailable reports whether err signals an unavailable detector.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
