package promptguard

import (
	"context"

	"github.com/ppiankov/promptguard/internal/model"
)

// GenerateFunc produces a response for a query, optionally with the sources
// it drew on.
type GenerateFunc func(ctx context.Context, query string) (response string, sources []Source, err error)

// Wrap returns a GenerateFunc that checks the query before calling fn and the
// response after.
//
// An unsafe query returns *InputRejectedError without calling fn. A refused
// response returns the refusal message and a *RefusedError. A sanitized
// response is returned with a nil error. Errors from fn pass through unchecked.
func (c *Client) Wrap(fn GenerateFunc) GenerateFunc {
	return func(ctx context.Context, query string) (string, []Source, error) {
		in := c.checker.CheckInput(ctx, query)
		if !in.Safe {
			return "", nil, &InputRejectedError{Query: query, Violations: in.Violations}
		}

		response, sources, err := fn(ctx, query)
		if err != nil {
			return response, sources, err
		}

		out := c.checker.CheckOutput(ctx, response, sources)
		if !out.Safe && out.Action != model.ActionSanitize {
			return out.Response, sources, &RefusedError{Message: out.Response, Violations: out.Violations}
		}
		return out.Response, sources, nil
	}
}
