// Package promptguard provides in-process input and output guardrails for
// Go LLM applications. It wraps a generation function, validates the user
// query before the model sees it, and validates the response before the
// user does. Unsafe responses are sanitized or refused according to policy.
//
// Usage:
//
//	pg, err := promptguard.New(promptguard.WithPolicy("policy.yaml"))
//	defer pg.Close()
//	generate := pg.Wrap(func(ctx context.Context, query string) (string, []promptguard.Source, error) {
//	    return callModel(ctx, query)
//	})
//	answer, sources, err := generate(ctx, "How do procedural worlds stay consistent?")
//
// Checks run locally by default. WithRemote sends them to a promptguard
// policy server over gRPC instead. Both modes fail open.
package promptguard
