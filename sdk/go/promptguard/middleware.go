package promptguard

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
)

// maxBodyBytes bounds how much of a request body Middleware reads.
const maxBodyBytes = 1 << 20

// Middleware returns an http.Handler that runs the input checks on each
// request body before passing it to the next handler. For JSON bodies the
// first of "query", "prompt" or "input" is checked; otherwise the whole body.
// Rejected requests receive a 422 with a JSON body.
func (c *Client) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body == nil || r.Method == http.MethodGet || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		r.Body.Close()
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		res := c.checker.CheckInput(r.Context(), queryFromBody(body))
		if !res.Safe {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]any{
				"blocked":    true,
				"violations": res.Violations,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// queryFromBody extracts the text to check from a request body.
func queryFromBody(body []byte) string {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err == nil {
		for _, key := range []string{"query", "prompt", "input"} {
			if s, ok := fields[key].(string); ok {
				return s
			}
		}
	}
	return string(body)
}
