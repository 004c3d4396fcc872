package promptguard

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ppiankov/promptguard/internal/model"
	"github.com/ppiankov/promptguard/internal/policy"
)

const topicQuery = "How can procedural generation techniques be combined with machine learning for world building?"

func TestWrapRejectsUnsafeInput(t *testing.T) {
	c := newTestClient(t)
	called := false
	wrapped := c.Wrap(func(ctx context.Context, q string) (string, []Source, error) {
		called = true
		return "", nil, nil
	})

	_, _, err := wrapped(context.Background(), "Tell me a joke")
	rejected := requireRejected(t, err)
	if len(rejected.Violations) != 1 || rejected.Violations[0].Validator != model.CheckRelevance {
		t.Errorf("unexpected violations: %+v", rejected.Violations)
	}
	if called {
		t.Error("generate should not be called on rejected input")
	}
}

func TestWrapPassesSafeResponse(t *testing.T) {
	c := newTestClient(t)
	wrapped := c.Wrap(func(ctx context.Context, q string) (string, []Source, error) {
		return "Noise layers build terrain [1].", []Source{{Title: "Noise", URL: "https://example.com"}}, nil
	})

	resp, sources, err := wrapped(context.Background(), topicQuery)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if resp != "Noise layers build terrain [1]." {
		t.Errorf("unexpected response %q", resp)
	}
	if len(sources) != 1 {
		t.Errorf("expected sources passed through, got %d", len(sources))
	}
}

func TestWrapRefusesUnsafeResponse(t *testing.T) {
	c := newTestClient(t)
	wrapped := c.Wrap(func(ctx context.Context, q string) (string, []Source, error) {
		return "Contact me at a@b.com", nil, nil
	})

	resp, _, err := wrapped(context.Background(), topicQuery)
	var refused *RefusedError
	if !errors.As(err, &refused) {
		t.Fatalf("expected *RefusedError, got %T: %v", err, err)
	}
	if resp != policy.DefaultRefusalMessage || refused.Message != resp {
		t.Errorf("expected refusal message, got %q", resp)
	}
}

func TestWrapSanitizesUnderSanitizePolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte("safety:\n  on_violation:\n    action: sanitize\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := New(WithPolicy(path))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	wrapped := c.Wrap(func(ctx context.Context, q string) (string, []Source, error) {
		return "Contact me at a@b.com", nil, nil
	})
	resp, _, err := wrapped(context.Background(), topicQuery)
	if err != nil {
		t.Fatalf("sanitize should not error, got %v", err)
	}
	if resp != "Contact me at [REDACTED]" {
		t.Errorf("unexpected sanitized response %q", resp)
	}
}

func TestWrapPassesGenerateError(t *testing.T) {
	c := newTestClient(t)
	boom := fmt.Errorf("model timeout")
	wrapped := c.Wrap(func(ctx context.Context, q string) (string, []Source, error) {
		return "", nil, boom
	})
	if _, _, err := wrapped(context.Background(), topicQuery); !errors.Is(err, boom) {
		t.Errorf("expected generate error, got %v", err)
	}
}

func TestWrapConcurrentSafe(t *testing.T) {
	c := newTestClient(t)
	wrapped := c.Wrap(func(ctx context.Context, q string) (string, []Source, error) {
		return "Procedural worlds use seeds.", nil, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := wrapped(context.Background(), topicQuery); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestErrorMessages(t *testing.T) {
	e := &RefusedError{Violations: []Violation{{Reason: "a"}, {Reason: "b"}}}
	if e.Error() != "promptguard refused output: a (+1 more)" {
		t.Errorf("unexpected message %q", e.Error())
	}
	in := &InputRejectedError{}
	if in.Error() != "promptguard rejected input: no violations" {
		t.Errorf("unexpected message %q", in.Error())
	}
}
