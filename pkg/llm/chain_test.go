package llm

import (
	"context"
	"errors"
	"testing"
)

// TestWrapClient tests the WrapClient helper function.
func TestWrapClient(t *testing.T) {
	completeCalled := false

	client := WrapClient(
		func(_ context.Context, _ CompletionRequest) (CompletionResponse, error) {
			completeCalled = true
			return CompletionResponse{Content: "wrapped"}, nil
		},
		func() string {
			return "wrapped-model"
		},
	)

	resp, err := client.Complete(context.Background(), NewCompletionRequest([]CompletionMessage{NewUserMessage("test")}))
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !completeCalled {
		t.Error("Complete function was not called")
	}
	if resp.Content != "wrapped" {
		t.Errorf("expected 'wrapped', got %q", resp.Content)
	}
	if client.GetModelName() != "wrapped-model" {
		t.Errorf("expected 'wrapped-model', got %q", client.GetModelName())
	}
}

type recordingClient struct {
	calls int
	err   error
}

func (r *recordingClient) Complete(_ context.Context, _ CompletionRequest) (CompletionResponse, error) {
	r.calls++
	if r.err != nil {
		return CompletionResponse{}, r.err
	}
	return CompletionResponse{Content: "base"}, nil
}

func (r *recordingClient) GetModelName() string { return "base-model" }

// TestChainOrder verifies that earlier middlewares run first.
func TestChainOrder(t *testing.T) {
	var order []string

	tag := func(name string) Middleware {
		return func(next LLMClient) LLMClient {
			return WrapClient(
				func(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
					order = append(order, name)
					return next.Complete(ctx, req)
				},
				next.GetModelName,
			)
		}
	}

	base := &recordingClient{}
	client := Chain(base, tag("first"), tag("second"), tag("third"))

	if _, err := client.Complete(context.Background(), CompletionRequest{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []string{"first", "second", "third"}
	if len(order) != len(expected) {
		t.Fatalf("expected %d middleware calls, got %d", len(expected), len(order))
	}
	for i := range expected {
		if order[i] != expected[i] {
			t.Errorf("position %d: expected %s, got %s", i, expected[i], order[i])
		}
	}
	if base.calls != 1 {
		t.Errorf("expected base client to be called once, got %d", base.calls)
	}
	if client.GetModelName() != "base-model" {
		t.Errorf("expected model name to pass through, got %q", client.GetModelName())
	}
}

// TestChainNoMiddleware verifies the base client is returned untouched.
func TestChainNoMiddleware(t *testing.T) {
	base := &recordingClient{err: errors.New("boom")}
	client := Chain(base)

	if client != LLMClient(base) {
		t.Error("expected Chain with no middleware to return the base client")
	}
	if _, err := client.Complete(context.Background(), CompletionRequest{}); err == nil {
		t.Error("expected error to pass through")
	}
}
