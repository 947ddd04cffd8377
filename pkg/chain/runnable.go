// Package chain provides typed runnable composition: a unit of work with one input
// and one output that can be piped into the next.
package chain

import (
	"context"
	"fmt"

	"chaincheck/pkg/llm"
)

// Runnable is an invocable step.
type Runnable[I, O any] interface {
	Invoke(ctx context.Context, in I) (O, error)
}

// Func adapts a plain function to Runnable.
type Func[I, O any] func(ctx context.Context, in I) (O, error)

// Invoke calls f.
func (f Func[I, O]) Invoke(ctx context.Context, in I) (O, error) {
	return f(ctx, in)
}

// Lambda wraps a context-free, pure function.
func Lambda[I, O any](fn func(I) (O, error)) Runnable[I, O] {
	return Func[I, O](func(_ context.Context, in I) (O, error) {
		return fn(in)
	})
}

// Pipe runs first and feeds its output to second. A failure in first stops the pipe.
func Pipe[A, B, C any](first Runnable[A, B], second Runnable[B, C]) Runnable[A, C] {
	return Func[A, C](func(ctx context.Context, in A) (C, error) {
		mid, err := first.Invoke(ctx, in)
		if err != nil {
			var zero C
			return zero, err
		}
		return second.Invoke(ctx, mid)
	})
}

// Then3 pipes three steps.
func Then3[A, B, C, D any](a Runnable[A, B], b Runnable[B, C], c Runnable[C, D]) Runnable[A, D] {
	return Pipe(Pipe(a, b), c)
}

// Model adapts a chat client to the runnable shape used by prompt pipelines.
func Model(client llm.LLMClient) Runnable[[]llm.CompletionMessage, llm.CompletionResponse] {
	return Func[[]llm.CompletionMessage, llm.CompletionResponse](
		func(ctx context.Context, messages []llm.CompletionMessage) (llm.CompletionResponse, error) {
			resp, err := client.Complete(ctx, llm.NewCompletionRequest(messages))
			if err != nil {
				return llm.CompletionResponse{}, fmt.Errorf("model %s: %w", client.GetModelName(), err)
			}
			return resp, nil
		})
}

// StringOutput extracts the text content of a chat response. An empty reply is
// returned as "", not an error.
func StringOutput() Runnable[llm.CompletionResponse, string] {
	return Lambda(func(resp llm.CompletionResponse) (string, error) {
		return resp.Content, nil
	})
}
