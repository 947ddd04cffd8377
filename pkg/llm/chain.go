package llm

import "context"

// CompleteFunc is the signature of LLMClient.Complete.
type CompleteFunc func(ctx context.Context, req CompletionRequest) (CompletionResponse, error)

// Middleware decorates a client, typically to observe or annotate its calls.
type Middleware func(next LLMClient) LLMClient

type wrapped struct {
	complete CompleteFunc
	model    func() string
}

func (w wrapped) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	return w.complete(ctx, req)
}

func (w wrapped) GetModelName() string { return w.model() }

// WrapClient builds a client from a Complete implementation and a model-name
// source. Middlewares use it to intercept Complete while reporting the wrapped
// client's model.
func WrapClient(complete CompleteFunc, modelName func() string) LLMClient {
	return wrapped{complete: complete, model: modelName}
}

// Chain wraps base so the first middleware sees each request first:
//
//	Chain(client, metrics, trace) // metrics -> trace -> client
func Chain(base LLMClient, middlewares ...Middleware) LLMClient {
	client := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		client = middlewares[i](client)
	}
	return client
}
