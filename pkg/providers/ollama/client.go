// Package ollama provides the Ollama chat client.
// Ollama is a local LLM runtime that allows running open-source models.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"chaincheck/pkg/config"
	"chaincheck/pkg/llm"
	"chaincheck/pkg/llmerrors"
)

// Client wraps the Ollama API client to implement llm.LLMClient.
type Client struct {
	client *api.Client
	cfg    llm.ClientConfig
	model  string
}

// New creates an Ollama client for the host in cfg.BaseURL.
// With cfg.VerifyModel set the model must already be pulled on that host.
func New(ctx context.Context, cfg llm.ClientConfig) (llm.LLMClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ollama client config: %w", err)
	}

	host := cfg.BaseURL
	if host == "" {
		host = "http://localhost:11434"
	}
	parsedURL, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}

	model := strings.TrimPrefix(cfg.ModelName, "ollama:")
	if model == "" {
		model = config.DefaultModel[config.ProviderOllama]
	}

	c := &Client{
		client: api.NewClient(parsedURL, http.DefaultClient),
		cfg:    cfg,
		model:  model,
	}

	if cfg.VerifyModel {
		if _, err := c.client.Show(ctx, &api.ShowRequest{Model: model}); err != nil {
			return nil, fmt.Errorf("ollama model %s unavailable: %w", model, classifyError(err))
		}
	}
	return c, nil
}

// Complete implements the llm.LLMClient interface.
//
//nolint:gocritic // CompletionRequest passed by value to match the interface
func (o *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	messages := make([]api.Message, 0, len(in.Messages))
	for i := range in.Messages {
		messages = append(messages, api.Message{
			Role:    string(in.Messages[i].Role),
			Content: in.Messages[i].Content,
		})
	}

	stream := false
	req := &api.ChatRequest{
		Model:    o.model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": o.cfg.EffectiveTemperature(in),
			"num_predict": o.cfg.EffectiveMaxTokens(in),
		},
	}

	var response api.ChatResponse
	err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		response = resp
		return nil
	})
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}

	return llm.CompletionResponse{
		Content:    response.Message.Content,
		StopReason: getStopReason(&response),
		Model:      response.Model,
	}, nil
}

// GetModelName returns the model name for this client.
func (o *Client) GetModelName() string {
	return o.model
}

// getStopReason converts Ollama's done_reason to our stop reason format.
func getStopReason(resp *api.ChatResponse) string {
	if !resp.Done {
		return "incomplete"
	}

	switch resp.DoneReason {
	case "stop", "":
		return "end_turn"
	case "length":
		return "max_tokens"
	default:
		return resp.DoneReason
	}
}

// classifyError converts Ollama errors to our error types.
func classifyError(err error) error {
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return llmerrors.FromStatus(statusErr.StatusCode, err)
	}

	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "connection refused"):
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "Ollama server not reachable")
	case strings.Contains(errStr, "model") && strings.Contains(errStr, "not found"):
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeBadPrompt, err, "Ollama model not found")
	default:
		return llmerrors.Classify(err)
	}
}
