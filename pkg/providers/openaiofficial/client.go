// Package openaiofficial provides a chat-completions client built on the official OpenAI Go package.
//
// The same client serves any endpoint that speaks the OpenAI chat-completions wire
// format; the Cohere provider points it at Cohere's compatibility API.
package openaiofficial

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"chaincheck/pkg/config"
	"chaincheck/pkg/llm"
	"chaincheck/pkg/llmerrors"
)

// Endpoint describes an OpenAI-compatible service.
type Endpoint struct {
	Provider     string
	BaseURL      string // Empty uses the SDK default
	DefaultModel string
}

// OfficialClient wraps the official OpenAI Go client to implement llm.LLMClient.
type OfficialClient struct {
	client   openai.Client
	cfg      llm.ClientConfig
	provider string
	model    string
}

// New creates an OpenAI client. With cfg.VerifyModel set the model is looked up first.
func New(ctx context.Context, cfg llm.ClientConfig) (llm.LLMClient, error) {
	client, err := NewForEndpoint(cfg, Endpoint{
		Provider:     config.ProviderOpenAI,
		DefaultModel: config.DefaultModel[config.ProviderOpenAI],
	})
	if err != nil {
		return nil, err
	}
	if cfg.VerifyModel {
		if err := client.VerifyModel(ctx); err != nil {
			return nil, err
		}
	}
	return client, nil
}

// NewForEndpoint builds a client for any OpenAI-compatible endpoint without contacting it.
func NewForEndpoint(cfg llm.ClientConfig, ep Endpoint) (*OfficialClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s client config: %w", ep.Provider, err)
	}

	model := cfg.ModelName
	if model == "" {
		model = ep.DefaultModel
	}

	// Every call is attempted exactly once.
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	baseURL := ep.BaseURL
	if cfg.BaseURL != "" {
		baseURL = cfg.BaseURL
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OfficialClient{
		client:   openai.NewClient(opts...),
		cfg:      cfg,
		provider: ep.Provider,
		model:    model,
	}, nil
}

// SDK exposes the underlying client for provider-specific calls.
func (o *OfficialClient) SDK() *openai.Client {
	return &o.client
}

// VerifyModel confirms the model is listed by the endpoint.
func (o *OfficialClient) VerifyModel(ctx context.Context) error {
	if _, err := o.client.Models.Get(ctx, o.model); err != nil {
		return fmt.Errorf("%s model %s unavailable: %w", o.provider, o.model, Classify(err))
	}
	return nil
}

// Complete implements the llm.LLMClient interface using the chat-completions API.
//
//nolint:gocritic // CompletionRequest passed by value to match the interface
func (o *OfficialClient) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(in.Messages))
	for i := range in.Messages {
		msg := &in.Messages[i]
		switch msg.Role {
		case llm.RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case llm.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(o.model),
		Messages:    messages,
		Temperature: openai.Float(float64(o.cfg.EffectiveTemperature(in))),
		MaxTokens:   openai.Int(int64(o.cfg.EffectiveMaxTokens(in))),
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return llm.CompletionResponse{}, Classify(err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse,
			fmt.Sprintf("no choices in %s response", o.provider))
	}

	choice := resp.Choices[0]
	return llm.CompletionResponse{
		Content:    choice.Message.Content,
		StopReason: getStopReason(string(choice.FinishReason)),
		Model:      resp.Model,
	}, nil
}

// GetModelName returns the model name for this client.
func (o *OfficialClient) GetModelName() string {
	return o.model
}

// Classify maps OpenAI SDK errors to structured error types.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return llmerrors.FromStatus(apiErr.StatusCode, err)
	}
	return llmerrors.Classify(err)
}

func getStopReason(finish string) string {
	switch finish {
	case "stop":
		return "end_turn"
	case "length":
		return "max_tokens"
	default:
		return finish
	}
}
