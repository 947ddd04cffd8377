// Package google provides the Gemini chat client.
package google

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"

	"chaincheck/pkg/config"
	"chaincheck/pkg/llm"
	"chaincheck/pkg/llmerrors"
)

// GeminiClient wraps the Google GenAI client to implement llm.LLMClient.
type GeminiClient struct {
	client *genai.Client
	cfg    llm.ClientConfig
	model  string
	once   sync.Once
	err    error
}

// New creates a Gemini client. The SDK client needs a context, so it is created on first use.
func New(_ context.Context, cfg llm.ClientConfig) (llm.LLMClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid google client config: %w", err)
	}

	model := cfg.ModelName
	if model == "" {
		model = config.DefaultModel[config.ProviderGoogle]
	}
	return &GeminiClient{cfg: cfg, model: model}, nil
}

func (g *GeminiClient) sdk(ctx context.Context) (*genai.Client, error) {
	g.once.Do(func() {
		cc := &genai.ClientConfig{
			APIKey:  g.cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		}
		if g.cfg.BaseURL != "" {
			cc.HTTPOptions = genai.HTTPOptions{BaseURL: g.cfg.BaseURL}
		}
		g.client, g.err = genai.NewClient(ctx, cc)
		if g.err != nil {
			g.err = llmerrors.NewErrorWithCause(llmerrors.ErrorTypeAuth, g.err, "failed to create Gemini client")
		}
	})
	return g.client, g.err
}

// Complete implements the llm.LLMClient interface.
//
//nolint:gocritic // CompletionRequest passed by value to match the interface
func (g *GeminiClient) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	client, err := g.sdk(ctx)
	if err != nil {
		return llm.CompletionResponse{}, err
	}

	systemInstruction, rest := llm.SplitSystem(in.Messages)
	contents := make([]*genai.Content, 0, len(rest))
	for i := range rest {
		role := string(genai.RoleUser)
		if rest[i].Role == llm.RoleAssistant {
			role = string(genai.RoleModel)
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: rest[i].Content}},
		})
	}

	temperature := g.cfg.EffectiveTemperature(in)
	//nolint:gosec // MaxTokens validated at config load
	gc := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: int32(g.cfg.EffectiveMaxTokens(in)),
	}
	if systemInstruction != "" {
		gc.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		}
	}

	result, err := client.Models.GenerateContent(ctx, g.model, contents, gc)
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}
	if result == nil || len(result.Candidates) == 0 {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "empty response from Gemini API")
	}

	return llm.CompletionResponse{
		Content:    result.Text(),
		StopReason: getStopReason(result),
		Model:      result.ModelVersion,
	}, nil
}

// GetModelName returns the model name for this client.
func (g *GeminiClient) GetModelName() string {
	return g.model
}

func getStopReason(result *genai.GenerateContentResponse) string {
	switch result.Candidates[0].FinishReason {
	case genai.FinishReasonStop, "":
		return "end_turn"
	case genai.FinishReasonMaxTokens:
		return "max_tokens"
	default:
		return string(result.Candidates[0].FinishReason)
	}
}

// classifyError relies on the message text; GenAI errors embed the HTTP code and status there.
func classifyError(err error) error {
	return llmerrors.Classify(err)
}
