// Package llm provides interfaces and types for chat-completion client implementations.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// CompletionRole represents the role of a message in a conversation.
type CompletionRole string

const (
	// RoleSystem indicates a system message that provides instructions or context.
	RoleSystem CompletionRole = "system"
	// RoleUser indicates a message from the human user.
	RoleUser CompletionRole = "user"
	// RoleAssistant indicates a message from the AI assistant.
	RoleAssistant CompletionRole = "assistant"
)

const (
	// TemperatureDefault matches the low-variance setting the smoke agents are tuned for.
	TemperatureDefault = 0.2

	// MaxTokensDefault caps replies from the smoke agents.
	MaxTokensDefault = 1024
)

// CompletionMessage represents a message in a completion request.
type CompletionMessage struct {
	Role    CompletionRole
	Content string
}

// CompletionRequest represents a request to generate a completion.
// Zero MaxTokens or Temperature means "use the client's configured value".
type CompletionRequest struct {
	Messages    []CompletionMessage
	MaxTokens   int
	Temperature float32
}

// CompletionResponse represents a response from a completion request.
type CompletionResponse struct {
	Content    string // Main response text
	StopReason string // Why the response stopped: "end_turn", "max_tokens", etc.
	Model      string // Model that actually served the request, when reported
}

// LLMClient defines the interface for language model interactions.
// Every call is a single synchronous request; implementations do not retry.
type LLMClient interface { //nolint:revive // Keep name for parity with provider packages
	// Complete generates a completion synchronously.
	Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error)

	// GetModelName returns the model name for this LLM client.
	GetModelName() string
}

// NewCompletionRequest creates a new completion request that defers sampling settings to the client.
func NewCompletionRequest(messages []CompletionMessage) CompletionRequest {
	return CompletionRequest{Messages: messages}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) CompletionMessage {
	return CompletionMessage{
		Role:    RoleSystem,
		Content: content,
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) CompletionMessage {
	return CompletionMessage{
		Role:    RoleUser,
		Content: content,
	}
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) CompletionMessage {
	return CompletionMessage{
		Role:    RoleAssistant,
		Content: content,
	}
}

// ClientConfig is the construction input shared by every provider.
type ClientConfig struct {
	APIKey      string
	ModelName   string // Empty selects the provider default
	BaseURL     string // Optional endpoint override
	MaxTokens   int
	Temperature float32
	// VerifyModel asks the provider to confirm the model exists before returning a client.
	VerifyModel bool
}

// Validate validates the client configuration.
// An empty API key is allowed: the caller decides whether that is worth a warning.
func (c *ClientConfig) Validate() error {
	if c.ModelName != "" && strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("model name cannot be blank")
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max tokens must not be negative")
	}
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("temperature must be between 0.0 and 2.0")
	}
	return nil
}

// EffectiveMaxTokens resolves the token limit for a request.
//
//nolint:gocritic // value receiver keeps the request immutable
func (c ClientConfig) EffectiveMaxTokens(in CompletionRequest) int {
	if in.MaxTokens > 0 {
		return in.MaxTokens
	}
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return MaxTokensDefault
}

// EffectiveTemperature resolves the sampling temperature for a request.
//
//nolint:gocritic // value receiver keeps the request immutable
func (c ClientConfig) EffectiveTemperature(in CompletionRequest) float32 {
	if in.Temperature > 0 {
		return in.Temperature
	}
	return c.Temperature
}

// SplitSystem pulls system messages out of a conversation, joining them with blank lines.
// Providers with a dedicated system parameter (Anthropic, Gemini) use this.
func SplitSystem(messages []CompletionMessage) (system string, rest []CompletionMessage) {
	var parts []string
	for i := range messages {
		if messages[i].Role == RoleSystem {
			parts = append(parts, messages[i].Content)
			continue
		}
		rest = append(rest, messages[i])
	}
	return strings.Join(parts, "\n\n"), rest
}
