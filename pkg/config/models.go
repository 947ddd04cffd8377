package config

import (
	"fmt"
	"strings"
)

// Provider names.
const (
	ProviderCohere    = "cohere"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
	ProviderOllama    = "ollama"
)

// API key environment variable names.
const (
	EnvCohereAPIKey    = "COHERE_API_KEY"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvGoogleAPIKey    = "GOOGLE_GENAI_API_KEY"
	EnvOllamaHost      = "OLLAMA_HOST"
)

// ModelInfo contains static information about a known LLM model.
// This data is hardcoded in the application, not user-configurable.
type ModelInfo struct {
	Provider         string // API provider
	MaxContextTokens int    // Maximum context window size in tokens
	MaxOutputTokens  int    // Maximum output tokens per request
}

// KnownModels registry contains provider information for common models.
// This is optional - unknown models will be inferred via ProviderPatterns.
//
//nolint:gochecknoglobals // Intentional global for static model registry
var KnownModels = map[string]ModelInfo{
	// Cohere Command models
	"command-a-03-2025": {Provider: ProviderCohere, MaxContextTokens: 256000, MaxOutputTokens: 8000},
	"command-r-plus":    {Provider: ProviderCohere, MaxContextTokens: 128000, MaxOutputTokens: 4000},
	"command-r":         {Provider: ProviderCohere, MaxContextTokens: 128000, MaxOutputTokens: 4000},
	"command":           {Provider: ProviderCohere, MaxContextTokens: 4096, MaxOutputTokens: 4000},

	// OpenAI GPT models
	"gpt-4o":      {Provider: ProviderOpenAI, MaxContextTokens: 128000, MaxOutputTokens: 4096},
	"gpt-4o-mini": {Provider: ProviderOpenAI, MaxContextTokens: 128000, MaxOutputTokens: 16384},

	// Claude models (Anthropic)
	"claude-sonnet-4-5": {Provider: ProviderAnthropic, MaxContextTokens: 200000, MaxOutputTokens: 8192},
	"claude-opus-4-5":   {Provider: ProviderAnthropic, MaxContextTokens: 200000, MaxOutputTokens: 16384},

	// Google Gemini models
	"gemini-2.0-flash": {Provider: ProviderGoogle, MaxContextTokens: 1048576, MaxOutputTokens: 8192},
	"gemini-2.5-flash": {Provider: ProviderGoogle, MaxContextTokens: 1048576, MaxOutputTokens: 65536},
}

// ProviderPattern represents a pattern for inferring provider from model name.
type ProviderPattern struct {
	Prefix   string
	Provider string
}

// ProviderPatterns defines rules for inferring providers from unknown model names.
//
//nolint:gochecknoglobals // Intentional global for inference rules
var ProviderPatterns = []ProviderPattern{
	{"command", ProviderCohere},
	{"c4ai", ProviderCohere},
	{"claude", ProviderAnthropic},
	{"gpt", ProviderOpenAI},
	{"o1", ProviderOpenAI},
	{"o3", ProviderOpenAI},
	{"o4", ProviderOpenAI},
	{"gemini", ProviderGoogle},
	{"llama", ProviderOllama},
	{"qwen", ProviderOllama},
	{"mistral", ProviderOllama},
	{"phi", ProviderOllama},
	{"ollama:", ProviderOllama},
}

// DefaultModels lists the preferred candidate order per provider.
//
//nolint:gochecknoglobals // Intentional global for static defaults
var DefaultModels = map[string][]string{
	ProviderCohere:    {"command-r-plus", "command-r", "command"},
	ProviderOpenAI:    {"gpt-4o", "gpt-4o-mini"},
	ProviderAnthropic: {"claude-sonnet-4-5", "claude-opus-4-5"},
	ProviderGoogle:    {"gemini-2.5-flash", "gemini-2.0-flash"},
	ProviderOllama:    {"llama3.2", "qwen2.5"},
}

// DefaultModel is the identifier used for the final, unnamed attempt.
//
//nolint:gochecknoglobals // Intentional global for static defaults
var DefaultModel = map[string]string{
	ProviderCohere:    "command-a-03-2025",
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-sonnet-4-5",
	ProviderGoogle:    "gemini-2.5-flash",
	ProviderOllama:    "llama3.2",
}

// ProviderKeyEnv maps each provider to the variable holding its credential.
// Ollama has no credential.
//
//nolint:gochecknoglobals // Intentional global for static defaults
var ProviderKeyEnv = map[string]string{
	ProviderCohere:    EnvCohereAPIKey,
	ProviderOpenAI:    EnvOpenAIAPIKey,
	ProviderAnthropic: EnvAnthropicAPIKey,
	ProviderGoogle:    EnvGoogleAPIKey,
	ProviderOllama:    "",
}

// IsKnownProvider reports whether name is a supported provider.
func IsKnownProvider(name string) bool {
	_, ok := DefaultModel[name]
	return ok
}

// GetModelProvider returns the API provider for a given model.
// First checks KnownModels, then tries pattern matching.
func GetModelProvider(modelName string) (string, error) {
	if info, exists := KnownModels[modelName]; exists {
		return info.Provider, nil
	}

	for i := range ProviderPatterns {
		if strings.HasPrefix(modelName, ProviderPatterns[i].Prefix) {
			return ProviderPatterns[i].Provider, nil
		}
	}

	return "", fmt.Errorf("unknown model '%s': no known provider mapping or pattern match", modelName)
}

// GetModelInfo returns the ModelInfo for a given model name.
// Unknown models get conservative defaults and an inferred provider.
func GetModelInfo(modelName string) (ModelInfo, bool) {
	if info, exists := KnownModels[modelName]; exists {
		return info, true
	}

	provider, _ := GetModelProvider(modelName)
	return ModelInfo{
		Provider:         provider,
		MaxContextTokens: 32000,
		MaxOutputTokens:  4096,
	}, false
}
