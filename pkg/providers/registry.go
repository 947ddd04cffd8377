// Package providers maps provider names to client constructors and builds the
// factory.Builder used for model selection.
package providers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"chaincheck/pkg/config"
	"chaincheck/pkg/factory"
	"chaincheck/pkg/llm"
	"chaincheck/pkg/providers/anthropic"
	"chaincheck/pkg/providers/cohere"
	"chaincheck/pkg/providers/google"
	"chaincheck/pkg/providers/ollama"
	"chaincheck/pkg/providers/openaiofficial"
)

// Constructor builds a client from a resolved configuration.
type Constructor func(ctx context.Context, cfg llm.ClientConfig) (llm.LLMClient, error)

// Registry holds the available provider constructors.
type Registry struct {
	constructors map[string]Constructor
	mu           sync.RWMutex
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]Constructor)}
}

// Default returns a registry with every built-in provider.
func Default() *Registry {
	r := NewRegistry()
	r.Register(config.ProviderCohere, cohere.New)
	r.Register(config.ProviderOpenAI, openaiofficial.New)
	r.Register(config.ProviderAnthropic, anthropic.New)
	r.Register(config.ProviderGoogle, google.New)
	r.Register(config.ProviderOllama, ollama.New)
	return r
}

// Register adds or replaces a provider.
func (r *Registry) Register(name string, c Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[name] = c
}

// Lookup returns the constructor for a provider.
func (r *Registry) Lookup(name string) (Constructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.constructors[name]
	return c, ok
}

// Names lists registered providers in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.constructors))
	for n := range r.constructors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Builder binds the configured provider to a factory.Builder. The returned clients
// are wrapped with the given middleware, outermost first.
func (r *Registry) Builder(cfg *config.Config, middlewares ...llm.Middleware) (factory.Builder, error) {
	construct, ok := r.Lookup(cfg.Provider)
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}

	base := llm.ClientConfig{
		APIKey:      cfg.APIKey(),
		BaseURL:     cfg.BaseURL,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		VerifyModel: cfg.VerifyModels,
	}
	if cfg.Provider == config.ProviderOllama {
		base.BaseURL = cfg.ResolvedOllamaHost()
	}

	return func(ctx context.Context, model string) (llm.LLMClient, error) {
		clientCfg := base
		clientCfg.ModelName = model
		clientCfg.MaxTokens = capMaxTokens(cfg.Provider, model, base.MaxTokens)
		client, err := construct(ctx, clientCfg)
		if err != nil {
			return nil, err
		}
		return llm.Chain(client, middlewares...), nil
	}, nil
}

// capMaxTokens clamps the request budget to a known model's output limit. Empty
// model means the provider default. Unknown models keep the configured budget.
func capMaxTokens(provider, model string, maxTokens int) int {
	if model == "" {
		model = config.DefaultModel[provider]
	}
	info, known := config.GetModelInfo(model)
	if known && info.MaxOutputTokens > 0 && maxTokens > info.MaxOutputTokens {
		return info.MaxOutputTokens
	}
	return maxTokens
}
