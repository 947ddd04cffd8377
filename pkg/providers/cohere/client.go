// Package cohere provides the Cohere chat client.
//
// Chat goes through Cohere's OpenAI-compatible endpoint using the official OpenAI Go
// package. Model verification uses the native Cohere models API, which the
// compatibility surface does not expose.
package cohere

import (
	"context"
	"fmt"
	"net/url"

	"github.com/openai/openai-go/option"

	"chaincheck/pkg/config"
	"chaincheck/pkg/llm"
	"chaincheck/pkg/providers/openaiofficial"
)

const (
	// CompatibilityBaseURL is Cohere's OpenAI-compatible API root.
	CompatibilityBaseURL = "https://api.cohere.ai/compatibility/v1/"
	// NativeBaseURL is the Cohere v1 API root used for model lookups.
	NativeBaseURL = "https://api.cohere.com/v1/"
)

// modelInfo is the subset of the Cohere model description we read.
type modelInfo struct {
	Name      string   `json:"name"`
	Endpoints []string `json:"endpoints"`
}

// Client is a Cohere chat client.
type Client struct {
	*openaiofficial.OfficialClient
	nativeBaseURL string
}

// New creates a Cohere client. With cfg.VerifyModel set, the model must exist and
// support the chat endpoint. A cfg.BaseURL override replaces both API roots.
func New(ctx context.Context, cfg llm.ClientConfig) (llm.LLMClient, error) {
	inner, err := openaiofficial.NewForEndpoint(cfg, openaiofficial.Endpoint{
		Provider:     config.ProviderCohere,
		BaseURL:      CompatibilityBaseURL,
		DefaultModel: config.DefaultModel[config.ProviderCohere],
	})
	if err != nil {
		return nil, err
	}

	c := &Client{OfficialClient: inner, nativeBaseURL: NativeBaseURL}
	if cfg.BaseURL != "" {
		c.nativeBaseURL = cfg.BaseURL
	}

	if cfg.VerifyModel {
		if err := c.VerifyModel(ctx); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// VerifyModel looks the model up in the native Cohere API.
func (c *Client) VerifyModel(ctx context.Context) error {
	var info modelInfo
	path := "models/" + url.PathEscape(c.GetModelName())
	if err := c.SDK().Get(ctx, path, nil, &info, option.WithBaseURL(c.nativeBaseURL)); err != nil {
		return fmt.Errorf("cohere model %s unavailable: %w", c.GetModelName(), openaiofficial.Classify(err))
	}
	if len(info.Endpoints) > 0 && !supportsChat(info.Endpoints) {
		return fmt.Errorf("cohere model %s does not support chat (endpoints: %v)", c.GetModelName(), info.Endpoints)
	}
	return nil
}

func supportsChat(endpoints []string) bool {
	for _, e := range endpoints {
		if e == "chat" {
			return true
		}
	}
	return false
}
