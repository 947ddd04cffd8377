// Package agents defines the prompt agents exercised against the selected chat model.
//
// Each agent is a prompt template, the chat model, and a string parser piped together.
// Agents share nothing except the client, and one agent's failure never affects another.
package agents

import (
	"context"
	"fmt"

	"chaincheck/pkg/chain"
	"chaincheck/pkg/llm"
	"chaincheck/pkg/logx"
	"chaincheck/pkg/prompt"
)

// Agent names.
const (
	CustomerSupport = "customer_support"
	SocialMedia     = "social_media"
	CodeWriter      = "code_writer"
)

// Definition is a named prompt with fixed inputs.
type Definition struct {
	Template *prompt.ChatTemplate
	Inputs   prompt.Values
	Name     string
	Title    string
}

// Pipeline composes template, model and parser.
func (d Definition) Pipeline(client llm.LLMClient) chain.Runnable[prompt.Values, string] {
	return chain.Then3[prompt.Values, []llm.CompletionMessage, llm.CompletionResponse, string](
		d.Template, chain.Model(client), chain.StringOutput())
}

// Run performs one synchronous invocation with the agent's inputs.
func (d Definition) Run(ctx context.Context, client llm.LLMClient) (string, error) {
	ctx = WithAgent(ctx, d.Name)
	logx.Debug(ctx, "agents", "invoking %s with model %s", d.Name, client.GetModelName())

	out, err := d.Pipeline(client).Invoke(ctx, d.Inputs)
	if err != nil {
		return "", fmt.Errorf("%s: %w", d.Name, err)
	}
	return out, nil
}

type agentKey struct{}

// WithAgent tags ctx with the running agent's name so middleware can label metrics.
func WithAgent(ctx context.Context, name string) context.Context {
	return logx.WithComponent(context.WithValue(ctx, agentKey{}, name), name)
}

// FromContext returns the running agent's name, or "" outside an agent.
func FromContext(ctx context.Context) string {
	name, _ := ctx.Value(agentKey{}).(string)
	return name
}

// CustomerSupportAgent answers a customer question about a product.
func CustomerSupportAgent() Definition {
	return Definition{
		Name:  CustomerSupport,
		Title: "Customer Support Agent",
		Template: prompt.MustFromMessages(
			prompt.Pair{Role: "system", Text: "You are a helpful, concise customer support agent for {product}. " +
				"Provide clear, step-by-step guidance and suggest next actions."},
			prompt.Pair{Role: "human", Text: "Customer question: {question}"},
		),
		Inputs: prompt.Values{
			"product":  "Acme Smart Thermostat",
			"question": "My thermostat keeps disconnecting from Wi‑Fi. How do I fix it?",
		},
	}
}

// SocialMediaAgent drafts a short social post.
func SocialMediaAgent() Definition {
	return Definition{
		Name:  SocialMedia,
		Title: "Social Media Agent",
		Template: prompt.MustFromMessages(
			prompt.Pair{Role: "system", Text: "You are a creative social media strategist. Write engaging, on-brand content " +
				"with a strong hook, clear value, and a call to action. Maintain the requested tone and " +
				"include relevant hashtags sparingly."},
			prompt.Pair{Role: "human", Text: "Platform: {platform}\nBrand: {brand}\nTone: {tone}\nTopic: {topic}\n" +
				"Generate 1 short post."},
		),
		Inputs: prompt.Values{
			"platform": "LinkedIn",
			"brand":    "Acme Energy",
			"tone":     "professional, optimistic",
			"topic":    "Launching our new AI-powered energy-saving thermostat",
		},
	}
}

// CodeWriterAgent writes a small function in the requested language.
func CodeWriterAgent() Definition {
	return Definition{
		Name:  CodeWriter,
		Title: "Code Writer Agent",
		Template: prompt.MustFromMessages(
			prompt.Pair{Role: "system", Text: "You are a senior software engineer. Output only valid code in the requested " +
				"language, with a brief docstring. Avoid extra commentary."},
			prompt.Pair{Role: "human", Text: "Language: {language}\nTask: {task}\n" +
				"Constraints: simple, readable, handle edge cases. Output code only."},
		),
		Inputs: prompt.Values{
			"language": "python",
			"task": "Implement a function `group_anagrams(words: list[str]) -> list[list[str]]` " +
				"that groups words that are anagrams. Preserve input order within groups.",
		},
	}
}

// Defaults returns the agents in run order.
func Defaults() []Definition {
	return []Definition{CustomerSupportAgent(), SocialMediaAgent(), CodeWriterAgent()}
}
