// Package factory selects the first model a provider can construct from an ordered
// preference list, falling back to the provider default.
package factory

import (
	"context"
	"fmt"
	"strings"

	"chaincheck/pkg/llm"
	"chaincheck/pkg/logx"
)

// Builder constructs a client for one model. An empty model means the provider default.
type Builder func(ctx context.Context, model string) (llm.LLMClient, error)

// Attempt records one construction try.
type Attempt struct {
	Err   error
	Model string // empty for the default attempt
}

// Label names the attempt for display.
func (a Attempt) Label() string {
	if a.Model == "" {
		return "<default>"
	}
	return a.Model
}

// Selection is the outcome of a successful FirstAvailable call.
type Selection struct {
	Client   llm.LLMClient
	Model    string // empty when the default attempt succeeded
	Attempts []Attempt
}

// UsedDefault reports whether no named candidate could be built.
func (s Selection) UsedDefault() bool {
	return s.Model == ""
}

// ExhaustedError is returned when every candidate and the default attempt failed.
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	var b strings.Builder
	b.WriteString("no model could be initialized")
	for _, a := range e.Attempts {
		fmt.Fprintf(&b, "\n  %s: %v", a.Label(), a.Err)
	}
	return b.String()
}

// Unwrap exposes the default attempt's error, the one reported to the user.
func (e *ExhaustedError) Unwrap() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}

// FirstAvailable tries each candidate in order and returns the first client that builds.
// Candidate failures are recorded but not surfaced. When all fail, exactly one
// default attempt is made.
func FirstAvailable(ctx context.Context, candidates []string, build Builder) (Selection, error) {
	var attempts []Attempt

	for _, model := range candidates {
		client, err := build(ctx, model)
		if err == nil {
			logx.DebugFlow(ctx, "factory", "select", "done", fmt.Sprintf("%s after %d failed attempts", model, len(attempts)))
			return Selection{Client: client, Model: model, Attempts: attempts}, nil
		}
		logx.Debug(ctx, "factory", "model %s unavailable: %v", model, err)
		attempts = append(attempts, Attempt{Model: model, Err: err})
	}

	logx.DebugFlow(ctx, "factory", "select", "default", "every named candidate failed")
	client, err := build(ctx, "")
	if err != nil {
		attempts = append(attempts, Attempt{Err: err})
		return Selection{}, &ExhaustedError{Attempts: attempts}
	}
	logx.Debug(ctx, "factory", "selected provider default model %s", client.GetModelName())
	return Selection{Client: client, Attempts: attempts}, nil
}
