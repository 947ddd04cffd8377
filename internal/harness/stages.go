package harness

import (
	"context"
	"encoding/json"
	"fmt"

	"chaincheck/pkg/agents"
	"chaincheck/pkg/factory"
	"chaincheck/pkg/llm"
	"chaincheck/pkg/preflight"
	"chaincheck/pkg/transform"
)

// Process exit codes.
const (
	ExitOK         = 0
	ExitDependency = 1
	ExitTransform  = 2
	ExitClient     = 3
)

// Stage names.
const (
	StageDependencies = "dependencies"
	StageTransform    = "transform"
	StageClient       = "client"
)

// Status is a stage outcome.
type Status string

// Stage outcomes.
const (
	StatusPass    Status = "pass"
	StatusFail    Status = "fail"
	StatusSkipped Status = "skipped"
)

// StageResult is what every stage reports back. The harness stops at the first
// result with Fatal set and exits with its ExitCode.
type StageResult struct {
	Err      error
	Stage    string
	Status   Status
	Output   string
	Detail   string
	ExitCode int
	Fatal    bool
	// Echo prints Output even when it is empty.
	Echo bool
}

func pass(stage, output string) StageResult {
	return StageResult{Stage: stage, Status: StatusPass, Output: output}
}

func fatal(stage string, code int, output string, err error) StageResult {
	return StageResult{Stage: stage, Status: StatusFail, Fatal: true, ExitCode: code, Output: output, Err: err}
}

// SampleInput is fed through the transform stage.
//
//nolint:gochecknoglobals // fixed demo input
var SampleInput = []string{"hello", "langchain", "works!"}

func (h *Harness) probeStage(ctx context.Context) (StageResult, *preflight.Results) {
	results := h.prober.Run(ctx, h.cfg)
	for _, w := range results.Warnings() {
		h.logger.Debug("preflight warning: %s", preflight.FormatCheckError(w))
	}

	if failure := results.FirstFailure(); failure != nil {
		out := fmt.Sprintf("%s import failed:\n%v", failure.Name, failure.Error)
		return fatal(StageDependencies, ExitDependency, out, failure.Error), results
	}

	exe, err := h.executable()
	if err != nil {
		exe = "unknown"
	}
	out := fmt.Sprintf("Go executable: %s\nchaincheck version: %s", exe, results.Version)
	res := pass(StageDependencies, out)
	res.Detail = results.Summary
	return res, results
}

func (h *Harness) transformStage(ctx context.Context) StageResult {
	summaries, err := transform.Runnable().Invoke(ctx, h.sampleInput)
	if err != nil {
		return fatal(StageTransform, ExitTransform, "Runnable failed:\n"+err.Error(), err)
	}

	body, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return fatal(StageTransform, ExitTransform, "Runnable failed:\n"+err.Error(), err)
	}
	return pass(StageTransform, h.style.header("Sample runnable output:")+"\n"+string(body))
}

func (h *Harness) clientStage(ctx context.Context, build factory.Builder) (StageResult, factory.Selection) {
	sel, err := factory.FirstAvailable(ctx, h.cfg.Candidates(), build)
	if err != nil {
		out := fmt.Sprintf("Failed to initialize %s LLM:\n%v", providerTitle(h.cfg.Provider), err)
		return fatal(StageClient, ExitClient, out, err), sel
	}

	res := pass(StageClient, "")
	res.Detail = sel.Client.GetModelName()
	for _, a := range sel.Attempts {
		h.logger.Info("model %s unavailable: %v", a.Label(), a.Err)
	}
	h.logger.Info("using model %s", res.Detail)
	return res, sel
}

// agentStage runs one agent. Failures are reported but never fatal.
func (h *Harness) agentStage(ctx context.Context, def agents.Definition, client llm.LLMClient) StageResult {
	out, err := def.Run(ctx, client)
	if err != nil {
		return StageResult{
			Stage:  def.Name,
			Status: StatusFail,
			Output: fmt.Sprintf("%s failed:\n%v", def.Title, err),
			Err:    err,
		}
	}
	res := pass(def.Name, out)
	res.Echo = true
	return res
}
