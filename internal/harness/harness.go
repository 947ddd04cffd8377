// Package harness runs the smoke-test stages in order, prints their reports and
// computes the process exit code.
package harness

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"chaincheck/pkg/agents"
	"chaincheck/pkg/config"
	"chaincheck/pkg/history"
	"chaincheck/pkg/llm"
	"chaincheck/pkg/logx"
	"chaincheck/pkg/metrics"
	"chaincheck/pkg/preflight"
	"chaincheck/pkg/providers"
)

// Options configures a Harness. Config is required; everything else has a default.
type Options struct {
	Config   *config.Config
	Registry *providers.Registry
	Prober   *preflight.Prober
	Stdout   io.Writer

	// Agents defaults to agents.Defaults().
	Agents []agents.Definition

	// Metrics, when set, wraps every client with the metrics middleware and
	// receives stage outcomes.
	Metrics *metrics.PrometheusRecorder

	// History, when set, receives one record per run.
	History *history.Store

	Executable func() (string, error)
	Now        func() time.Time
}

// Harness executes one run.
type Harness struct {
	cfg         *config.Config
	registry    *providers.Registry
	prober      *preflight.Prober
	stdout      io.Writer
	agents      []agents.Definition
	metrics     *metrics.PrometheusRecorder
	history     *history.Store
	executable  func() (string, error)
	now         func() time.Time
	logger      *logx.Logger
	style       style
	sampleInput any
}

// New creates a harness from options.
func New(opts Options) *Harness {
	h := &Harness{
		cfg:         opts.Config,
		registry:    opts.Registry,
		prober:      opts.Prober,
		stdout:      opts.Stdout,
		agents:      opts.Agents,
		metrics:     opts.Metrics,
		history:     opts.History,
		executable:  opts.Executable,
		now:         opts.Now,
		logger:      logx.NewLogger("harness"),
		sampleInput: SampleInput,
	}
	if h.registry == nil {
		h.registry = providers.Default()
	}
	if h.prober == nil {
		h.prober = preflight.New(h.registry)
	}
	if h.stdout == nil {
		h.stdout = os.Stdout
	}
	if h.agents == nil {
		h.agents = agents.Defaults()
	}
	if h.executable == nil {
		h.executable = os.Executable
	}
	if h.now == nil {
		h.now = time.Now
	}
	h.style = styleFor(h.stdout)
	return h
}

// Run executes every stage and returns the process exit code.
func (h *Harness) Run(ctx context.Context) int {
	run := &history.Run{StartedAt: h.now(), Provider: h.cfg.Provider}

	probe, results := h.probeStage(ctx)
	if results != nil {
		run.SDKVersion = results.SDKVersion
	}
	if code, done := h.report(run, probe); done {
		return h.finish(ctx, run, code)
	}

	if code, done := h.report(run, h.transformStage(ctx)); done {
		return h.finish(ctx, run, code)
	}

	if h.cfg.APIKey() == "" && h.cfg.KeyEnv() != "" {
		h.println(fmt.Sprintf("Warning: %s not set; %s-backed agents will likely fail.",
			h.cfg.KeyEnv(), providerTitle(h.cfg.Provider)))
	}

	build, err := h.registry.Builder(h.cfg, h.middlewares()...)
	if err != nil {
		res := fatal(StageClient, ExitClient,
			fmt.Sprintf("Failed to initialize %s LLM:\n%v", providerTitle(h.cfg.Provider), err), err)
		h.report(run, res)
		return h.finish(ctx, run, ExitClient)
	}

	selected, sel := h.clientStage(ctx, build)
	if code, done := h.report(run, selected); done {
		return h.finish(ctx, run, code)
	}
	run.Model = sel.Client.GetModelName()
	run.UsedDefault = sel.UsedDefault()

	for _, def := range h.agents {
		if h.cfg.SkipAgents {
			h.report(run, StageResult{Stage: def.Name, Status: StatusSkipped})
			continue
		}
		h.println(agentHeader(h.style, def.Title))
		h.report(run, h.agentStage(ctx, def, sel.Client))
	}

	return h.finish(ctx, run, ExitOK)
}

// report prints a stage's output, records it, and reports whether the run must stop.
func (h *Harness) report(run *history.Run, res StageResult) (int, bool) {
	if res.Output != "" || res.Echo {
		h.println(res.Output)
	}

	detail := res.Detail
	if res.Err != nil {
		detail = res.Err.Error()
		h.logger.Warn("stage %s failed: %v", res.Stage, res.Err)
	}
	run.Stages = append(run.Stages, history.Stage{Name: res.Stage, Status: string(res.Status), Detail: detail})

	if h.metrics != nil {
		h.metrics.ObserveStage(res.Stage, string(res.Status))
	}

	if res.Fatal {
		return res.ExitCode, true
	}
	return ExitOK, false
}

// finish records the run and exports metrics. Export failures are logged and
// never change the exit code.
func (h *Harness) finish(ctx context.Context, run *history.Run, code int) int {
	run.FinishedAt = h.now()
	run.ExitCode = code

	if h.history != nil {
		if err := h.history.Record(ctx, run); err != nil {
			h.logger.Warn("failed to record run history: %v", err)
		}
	}

	if h.metrics != nil {
		h.metrics.ObserveExit(code, run.FinishedAt)
		if h.cfg.MetricsFile != "" {
			if err := metrics.WriteTextfile(h.metrics.Registry(), h.cfg.MetricsFile); err != nil {
				h.logger.Warn("failed to write metrics file: %v", err)
			}
		}
		if h.cfg.PushgatewayURL != "" {
			if err := metrics.Push(ctx, h.cfg.PushgatewayURL, h.cfg.Provider, h.metrics.Registry()); err != nil {
				h.logger.Warn("failed to push metrics: %v", err)
			}
		}
	}

	h.logger.Debug("run finished with exit code %d", code)
	return code
}

func (h *Harness) middlewares() []llm.Middleware {
	if h.metrics == nil {
		return nil
	}
	return []llm.Middleware{metrics.Middleware(h.metrics, nil, h.logger)}
}

func (h *Harness) println(s string) {
	_, _ = fmt.Fprintln(h.stdout, s)
}
