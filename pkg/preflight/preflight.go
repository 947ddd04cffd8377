// Package preflight probes that the prompt-chain runtime and the configured
// provider integration are linked into the binary and usable before any
// remote call is made.
package preflight

import (
	"context"
	"fmt"
	"runtime/debug"

	"chaincheck/pkg/config"
	"chaincheck/pkg/providers"
	"chaincheck/pkg/version"
)

// Status is the outcome of a single check.
type Status string

// Check outcomes. Only StatusFail stops a run.
const (
	StatusPass Status = "pass"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// Provider SDK modules, keyed by provider name.
//
//nolint:gochecknoglobals // static lookup table
var SDKModules = map[string]string{
	config.ProviderCohere:    "github.com/openai/openai-go",
	config.ProviderOpenAI:    "github.com/openai/openai-go",
	config.ProviderAnthropic: "github.com/anthropics/anthropic-sdk-go",
	config.ProviderGoogle:    "google.golang.org/genai",
	config.ProviderOllama:    "github.com/ollama/ollama",
}

// CheckResult represents the outcome of a single preflight check.
type CheckResult struct {
	Error    error
	Name     string
	Provider string
	Message  string
	Status   Status
}

// Passed reports whether the check did not fail. Warnings pass.
func (c CheckResult) Passed() bool {
	return c.Status != StatusFail
}

// Results contains all preflight check results.
type Results struct {
	Version    string
	SDKVersion string
	Summary    string
	Checks     []CheckResult
	Passed     bool
}

// FirstFailure returns the first failed check, or nil.
func (r *Results) FirstFailure() *CheckResult {
	for i := range r.Checks {
		if r.Checks[i].Status == StatusFail {
			return &r.Checks[i]
		}
	}
	return nil
}

// Warnings returns every check that passed with a warning.
func (r *Results) Warnings() []CheckResult {
	var out []CheckResult
	for i := range r.Checks {
		if r.Checks[i].Status == StatusWarn {
			out = append(out, r.Checks[i])
		}
	}
	return out
}

// Prober runs the checks. The zero value is not usable; use New.
type Prober struct {
	// ReadBuildInfo is replaced in tests.
	ReadBuildInfo func() (*debug.BuildInfo, bool)
	Registry      *providers.Registry
}

// New returns a prober over the given provider registry.
func New(registry *providers.Registry) *Prober {
	return &Prober{ReadBuildInfo: debug.ReadBuildInfo, Registry: registry}
}

// Run executes the checks in order. A failed build info check stops the probe
// since the remaining checks depend on it.
func (p *Prober) Run(ctx context.Context, cfg *config.Config) *Results {
	results := &Results{Passed: true, Version: version.Version}

	info, infoResult := checkBuildInfo(p.ReadBuildInfo)
	results.add(infoResult)
	if infoResult.Status == StatusFail {
		results.finish()
		return results
	}
	results.Version = version.Resolve(info)

	results.add(checkRuntime(ctx))
	results.add(checkProviderRegistered(p.Registry, cfg.Provider))

	sdk := checkSDKModule(info, cfg.Provider)
	results.add(sdk)
	if sdk.Status == StatusPass {
		results.SDKVersion = moduleVersion(info, SDKModules[cfg.Provider])
	}

	results.add(checkCredential(cfg))
	results.finish()
	return results
}

func (r *Results) add(c CheckResult) {
	r.Checks = append(r.Checks, c)
	if c.Status == StatusFail {
		r.Passed = false
	}
}

func (r *Results) finish() {
	var failed int
	for i := range r.Checks {
		if r.Checks[i].Status == StatusFail {
			failed++
		}
	}
	if failed == 0 {
		r.Summary = fmt.Sprintf("All %d preflight checks passed", len(r.Checks))
	} else {
		r.Summary = fmt.Sprintf("%d of %d preflight checks failed", failed, len(r.Checks))
	}
}
