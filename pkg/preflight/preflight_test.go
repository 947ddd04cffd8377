package preflight

import (
	"context"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chaincheck/pkg/config"
	"chaincheck/pkg/providers"
)

func fakeBuildInfo(deps ...*debug.Module) func() (*debug.BuildInfo, bool) {
	return func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{
			GoVersion: "go1.24.3",
			Path:      "chaincheck/cmd/chaincheck",
			Main:      debug.Module{Path: "chaincheck", Version: "v0.4.0"},
			Deps:      deps,
		}, true
	}
}

func cohereConfig(t *testing.T, key string) *config.Config {
	t.Helper()
	t.Setenv(config.EnvCohereAPIKey, key)
	cfg := config.Defaults()
	return &cfg
}

func TestRunAllPass(t *testing.T) {
	p := New(providers.Default())
	p.ReadBuildInfo = fakeBuildInfo(&debug.Module{Path: "github.com/openai/openai-go", Version: "v1.12.0"})

	results := p.Run(context.Background(), cohereConfig(t, "secret"))

	require.True(t, results.Passed, FormatResults(results))
	assert.Nil(t, results.FirstFailure())
	assert.Empty(t, results.Warnings())
	assert.Equal(t, "v1.12.0", results.SDKVersion)
	assert.Equal(t, "All 5 preflight checks passed", results.Summary)

	names := make([]string, 0, len(results.Checks))
	for _, c := range results.Checks {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{
		"runtime/debug",
		"chaincheck/pkg/chain",
		"chaincheck/pkg/providers/cohere",
		"github.com/openai/openai-go",
		"credential",
	}, names)
}

func TestRunMissingKeyWarnsOnly(t *testing.T) {
	p := New(providers.Default())
	p.ReadBuildInfo = fakeBuildInfo(&debug.Module{Path: "github.com/openai/openai-go", Version: "v1.12.0"})

	results := p.Run(context.Background(), cohereConfig(t, ""))

	assert.True(t, results.Passed)
	warnings := results.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, "COHERE_API_KEY not set", warnings[0].Message)
}

func TestRunSDKMissing(t *testing.T) {
	p := New(providers.Default())
	p.ReadBuildInfo = fakeBuildInfo()

	results := p.Run(context.Background(), cohereConfig(t, "secret"))

	require.False(t, results.Passed)
	failure := results.FirstFailure()
	require.NotNil(t, failure)
	assert.Equal(t, "github.com/openai/openai-go", failure.Name)
	require.Error(t, failure.Error)
	assert.Contains(t, failure.Error.Error(), "not found in build info")
	assert.Equal(t, "1 of 5 preflight checks failed", results.Summary)
}

func TestRunBuildInfoUnavailable(t *testing.T) {
	p := New(providers.Default())
	p.ReadBuildInfo = func() (*debug.BuildInfo, bool) { return nil, false }

	results := p.Run(context.Background(), cohereConfig(t, "secret"))

	require.False(t, results.Passed)
	require.Len(t, results.Checks, 1)
	assert.Equal(t, "runtime/debug", results.FirstFailure().Name)
}

func TestRunUnregisteredProvider(t *testing.T) {
	p := New(providers.NewRegistry())
	p.ReadBuildInfo = fakeBuildInfo(&debug.Module{Path: "github.com/openai/openai-go", Version: "v1.12.0"})

	results := p.Run(context.Background(), cohereConfig(t, "secret"))

	require.False(t, results.Passed)
	assert.Equal(t, "chaincheck/pkg/providers/cohere", results.FirstFailure().Name)
}

func TestRunOllamaNeedsNoKey(t *testing.T) {
	p := New(providers.Default())
	p.ReadBuildInfo = fakeBuildInfo(&debug.Module{Path: "github.com/ollama/ollama", Version: "v0.16.2"})

	cfg := config.Defaults()
	cfg.Provider = config.ProviderOllama
	results := p.Run(context.Background(), &cfg)

	require.True(t, results.Passed)
	assert.Empty(t, results.Warnings())
	assert.Equal(t, "v0.16.2", results.SDKVersion)
}

func TestModuleVersionHonorsReplace(t *testing.T) {
	info := &debug.BuildInfo{Deps: []*debug.Module{{
		Path:    "google.golang.org/genai",
		Version: "v1.46.0",
		Replace: &debug.Module{Path: "../genai"},
	}}}

	assert.Equal(t, "../genai", moduleVersion(info, "google.golang.org/genai"))
	assert.Empty(t, moduleVersion(info, "github.com/ollama/ollama"))
	assert.Empty(t, moduleVersion(nil, "google.golang.org/genai"))
}

func TestVersionFromBuildInfo(t *testing.T) {
	p := New(providers.Default())
	p.ReadBuildInfo = fakeBuildInfo(&debug.Module{Path: "github.com/openai/openai-go", Version: "v1.12.0"})

	results := p.Run(context.Background(), cohereConfig(t, "secret"))
	assert.Equal(t, "v0.4.0", results.Version)
}

func TestFormatCheckError(t *testing.T) {
	out := FormatCheckError(CheckResult{
		Name:     "credential",
		Provider: config.ProviderOpenAI,
		Status:   StatusWarn,
		Message:  "OPENAI_API_KEY not set",
	})
	assert.Contains(t, out, "credential: OPENAI_API_KEY not set")
	assert.Contains(t, out, "platform.openai.com")
}
