package harness

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chaincheck/internal/mocks"
	"chaincheck/pkg/config"
	"chaincheck/pkg/history"
	"chaincheck/pkg/llm"
	"chaincheck/pkg/llmerrors"
	"chaincheck/pkg/metrics"
	"chaincheck/pkg/preflight"
	"chaincheck/pkg/providers"
)

// fakeProvider records every construction attempt.
type fakeProvider struct {
	mu       sync.Mutex
	attempts []string
	fail     map[string]bool
	failAll  bool
	replies  map[string]string // keyed by a phrase of each agent's system prompt
	reply    func(req llm.CompletionRequest) (string, error)
}

func (p *fakeProvider) construct(_ context.Context, cfg llm.ClientConfig) (llm.LLMClient, error) {
	p.mu.Lock()
	p.attempts = append(p.attempts, cfg.ModelName)
	p.mu.Unlock()

	if p.failAll || p.fail[cfg.ModelName] {
		return nil, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, "model "+cfg.ModelName+" not found")
	}
	model := cfg.ModelName
	if model == "" {
		model = "provider-default"
	}
	client := mocks.NewMockLLMClient()
	client.SetModelName(model)
	client.RespondWith("ok")
	if p.replies != nil {
		client.RespondBySystemPrompt(p.replies, "ok")
	}
	if reply := p.reply; reply != nil {
		client.OnComplete(func(_ context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
			text, err := reply(req)
			if err != nil {
				return llm.CompletionResponse{}, err
			}
			return llm.CompletionResponse{Content: text, StopReason: "end_turn", Model: model}, nil
		})
	}
	return client, nil
}

type fixture struct {
	cfg      *config.Config
	provider *fakeProvider
	stdout   *bytes.Buffer
	opts     Options
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	t.Setenv(config.EnvCohereAPIKey, "test-key")

	cfg := config.Defaults()
	cfg.Models = []string{"command-r-plus", "command-r", "command"}

	provider := &fakeProvider{fail: map[string]bool{}}
	registry := providers.NewRegistry()
	registry.Register(config.ProviderCohere, provider.construct)

	prober := preflight.New(registry)
	prober.ReadBuildInfo = func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{
			GoVersion: "go1.24.3",
			Path:      "chaincheck/cmd/chaincheck",
			Main:      debug.Module{Path: "chaincheck", Version: "v0.4.0"},
			Deps:      []*debug.Module{{Path: "github.com/openai/openai-go", Version: "v1.12.0"}},
		}, true
	}

	stdout := &bytes.Buffer{}
	return &fixture{
		cfg:      &cfg,
		provider: provider,
		stdout:   stdout,
		opts: Options{
			Config:     &cfg,
			Registry:   registry,
			Prober:     prober,
			Stdout:     stdout,
			Executable: func() (string, error) { return "/usr/local/bin/chaincheck", nil },
		},
	}
}

func (f *fixture) run(t *testing.T) int {
	t.Helper()
	return New(f.opts).Run(context.Background())
}

const sampleJSON = `[
  {
    "original": "hello",
    "upper": "HELLO",
    "length": 5
  },
  {
    "original": "langchain",
    "upper": "LANGCHAIN",
    "length": 9
  },
  {
    "original": "works!",
    "upper": "WORKS!",
    "length": 6
  }
]`

func TestRunSuccess(t *testing.T) {
	f := newFixture(t)
	f.provider.replies = map[string]string{
		"customer support":  "Restart the router.",
		"social media":      "Big news! #energy",
		"software engineer": "def group_anagrams(words): ...",
	}

	code := f.run(t)

	assert.Equal(t, ExitOK, code)
	want := "Go executable: /usr/local/bin/chaincheck\n" +
		"chaincheck version: v0.4.0\n" +
		"Sample runnable output:\n" +
		sampleJSON + "\n" +
		"\n--- Customer Support Agent ---\n" +
		"Restart the router.\n" +
		"\n--- Social Media Agent ---\n" +
		"Big news! #energy\n" +
		"\n--- Code Writer Agent ---\n" +
		"def group_anagrams(words): ...\n"
	assert.Equal(t, want, f.stdout.String())
	assert.Equal(t, []string{"command-r-plus"}, f.provider.attempts)
}

func TestRunAgentFailureDoesNotStopOthers(t *testing.T) {
	f := newFixture(t)
	var calls int
	f.provider.reply = func(req llm.CompletionRequest) (string, error) {
		calls++
		if strings.Contains(req.Messages[0].Content, "customer support") {
			return "", llmerrors.NewErrorWithStatus(llmerrors.ErrorTypeAuth, 401, errors.New("invalid api token"))
		}
		return "fine", nil
	}

	code := f.run(t)

	assert.Equal(t, ExitOK, code)
	assert.Equal(t, 3, calls)
	out := f.stdout.String()
	assert.Contains(t, out, "--- Customer Support Agent ---\nCustomer Support Agent failed:\n")
	assert.Contains(t, out, "invalid api token")
	assert.Contains(t, out, "--- Social Media Agent ---\nfine\n")
	assert.Contains(t, out, "--- Code Writer Agent ---\nfine\n")
}

func TestRunEmptyReplyPrintsBlankBody(t *testing.T) {
	f := newFixture(t)
	f.provider.reply = func(llm.CompletionRequest) (string, error) { return "", nil }

	code := f.run(t)

	assert.Equal(t, ExitOK, code)
	out := f.stdout.String()
	assert.NotContains(t, out, " failed:")
	assert.True(t, strings.HasSuffix(out,
		"\n--- Customer Support Agent ---\n\n"+
			"\n--- Social Media Agent ---\n\n"+
			"\n--- Code Writer Agent ---\n\n"), out)
}

func TestRunDependencyFailure(t *testing.T) {
	f := newFixture(t)
	f.opts.Prober.ReadBuildInfo = func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Main: debug.Module{Path: "chaincheck"}}, true
	}

	code := f.run(t)

	assert.Equal(t, ExitDependency, code)
	assert.Equal(t,
		"github.com/openai/openai-go import failed:\nmodule github.com/openai/openai-go not found in build info\n",
		f.stdout.String())
	assert.Empty(t, f.provider.attempts)
}

func TestRunUnknownProviderIsDependencyFailure(t *testing.T) {
	f := newFixture(t)
	f.cfg.Provider = "mystery"

	code := f.run(t)

	assert.Equal(t, ExitDependency, code)
	assert.True(t, strings.HasPrefix(f.stdout.String(), "chaincheck/pkg/providers/mystery import failed:\n"))
}

func TestRunTransformFailure(t *testing.T) {
	f := newFixture(t)
	h := New(f.opts)
	h.sampleInput = "hello"

	code := h.Run(context.Background())

	assert.Equal(t, ExitTransform, code)
	out := f.stdout.String()
	assert.Contains(t, out, "Runnable failed:\nsummarize expects a list of items, got string\n")
	assert.NotContains(t, out, "Sample runnable output:")
	assert.Empty(t, f.provider.attempts)
}

func TestRunFallsThroughCandidates(t *testing.T) {
	f := newFixture(t)
	f.provider.fail["command-r-plus"] = true
	f.provider.fail["command-r"] = true

	code := f.run(t)

	assert.Equal(t, ExitOK, code)
	assert.Equal(t, []string{"command-r-plus", "command-r", "command"}, f.provider.attempts)
}

func TestRunUsesDefaultAfterAllCandidatesFail(t *testing.T) {
	f := newFixture(t)
	for _, m := range f.cfg.Models {
		f.provider.fail[m] = true
	}

	code := f.run(t)

	assert.Equal(t, ExitOK, code)
	assert.Equal(t, []string{"command-r-plus", "command-r", "command", ""}, f.provider.attempts)
}

func TestRunClientFailure(t *testing.T) {
	f := newFixture(t)
	f.provider.failAll = true

	code := f.run(t)

	assert.Equal(t, ExitClient, code)
	assert.Equal(t, []string{"command-r-plus", "command-r", "command", ""}, f.provider.attempts)
	out := f.stdout.String()
	assert.Contains(t, out, "Failed to initialize Cohere LLM:\nno model could be initialized")
	assert.NotContains(t, out, "--- Customer Support Agent ---")
}

func TestRunWarnsWithoutKey(t *testing.T) {
	f := newFixture(t)
	t.Setenv(config.EnvCohereAPIKey, "")

	code := f.run(t)

	assert.Equal(t, ExitOK, code)
	assert.Contains(t, f.stdout.String(),
		sampleJSON+"\nWarning: COHERE_API_KEY not set; Cohere-backed agents will likely fail.\n\n--- Customer Support Agent ---")
}

func TestRunSkipAgents(t *testing.T) {
	f := newFixture(t)
	f.cfg.SkipAgents = true
	f.provider.reply = func(llm.CompletionRequest) (string, error) {
		t.Fatal("agents must not run")
		return "", nil
	}

	code := f.run(t)

	assert.Equal(t, ExitOK, code)
	assert.NotContains(t, f.stdout.String(), "---")
	assert.Equal(t, []string{"command-r-plus"}, f.provider.attempts)
}

func TestRunRecordsHistoryAndMetrics(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	f.cfg.MetricsFile = filepath.Join(dir, "chaincheck.prom")
	f.provider.fail["command-r-plus"] = true

	store, err := history.Open(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	f.opts.History = store
	f.opts.Metrics = metrics.NewPrometheusRecorder()
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	f.opts.Now = func() time.Time { return start }

	code := f.run(t)
	require.Equal(t, ExitOK, code)

	runs, err := store.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	run := runs[0]
	assert.Equal(t, "cohere", run.Provider)
	assert.Equal(t, "command-r", run.Model)
	assert.False(t, run.UsedDefault)
	assert.Equal(t, "v1.12.0", run.SDKVersion)
	assert.Equal(t, ExitOK, run.ExitCode)

	stages := make([]string, 0, len(run.Stages))
	for _, s := range run.Stages {
		stages = append(stages, s.Name+"="+s.Status)
	}
	assert.Equal(t, []string{
		"dependencies=pass",
		"transform=pass",
		"client=pass",
		"customer_support=pass",
		"social_media=pass",
		"code_writer=pass",
	}, stages)

	data, err := os.ReadFile(f.cfg.MetricsFile)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `chaincheck_llm_requests_total{agent="code_writer",error_type="",model="command-r",status="success"} 1`)
	assert.Contains(t, text, `chaincheck_stage_status{stage="client",status="pass"} 1`)
	assert.Contains(t, text, "chaincheck_exit_code 0")
}

func TestRunRecordsFatalExit(t *testing.T) {
	f := newFixture(t)
	f.provider.failAll = true

	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	f.opts.History = store

	require.Equal(t, ExitClient, f.run(t))

	runs, err := store.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, ExitClient, runs[0].ExitCode)
	last := runs[0].Stages[len(runs[0].Stages)-1]
	assert.Equal(t, "client", last.Name)
	assert.Equal(t, "fail", last.Status)
	assert.Contains(t, last.Detail, "no model could be initialized")
}

func TestProviderTitle(t *testing.T) {
	assert.Equal(t, "Cohere", providerTitle("cohere"))
	assert.Equal(t, "OpenAI", providerTitle("openai"))
	assert.Equal(t, "custom", providerTitle("custom"))
}

func TestStyleForBuffer(t *testing.T) {
	s := styleFor(&bytes.Buffer{})
	assert.Equal(t, "--- X ---", s.header("--- X ---"))
	assert.Equal(t, "\x1b[1mhi\x1b[0m", style{bold: true}.header("hi"))
}
