package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chaincheck/pkg/agents"
	"chaincheck/pkg/llm"
	"chaincheck/pkg/llmerrors"
)

type stubClient struct {
	resp llm.CompletionResponse
	err  error
}

func (s stubClient) Complete(context.Context, llm.CompletionRequest) (llm.CompletionResponse, error) {
	return s.resp, s.err
}

func (s stubClient) GetModelName() string { return "command-r" }

type captured struct {
	model, agent, errorType string
	prompt, completion      int
	success                 bool
}

type captureRecorder struct {
	mu    sync.Mutex
	calls []captured
}

func (c *captureRecorder) ObserveRequest(model, agent string, p, comp int, success bool, errorType string, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, captured{model: model, agent: agent, errorType: errorType, prompt: p, completion: comp, success: success})
}

// metricValue sums counter, gauge and histogram-count values of a family whose
// labels include every pair in want.
func metricValue(t *testing.T, g prometheus.Gatherer, name string, want map[string]string) float64 {
	t.Helper()
	families, err := g.Gather()
	require.NoError(t, err)

	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if !labelsMatch(m, want) {
				continue
			}
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				total += m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				total += float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return total
}

func labelsMatch(m *dto.Metric, want map[string]string) bool {
	got := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestMiddlewareRecordsSuccess(t *testing.T) {
	rec := &captureRecorder{}
	extractor := func(llm.CompletionRequest, llm.CompletionResponse) (int, int) { return 7, 3 }
	client := llm.Chain(stubClient{resp: llm.CompletionResponse{Content: "hi"}}, Middleware(rec, extractor, nil))

	ctx := agents.WithAgent(context.Background(), agents.CodeWriter)
	resp, err := client.Complete(ctx, llm.NewCompletionRequest([]llm.CompletionMessage{llm.NewUserMessage("hello")}))
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Content)
	assert.Equal(t, "command-r", client.GetModelName())

	require.Len(t, rec.calls, 1)
	assert.Equal(t, captured{model: "command-r", agent: agents.CodeWriter, prompt: 7, completion: 3, success: true}, rec.calls[0])
}

func TestMiddlewareRecordsErrorType(t *testing.T) {
	rec := &captureRecorder{}
	cause := llmerrors.NewError(llmerrors.ErrorTypeAuth, "bad key")
	client := llm.Chain(stubClient{err: cause}, Middleware(rec, nil, nil))

	_, err := client.Complete(context.Background(), llm.CompletionRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, cause))

	require.Len(t, rec.calls, 1)
	assert.False(t, rec.calls[0].success)
	assert.Equal(t, "auth", rec.calls[0].errorType)
	assert.Zero(t, rec.calls[0].prompt)
}

func TestPrometheusRecorder(t *testing.T) {
	p := NewPrometheusRecorder()
	p.ObserveRequest("command-r", agents.SocialMedia, 10, 4, true, "", 120*time.Millisecond)
	p.ObserveRequest("command-r", agents.SocialMedia, 0, 0, false, "rate_limit", time.Second)
	p.ObserveStage("transform", "pass")
	p.ObserveExit(3, time.Unix(1700000000, 0))

	reg := p.Registry()
	assert.InDelta(t, 1, metricValue(t, reg, "chaincheck_llm_requests_total", map[string]string{"status": "success"}), 0)
	assert.InDelta(t, 1, metricValue(t, reg, "chaincheck_llm_requests_total", map[string]string{"status": "error", "error_type": "rate_limit"}), 0)
	assert.InDelta(t, 10, metricValue(t, reg, "chaincheck_llm_tokens_total", map[string]string{"type": "prompt"}), 0)
	assert.InDelta(t, 4, metricValue(t, reg, "chaincheck_llm_tokens_total", map[string]string{"type": "completion"}), 0)
	assert.InDelta(t, 2, metricValue(t, reg, "chaincheck_llm_request_duration_seconds", nil), 0)
	assert.InDelta(t, 1, metricValue(t, reg, "chaincheck_stage_status", map[string]string{"stage": "transform", "status": "pass"}), 0)
	assert.InDelta(t, 3, metricValue(t, reg, "chaincheck_exit_code", nil), 0)
	assert.InDelta(t, 1700000000, metricValue(t, reg, "chaincheck_last_run_timestamp_seconds", nil), 0)
}

func TestTokenCounter(t *testing.T) {
	assert.Zero(t, CountTokensSimple(""))
	assert.Positive(t, CountTokensSimple("Write a tweet about AI"))

	var nilCounter *TokenCounter
	assert.Equal(t, 2, nilCounter.CountTokens("12345678"))
}

func TestWriteTextfile(t *testing.T) {
	p := NewPrometheusRecorder()
	p.ObserveExit(2, time.Now())

	path := filepath.Join(t.TempDir(), "chaincheck.prom")
	require.NoError(t, WriteTextfile(p.Registry(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# TYPE chaincheck_exit_code gauge")
	assert.Contains(t, string(data), "chaincheck_exit_code 2")
}

func TestWriteTextfileMissingDir(t *testing.T) {
	p := NewPrometheusRecorder()
	err := WriteTextfile(p.Registry(), filepath.Join(t.TempDir(), "missing", "out.prom"))
	require.Error(t, err)
}

func TestPush(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewPrometheusRecorder()
	p.ObserveExit(0, time.Now())
	require.NoError(t, Push(context.Background(), srv.URL, "cohere", p.Registry()))

	assert.Equal(t, "/metrics/job/chaincheck/provider/cohere", gotPath)
	assert.NotEmpty(t, gotBody)
}

func TestPushFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := Push(context.Background(), srv.URL, "", NewPrometheusRecorder().Registry())
	require.Error(t, err)
	assert.Contains(t, err.Error(), srv.URL)
}

func fakePrometheus(t *testing.T, results map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/api/v1/query") {
			http.NotFound(w, r)
			return
		}
		query := r.FormValue("query")
		result := "[]"
		for fragment, body := range results {
			if strings.Contains(query, fragment) {
				result = body
			}
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"success","data":{"resultType":"vector","result":%s}}`, result)
	}))
}

func sample(modelName, value string) string {
	return fmt.Sprintf(`[{"metric":{"model":%q},"value":[1700000000,%q]}]`, modelName, value)
}

func TestQueryServiceUsageByModel(t *testing.T) {
	srv := fakePrometheus(t, map[string]string{
		"llm_requests_total)": sample("command-r", "4"),
		`status="error"`:      sample("command-r", "1"),
		`type="prompt"`:       sample("command-r", "120"),
		`type="completion"`:   sample("command-r", "30"),
	})
	defer srv.Close()

	q, err := NewQueryService(srv.URL)
	require.NoError(t, err)

	usage, err := q.UsageByModel(context.Background())
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Equal(t, ModelUsage{
		Model:            "command-r",
		Requests:         4,
		Failures:         1,
		PromptTokens:     120,
		CompletionTokens: 30,
		TotalTokens:      150,
	}, usage[0])
}

func TestQueryServiceLastExitCode(t *testing.T) {
	srv := fakePrometheus(t, map[string]string{
		"chaincheck_exit_code": `[{"metric":{},"value":[1700000000,"2"]}]`,
	})
	defer srv.Close()

	q, err := NewQueryService(srv.URL)
	require.NoError(t, err)

	code, ok, err := q.LastExitCode(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, code)
}

func TestQueryServiceEmpty(t *testing.T) {
	srv := fakePrometheus(t, nil)
	defer srv.Close()

	q, err := NewQueryService(srv.URL)
	require.NoError(t, err)

	usage, err := q.UsageByModel(context.Background())
	require.NoError(t, err)
	assert.Empty(t, usage)

	_, ok, err := q.LastExitCode(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}
