package metrics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// ModelUsage aggregates request and token counters for one model.
type ModelUsage struct {
	Model            string `json:"model"`
	Requests         int64  `json:"requests"`
	Failures         int64  `json:"failures"`
	PromptTokens     int64  `json:"prompt_tokens"`
	CompletionTokens int64  `json:"completion_tokens"`
	TotalTokens      int64  `json:"total_tokens"`
}

// QueryService reads pushed chaincheck metrics back out of Prometheus.
type QueryService struct {
	queryAPI v1.API
}

// NewQueryService creates a new metrics query service.
func NewQueryService(prometheusURL string) (*QueryService, error) {
	client, err := api.NewClient(api.Config{
		Address: prometheusURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}

	return &QueryService{queryAPI: v1.NewAPI(client)}, nil
}

// UsageByModel returns per-model totals, sorted by model name.
func (q *QueryService) UsageByModel(ctx context.Context) ([]ModelUsage, error) {
	byModel := make(map[string]*ModelUsage)
	get := func(name string) *ModelUsage {
		u, ok := byModel[name]
		if !ok {
			u = &ModelUsage{Model: name}
			byModel[name] = u
		}
		return u
	}

	queries := []struct {
		expr  string
		apply func(u *ModelUsage, v int64)
	}{
		{
			expr:  fmt.Sprintf(`sum by (model) (%s_llm_requests_total)`, Namespace),
			apply: func(u *ModelUsage, v int64) { u.Requests = v },
		},
		{
			expr:  fmt.Sprintf(`sum by (model) (%s_llm_requests_total{status=%q})`, Namespace, statusError),
			apply: func(u *ModelUsage, v int64) { u.Failures = v },
		},
		{
			expr:  fmt.Sprintf(`sum by (model) (%s_llm_tokens_total{type="prompt"})`, Namespace),
			apply: func(u *ModelUsage, v int64) { u.PromptTokens = v },
		},
		{
			expr:  fmt.Sprintf(`sum by (model) (%s_llm_tokens_total{type="completion"})`, Namespace),
			apply: func(u *ModelUsage, v int64) { u.CompletionTokens = v },
		},
	}

	for _, qq := range queries {
		vector, err := q.vector(ctx, qq.expr)
		if err != nil {
			return nil, err
		}
		for _, sample := range vector {
			name := string(sample.Metric["model"])
			qq.apply(get(name), int64(sample.Value))
		}
	}

	out := make([]ModelUsage, 0, len(byModel))
	for _, u := range byModel {
		u.TotalTokens = u.PromptTokens + u.CompletionTokens
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Model < out[j].Model })
	return out, nil
}

// LastExitCode returns the exit code of the most recently pushed run.
func (q *QueryService) LastExitCode(ctx context.Context) (int, bool, error) {
	vector, err := q.vector(ctx, fmt.Sprintf(`%s_exit_code`, Namespace))
	if err != nil {
		return 0, false, err
	}
	if len(vector) == 0 {
		return 0, false, nil
	}
	return int(vector[0].Value), true, nil
}

func (q *QueryService) vector(ctx context.Context, expr string) (model.Vector, error) {
	result, _, err := q.queryAPI.Query(ctx, expr, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query %q: %w", expr, err)
	}
	vector, ok := result.(model.Vector)
	if !ok {
		return nil, nil
	}
	return vector, nil
}
