package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every exported metric.
const Namespace = "chaincheck"

// PrometheusRecorder implements Recorder on a private Prometheus registry, plus
// per-run stage gauges.
type PrometheusRecorder struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	tokensTotal     *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	stageStatus     *prometheus.GaugeVec
	exitCode        prometheus.Gauge
	lastRun         prometheus.Gauge
}

// NewPrometheusRecorder creates a recorder with its own registry.
func NewPrometheusRecorder() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		registry: reg,
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "llm_requests_total",
				Help:      "Total number of LLM requests by model, agent, and status",
			},
			[]string{"model", "agent", "status", "error_type"},
		),
		tokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "llm_tokens_total",
				Help:      "Estimated tokens used in LLM requests",
			},
			[]string{"model", "agent", "type"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "llm_request_duration_seconds",
				Help:      "Duration of LLM requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"model", "agent"},
		),
		stageStatus: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "stage_status",
				Help:      "Outcome of each run stage (1 for the reported status)",
			},
			[]string{"stage", "status"},
		),
		exitCode: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "exit_code",
			Help:      "Process exit code of the last run",
		}),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
	}
}

// Registry returns the gatherer holding every metric.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

// ObserveRequest records metrics for a completed LLM request.
func (p *PrometheusRecorder) ObserveRequest(
	model, agent string,
	promptTokens, completionTokens int,
	success bool,
	errorType string,
	duration time.Duration,
) {
	status := statusSuccess
	if !success {
		status = statusError
	}

	p.requestsTotal.WithLabelValues(model, agent, status, errorType).Inc()

	if success {
		p.tokensTotal.WithLabelValues(model, agent, "prompt").Add(float64(promptTokens))
		p.tokensTotal.WithLabelValues(model, agent, "completion").Add(float64(completionTokens))
	}

	p.requestDuration.WithLabelValues(model, agent).Observe(duration.Seconds())
}

// ObserveStage marks a stage outcome.
func (p *PrometheusRecorder) ObserveStage(stage, status string) {
	p.stageStatus.WithLabelValues(stage, status).Set(1)
}

// ObserveExit records the run's exit code and completion time.
func (p *PrometheusRecorder) ObserveExit(code int, at time.Time) {
	p.exitCode.Set(float64(code))
	p.lastRun.Set(float64(at.Unix()))
}
