// Package observability exposes Prometheus metrics for config generation.
package observability

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/IshaanNene/scrapegoat-configgen/internal/ai"
	"github.com/IshaanNene/scrapegoat-configgen/internal/types"
)

// MetricsNamespace is the namespace for all configgen metrics.
const MetricsNamespace = "configgen"

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and
// records nothing, so components can take one unconditionally.
type Metrics struct {
	GenerationsTotal   *prometheus.CounterVec
	GenerationDuration prometheus.Histogram
	StageFailures      *prometheus.CounterVec

	FetchesTotal  *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec

	LLMCallsTotal *prometheus.CounterVec
	LLMTokens     *prometheus.CounterVec
	LLMCostUSD    prometheus.Counter

	IndexedTotal *prometheus.CounterVec
	IndexSize    prometheus.Gauge

	registry *prometheus.Registry
	logger   *slog.Logger
}

// NewMetrics creates and registers all metrics on a private registry.
func NewMetrics(logger *slog.Logger) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		logger:   logger.With("component", "metrics"),
	}

	m.GenerationsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "generations_total",
		Help:      "Config generations by outcome and render type",
	}, []string{"status", "render_type"})

	m.GenerationDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "generation_duration_seconds",
		Help:      "End-to-end duration of a config generation",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~8.5min
	})

	m.StageFailures = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "stage_failures_total",
		Help:      "Generation failures by pipeline stage",
	}, []string{"stage"})

	m.FetchesTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: "fetcher",
		Name:      "fetches_total",
		Help:      "Page fetches by fetcher type and outcome",
	}, []string{"fetcher", "status"})

	m.FetchDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Subsystem: "fetcher",
		Name:      "fetch_duration_seconds",
		Help:      "Page fetch duration",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
	}, []string{"fetcher"})

	m.LLMCallsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: "llm",
		Name:      "calls_total",
		Help:      "LLM calls by step",
	}, []string{"step"})

	m.LLMTokens = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: "llm",
		Name:      "tokens_total",
		Help:      "LLM tokens by step and direction",
	}, []string{"step", "direction"})

	m.LLMCostUSD = factory.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: "llm",
		Name:      "cost_usd_total",
		Help:      "Estimated LLM spend in USD",
	})

	m.IndexedTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: "index",
		Name:      "configs_indexed_total",
		Help:      "Seed configs processed by outcome",
	}, []string{"status"})

	m.IndexSize = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Subsystem: "index",
		Name:      "size",
		Help:      "Number of configs in the similarity index",
	})

	return m
}

// ObserveGeneration records the outcome of one Generate call. A failed
// generation is attributed to the stage named by its *types.StageError.
func (m *Metrics) ObserveGeneration(renderType string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.GenerationDuration.Observe(d.Seconds())
	if err == nil {
		m.GenerationsTotal.WithLabelValues("success", renderType).Inc()
		return
	}
	m.GenerationsTotal.WithLabelValues("failure", "").Inc()
	stage := "unknown"
	var se *types.StageError
	if errors.As(err, &se) {
		stage = se.Stage
	}
	m.StageFailures.WithLabelValues(stage).Inc()
}

// ObserveFetch records one page fetch.
func (m *Metrics) ObserveFetch(fetcher string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.FetchesTotal.WithLabelValues(fetcher, status).Inc()
	m.FetchDuration.WithLabelValues(fetcher).Observe(d.Seconds())
}

// ObserveLLM records the usage of one LLM call.
func (m *Metrics) ObserveLLM(step string, u ai.Usage) {
	if m == nil {
		return
	}
	m.LLMCallsTotal.WithLabelValues(step).Inc()
	m.LLMTokens.WithLabelValues(step, "input").Add(float64(u.InputTokens))
	m.LLMTokens.WithLabelValues(step, "output").Add(float64(u.OutputTokens))
	m.LLMCostUSD.Add(u.Cost)
}

// ObserveIndexed records one seed config outcome: indexed, skipped or failed.
func (m *Metrics) ObserveIndexed(status string) {
	if m == nil {
		return
	}
	m.IndexedTotal.WithLabelValues(status).Inc()
}

// SetIndexSize publishes the current index size.
func (m *Metrics) SetIndexSize(n int) {
	if m == nil {
		return
	}
	m.IndexSize.Set(float64(n))
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// StartServer starts the metrics HTTP server in the background.
func (m *Metrics) StartServer(port int, path string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	m.logger.Info("metrics server starting", "addr", srv.Addr, "path", path)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	return srv
}
