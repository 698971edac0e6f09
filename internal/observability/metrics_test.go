package observability

import (
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/IshaanNene/scrapegoat-configgen/internal/ai"
	"github.com/IshaanNene/scrapegoat-configgen/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveGeneration("SSR", time.Second, nil)
	m.ObserveFetch("http", time.Second, nil)
	m.ObserveLLM("step", ai.Usage{InputTokens: 1})
	m.ObserveIndexed("indexed")
	m.SetIndexSize(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Errorf("nil handler status = %d", rec.Code)
	}
}

func TestObserveGeneration(t *testing.T) {
	m := NewMetrics(testLogger)

	m.ObserveGeneration("CSR", 2*time.Second, nil)
	m.ObserveGeneration("", time.Second, &types.StageError{Stage: types.StageValidate, Err: errors.New("bad")})
	m.ObserveGeneration("", time.Second, errors.New("plain"))

	if got := testutil.ToFloat64(m.GenerationsTotal.WithLabelValues("success", "CSR")); got != 1 {
		t.Errorf("success count = %v", got)
	}
	if got := testutil.ToFloat64(m.GenerationsTotal.WithLabelValues("failure", "")); got != 2 {
		t.Errorf("failure count = %v", got)
	}
	if got := testutil.ToFloat64(m.StageFailures.WithLabelValues(types.StageValidate)); got != 1 {
		t.Errorf("validate failures = %v", got)
	}
	if got := testutil.ToFloat64(m.StageFailures.WithLabelValues("unknown")); got != 1 {
		t.Errorf("unknown failures = %v", got)
	}
}

func TestObserveLLM(t *testing.T) {
	m := NewMetrics(testLogger)
	m.ObserveLLM("config_generation", ai.Usage{InputTokens: 1000, OutputTokens: 200, Cost: 0.5})
	m.ObserveLLM("config_generation", ai.Usage{InputTokens: 10, Cost: 0.25})

	if got := testutil.ToFloat64(m.LLMCallsTotal.WithLabelValues("config_generation")); got != 2 {
		t.Errorf("calls = %v", got)
	}
	if got := testutil.ToFloat64(m.LLMTokens.WithLabelValues("config_generation", "input")); got != 1010 {
		t.Errorf("input tokens = %v", got)
	}
	if got := testutil.ToFloat64(m.LLMCostUSD); got != 0.75 {
		t.Errorf("cost = %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewMetrics(testLogger)
	m.SetIndexSize(42)
	m.ObserveFetch("browser", time.Second, errors.New("timeout"))

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{
		"configgen_index_size 42",
		`configgen_fetcher_fetches_total{fetcher="browser",status="failure"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}
