package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/IshaanNene/scrapegoat-configgen/internal/ai"
	"github.com/IshaanNene/scrapegoat-configgen/internal/config"
	"github.com/IshaanNene/scrapegoat-configgen/internal/generator"
	"github.com/IshaanNene/scrapegoat-configgen/internal/observability"
	"github.com/IshaanNene/scrapegoat-configgen/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

type fakeGenerator struct {
	err   error
	calls int
	lastK int
	mu    sync.Mutex
}

func (g *fakeGenerator) Generate(_ context.Context, url, sourceName string, k int) (*generator.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.lastK = k
	if g.err != nil {
		return nil, g.err
	}
	id := fmt.Sprintf("req-%d", g.calls)
	return &generator.Result{
		RequestID:  id,
		URL:        url,
		SourceName: sourceName,
		Config:     types.GeneratedConfig{DataRenderType: types.RenderSSR},
		Debug:      generator.DebugSnapshot{RequestID: id, Prompt: "prompt for " + url},
		Usage:      ai.Usage{Model: "gpt-4.1-mini", InputTokens: 100, OutputTokens: 20, Cost: 0.01},
		Duration:   time.Second,
	}, nil
}

type fakeIndex struct {
	count int
	err   error
}

func (f *fakeIndex) Backend() string { return "memory" }
func (f *fakeIndex) Count(context.Context) (int, error) { return f.count, f.err }

type memoryStorage struct {
	stored []string
	err    error
}

func (m *memoryStorage) Store(res *generator.Result) error {
	m.stored = append(m.stored, res.RequestID)
	return m.err
}
func (m *memoryStorage) Close() error { return nil }
func (m *memoryStorage) Name() string { return "memory" }

func testConfig() config.APIConfig {
	return config.APIConfig{Addr: ":0", MaxHistory: 2}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestHealth(t *testing.T) {
	s := NewServer(testConfig(), &fakeGenerator{}, &fakeIndex{}, testLogger)
	w := do(t, s.Handler(), http.MethodGet, "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestGenerate(t *testing.T) {
	gen := &fakeGenerator{}
	store := &memoryStorage{}
	s := NewServer(testConfig(), gen, &fakeIndex{}, testLogger, WithStorage(store))

	w := do(t, s.Handler(), http.MethodPost, "/api/v1/generate", `{"url":"https://shop.example.com/list","k":4}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var res generator.Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.SourceName != "shop.example.com" {
		t.Errorf("source name = %q, want host fallback", res.SourceName)
	}
	if gen.lastK != 4 {
		t.Errorf("k = %d", gen.lastK)
	}
	if len(store.stored) != 1 || store.stored[0] != res.RequestID {
		t.Errorf("stored = %v", store.stored)
	}

	w = do(t, s.Handler(), http.MethodGet, "/api/v1/generations/"+res.RequestID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	w = do(t, s.Handler(), http.MethodGet, "/api/v1/generations/"+res.RequestID+"/debug", "")
	if !strings.Contains(w.Body.String(), "prompt for https://shop.example.com/list") {
		t.Errorf("debug body = %s", w.Body.String())
	}

	w = do(t, s.Handler(), http.MethodGet, "/api/v1/usage", "")
	var sum ai.Summary
	if err := json.Unmarshal(w.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode usage: %v", err)
	}
	if sum.Calls != 1 || sum.TotalTokens != 120 {
		t.Errorf("usage = %+v", sum)
	}
}

func TestGenerateStorageFailureStillResponds(t *testing.T) {
	store := &memoryStorage{err: errors.New("disk full")}
	s := NewServer(testConfig(), &fakeGenerator{}, &fakeIndex{}, testLogger, WithStorage(store))

	w := do(t, s.Handler(), http.MethodPost, "/api/v1/generate", `{"url":"https://example.com","source_name":"ex"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestGenerateBadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"url":`},
		{"missing url", `{}`},
		{"relative url", `{"url":"/list"}`},
		{"ftp url", `{"url":"ftp://example.com"}`},
		{"negative k", `{"url":"https://example.com","k":-1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{}
			s := NewServer(testConfig(), gen, &fakeIndex{}, testLogger)
			w := do(t, s.Handler(), http.MethodPost, "/api/v1/generate", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
			if gen.calls != 0 {
				t.Errorf("generator called %d times", gen.calls)
			}
		})
	}
}

func TestGenerateErrorStatus(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		code  int
		stage string
	}{
		{"fetch", &types.StageError{Stage: types.StageFetch, Err: &types.FetchError{URL: "u", StatusCode: 500, Err: errors.New("boom")}}, http.StatusBadGateway, types.StageFetch},
		{"invalid url", &types.StageError{Stage: types.StageFetch, Err: &types.FetchError{URL: "u", Err: types.ErrInvalidURL}}, http.StatusBadRequest, types.StageFetch},
		{"retrieve", &types.StageError{Stage: types.StageRetrieve, Err: errors.New("index down")}, http.StatusServiceUnavailable, types.StageRetrieve},
		{"features", &types.StageError{Stage: types.StageFeatures, Err: types.ErrEmptyFeatures}, http.StatusUnprocessableEntity, types.StageFeatures},
		{"validate", &types.StageError{Stage: types.StageValidate, Err: &types.SchemaError{Field: "f", Reason: "r"}}, http.StatusUnprocessableEntity, types.StageValidate},
		{"unstaged", errors.New("mystery"), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(testConfig(), &fakeGenerator{err: tt.err}, &fakeIndex{}, testLogger)
			w := do(t, s.Handler(), http.MethodPost, "/api/v1/generate", `{"url":"https://example.com"}`)
			if w.Code != tt.code {
				t.Errorf("status = %d, want %d", w.Code, tt.code)
			}
			var body map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["stage"] != tt.stage {
				t.Errorf("stage = %q, want %q", body["stage"], tt.stage)
			}
		})
	}
}

func TestHistoryIsBounded(t *testing.T) {
	s := NewServer(testConfig(), &fakeGenerator{}, &fakeIndex{}, testLogger)
	for i := 0; i < 3; i++ {
		w := do(t, s.Handler(), http.MethodPost, "/api/v1/generate", `{"url":"https://example.com"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
	}

	if w := do(t, s.Handler(), http.MethodGet, "/api/v1/generations/req-1", ""); w.Code != http.StatusNotFound {
		t.Errorf("evicted generation status = %d, want 404", w.Code)
	}

	w := do(t, s.Handler(), http.MethodGet, "/api/v1/generations", "")
	var list []generationSummary
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 2 || list[0].RequestID != "req-3" || list[1].RequestID != "req-2" {
		t.Errorf("list = %+v", list)
	}
}

func TestIndexStats(t *testing.T) {
	m := observability.NewMetrics(testLogger)
	s := NewServer(testConfig(), &fakeGenerator{}, &fakeIndex{count: 7}, testLogger, WithMetrics(m))

	w := do(t, s.Handler(), http.MethodGet, "/api/v1/index/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		Backend string `json:"backend"`
		Count   int    `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Backend != "memory" || body.Count != 7 {
		t.Errorf("stats = %+v", body)
	}

	w = do(t, s.Handler(), http.MethodGet, "/metrics", "")
	if !strings.Contains(w.Body.String(), "configgen_index_size 7") {
		t.Errorf("metrics missing index size:\n%s", w.Body.String())
	}
}

func TestIndexStatsError(t *testing.T) {
	s := NewServer(testConfig(), &fakeGenerator{}, &fakeIndex{err: errors.New("down")}, testLogger)
	w := do(t, s.Handler(), http.MethodGet, "/api/v1/index/stats", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d", w.Code)
	}
}

func TestMetricsRouteAbsentWithoutMetrics(t *testing.T) {
	s := NewServer(testConfig(), &fakeGenerator{}, &fakeIndex{}, testLogger)
	if w := do(t, s.Handler(), http.MethodGet, "/metrics", ""); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	cfg := config.APIConfig{Addr: "127.0.0.1:0", ReadTimeout: time.Second, WriteTimeout: time.Second}
	s := NewServer(cfg, &fakeGenerator{}, &fakeIndex{}, testLogger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ListenAndServe() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
