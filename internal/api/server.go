// Package api exposes config generation over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/IshaanNene/scrapegoat-configgen/internal/ai"
	"github.com/IshaanNene/scrapegoat-configgen/internal/config"
	"github.com/IshaanNene/scrapegoat-configgen/internal/generator"
	"github.com/IshaanNene/scrapegoat-configgen/internal/observability"
	"github.com/IshaanNene/scrapegoat-configgen/internal/storage"
	"github.com/IshaanNene/scrapegoat-configgen/internal/types"
)

const maxRequestBody = 1 << 20

// ConfigGenerator is the part of the generator the API drives.
type ConfigGenerator interface {
	Generate(ctx context.Context, url, sourceName string, k int) (*generator.Result, error)
}

// IndexInfo reports on the similarity index.
type IndexInfo interface {
	Backend() string
	Count(ctx context.Context) (int, error)
}

// Server provides a REST API for config generation.
type Server struct {
	mux     *http.ServeMux
	cfg     config.APIConfig
	logger  *slog.Logger
	gen     ConfigGenerator
	index   IndexInfo
	store   storage.Storage
	metrics *observability.Metrics
	tracker *ai.Tracker

	// Recent results, oldest first.
	mu      sync.RWMutex
	results map[string]*generator.Result
	order   []string
}

// Option configures a Server.
type Option func(*Server)

// WithStorage persists every successful result.
func WithStorage(s storage.Storage) Option {
	return func(srv *Server) { srv.store = s }
}

// WithMetrics serves the Prometheus registry at /metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(srv *Server) { srv.metrics = m }
}

// NewServer creates a new API server.
func NewServer(cfg config.APIConfig, gen ConfigGenerator, idx IndexInfo, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		mux:     http.NewServeMux(),
		cfg:     cfg,
		logger:  logger.With("component", "api_server"),
		gen:     gen,
		index:   idx,
		tracker: &ai.Tracker{},
		results: make(map[string]*generator.Result),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerRoutes()
	return s
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.mux,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server starting", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("API server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	s.mux.HandleFunc("POST /api/v1/generate", s.handleGenerate)
	s.mux.HandleFunc("GET /api/v1/generations", s.handleListGenerations)
	s.mux.HandleFunc("GET /api/v1/generations/{id}", s.handleGetGeneration)
	s.mux.HandleFunc("GET /api/v1/generations/{id}/debug", s.handleGetDebug)

	s.mux.HandleFunc("GET /api/v1/index/stats", s.handleIndexStats)
	s.mux.HandleFunc("GET /api/v1/usage", s.handleUsage)

	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": config.Version,
	})
}

type generateRequest struct {
	URL        string `json:"url"`
	SourceName string `json:"source_name"`
	K          int    `json:"k"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var body generateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&body); err != nil {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	body.URL = strings.TrimSpace(body.URL)
	if err := config.ValidateURL(body.URL); err != nil {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if body.K < 0 {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "k must be >= 0"})
		return
	}
	if body.SourceName == "" {
		if req, err := types.NewRequest(body.URL); err == nil {
			body.SourceName = req.Domain()
		}
	}

	res, err := s.gen.Generate(r.Context(), body.URL, body.SourceName, body.K)
	if err != nil {
		status, stage := errorStatus(err)
		s.jsonResponse(w, status, map[string]string{"error": err.Error(), "stage": stage})
		return
	}

	s.tracker.Add(res.Usage)
	s.remember(res)
	if s.store != nil {
		if err := s.store.Store(res); err != nil {
			s.logger.Error("failed to store result", "request_id", res.RequestID, "error", err)
		}
	}

	s.jsonResponse(w, http.StatusOK, res)
}

// errorStatus maps a generation failure to an HTTP status and stage name.
func errorStatus(err error) (int, string) {
	var se *types.StageError
	if !errors.As(err, &se) {
		return http.StatusInternalServerError, ""
	}

	switch {
	case errors.Is(err, context.Canceled):
		return 499, se.Stage
	case errors.Is(err, types.ErrInvalidURL):
		return http.StatusBadRequest, se.Stage
	case se.Stage == types.StageFetch:
		return http.StatusBadGateway, se.Stage
	case se.Stage == types.StageRetrieve:
		return http.StatusServiceUnavailable, se.Stage
	case se.Stage == types.StageFeatures, se.Stage == types.StageGenerate, se.Stage == types.StageValidate:
		return http.StatusUnprocessableEntity, se.Stage
	default:
		return http.StatusInternalServerError, se.Stage
	}
}

func (s *Server) remember(res *generator.Result) {
	limit := s.cfg.MaxHistory
	if limit <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[res.RequestID] = res
	s.order = append(s.order, res.RequestID)
	for len(s.order) > limit {
		delete(s.results, s.order[0])
		s.order = s.order[1:]
	}
}

type generationSummary struct {
	RequestID  string `json:"request_id"`
	URL        string `json:"url"`
	SourceName string `json:"source_name"`
	RenderType string `json:"data_render_type"`
	Duration   string `json:"duration"`
}

func (s *Server) handleListGenerations(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]generationSummary, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		res := s.results[s.order[i]]
		list = append(list, generationSummary{
			RequestID:  res.RequestID,
			URL:        res.URL,
			SourceName: res.SourceName,
			RenderType: res.Config.DataRenderType,
			Duration:   res.Duration.String(),
		})
	}
	s.jsonResponse(w, http.StatusOK, list)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*generator.Result, bool) {
	id := r.PathValue("id")
	s.mu.RLock()
	res, ok := s.results[id]
	s.mu.RUnlock()
	if !ok {
		s.jsonResponse(w, http.StatusNotFound, map[string]string{"error": "generation not found"})
	}
	return res, ok
}

func (s *Server) handleGetGeneration(w http.ResponseWriter, r *http.Request) {
	if res, ok := s.lookup(w, r); ok {
		s.jsonResponse(w, http.StatusOK, res)
	}
}

func (s *Server) handleGetDebug(w http.ResponseWriter, r *http.Request) {
	if res, ok := s.lookup(w, r); ok {
		s.jsonResponse(w, http.StatusOK, res.Debug)
	}
}

func (s *Server) handleIndexStats(w http.ResponseWriter, r *http.Request) {
	n, err := s.index.Count(r.Context())
	if err != nil {
		s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	s.metrics.SetIndexSize(n)
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"backend": s.index.Backend(),
		"count":   n,
	})
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.tracker.Summary())
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}
