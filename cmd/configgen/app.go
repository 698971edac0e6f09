package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/IshaanNene/scrapegoat-configgen/internal/ai"
	"github.com/IshaanNene/scrapegoat-configgen/internal/cache"
	"github.com/IshaanNene/scrapegoat-configgen/internal/config"
	"github.com/IshaanNene/scrapegoat-configgen/internal/fetcher"
	"github.com/IshaanNene/scrapegoat-configgen/internal/generator"
	"github.com/IshaanNene/scrapegoat-configgen/internal/index"
	"github.com/IshaanNene/scrapegoat-configgen/internal/observability"
)

// app holds the long-lived components shared by every command.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	llm     *ai.LLMClient
	index   *index.Index
	fetcher fetcher.Fetcher
	cache   *cache.Cache
}

// newApp wires the index, embedder and LLM client. The fetcher is only
// started when withFetcher is set, since the browser fetcher launches
// Chromium eagerly.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, withFetcher bool) (*app, error) {
	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: observability.NewMetrics(logger),
	}

	embedder, err := ai.NewEmbedder(ai.EmbeddingConfig{
		Provider:  cfg.Embedding.Provider,
		Model:     cfg.Embedding.Model,
		Endpoint:  cfg.Embedding.Endpoint,
		APIKey:    cfg.Embedding.APIKey,
		Dimension: cfg.Embedding.Dimension,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	if cfg.Cache.Enabled {
		c, err := cache.New(cache.Config{
			Address:  cfg.Cache.Address,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
			TTL:      cfg.Cache.TTL,
		})
		if err != nil {
			logger.Warn("embedding cache unavailable, continuing without it", "address", cfg.Cache.Address, "error", err)
		} else {
			a.cache = c
			embedder = cache.NewCachedEmbedder(embedder, c, logger)
		}
	}

	store, err := index.NewStore(ctx, index.StoreConfig{
		Backend:    cfg.Index.Backend,
		DSN:        cfg.Index.DSN,
		Database:   cfg.Index.Database,
		Collection: cfg.Index.Collection,
		Dimension:  cfg.Embedding.Dimension,
	}, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open index: %w", err)
	}
	a.index = index.New(store, embedder, logger)

	a.llm = ai.NewLLMClient(ai.LLMConfig{
		Provider:    ai.LLMProvider(cfg.LLM.Provider),
		Endpoint:    cfg.LLM.Endpoint,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)

	if withFetcher {
		f, err := fetcher.New(&cfg.Fetcher, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("create fetcher: %w", err)
		}
		a.fetcher = f
	}

	return a, nil
}

func (a *app) options() generator.Options {
	return generator.Options{
		NumSimilar:    a.cfg.Generator.NumSimilar,
		PaginationK:   a.cfg.Generator.PaginationK,
		SnippetLength: a.cfg.Generator.SnippetMaxLength,
		HTMLBudget:    a.cfg.Generator.HTMLBudget,
	}
}

func (a *app) generator() *generator.Generator {
	return generator.New(a.fetcher, a.llm, a.index, a.options(), a.logger, generator.WithMetrics(a.metrics))
}

func (a *app) indexer() *generator.Indexer {
	return generator.NewIndexer(a.fetcher, a.llm, a.index, a.options(), a.logger, a.metrics)
}

// Close releases everything newApp opened.
func (a *app) Close() {
	if a.fetcher != nil {
		if err := a.fetcher.Close(); err != nil {
			a.logger.Warn("failed to close fetcher", "error", err)
		}
	}
	if a.index != nil {
		if err := a.index.Close(); err != nil {
			a.logger.Warn("failed to close index", "error", err)
		}
	}
	if a.cache != nil {
		a.cache.Close()
	}
}

// seedsNeedFetcher reports whether any seed must be downloaded.
func seedsNeedFetcher(seeds []generator.Seed) bool {
	for _, s := range seeds {
		if s.HTMLFile == "" {
			return true
		}
	}
	return false
}

// setupLogger builds the process logger from the logging config. verbose
// forces debug level.
func setupLogger(cfg config.LoggingConfig, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
