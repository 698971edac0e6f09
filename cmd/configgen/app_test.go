package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/IshaanNene/scrapegoat-configgen/internal/config"
	"github.com/IshaanNene/scrapegoat-configgen/internal/generator"
	"github.com/IshaanNene/scrapegoat-configgen/internal/types"
)

func TestSetupLoggerLevels(t *testing.T) {
	tests := []struct {
		level   string
		verbose bool
		want    slog.Level
	}{
		{"info", false, slog.LevelInfo},
		{"debug", false, slog.LevelDebug},
		{"WARN", false, slog.LevelWarn},
		{"error", false, slog.LevelError},
		{"error", true, slog.LevelDebug},
		{"", false, slog.LevelInfo},
	}

	for _, tt := range tests {
		logger := setupLogger(config.LoggingConfig{Level: tt.level, Format: "json"}, tt.verbose)
		ctx := context.Background()
		if !logger.Enabled(ctx, tt.want) {
			t.Errorf("level %q verbose=%v: %v not enabled", tt.level, tt.verbose, tt.want)
		}
		if tt.want > slog.LevelDebug && logger.Enabled(ctx, tt.want-4) {
			t.Errorf("level %q verbose=%v: %v unexpectedly enabled", tt.level, tt.verbose, tt.want-4)
		}
	}
}

func TestSeedsNeedFetcher(t *testing.T) {
	local := generator.Seed{ID: "a", HTMLFile: "a.html"}
	remote := generator.Seed{ID: "b"}

	if seedsNeedFetcher([]generator.Seed{local}) {
		t.Error("local-only seeds should not need a fetcher")
	}
	if !seedsNeedFetcher([]generator.Seed{local, remote}) {
		t.Error("remote seed should need a fetcher")
	}
}

func TestNewAppMemoryIndex(t *testing.T) {
	cfg := config.DefaultConfig()
	logger := setupLogger(config.LoggingConfig{Level: "error"}, false)

	a, err := newApp(context.Background(), cfg, logger, false)
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	defer a.Close()

	if a.fetcher != nil {
		t.Error("fetcher started without being requested")
	}
	if got := a.index.Backend(); got != "memory" {
		t.Errorf("backend = %q", got)
	}

	ctx := context.Background()
	rec := types.DefaultFeatureRecord()
	if err := a.index.Add(ctx, "seed", rec, map[string]any{"source_name": "seed"}, ""); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if n, _ := a.index.Count(ctx); n != 1 {
		t.Errorf("count = %d", n)
	}

	opts := a.options()
	if opts.NumSimilar != cfg.Generator.NumSimilar || opts.HTMLBudget != cfg.Generator.HTMLBudget {
		t.Errorf("options = %+v", opts)
	}
	if a.generator() == nil || a.indexer() == nil {
		t.Error("expected generator and indexer")
	}
}

func TestNewAppUnknownBackend(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Index.Backend = "sqlite"
	logger := setupLogger(config.LoggingConfig{Level: "error"}, false)

	if _, err := newApp(context.Background(), cfg, logger, false); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
