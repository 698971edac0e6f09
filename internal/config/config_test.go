package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Fetcher.PageTimeout != 100*time.Second {
		t.Errorf("page timeout = %v", cfg.Fetcher.PageTimeout)
	}
	if cfg.Fetcher.SettleDelay != 5*time.Second {
		t.Errorf("settle delay = %v", cfg.Fetcher.SettleDelay)
	}
	if cfg.Generator.PaginationK != 3 || cfg.Generator.SnippetMaxLength != 2000 || cfg.Generator.HTMLBudget != 40000 {
		t.Errorf("unexpected generator defaults %+v", cfg.Generator)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad fetcher", func(c *Config) { c.Fetcher.Type = "curl" }, "fetcher.type"},
		{"zero timeout", func(c *Config) { c.Fetcher.PageTimeout = 0 }, "fetcher.page_timeout"},
		{"negative settle", func(c *Config) { c.Fetcher.SettleDelay = -time.Second }, "fetcher.settle_delay"},
		{"bad provider", func(c *Config) { c.LLM.Provider = "bard" }, "llm.provider"},
		{"no model", func(c *Config) { c.LLM.Model = "" }, "llm.model"},
		{"custom without endpoint", func(c *Config) { c.LLM.Provider = "custom" }, "llm.endpoint"},
		{"relative endpoint", func(c *Config) { c.LLM.Endpoint = "localhost" }, "llm.endpoint"},
		{"hot temperature", func(c *Config) { c.LLM.Temperature = 3 }, "llm.temperature"},
		{"bad embedder", func(c *Config) { c.Embedding.Provider = "word2vec" }, "embedding.provider"},
		{"zero dimension", func(c *Config) { c.Embedding.Dimension = 0 }, "embedding.dimension"},
		{"bad backend", func(c *Config) { c.Index.Backend = "sqlite" }, "index.backend"},
		{"pgvector without dsn", func(c *Config) { c.Index.Backend = "pgvector" }, "index.dsn"},
		{"cache without address", func(c *Config) { c.Cache.Enabled = true; c.Cache.Address = "" }, "cache.address"},
		{"negative k", func(c *Config) { c.Generator.NumSimilar = -1 }, "generator.num_similar"},
		{"zero budget", func(c *Config) { c.Generator.HTMLBudget = 0 }, "generator.html_budget"},
		{"no output", func(c *Config) { c.Storage.OutputPath = "" }, "storage.output_path"},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad metrics port", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Port = 70000 }, "metrics.port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configgen.yaml")
	yaml := `
fetcher:
  type: http
  page_timeout: 30s
llm:
  provider: ollama
  model: llama3
  endpoint: http://localhost:11434
index:
  backend: pgvector
  dsn: postgres://localhost/configgen
generator:
  num_similar: 8
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Fetcher.Type != "http" || cfg.Fetcher.PageTimeout != 30*time.Second {
		t.Errorf("fetcher not loaded: %+v", cfg.Fetcher)
	}
	if cfg.LLM.Provider != "ollama" || cfg.LLM.Model != "llama3" {
		t.Errorf("llm not loaded: %+v", cfg.LLM)
	}
	if cfg.Index.Backend != "pgvector" || cfg.Generator.NumSimilar != 8 {
		t.Errorf("index/generator not loaded: %+v %+v", cfg.Index, cfg.Generator)
	}
	// untouched keys keep defaults
	if cfg.Generator.PaginationK != 3 || cfg.Fetcher.SettleDelay != 5*time.Second {
		t.Errorf("defaults lost: %+v", cfg.Generator)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("loaded config should validate: %v", err)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CONFIGGEN_LLM_MODEL", "gpt-4o")
	t.Setenv("CONFIGGEN_GENERATOR_PAGINATION_K", "5")

	path := filepath.Join(t.TempDir(), "configgen.yaml")
	if err := os.WriteFile(path, []byte("llm:\n  model: gpt-4.1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Errorf("env should override file, got %q", cfg.LLM.Model)
	}
	if cfg.Generator.PaginationK != 5 {
		t.Errorf("env should override default, got %d", cfg.Generator.PaginationK)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestValidateURL(t *testing.T) {
	for _, raw := range []string{"https://example.com/list", "http://x.test"} {
		if err := ValidateURL(raw); err != nil {
			t.Errorf("ValidateURL(%q) = %v", raw, err)
		}
	}
	for _, raw := range []string{"ftp://x.test", "/relative", "https://"} {
		if err := ValidateURL(raw); err == nil {
			t.Errorf("ValidateURL(%q) should fail", raw)
		}
	}
}
