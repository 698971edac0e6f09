package config

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Fetcher.Type != "http" && cfg.Fetcher.Type != "browser" {
		return fmt.Errorf("fetcher.type must be 'http' or 'browser', got %q", cfg.Fetcher.Type)
	}
	if cfg.Fetcher.PageTimeout <= 0 {
		return fmt.Errorf("fetcher.page_timeout must be > 0")
	}
	if cfg.Fetcher.SettleDelay < 0 {
		return fmt.Errorf("fetcher.settle_delay must be >= 0")
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}

	validProviders := map[string]bool{"openai": true, "ollama": true, "custom": true}
	if !validProviders[cfg.LLM.Provider] {
		return fmt.Errorf("llm.provider must be openai/ollama/custom, got %q", cfg.LLM.Provider)
	}
	if cfg.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if cfg.LLM.Provider == "custom" && cfg.LLM.Endpoint == "" {
		return fmt.Errorf("llm.endpoint is required for the custom provider")
	}
	if cfg.LLM.Endpoint != "" {
		if err := validateEndpoint(cfg.LLM.Endpoint); err != nil {
			return fmt.Errorf("llm.endpoint: %w", err)
		}
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be 0-2, got %v", cfg.LLM.Temperature)
	}
	if cfg.LLM.MaxTokens < 0 {
		return fmt.Errorf("llm.max_tokens must be >= 0, got %d", cfg.LLM.MaxTokens)
	}

	validEmbedders := map[string]bool{"local": true, "openai": true, "ollama": true}
	if !validEmbedders[cfg.Embedding.Provider] {
		return fmt.Errorf("embedding.provider must be local/openai/ollama, got %q", cfg.Embedding.Provider)
	}
	if cfg.Embedding.Dimension < 1 || cfg.Embedding.Dimension > 16000 {
		return fmt.Errorf("embedding.dimension must be 1-16000, got %d", cfg.Embedding.Dimension)
	}

	switch cfg.Index.Backend {
	case "memory":
	case "pgvector", "mongodb":
		if cfg.Index.DSN == "" {
			return fmt.Errorf("index.dsn is required for the %s backend", cfg.Index.Backend)
		}
	default:
		return fmt.Errorf("index.backend must be memory/pgvector/mongodb, got %q", cfg.Index.Backend)
	}
	if cfg.Index.Collection == "" {
		return fmt.Errorf("index.collection is required")
	}

	if cfg.Cache.Enabled {
		if cfg.Cache.Address == "" {
			return fmt.Errorf("cache.address is required when the cache is enabled")
		}
		if cfg.Cache.TTL < 0 {
			return fmt.Errorf("cache.ttl must be >= 0")
		}
	}

	if cfg.Generator.NumSimilar < 0 {
		return fmt.Errorf("generator.num_similar must be >= 0, got %d", cfg.Generator.NumSimilar)
	}
	if cfg.Generator.PaginationK < 0 {
		return fmt.Errorf("generator.pagination_k must be >= 0, got %d", cfg.Generator.PaginationK)
	}
	if cfg.Generator.SnippetMaxLength < 1 {
		return fmt.Errorf("generator.snippet_max_length must be >= 1, got %d", cfg.Generator.SnippetMaxLength)
	}
	if cfg.Generator.HTMLBudget < 1 {
		return fmt.Errorf("generator.html_budget must be >= 1, got %d", cfg.Generator.HTMLBudget)
	}

	if cfg.Storage.OutputPath == "" {
		return fmt.Errorf("storage.output_path is required")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	if cfg.API.MaxHistory < 0 {
		return fmt.Errorf("api.max_history must be >= 0, got %d", cfg.API.MaxHistory)
	}

	return nil
}

// ValidateURL checks if a URL string is valid as a generation target.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}

func validateEndpoint(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("expected an absolute URL, got %q", raw)
	}
	return nil
}
