package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for configgen.
type Config struct {
	Fetcher   FetcherConfig   `mapstructure:"fetcher"   yaml:"fetcher"`
	LLM       LLMConfig       `mapstructure:"llm"       yaml:"llm"`
	Embedding EmbeddingConfig `mapstructure:"embedding" yaml:"embedding"`
	Index     IndexConfig     `mapstructure:"index"     yaml:"index"`
	Cache     CacheConfig     `mapstructure:"cache"     yaml:"cache"`
	Generator GeneratorConfig `mapstructure:"generator" yaml:"generator"`
	Storage   StorageConfig   `mapstructure:"storage"   yaml:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"   yaml:"metrics"`
	API       APIConfig       `mapstructure:"api"       yaml:"api"`
}

// FetcherConfig controls how target pages are loaded.
type FetcherConfig struct {
	Type            string        `mapstructure:"type"              yaml:"type"`
	PageTimeout     time.Duration `mapstructure:"page_timeout"      yaml:"page_timeout"`
	SettleDelay     time.Duration `mapstructure:"settle_delay"      yaml:"settle_delay"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	MaxRedirects    int           `mapstructure:"max_redirects"     yaml:"max_redirects"`
	TLSInsecure     bool          `mapstructure:"tls_insecure"      yaml:"tls_insecure"`
	UserAgents      []string      `mapstructure:"user_agents"       yaml:"user_agents"`
	Stealth         bool          `mapstructure:"stealth"           yaml:"stealth"`
	BrowserBin      string        `mapstructure:"browser_bin"       yaml:"browser_bin"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
}

// LLMConfig controls the completion backend.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"    yaml:"provider"`
	Model       string        `mapstructure:"model"       yaml:"model"`
	Endpoint    string        `mapstructure:"endpoint"    yaml:"endpoint"`
	APIKey      string        `mapstructure:"api_key"     yaml:"api_key"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"  yaml:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"     yaml:"timeout"`
}

// EmbeddingConfig controls the text embedder used by the index.
type EmbeddingConfig struct {
	Provider  string `mapstructure:"provider"  yaml:"provider"`
	Model     string `mapstructure:"model"     yaml:"model"`
	Endpoint  string `mapstructure:"endpoint"  yaml:"endpoint"`
	APIKey    string `mapstructure:"api_key"   yaml:"api_key"`
	Dimension int    `mapstructure:"dimension" yaml:"dimension"`
}

// IndexConfig selects the vector store backend.
type IndexConfig struct {
	Backend    string `mapstructure:"backend"    yaml:"backend"`
	DSN        string `mapstructure:"dsn"        yaml:"dsn"`
	Database   string `mapstructure:"database"   yaml:"database"`
	Collection string `mapstructure:"collection" yaml:"collection"`
}

// CacheConfig controls the Redis embedding cache.
type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"  yaml:"enabled"`
	Address  string        `mapstructure:"address"  yaml:"address"`
	Password string        `mapstructure:"password" yaml:"password"`
	DB       int           `mapstructure:"db"       yaml:"db"`
	TTL      time.Duration `mapstructure:"ttl"      yaml:"ttl"`
}

// GeneratorConfig tunes retrieval and prompt sizes.
type GeneratorConfig struct {
	NumSimilar       int `mapstructure:"num_similar"        yaml:"num_similar"`
	PaginationK      int `mapstructure:"pagination_k"       yaml:"pagination_k"`
	SnippetMaxLength int `mapstructure:"snippet_max_length" yaml:"snippet_max_length"`
	HTMLBudget       int `mapstructure:"html_budget"        yaml:"html_budget"`
}

// StorageConfig controls where generated configs are written.
type StorageConfig struct {
	OutputPath string `mapstructure:"output_path" yaml:"output_path"`
	WriteDebug bool   `mapstructure:"write_debug" yaml:"write_debug"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Addr         string        `mapstructure:"addr"          yaml:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"  yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	MaxHistory   int           `mapstructure:"max_history"   yaml:"max_history"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Fetcher: FetcherConfig{
			Type:         "browser",
			PageTimeout:  100 * time.Second,
			SettleDelay:  5 * time.Second,
			MaxBodySize:  10 * 1024 * 1024, // 10MB
			MaxRedirects: 10,
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			},
			Stealth:         true,
			IdleConnTimeout: 90 * time.Second,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4.1-mini",
			Temperature: 0,
			MaxTokens:   4096,
			Timeout:     120 * time.Second,
		},
		Embedding: EmbeddingConfig{
			Provider:  "local",
			Dimension: 384,
		},
		Index: IndexConfig{
			Backend:    "memory",
			Database:   "configgen",
			Collection: "website_configs",
		},
		Cache: CacheConfig{
			Enabled: false,
			Address: "localhost:6379",
			TTL:     7 * 24 * time.Hour,
		},
		Generator: GeneratorConfig{
			NumSimilar:       3,
			PaginationK:      3,
			SnippetMaxLength: 2000,
			HTMLBudget:       40000,
		},
		Storage: StorageConfig{
			OutputPath: "./output",
			WriteDebug: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
		API: APIConfig{
			Addr:         ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 5 * time.Minute,
			MaxHistory:   100,
		},
	}
}
