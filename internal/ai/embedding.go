package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"
	"unicode"
)

// Embedding providers.
const (
	EmbeddingLocal  = "local"
	EmbeddingOpenAI = "openai"
	EmbeddingOllama = "ollama"
)

// DefaultEmbeddingDimension matches all-MiniLM-L6-v2, the reference
// sentence embedder for feature text.
const DefaultEmbeddingDimension = 384

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// EmbeddingConfig selects and configures an Embedder.
type EmbeddingConfig struct {
	Provider  string
	Model     string
	Endpoint  string
	APIKey    string
	Dimension int
	Timeout   time.Duration
}

// NewEmbedder builds the configured embedder.
func NewEmbedder(cfg EmbeddingConfig, logger *slog.Logger) (Embedder, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	switch strings.ToLower(cfg.Provider) {
	case "", EmbeddingLocal:
		return NewHashEmbedder(cfg.Dimension), nil
	case EmbeddingOpenAI:
		if cfg.APIKey == "" {
			return nil, errors.New("openai embeddings require an API key")
		}
		model := cfg.Model
		if model == "" {
			model = "text-embedding-3-small"
		}
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = defaultOpenAIEndpoint
		}
		return &OpenAIEmbedder{apiKey: cfg.APIKey, model: model, endpoint: endpoint, client: client}, nil
	case EmbeddingOllama:
		model := cfg.Model
		if model == "" {
			model = "all-minilm"
		}
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = "http://localhost:11434"
		}
		logger.Debug("using ollama embeddings", "component", "embedder", "model", model, "endpoint", endpoint)
		return &OllamaEmbedder{model: model, endpoint: endpoint, client: client}, nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

// OpenAIEmbedder calls the OpenAI embeddings API.
type OpenAIEmbedder struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// Model implements Embedder.
func (e *OpenAIEmbedder) Model() string { return e.model }

// Embed implements Embedder.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	payload := map[string]any{"model": e.model, "input": []string{text}}

	var decoded struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := postEmbedding(ctx, e.client, strings.TrimRight(e.endpoint, "/")+"/embeddings", e.apiKey, payload, &decoded); err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(decoded.Data) != 1 {
		return nil, errors.New("openai embeddings: embedding count mismatch")
	}
	return toFloat32(decoded.Data[0].Embedding), nil
}

// OllamaEmbedder calls a local Ollama server.
type OllamaEmbedder struct {
	model    string
	endpoint string
	client   *http.Client
}

// Model implements Embedder.
func (e *OllamaEmbedder) Model() string { return e.model }

// Embed implements Embedder.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	payload := map[string]any{"model": e.model, "prompt": text}

	var decoded struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := postEmbedding(ctx, e.client, strings.TrimRight(e.endpoint, "/")+"/api/embeddings", "", payload, &decoded); err != nil {
		return nil, fmt.Errorf("ollama embeddings: %w", err)
	}
	if len(decoded.Embedding) == 0 {
		return nil, errors.New("ollama embeddings: empty embedding")
	}
	return toFloat32(decoded.Embedding), nil
}

func postEmbedding(ctx context.Context, client *http.Client, url, apiKey string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status=%d body=%s", resp.StatusCode, truncateBody(b))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}

// HashEmbedder produces deterministic hashed bag-of-words vectors without
// any external service. Tokens are lowercased runs of letters and digits.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder creates a HashEmbedder; dim <= 0 uses DefaultEmbeddingDimension.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = DefaultEmbeddingDimension
	}
	return &HashEmbedder{dim: dim}
}

// Model implements Embedder.
func (e *HashEmbedder) Model() string { return fmt.Sprintf("local-fnv-hash-%d", e.dim) }

// Embed implements Embedder. Empty text yields the zero vector.
func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dim)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		vec[h.Sum32()%uint32(e.dim)] += 1
	}

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum > 0 {
		inv := float32(1 / math.Sqrt(sum))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec, nil
}
