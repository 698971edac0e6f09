// Package ai holds the LLM transport, token accounting, response parsing
// and text embedders.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/IshaanNene/scrapegoat-configgen/internal/types"
)

// LLMProvider specifies which LLM backend to use.
type LLMProvider string

const (
	ProviderOllama LLMProvider = "ollama"
	ProviderOpenAI LLMProvider = "openai"
	ProviderCustom LLMProvider = "custom"
)

const defaultOpenAIEndpoint = "https://api.openai.com/v1"

// LLMConfig configures the LLM integration.
type LLMConfig struct {
	Provider    LLMProvider
	Endpoint    string // e.g. "http://localhost:11434" for Ollama
	Model       string // e.g. "gpt-4.1-mini", "llama3"
	APIKey      string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// Completer sends one prompt and returns the raw completion text together
// with the token usage of that call. step labels the call in logs.
type Completer interface {
	Complete(ctx context.Context, prompt, step string) (string, Usage, error)
}

// LLMClient communicates with an LLM backend over HTTP.
type LLMClient struct {
	cfg    LLMConfig
	client *http.Client
	logger *slog.Logger
}

// NewLLMClient creates a new LLM client.
func NewLLMClient(cfg LLMConfig, logger *slog.Logger) *LLMClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &LLMClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With("component", "llm_client"),
	}
}

// Model returns the configured model name.
func (c *LLMClient) Model() string { return c.cfg.Model }

// Complete implements Completer. There are no retries; a failed call is
// returned to the caller as is.
func (c *LLMClient) Complete(ctx context.Context, prompt, step string) (string, Usage, error) {
	c.logger.Debug("llm request",
		"step", step,
		"model", c.cfg.Model,
		"prompt_chars", len(prompt),
		"prompt", prompt,
	)

	start := time.Now()
	var (
		text  string
		usage Usage
		err   error
	)
	switch c.cfg.Provider {
	case ProviderOllama:
		text, usage, err = c.completeOllama(ctx, prompt)
	case ProviderOpenAI:
		text, usage, err = c.completeOpenAI(ctx, prompt)
	case ProviderCustom:
		text, usage, err = c.completeCustom(ctx, prompt)
	default:
		return "", Usage{}, fmt.Errorf("unsupported LLM provider: %s", c.cfg.Provider)
	}
	if err != nil {
		return "", Usage{}, fmt.Errorf("%s: %w", step, err)
	}

	usage.Model = c.cfg.Model
	usage.Cost = Cost(c.cfg.Model, usage.InputTokens, usage.OutputTokens)

	c.logger.Debug("llm response",
		"step", step,
		"input_tokens", usage.InputTokens,
		"output_tokens", usage.OutputTokens,
		"cost_usd", fmt.Sprintf("%.4f", usage.Cost),
		"duration", time.Since(start),
		"response", text,
	)

	if strings.TrimSpace(text) == "" {
		return "", usage, fmt.Errorf("%s: %w", step, types.ErrEmptyResponse)
	}
	return text, usage, nil
}

func (c *LLMClient) completeOllama(ctx context.Context, prompt string) (string, Usage, error) {
	options := map[string]any{
		"temperature": c.cfg.Temperature,
	}
	if c.cfg.MaxTokens > 0 {
		options["num_predict"] = c.cfg.MaxTokens
	}
	payload := map[string]any{
		"model":   c.cfg.Model,
		"prompt":  prompt,
		"stream":  false,
		"options": options,
	}

	var result struct {
		Response        string `json:"response"`
		PromptEvalCount int    `json:"prompt_eval_count"`
		EvalCount       int    `json:"eval_count"`
	}
	if err := c.postJSON(ctx, strings.TrimRight(c.cfg.Endpoint, "/")+"/api/generate", payload, &result); err != nil {
		return "", Usage{}, fmt.Errorf("ollama request: %w", err)
	}
	return result.Response, Usage{InputTokens: result.PromptEvalCount, OutputTokens: result.EvalCount}, nil
}

func (c *LLMClient) completeOpenAI(ctx context.Context, prompt string) (string, Usage, error) {
	payload := map[string]any{
		"model": c.cfg.Model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": c.cfg.Temperature,
	}
	if c.cfg.MaxTokens > 0 {
		payload["max_tokens"] = c.cfg.MaxTokens
	}

	endpoint := c.cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultOpenAIEndpoint
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage *struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := c.postJSON(ctx, strings.TrimRight(endpoint, "/")+"/chat/completions", payload, &result); err != nil {
		return "", Usage{}, fmt.Errorf("openai request: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", Usage{}, fmt.Errorf("no choices in openai response")
	}

	var usage Usage
	if result.Usage != nil {
		usage.InputTokens = result.Usage.PromptTokens
		usage.OutputTokens = result.Usage.CompletionTokens
	}
	return result.Choices[0].Message.Content, usage, nil
}

func (c *LLMClient) completeCustom(ctx context.Context, prompt string) (string, Usage, error) {
	payload := map[string]any{
		"prompt": prompt,
		"model":  c.cfg.Model,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", Usage{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", Usage{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", Usage{}, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", Usage{}, err
	}
	if resp.StatusCode >= 300 {
		return "", Usage{}, fmt.Errorf("status=%d body=%s", resp.StatusCode, truncateBody(respBody))
	}
	return string(respBody), Usage{}, nil
}

func (c *LLMClient) postJSON(ctx context.Context, url string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status=%d body=%s", resp.StatusCode, truncateBody(respBody))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func truncateBody(b []byte) string {
	const limit = 500
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
