// Package generator synthesizes a scraping configuration for a new listing
// page from its markup, an LLM feature description and the most similar
// configurations already in the index.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/IshaanNene/scrapegoat-configgen/internal/ai"
	"github.com/IshaanNene/scrapegoat-configgen/internal/features"
	"github.com/IshaanNene/scrapegoat-configgen/internal/fetcher"
	"github.com/IshaanNene/scrapegoat-configgen/internal/index"
	"github.com/IshaanNene/scrapegoat-configgen/internal/markup"
	"github.com/IshaanNene/scrapegoat-configgen/internal/observability"
	"github.com/IshaanNene/scrapegoat-configgen/internal/pagination"
	"github.com/IshaanNene/scrapegoat-configgen/internal/parser"
	"github.com/IshaanNene/scrapegoat-configgen/internal/types"
)

// StepGeneration labels the config generation LLM call.
const StepGeneration = "config_generation"

// Defaults applied to zero Options fields.
const (
	DefaultNumSimilar  = 3
	DefaultPaginationK = 3
)

// Options tunes retrieval and prompt assembly.
type Options struct {
	// NumSimilar is used when Generate is called with k <= 0.
	NumSimilar int
	// PaginationK is the number of pagination matches shown as examples.
	PaginationK int
	// SnippetLength caps the located pagination snippet.
	SnippetLength int
	// HTMLBudget is the truncation budget for training markup.
	HTMLBudget int
}

// DebugSnapshot captures what the LLM was shown for one generation.
type DebugSnapshot struct {
	RequestID           string    `json:"request_id"`
	URL                 string    `json:"url"`
	SourceName          string    `json:"source_name"`
	PaginationHTML      string    `json:"pagination_html"`
	Features            string    `json:"features"`
	HeuristicRenderType string    `json:"heuristic_render_type"`
	PromptVersion       string    `json:"prompt_version"`
	Prompt              string    `json:"prompt"`
	CreatedAt           time.Time `json:"created_at"`
}

// Result is the outcome of a successful generation.
type Result struct {
	RequestID         string                `json:"request_id"`
	URL               string                `json:"url"`
	SourceName        string                `json:"source_name"`
	Config            types.GeneratedConfig `json:"config"`
	Features          types.FeatureRecord   `json:"features"`
	Similar           []types.SimilarityHit `json:"similar"`
	PaginationMatches []types.SimilarityHit `json:"pagination_matches"`
	Debug             DebugSnapshot         `json:"debug"`
	Preview           parser.Preview        `json:"preview"`
	Usage             ai.Usage              `json:"usage"`
	Duration          time.Duration         `json:"duration"`
}

// Option configures a Generator.
type Option func(*Generator)

// WithMetrics records generation, fetch and LLM metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(g *Generator) { g.metrics = m }
}

// Generator runs the synthesis pipeline. It is safe for concurrent use;
// each call returns its own usage and debug snapshot.
type Generator struct {
	fetcher   fetcher.Fetcher
	llm       ai.Completer
	extractor *features.Extractor
	preview   *parser.SchemaParser
	index     *index.Index
	metrics   *observability.Metrics
	opts      Options
	logger    *slog.Logger

	mu        sync.Mutex
	lastDebug *DebugSnapshot
}

// New creates a Generator. Zero options take package defaults.
func New(f fetcher.Fetcher, llm ai.Completer, idx *index.Index, opts Options, logger *slog.Logger, options ...Option) *Generator {
	if opts.NumSimilar <= 0 {
		opts.NumSimilar = DefaultNumSimilar
	}
	if opts.PaginationK <= 0 {
		opts.PaginationK = DefaultPaginationK
	}
	if opts.SnippetLength <= 0 {
		opts.SnippetLength = pagination.DefaultSnippetLength
	}

	g := &Generator{
		fetcher: f,
		llm:     llm,
		extractor: features.NewExtractor(llm, features.Options{
			HTMLBudget:    opts.HTMLBudget,
			SnippetLength: opts.SnippetLength,
		}, logger),
		preview: parser.NewSchemaParser(parser.DefaultSampleSize, logger),
		index:   idx,
		opts:    opts,
		logger:  logger.With("component", "config_generator"),
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

// Generate fetches url, describes it, retrieves similar configs and asks
// the LLM for a configuration, which is validated before it is returned.
// Every failure is a *types.StageError naming the pipeline stage. k <= 0
// uses Options.NumSimilar.
func (g *Generator) Generate(ctx context.Context, url, sourceName string, k int) (result *Result, err error) {
	start := time.Now()
	if k <= 0 {
		k = g.opts.NumSimilar
	}
	requestID := uuid.NewString()
	log := g.logger.With("request_id", requestID, "source", sourceName)

	defer func() {
		renderType := ""
		if result != nil {
			renderType = result.Config.DataRenderType
		}
		g.metrics.ObserveGeneration(renderType, time.Since(start), err)
		if err != nil {
			log.Error("config generation failed", "url", url, "error", err)
		}
	}()

	log.Info("starting config generation", "url", url)

	// Step 1: fetch
	log.Info("step 1: fetching html")
	fetchStart := time.Now()
	resp, err := fetcher.FetchHTML(ctx, g.fetcher, url, sourceName)
	g.metrics.ObserveFetch(g.fetcher.Type(), time.Since(fetchStart), err)
	if err != nil {
		var fe *types.FetchError
		if !errors.As(err, &fe) {
			err = &types.FetchError{URL: url, Err: err}
		}
		return nil, &types.StageError{Stage: types.StageFetch, Err: err}
	}
	html := resp.HTML()
	log.Info("fetched html", "title", resp.Title(), "chars", len(html), "duration", resp.FetchDuration)

	// Step 2: inference features
	log.Info("step 2: extracting features")
	feats, usage, err := g.extractor.ExtractInference(ctx, html, url)
	g.metrics.ObserveLLM(features.StepInference, usage)
	if err != nil {
		return nil, &types.StageError{Stage: types.StageFeatures, Err: err}
	}
	log.Info("extracted features", "features", feats.Text())

	// Step 3: similar configs
	log.Info("step 3: finding similar configs", "k", k)
	similar, err := g.index.FindSimilarByFeatures(ctx, feats, k)
	if err != nil {
		return nil, &types.StageError{Stage: types.StageRetrieve, Err: err}
	}
	log.Info("found similar configs", "count", len(similar), "matches", describeHits(similar))

	// Step 4: pagination examples
	log.Info("step 4: assembling pagination examples")
	snippet := pagination.Locate(html, g.opts.SnippetLength)
	log.Debug("located pagination html", "chars", len(snippet), "html", snippet)
	paginationHits, err := g.index.FindSimilarByPagination(ctx, snippet, g.opts.PaginationK)
	if err != nil {
		return nil, &types.StageError{Stage: types.StageRetrieve, Err: err}
	}
	log.Info("found similar pagination configs", "count", len(paginationHits), "matches", describeHits(paginationHits))

	// Step 5: generation
	log.Info("step 5: generating config")
	prompt, err := renderPrompt(generationPromptData{
		URL:                url,
		SourceName:         sourceName,
		HTML:               markup.Prepare(html, false, 0),
		Features:           feats.Text(),
		PaginationExamples: pagination.Assemble(paginationHits),
		SimilarConfigs:     FormatSimilarConfigs(similar),
	})
	if err != nil {
		return nil, &types.StageError{Stage: types.StageGenerate, Err: err}
	}

	text, genUsage, err := g.llm.Complete(ctx, prompt, StepGeneration)
	g.metrics.ObserveLLM(StepGeneration, genUsage)
	usage = usage.Plus(genUsage)
	if errors.Is(err, types.ErrEmptyResponse) {
		text, err = "", nil
	}
	if err != nil {
		return nil, &types.StageError{Stage: types.StageGenerate, Err: err}
	}

	raw, parseErr := ai.ParseJSONResponse(text)
	if len(raw) == 0 {
		if parseErr != nil {
			err = fmt.Errorf("%w: %v", types.ErrEmptyConfig, parseErr)
		} else {
			err = types.ErrEmptyConfig
		}
		return nil, &types.StageError{Stage: types.StageGenerate, Err: err}
	}

	// Step 6: validation
	log.Info("step 6: validating config")
	cfg, err := types.NewGeneratedConfig(raw)
	if err != nil {
		return nil, &types.StageError{Stage: types.StageValidate, Err: err}
	}

	heuristic := pagination.Analyze(snippet).RenderMode()
	if heuristic != types.Unknown && heuristic != cfg.DataRenderType {
		log.Warn("render type disagrees with pagination markup",
			"generated", cfg.DataRenderType,
			"pagination_markup", heuristic,
		)
	}

	// Step 7: preview
	preview, pvErr := g.preview.Preview(resp, cfg.JSONCSSSchema)
	switch {
	case pvErr != nil:
		log.Warn("schema preview failed", "error", pvErr)
	case preview.ItemCount == 0:
		log.Warn("generated baseSelector matches no items on the fetched page",
			"base_selector", types.StringValue(cfg.JSONCSSSchema, "baseSelector"),
		)
	default:
		log.Info("schema preview", "items", preview.ItemCount, "with_links", preview.DetailLinks)
	}

	debug := DebugSnapshot{
		RequestID:           requestID,
		URL:                 url,
		SourceName:          sourceName,
		PaginationHTML:      snippet,
		Features:            feats.Text(),
		HeuristicRenderType: heuristic,
		PromptVersion:       PromptVersion,
		Prompt:              prompt,
		CreatedAt:           time.Now(),
	}
	g.mu.Lock()
	g.lastDebug = &debug
	g.mu.Unlock()

	log.Info("config generation complete",
		"render_type", cfg.DataRenderType,
		"input_tokens", usage.InputTokens,
		"output_tokens", usage.OutputTokens,
		"cost_usd", usage.Cost,
	)

	return &Result{
		RequestID:         requestID,
		URL:               url,
		SourceName:        sourceName,
		Config:            cfg,
		Features:          feats,
		Similar:           similar,
		PaginationMatches: paginationHits,
		Preview:           preview,
		Debug:             debug,
		Usage:             usage,
		Duration:          time.Since(start),
	}, nil
}

// LastDebug returns the snapshot of the most recent successful generation.
func (g *Generator) LastDebug() (DebugSnapshot, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lastDebug == nil {
		return DebugSnapshot{}, false
	}
	return *g.lastDebug, true
}

func describeHits(hits []types.SimilarityHit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = fmt.Sprintf("%s (dist=%.3f)", h.SourceName, h.Distance)
	}
	return out
}
