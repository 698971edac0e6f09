// Package features asks the LLM for a structural description of a listing
// page and normalizes the answer into a FeatureRecord.
package features

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/scrapegoat-configgen/internal/ai"
	"github.com/IshaanNene/scrapegoat-configgen/internal/markup"
	"github.com/IshaanNene/scrapegoat-configgen/internal/pagination"
	"github.com/IshaanNene/scrapegoat-configgen/internal/types"
)

// Step labels passed to the LLM transport.
const (
	StepTraining  = "training_feature_extraction"
	StepInference = "inference_feature_extraction"
)

// configJSONBudget caps the raw config included in the training prompt.
const configJSONBudget = 5000

// Pagination type labels derived from a known-good config.
const (
	PaginationTypeCSRClick    = "csr_click"
	PaginationTypeCSRScroll   = "csr_scroll"
	PaginationTypeURLTemplate = "url_template"
	PaginationTypeNone        = "none"
	PaginationTypeUnknown     = "unknown"
)

// Options tunes markup preparation.
type Options struct {
	// HTMLBudget is the truncation budget for training markup.
	HTMLBudget int
	// SnippetLength caps the located pagination snippet.
	SnippetLength int
}

// Extractor builds feature prompts, calls the LLM once per page and parses
// the answer.
type Extractor struct {
	llm    ai.Completer
	opts   Options
	logger *slog.Logger
}

// NewExtractor creates an Extractor. Zero options take package defaults.
func NewExtractor(llm ai.Completer, opts Options, logger *slog.Logger) *Extractor {
	if opts.HTMLBudget <= 0 {
		opts.HTMLBudget = markup.DefaultBudget
	}
	if opts.SnippetLength <= 0 {
		opts.SnippetLength = pagination.DefaultSnippetLength
	}
	return &Extractor{
		llm:    llm,
		opts:   opts,
		logger: logger.With("component", "feature_extractor"),
	}
}

// ExtractTraining describes a page whose working config is known. The
// markup is truncated to the HTML budget.
//
// When the LLM answer holds no usable object the default record is
// returned together with an error wrapping types.ErrEmptyFeatures.
func (e *Extractor) ExtractTraining(ctx context.Context, html string, cfg map[string]any) (types.FeatureRecord, ai.Usage, error) {
	renderType := types.StringValue(cfg, "data_render_type")
	if renderType == "" {
		renderType = types.RenderSSR
	}

	prompt, err := render(trainingPrompt, trainingPromptData{
		HTML:           markup.Prepare(html, true, e.opts.HTMLBudget),
		BaseSelector:   BaseSelector(cfg["json_css_schema"]),
		PaginationType: PaginationTypeLabel(cfg["pagination_config"]),
		DataRenderType: renderType,
		ConfigJSON:     markup.Head(types.PrettyJSON(cfg), configJSONBudget),
	})
	if err != nil {
		return types.DefaultFeatureRecord(), ai.Usage{}, fmt.Errorf("render training prompt: %w", err)
	}

	return e.extract(ctx, prompt, StepTraining)
}

// ExtractInference describes a page with no known config. The full cleaned
// markup is sent together with the located pagination snippet.
func (e *Extractor) ExtractInference(ctx context.Context, html, url string) (types.FeatureRecord, ai.Usage, error) {
	prompt, err := render(inferencePrompt, inferencePromptData{
		URL:            url,
		HTML:           markup.Prepare(html, false, 0),
		PaginationHTML: pagination.Locate(html, e.opts.SnippetLength),
	})
	if err != nil {
		return types.DefaultFeatureRecord(), ai.Usage{}, fmt.Errorf("render inference prompt: %w", err)
	}

	return e.extract(ctx, prompt, StepInference)
}

func (e *Extractor) extract(ctx context.Context, prompt, step string) (types.FeatureRecord, ai.Usage, error) {
	text, usage, err := e.llm.Complete(ctx, prompt, step)
	if errors.Is(err, types.ErrEmptyResponse) {
		text, err = "", nil
	}
	if err != nil {
		return types.DefaultFeatureRecord(), usage, err
	}

	obj, err := ai.ParseJSONResponse(text)
	if err != nil {
		e.logger.Error("failed to parse feature response", "step", step, "error", err)
		e.logger.Debug("raw feature response", "step", step, "response", markup.Head(text, 500))
	}
	if len(obj) == 0 {
		return types.DefaultFeatureRecord(), usage, fmt.Errorf("%s: %w", step, types.ErrEmptyFeatures)
	}

	rec, err := types.NewFeatureRecord(obj)
	if err != nil {
		return rec, usage, fmt.Errorf("%s: %w", step, err)
	}
	e.logger.Debug("features extracted", "step", step, "features", rec.Text())
	return rec, usage, nil
}

// BaseSelector returns the schema's baseSelector, or "unknown". The schema
// may be an object or a JSON string.
func BaseSelector(schema any) string {
	m, _ := types.EnsureMap(schema)
	if s := types.StringValue(m, "baseSelector"); s != "" {
		return s
	}
	return types.Unknown
}

// PaginationTypeLabel summarizes a pagination config for the training
// prompt: csr_click, csr_scroll, url_template, none or unknown.
func PaginationTypeLabel(cfg any) string {
	m, err := types.EnsureMap(cfg)
	if err != nil || len(m) == 0 {
		return PaginationTypeNone
	}

	switch {
	case types.Truthy(m[types.KeyJSNextButton]):
		return PaginationTypeCSRClick
	case types.Truthy(m[types.KeyJSSelector]):
		return PaginationTypeCSRScroll
	case types.Truthy(m[types.KeyNextPageTemplate]):
		return PaginationTypeURLTemplate
	}

	if maxPages, _ := types.IntValue(m, types.KeyMaxPages); maxPages <= 1 {
		return PaginationTypeNone
	}
	return PaginationTypeUnknown
}
