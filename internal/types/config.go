package types

import (
	"fmt"
	"strings"
)

// Pagination config keys. URL-template keys belong to SSR configs and
// JavaScript keys to CSR configs; the hybrid scroll mode carries both.
const (
	KeyNextPageTemplate = "next_page_link_template"
	KeyIncrement        = "increment"
	KeyFirstPageNumber  = "first_page_number"
	KeyMaxPages         = "max_pages"
	KeyJSNextButton     = "js_next_button"
	KeyJSSelector       = "js_selector"
	KeyJSMode           = "js_mode"
	KeyPageKey          = "page_key"

	JSModeScroll = "scroll"
)

// Extraction schema field names. Every generated schema captures exactly
// these two fields per item.
const (
	FieldHTML     = "html"
	FieldMarkdown = "markdown"
)

// GeneratedConfig is the validated scraping configuration for one page.
type GeneratedConfig struct {
	DataRenderType   string         `json:"data_render_type"`
	JSONCSSSchema    map[string]any `json:"json_css_schema"`
	CrawlAIConfig    map[string]any `json:"crawlai_config"`
	PaginationConfig map[string]any `json:"pagination_config"`
	RequestConfig    map[string]any `json:"request_config"`
}

// DefaultCrawlAIConfig returns the browser options used when the LLM omits them.
func DefaultCrawlAIConfig() map[string]any {
	return map[string]any{
		"text_mode":                true,
		"page_timeout":             100000,
		"delay_before_return_html": 5,
	}
}

// NewGeneratedConfig builds a GeneratedConfig from a decoded LLM object and
// validates it. Sub-objects that arrive as JSON strings are decoded.
func NewGeneratedConfig(raw map[string]any) (GeneratedConfig, error) {
	cfg := GeneratedConfig{DataRenderType: RenderSSR}

	if v, ok := raw["data_render_type"]; ok && v != nil {
		s, isString := v.(string)
		if !isString {
			return cfg, &SchemaError{Field: "data_render_type", Reason: fmt.Sprintf("expected string, got %T", v)}
		}
		cfg.DataRenderType = strings.ToUpper(strings.TrimSpace(s))
	}

	var err error
	if cfg.JSONCSSSchema, err = objectField(raw, "json_css_schema"); err != nil {
		return cfg, err
	}
	if cfg.CrawlAIConfig, err = objectField(raw, "crawlai_config"); err != nil {
		return cfg, err
	}
	if cfg.PaginationConfig, err = objectField(raw, "pagination_config"); err != nil {
		return cfg, err
	}
	if cfg.RequestConfig, err = objectField(raw, "request_config"); err != nil {
		return cfg, err
	}
	if len(cfg.CrawlAIConfig) == 0 {
		cfg.CrawlAIConfig = DefaultCrawlAIConfig()
	}

	return cfg, cfg.Validate()
}

func objectField(raw map[string]any, key string) (map[string]any, error) {
	m, err := EnsureMap(raw[key])
	if err != nil {
		return map[string]any{}, &SchemaError{Field: key, Reason: err.Error()}
	}
	return m, nil
}

// Validate enforces the canonical configuration shape: a known render mode,
// the fixed two-field extraction schema, and pagination keys consistent with
// the render mode.
func (c GeneratedConfig) Validate() error {
	if c.DataRenderType != RenderSSR && c.DataRenderType != RenderCSR {
		return &SchemaError{Field: "data_render_type", Reason: fmt.Sprintf("must be SSR or CSR, got %q", c.DataRenderType)}
	}
	if err := validateSchema(c.JSONCSSSchema); err != nil {
		return err
	}
	return validatePagination(c.DataRenderType, c.PaginationConfig)
}

func validateSchema(schema map[string]any) error {
	if StringValue(schema, "baseSelector") == "" {
		return &SchemaError{Field: "json_css_schema.baseSelector", Reason: "missing item container selector"}
	}

	fields, ok := schema["fields"].([]any)
	if !ok {
		return &SchemaError{Field: "json_css_schema.fields", Reason: "missing field list"}
	}
	if len(fields) != 2 {
		return &SchemaError{Field: "json_css_schema.fields", Reason: fmt.Sprintf("expected exactly 2 fields, got %d", len(fields))}
	}

	seen := make(map[string]bool, 2)
	for i, f := range fields {
		field, ok := f.(map[string]any)
		if !ok {
			return &SchemaError{Field: fmt.Sprintf("json_css_schema.fields[%d]", i), Reason: "field is not an object"}
		}
		name := StringValue(field, "name")
		typ := StringValue(field, "type")
		switch name {
		case FieldHTML:
			if typ != "html" && typ != "children" {
				return &SchemaError{Field: "json_css_schema.fields", Reason: fmt.Sprintf("html field must have type html or children, got %q", typ)}
			}
		case FieldMarkdown:
			if typ != "text" {
				return &SchemaError{Field: "json_css_schema.fields", Reason: fmt.Sprintf("markdown field must have type text, got %q", typ)}
			}
		default:
			return &SchemaError{Field: "json_css_schema.fields", Reason: fmt.Sprintf("unexpected field %q", name)}
		}
		if seen[name] {
			return &SchemaError{Field: "json_css_schema.fields", Reason: fmt.Sprintf("duplicate field %q", name)}
		}
		seen[name] = true
	}
	return nil
}

func validatePagination(renderType string, p map[string]any) error {
	hasTemplate := HasValue(p, KeyNextPageTemplate)
	hasButton := HasValue(p, KeyJSNextButton)
	hasSelector := HasValue(p, KeyJSSelector)
	scroll := StringValue(p, KeyJSMode) == JSModeScroll

	if hasTemplate && StringValue(p, KeyNextPageTemplate) == "" {
		return &SchemaError{Field: "pagination_config." + KeyNextPageTemplate, Reason: fmt.Sprintf("expected string, got %T", p[KeyNextPageTemplate])}
	}

	switch renderType {
	case RenderSSR:
		if hasButton || hasSelector {
			return &SchemaError{Field: "pagination_config", Reason: "SSR pagination must not use js_next_button or js_selector"}
		}
		if scroll {
			return &SchemaError{Field: "pagination_config", Reason: "scroll mode is only valid for CSR"}
		}
		if maxPages, ok := IntValue(p, KeyMaxPages); ok && maxPages > 1 && !hasTemplate {
			return &SchemaError{Field: "pagination_config", Reason: "multi-page SSR pagination requires next_page_link_template"}
		}
	case RenderCSR:
		if hasTemplate && !scroll {
			return &SchemaError{Field: "pagination_config", Reason: "CSR pagination must not use next_page_link_template outside scroll mode"}
		}
		if !hasButton || !hasSelector {
			return &SchemaError{Field: "pagination_config", Reason: "CSR pagination requires both js_next_button and js_selector"}
		}
	}
	return nil
}

// ExtractionFieldNames returns the names of the schema's fields in order.
func (c GeneratedConfig) ExtractionFieldNames() []string {
	fields, _ := c.JSONCSSSchema["fields"].([]any)
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		if m, ok := f.(map[string]any); ok {
			names = append(names, StringValue(m, "name"))
		}
	}
	return names
}

// StoredConfig is a previously validated configuration kept in the index.
type StoredConfig struct {
	ID             string         `json:"id"`
	SourceName     string         `json:"source_name"`
	Config         map[string]any `json:"config"`
	FeaturesText   string         `json:"features_text"`
	PaginationHTML string         `json:"pagination_html"`

	// RawConfig is the stored config text, kept for renderings that must
	// preserve its key order.
	RawConfig string `json:"-"`
}

// SimilarityHit is one nearest-neighbor result. Lists of hits are ordered
// by ascending Distance, which is never negative.
type SimilarityHit struct {
	ID             string         `json:"id"`
	SourceName     string         `json:"source_name"`
	Distance       float64        `json:"distance"`
	Config         map[string]any `json:"config"`
	FeaturesText   string         `json:"features_text"`
	PaginationHTML string         `json:"pagination_html"`
}

// RenderType returns the stored config's render mode, or "N/A".
func (h SimilarityHit) RenderType() string {
	if s := StringValue(h.Config, "data_render_type"); s != "" {
		return s
	}
	return "N/A"
}
