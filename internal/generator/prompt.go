package generator

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/IshaanNene/scrapegoat-configgen/internal/types"
)

// PromptVersion identifies the wording of the generation prompt.
const PromptVersion = "generation/v2"

// NoSimilarConfigs is shown in place of examples when the index has none.
const NoSimilarConfigs = "No similar configs found."

// similarConfigFields are the config sections quoted for every example.
var similarConfigFields = []string{"json_css_schema", "crawlai_config", "pagination_config", "request_config"}

type generationPromptData struct {
	URL                string
	SourceName         string
	HTML               string
	Features           string
	PaginationExamples string
	SimilarConfigs     string
}

var generationPrompt = template.Must(template.New("generation").Parse(`You are an expert web scraping configuration generator.

Target URL: {{.URL}}
Source Name: {{.SourceName}}

Target HTML:
{{.HTML}}

Pre-analyzed features of this page:
{{.Features}}

{{.PaginationExamples}}

=== SIMILAR WEBSITE CONFIGS (from production) ===
{{.SimilarConfigs}}

Generate a complete scraping configuration JSON:

{
    "data_render_type": "SSR or CSR",
    "json_css_schema": {
        "name": "Commit Extractor",
        "type": "list",
        "fields": [
            {"name": "html", "type": "html or children"},
            {"name": "markdown", "type": "text"}
        ],
        "baseSelector": "CSS selector for each item container"
    },
    "crawlai_config": {
        "text_mode": true,
        "page_timeout": 100000,
        "delay_before_return_html": 5
    },
    "pagination_config": {...},
    "request_config": {...}
}

Key rules:
- fields MUST always be exactly: [{"name": "html", "type": "html"}, {"name": "markdown", "type": "text"}]. Do NOT generate custom fields like "title", "date", etc. We extract raw HTML and markdown per item, then parse them separately.
- Match pagination_config structure to the most similar pagination example above
- SSR: pagination links have real href URLs → use next_page_link_template with {} placeholder, increment, first_page_number. NEVER use js_next_button.
- CSR: pagination uses href="#", onclick, data-link, or buttons → use js_next_button + js_selector. NEVER use next_page_link_template (except in hybrid scroll mode).
- baseSelector must select individual item containers (each tender/item as a separate element)
- For CSR, js_selector is the same concept as baseSelector (CSS for each item)
- Default crawlai_config: {"text_mode": true, "page_timeout": 100000, "delay_before_return_html": 5}
- If JS rendering needed, add "wait_for" to crawlai_config
- request_config: empty {}
- Cross-check: data_render_type must match pagination_config pattern (SSR↔URL-based, CSR↔JS click)

Return ONLY the JSON configuration object.`))

func renderPrompt(data generationPromptData) (string, error) {
	var b strings.Builder
	if err := generationPrompt.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render generation prompt: %w", err)
	}
	return b.String(), nil
}

// FormatSimilarConfigs renders retrieved configs as few-shot examples.
// Config sections stored as strings are quoted as-is; objects are shown as
// indented JSON.
func FormatSimilarConfigs(hits []types.SimilarityHit) string {
	if len(hits) == 0 {
		return NoSimilarConfigs
	}

	var parts []string
	for i, hit := range hits {
		cfg := hit.Config
		parts = append(parts,
			fmt.Sprintf("--- Example %d: %s (similarity distance: %.3f) ---", i+1, hit.SourceName, hit.Distance),
			"URL: "+valueOrNA(cfg, "data_source_url"),
			"data_render_type: "+valueOrNA(cfg, "data_render_type"),
		)
		for _, field := range similarConfigFields {
			parts = append(parts, field+": "+sectionText(cfg[field]))
		}
		parts = append(parts, "")
	}
	return strings.Join(parts, "\n")
}

func valueOrNA(cfg map[string]any, key string) string {
	v, ok := cfg[key]
	if !ok {
		return "N/A"
	}
	if s, isString := v.(string); isString {
		return s
	}
	return fmt.Sprint(v)
}

func sectionText(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return "{}"
	default:
		return types.PrettyJSON(val)
	}
}
