// Package parser applies generated extraction schemas to page markup so a
// new configuration can be checked against the page it was written for.
package parser

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/scrapegoat-configgen/internal/markup"
	"github.com/IshaanNene/scrapegoat-configgen/internal/types"
)

// Preview limits.
const (
	DefaultSampleSize = 3
	sampleHTMLLength  = 500
	sampleTextLength  = 200
)

// Preview summarizes what a schema captures on one page.
type Preview struct {
	ItemCount   int          `json:"item_count"`
	DetailLinks int          `json:"detail_links"`
	Samples     []SampleItem `json:"samples"`
}

// SampleItem is one extracted item, shortened for display.
type SampleItem struct {
	HTML     string   `json:"html"`
	Markdown string   `json:"markdown"`
	Links    []string `json:"links,omitempty"`
}

// SchemaParser extracts items with a json_css_schema via goquery.
type SchemaParser struct {
	sampleSize int
	logger     *slog.Logger
}

// NewSchemaParser creates a parser that keeps up to sampleSize items.
func NewSchemaParser(sampleSize int, logger *slog.Logger) *SchemaParser {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	return &SchemaParser{
		sampleSize: sampleSize,
		logger:     logger.With("component", "schema_parser"),
	}
}

// Preview runs schema against resp. A selector that matches nothing is not
// an error; the returned preview simply reports zero items.
func (p *SchemaParser) Preview(resp *types.Response, schema map[string]any) (Preview, error) {
	var pv Preview

	doc, err := resp.Document()
	if err != nil {
		return pv, &types.FetchError{URL: resp.FinalURL, Err: err}
	}

	base := types.StringValue(schema, "baseSelector")
	if base == "" {
		return pv, &types.SchemaError{Field: "json_css_schema.baseSelector", Reason: "missing item container selector"}
	}
	fields, _ := schema["fields"].([]any)
	baseURL, _ := url.Parse(resp.FinalURL)

	doc.Find(base).Each(func(i int, item *goquery.Selection) {
		pv.ItemCount++
		links := extractLinks(item, baseURL)
		if len(links) > 0 {
			pv.DetailLinks++
		}
		if len(pv.Samples) >= p.sampleSize {
			return
		}

		sample := SampleItem{Links: links}
		for _, f := range fields {
			field, ok := f.(map[string]any)
			if !ok {
				continue
			}
			sel := item
			if s := types.StringValue(field, "selector"); s != "" {
				sel = item.Find(s).First()
			}
			switch types.StringValue(field, "name") {
			case types.FieldHTML:
				sample.HTML = markup.Head(extractHTML(sel, types.StringValue(field, "type")), sampleHTMLLength)
			case types.FieldMarkdown:
				sample.Markdown = markup.Head(collapseSpace(sel.Text()), sampleTextLength)
			}
		}
		pv.Samples = append(pv.Samples, sample)
	})

	p.logger.Debug("schema preview",
		"base_selector", base,
		"items", pv.ItemCount,
		"with_links", pv.DetailLinks,
	)
	return pv, nil
}

func extractHTML(sel *goquery.Selection, typ string) string {
	if sel.Length() == 0 {
		return ""
	}
	var (
		val string
		err error
	)
	if typ == "children" {
		val, err = sel.Html()
	} else {
		val, err = goquery.OuterHtml(sel)
	}
	if err != nil {
		return ""
	}
	return strings.TrimSpace(val)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// extractLinks returns the absolute http(s) links inside sel in document
// order, without duplicates or fragments.
func extractLinks(sel *goquery.Selection, base *url.URL) []string {
	seen := make(map[string]bool)
	var links []string

	sel.Find("a[href]").Each(func(i int, a *goquery.Selection) {
		href, exists := a.Attr("href")
		href = strings.TrimSpace(href)
		if !exists || href == "" || strings.HasPrefix(href, "#") {
			return
		}

		parsed, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := parsed
		if base != nil {
			resolved = base.ResolveReference(parsed)
		}
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		resolved.Fragment = ""

		abs := resolved.String()
		if !seen[abs] {
			seen[abs] = true
			links = append(links, abs)
		}
	})

	return links
}
