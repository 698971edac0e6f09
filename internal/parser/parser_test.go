package parser

import (
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/IshaanNene/scrapegoat-configgen/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const listingHTML = `<html><body>
<div class="list">
  <div class="card"><a href="/item/1#top">First</a>   <span>  12 USD </span></div>
  <div class="card"><a href="https://other.example.com/item/2">Second</a><a href="mailto:x@example.com">mail</a></div>
  <div class="card"><b>Third</b> no link</div>
  <div class="card"><a href="/item/4">Fourth</a><a href="/item/4">again</a></div>
</div>
</body></html>`

func testResponse(t *testing.T, html string) *types.Response {
	t.Helper()
	req, err := types.NewRequest("https://shop.example.com/list?page=1")
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	return types.NewBrowserResponse(req, []byte(html), req.URLString(), time.Millisecond)
}

func schema(base, htmlType string) map[string]any {
	return map[string]any{
		"baseSelector": base,
		"fields": []any{
			map[string]any{"name": "html", "type": htmlType},
			map[string]any{"name": "markdown", "type": "text"},
		},
	}
}

func TestPreviewCountsItemsAndLinks(t *testing.T) {
	p := NewSchemaParser(2, testLogger)
	pv, err := p.Preview(testResponse(t, listingHTML), schema("div.card", "html"))
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}

	if pv.ItemCount != 4 {
		t.Errorf("ItemCount = %d, want 4", pv.ItemCount)
	}
	if pv.DetailLinks != 3 {
		t.Errorf("DetailLinks = %d, want 3", pv.DetailLinks)
	}
	if len(pv.Samples) != 2 {
		t.Fatalf("samples = %d, want 2", len(pv.Samples))
	}

	first := pv.Samples[0]
	if !strings.HasPrefix(first.HTML, `<div class="card">`) {
		t.Errorf("html type should keep the container, got %q", first.HTML)
	}
	if first.Markdown != "First 12 USD" {
		t.Errorf("Markdown = %q", first.Markdown)
	}
	if len(first.Links) != 1 || first.Links[0] != "https://shop.example.com/item/1" {
		t.Errorf("Links = %v", first.Links)
	}

	second := pv.Samples[1]
	if len(second.Links) != 1 || second.Links[0] != "https://other.example.com/item/2" {
		t.Errorf("non-http links should be dropped, got %v", second.Links)
	}
}

func TestPreviewChildrenType(t *testing.T) {
	p := NewSchemaParser(0, testLogger)
	pv, err := p.Preview(testResponse(t, listingHTML), schema("div.card", "children"))
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if len(pv.Samples) != DefaultSampleSize {
		t.Fatalf("samples = %d, want %d", len(pv.Samples), DefaultSampleSize)
	}
	if strings.Contains(pv.Samples[0].HTML, `class="card"`) {
		t.Errorf("children type should drop the container, got %q", pv.Samples[0].HTML)
	}
}

func TestPreviewFieldSelector(t *testing.T) {
	s := map[string]any{
		"baseSelector": "div.card",
		"fields": []any{
			map[string]any{"name": "html", "type": "html", "selector": "a"},
			map[string]any{"name": "markdown", "type": "text", "selector": "span"},
		},
	}
	pv, err := NewSchemaParser(1, testLogger).Preview(testResponse(t, listingHTML), s)
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	got := pv.Samples[0]
	if got.HTML != `<a href="/item/1#top">First</a>` {
		t.Errorf("HTML = %q", got.HTML)
	}
	if got.Markdown != "12 USD" {
		t.Errorf("Markdown = %q", got.Markdown)
	}
}

func TestPreviewNoMatches(t *testing.T) {
	pv, err := NewSchemaParser(3, testLogger).Preview(testResponse(t, listingHTML), schema("li.result", "html"))
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if pv.ItemCount != 0 || len(pv.Samples) != 0 {
		t.Errorf("preview = %+v, want empty", pv)
	}
}

func TestPreviewMissingBaseSelector(t *testing.T) {
	_, err := NewSchemaParser(3, testLogger).Preview(testResponse(t, listingHTML), map[string]any{})
	if err == nil {
		t.Fatal("expected error for schema without baseSelector")
	}
}
