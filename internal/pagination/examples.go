package pagination

import (
	"fmt"
	"strings"

	"github.com/IshaanNene/scrapegoat-configgen/internal/markup"
	"github.com/IshaanNene/scrapegoat-configgen/internal/types"
)

// dynamicSnippetLength caps retrieved markup shown in dynamic examples.
const dynamicSnippetLength = 1000

// Example pairs a pagination snippet with the configuration that pages it.
type Example struct {
	Label            string
	HTML             string
	DataRenderType   string
	PaginationConfig Config
}

// Examples is the fixed reference library included in every generation
// prompt. Order is significant.
var Examples = []Example{
	{
		Label: "SSR - query parameter (?page=N)",
		HTML: `<nav aria-label="pagination">
  <ul class="pagination">
    <li class="page-item active"><a class="page-link" href="?page=1">1</a></li>
    <li class="page-item"><a class="page-link" href="?page=2">2</a></li>
    <li class="page-item"><a class="page-link" href="?page=3">3</a></li>
    <li class="page-item"><a class="page-link" href="?page=2">Next &raquo;</a></li>
  </ul>
</nav>`,
		DataRenderType: types.RenderSSR,
		PaginationConfig: Config{
			{"increment", 1},
			{"max_pages", 2},
			{"first_page_number", 1},
			{"next_page_link_template", "https://www.example.com/tenders?page={}"},
		},
	},
	{
		Label: "SSR - path segment (/page/N)",
		HTML: `<div class="pagination">
  <span class="current">1</span>
  <a href="/call-for-tenders/page/2">2</a>
  <a href="/call-for-tenders/page/3">3</a>
  <a class="next" href="/call-for-tenders/page/2">&raquo;</a>
</div>`,
		DataRenderType: types.RenderSSR,
		PaginationConfig: Config{
			{"url", "https://www.example.org/en/call-for-tenders"},
			{"increment", 1},
			{"max_pages", 2},
			{"first_page_number", 1},
			{"next_page_link_template", "https://www.example.org/en/call-for-tenders/page/{}"},
		},
	},
	{
		Label: "SSR - offset-based pagination (increment=15)",
		HTML: `<ul class="pagination">
  <li class="active"><a href="?offset=0&max=15">1</a></li>
  <li><a href="?offset=15&max=15">2</a></li>
  <li><a href="?offset=30&max=15">3</a></li>
  <li class="next"><a href="?offset=15&max=15">&raquo;</a></li>
</ul>`,
		DataRenderType: types.RenderSSR,
		PaginationConfig: Config{
			{"increment", 15},
			{"max_pages", 10},
			{"first_page_number", 0},
			{"next_page_link_template", "https://portal.example.org/list?offset={}&max=15&sort=date&order=desc"},
		},
	},
	{
		Label:          "SSR - no pagination (single page)",
		HTML:           `<!-- No pagination elements found on the page -->`,
		DataRenderType: types.RenderSSR,
		PaginationConfig: Config{
			{"max_pages", 1},
		},
	},
	{
		Label: `CSR - href="#anchor" + data-link attribute (JavaScript pagination)`,
		HTML: `<ul class="pagination">
  <li class="page-item active"><a class="page-link" href="#tenderPagination">1</a></li>
  <li class="page-item"><a class="t_page page-link" href="#tenderPagination" data-link="https://www.example.com/tenders/20">2</a></li>
  <li class="page-item"><a class="t_page page-link" href="#tenderPagination" data-link="https://www.example.com/tenders/40">3</a></li>
  <li class="page-item"><a class="t_page page-link" href="#tenderPagination" data-link="https://www.example.com/tenders/20">Next</a></li>
</ul>`,
		DataRenderType: types.RenderCSR,
		PaginationConfig: Config{
			{"max_pages", 2},
			{"js_selector", "table tbody tr"},
			{"js_next_button", `document.querySelector("ul.pagination li:nth-last-child(2) a")?.click();`},
		},
	},
	{
		Label: "CSR - DataTables plugin pagination",
		HTML: `<div class="dataTables_paginate paging_simple_numbers">
  <a class="paginate_button previous disabled" id="table_previous">Previous</a>
  <span>
    <a class="paginate_button current">1</a>
    <a class="paginate_button">2</a>
    <a class="paginate_button">3</a>
  </span>
  <a class="paginate_button next" id="table_next">Next</a>
</div>`,
		DataRenderType: types.RenderCSR,
		PaginationConfig: Config{
			{"max_pages", 2},
			{"js_selector", "table.dataTable tbody tr"},
			{"js_next_button", `document.querySelector("a.paginate_button.next")?.click();`},
		},
	},
	{
		Label: "CSR - Angular/EUI paginator (button element)",
		HTML: `<div class="eui-paginator">
  <div class="eui-paginator__page-navigation">
    <div><button class="eui-button" disabled>Previous</button></div>
    <div><span>Page 1 of 5</span></div>
    <div><button class="eui-button">Next</button></div>
  </div>
</div>`,
		DataRenderType: types.RenderCSR,
		PaginationConfig: Config{
			{"max_pages", 2},
			{"js_selector", "div > sedia-result-card-calls-for-tenders"},
			{"js_next_button", `document.querySelector("div.eui-paginator__page-navigation div:nth-last-child(2) button")?.click();`},
		},
	},
	{
		Label: "CSR - Angular Material mat-paginator",
		HTML: `<mat-paginator class="mat-paginator">
  <div class="mat-paginator-container">
    <div class="mat-paginator-range-label">1 – 10 of 200</div>
    <button class="mat-paginator-navigation-previous" disabled></button>
    <button class="mat-focus-indicator mat-paginator-navigation-next"></button>
  </div>
</mat-paginator>`,
		DataRenderType: types.RenderCSR,
		PaginationConfig: Config{
			{"max_pages", 7},
			{"js_selector", "table tbody tr"},
			{"js_next_button", `document.querySelector("button.mat-focus-indicator.mat-paginator-navigation-next")?.click();`},
		},
	},
	{
		Label: "CSR - infinite scroll with POST backend (hybrid)",
		HTML: `<div class="notice-list">
  <div class="notice-table">...</div>
  <div class="notice-table">...</div>
  <!-- Page loads more items on scroll, no visible pagination buttons -->
</div>`,
		DataRenderType: types.RenderCSR,
		PaginationConfig: Config{
			{"js_mode", "scroll"},
			{"page_key", "PageIndex"},
			{"increment", 1},
			{"max_pages", 25},
			{"js_selector", "div.notice-table"},
			{"js_next_button", "window.scrollTo(0, document.body.scrollHeight);"},
			{"first_page_number", 0},
			{"next_page_link_template", "https://www.ungm.org/Public/Notice/Search"},
		},
	},
}

// FormatStatic renders the reference library for the generation prompt.
func FormatStatic() string {
	parts := []string{
		"=== STATIC PAGINATION REFERENCE EXAMPLES ===",
		"These examples cover all known pagination patterns. " +
			"Study how the HTML maps to data_render_type and pagination_config.\n",
	}

	for _, ex := range Examples {
		parts = append(parts,
			fmt.Sprintf("--- %s ---", ex.Label),
			"Pagination HTML:\n  "+ex.HTML,
			"data_render_type: "+ex.DataRenderType,
			"pagination_config: "+types.PrettyJSON(ex.PaginationConfig),
			"",
		)
	}
	return strings.Join(parts, "\n")
}

// FormatDynamic renders retrieved pagination neighbors, or "" when there
// are none.
func FormatDynamic(hits []types.SimilarityHit) string {
	if len(hits) == 0 {
		return ""
	}

	parts := []string{
		"\n=== DYNAMIC PAGINATION EXAMPLES (similar to target page) ===",
		"These are from production configs with pagination HTML similar to the target page.\n",
	}

	for i, hit := range hits {
		var pagination any
		if stored, ok := storedPaginationConfig(hit.RawConfig); ok {
			pagination = stored
		} else {
			pagination, _ = types.EnsureMap(hit.Config["pagination_config"])
		}

		parts = append(parts, fmt.Sprintf("--- Dynamic Example %d: %s (distance: %.3f) ---", i+1, hit.SourceName, hit.Distance))
		if hit.PaginationHTML != "" {
			parts = append(parts, "Pagination HTML:\n  "+markup.Head(hit.PaginationHTML, dynamicSnippetLength))
		}
		parts = append(parts,
			"data_render_type: "+hit.RenderType(),
			"pagination_config: "+types.PrettyJSON(pagination),
			"",
		)
	}
	return strings.Join(parts, "\n")
}

// Assemble joins the static library with the dynamic neighbors. The static
// block always comes first.
func Assemble(hits []types.SimilarityHit) string {
	text := FormatStatic()
	if dynamic := FormatDynamic(hits); dynamic != "" {
		text += "\n" + dynamic
	}
	return text
}
