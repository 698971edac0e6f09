package features

import (
	"strings"
	"text/template"
)

// PromptVersion identifies the wording of the feature extraction prompts.
// The SSR/CSR rules below steer the model; bump this whenever they change.
const PromptVersion = "features/v3"

type trainingPromptData struct {
	HTML           string
	BaseSelector   string
	PaginationType string
	DataRenderType string
	ConfigJSON     string
}

type inferencePromptData struct {
	URL            string
	HTML           string
	PaginationHTML string
}

var trainingPrompt = template.Must(template.New("training").Parse(`You are an expert web scraping analyst. You are given:
1. Raw HTML from a website listing page
2. A working scraping configuration for this page

Analyze both and extract structured features that describe this page's scraping characteristics.

HTML:
{{.HTML}}

Working Configuration:
- baseSelector: {{.BaseSelector}}
- pagination_type: {{.PaginationType}}
- data_render_type: {{.DataRenderType}}
- Full config: {{.ConfigJSON}}

Extract the following features as JSON:

{
    "page_structure": "description of how items are laid out (table, card grid, list, etc.)",
    "item_container_pattern": "CSS pattern used for item containers (e.g., div.item, tr, li.result)",
    "pagination_mechanism": "how pagination works: url_parameter, next_button_click, infinite_scroll, none",
    "data_render_type": "exactly one of: SSR, CSR — determined by the COMBINATION of content delivery + pagination method (see rules below)",
    "listing_type": "what type of listings: tenders, jobs, news, products, documents, etc.",
    "has_detail_links": true/false
}

RULES for determining data_render_type — data_render_type and pagination are INTERCONNECTED:

SSR (Server-Side Rendered):
  - Content is visible in the raw HTML (items/data are in the DOM)
  - Pagination is URL-based: links have REAL href values like href="?page=2" or href="/tenders/page/3"
  - Pagination config uses: next_page_link_template with {} placeholder, increment, first_page_number
  - NEVER uses js_next_button or js_selector for pagination
  - Even if the page uses React/Angular with wait_for in crawlai_config, it's still SSR if pagination is URL-based

CSR (Client-Side Rendered):
  - Content may or may not be in initial HTML, but pagination REQUIRES JavaScript interaction
  - Pagination links use href="#", href="#anchor", javascript:void(0), data-link, onclick, or are buttons without real URLs
  - Pagination config uses: js_next_button (JS code to click next), js_selector (CSS selector for items)
  - NEVER uses next_page_link_template
  - js_next_button is typically: document.querySelector("...").click() or window.scrollTo(...) for infinite scroll

Return ONLY the JSON object, no explanations.`))

var inferencePrompt = template.Must(template.New("inference").Parse(`You are an expert web scraping analyst. You are given raw HTML from a website listing page.

Analyze the HTML and extract structured features that describe this page's scraping characteristics.

URL: {{.URL}}

HTML:
{{.HTML}}

Extracted pagination HTML snippet (focus on this to determine pagination_mechanism and data_render_type):
{{.PaginationHTML}}

Extract the following features as JSON:

{
    "page_structure": "description of how items are laid out (table, card grid, list, etc.)",
    "item_container_pattern": "likely CSS selector pattern for item containers (e.g., div.item, tr, li.result)",
    "pagination_mechanism": "how pagination works: url_parameter, next_button_click, infinite_scroll, none",
    "data_render_type": "exactly one of: SSR, CSR — determined by the COMBINATION of content delivery + pagination method (see rules below)",
    "listing_type": "what type of listings: tenders, jobs, news, products, documents, etc.",
    "has_detail_links": true/false
}

RULES for determining data_render_type — data_render_type and pagination are INTERCONNECTED:

SSR (Server-Side Rendered):
  - Content is visible in the raw HTML (items/data are present in the DOM)
  - Pagination is URL-based: links have REAL href values like href="?page=2" or href="/tenders/page/3"
  - Even if the page uses React/Angular/Vue frameworks, it's SSR if:
    a) The actual data (tender titles, descriptions, dates) is present in the HTML
    b) Pagination links have real URLs (not href="#" or onclick handlers)
  - Key evidence: <a href="?page=2">, <a href="/path/page/3">, <link rel="next">

CSR (Client-Side Rendered):
  - Pagination REQUIRES JavaScript interaction — this is the primary indicator
  - Look for these signs in pagination elements:
    a) href="#" or href="#someAnchor" with data-link or data-page attributes
    b) onclick="..." handlers on pagination links
    c) href="javascript:void(0)" or href="javascript:;"
    d) Angular/React pagination components (mat-paginator, ng-star-inserted, eui-paginator)
    e) "Load More" buttons, infinite scroll patterns
    f) Pagination links are <button> elements, not <a> tags with real URLs
  - Content might be in HTML or loaded dynamically — the KEY factor is how pagination works

  CONCRETE EXAMPLE — this is CSR, NOT SSR:
    <li class="page-item"><a class="t_page page-link" href="#tenderPagination" data-link="https://www.globaltenders.com/20">2</a></li>
    <li class="page-item"><a class="t_page page-link" href="#tenderPagination" data-link="https://www.globaltenders.com/40">3</a></li>
  Why CSR: href="#tenderPagination" is an anchor (NOT a real page URL). The actual URL is in data-link attribute.
  Clicking these links triggers JavaScript, not browser navigation.

IMPORTANT: When in doubt between SSR and CSR, check the pagination links:
  - Real URLs in href (href="?page=2", href="/path/page/3") → SSR
  - href="#", href="#anchor", onclick, data-link, buttons → CSR

Return ONLY the JSON object, no explanations.`))

func render(t *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}
