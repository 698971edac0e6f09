package types

import (
	"errors"
	"strings"
	"testing"
)

func TestNewFeatureRecordDefaults(t *testing.T) {
	rec, err := NewFeatureRecord(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != DefaultFeatureRecord() {
		t.Errorf("expected default record, got %+v", rec)
	}
	if rec.DataRenderType != RenderSSR {
		t.Errorf("expected SSR default, got %q", rec.DataRenderType)
	}
	if !rec.HasDetailLinks {
		t.Error("expected has_detail_links to default to true")
	}
}

func TestNewFeatureRecordFromJSON(t *testing.T) {
	rec, err := NewFeatureRecord(`{"page_structure":"grid","item_container_pattern":"div.card",
		"pagination_mechanism":"Next_Button_Click","data_render_type":"csr","listing_type":"events",
		"has_detail_links":"false"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.PageStructure != "grid" || rec.ItemContainerPattern != "div.card" {
		t.Errorf("unexpected structure fields: %+v", rec)
	}
	if rec.PaginationMechanism != PaginationNextButtonClick {
		t.Errorf("expected next_button_click, got %q", rec.PaginationMechanism)
	}
	if rec.DataRenderType != RenderCSR {
		t.Errorf("expected CSR, got %q", rec.DataRenderType)
	}
	if rec.HasDetailLinks {
		t.Error("expected has_detail_links false")
	}
}

func TestNewFeatureRecordGarbage(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		wantErr bool
	}{
		{"not json", "this is not json", true},
		{"array", `[1,2,3]`, true},
		{"number", 42, true},
		{"blank", "   ", false},
		{"wrong types", map[string]any{"page_structure": 7, "data_render_type": "hybrid", "pagination_mechanism": "teleport"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := NewFeatureRecord(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if rec != DefaultFeatureRecord() {
				t.Errorf("expected default record, got %+v", rec)
			}
		})
	}
}

func TestFeatureRecordText(t *testing.T) {
	rec := FeatureRecord{
		PageStructure:        "list",
		ItemContainerPattern: "li.item",
		PaginationMechanism:  PaginationURLParameter,
		DataRenderType:       RenderSSR,
		ListingType:          "news",
		HasDetailLinks:       true,
	}
	want := "structure:list | container:li.item | pagination:url_parameter | render_type:SSR | listing:news | detail_links:true"
	if got := rec.Text(); got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
}

func TestEnsureMap(t *testing.T) {
	m, err := EnsureMap(`{"a": 1}`)
	if err != nil || m["a"] != float64(1) {
		t.Errorf("expected decoded map, got %v (%v)", m, err)
	}
	m, err = EnsureMap([]byte(`null`))
	if err != nil || m == nil || len(m) != 0 {
		t.Errorf("expected empty map for null, got %v (%v)", m, err)
	}
	orig := map[string]any{"k": "v"}
	m, _ = EnsureMap(orig)
	if m["k"] != "v" {
		t.Errorf("expected map to pass through, got %v", m)
	}
}

func TestIntValue(t *testing.T) {
	m := map[string]any{"f": float64(3), "s": " 12 ", "b": true}
	if n, ok := IntValue(m, "f"); !ok || n != 3 {
		t.Errorf("float: got %d %v", n, ok)
	}
	if n, ok := IntValue(m, "s"); !ok || n != 12 {
		t.Errorf("string: got %d %v", n, ok)
	}
	if _, ok := IntValue(m, "b"); ok {
		t.Error("bool should not convert")
	}
	if _, ok := IntValue(m, "missing"); ok {
		t.Error("missing key should not convert")
	}
}

func validSchema() map[string]any {
	return map[string]any{
		"baseSelector": "div.card",
		"fields": []any{
			map[string]any{"name": "html", "selector": "", "type": "html"},
			map[string]any{"name": "markdown", "selector": "", "type": "text"},
		},
	}
}

func TestNewGeneratedConfigDefaults(t *testing.T) {
	cfg, err := NewGeneratedConfig(map[string]any{
		"data_render_type":  "ssr",
		"json_css_schema":   validSchema(),
		"pagination_config": `{"next_page_link_template": "https://x.test/?page={}", "increment": 1, "first_page_number": 1, "max_pages": 5}`,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DataRenderType != RenderSSR {
		t.Errorf("expected SSR, got %q", cfg.DataRenderType)
	}
	if cfg.CrawlAIConfig["page_timeout"] != 100000 || cfg.CrawlAIConfig["text_mode"] != true {
		t.Errorf("expected default crawlai config, got %v", cfg.CrawlAIConfig)
	}
	if cfg.RequestConfig == nil || len(cfg.RequestConfig) != 0 {
		t.Errorf("expected empty request config, got %v", cfg.RequestConfig)
	}
	if StringValue(cfg.PaginationConfig, KeyNextPageTemplate) == "" {
		t.Error("expected pagination template to be decoded from string")
	}
	names := cfg.ExtractionFieldNames()
	if len(names) != 2 || names[0] != FieldHTML || names[1] != FieldMarkdown {
		t.Errorf("unexpected field names %v", names)
	}
}

func TestGeneratedConfigValidate(t *testing.T) {
	csrPagination := map[string]any{"js_next_button": "a.next", "js_selector": "a.next", "max_pages": 5}

	tests := []struct {
		name      string
		raw       map[string]any
		wantField string
	}{
		{
			name:      "bad render type",
			raw:       map[string]any{"data_render_type": "HYBRID", "json_css_schema": validSchema()},
			wantField: "data_render_type",
		},
		{
			name:      "missing base selector",
			raw:       map[string]any{"json_css_schema": map[string]any{"fields": validSchema()["fields"]}},
			wantField: "json_css_schema.baseSelector",
		},
		{
			name: "three fields",
			raw: map[string]any{"json_css_schema": map[string]any{
				"baseSelector": "li",
				"fields": []any{
					map[string]any{"name": "html", "type": "html"},
					map[string]any{"name": "markdown", "type": "text"},
					map[string]any{"name": "title", "type": "text"},
				},
			}},
			wantField: "json_css_schema.fields",
		},
		{
			name: "markdown wrong type",
			raw: map[string]any{"json_css_schema": map[string]any{
				"baseSelector": "li",
				"fields": []any{
					map[string]any{"name": "html", "type": "children"},
					map[string]any{"name": "markdown", "type": "html"},
				},
			}},
			wantField: "json_css_schema.fields",
		},
		{
			name:      "ssr with js keys",
			raw:       map[string]any{"data_render_type": "SSR", "json_css_schema": validSchema(), "pagination_config": csrPagination},
			wantField: "pagination_config",
		},
		{
			name: "ssr multi-page without template",
			raw: map[string]any{"data_render_type": "SSR", "json_css_schema": validSchema(),
				"pagination_config": map[string]any{"max_pages": 4}},
			wantField: "pagination_config",
		},
		{
			name: "csr with template",
			raw: map[string]any{"data_render_type": "CSR", "json_css_schema": validSchema(),
				"pagination_config": map[string]any{"next_page_link_template": "/p/{}", "js_next_button": "a", "js_selector": "a"}},
			wantField: "pagination_config",
		},
		{
			name: "ssr with boolean js button",
			raw: map[string]any{"data_render_type": "SSR", "json_css_schema": validSchema(),
				"pagination_config": map[string]any{"next_page_link_template": "https://x.test/?p={}", "max_pages": 3, "js_next_button": true}},
			wantField: "pagination_config",
		},
		{
			name: "ssr with list js selector",
			raw: map[string]any{"data_render_type": "SSR", "json_css_schema": validSchema(),
				"pagination_config": map[string]any{"next_page_link_template": "https://x.test/?p={}", "max_pages": 3, "js_selector": []any{"div.item"}}},
			wantField: "pagination_config",
		},
		{
			name: "csr with object template",
			raw: map[string]any{"data_render_type": "CSR", "json_css_schema": validSchema(),
				"pagination_config": map[string]any{"js_next_button": "x()", "js_selector": "div", "next_page_link_template": map[string]any{"url": "https://x.test/"}}},
			wantField: "pagination_config.next_page_link_template",
		},
		{
			name: "ssr with numeric js selector",
			raw: map[string]any{"data_render_type": "SSR", "json_css_schema": validSchema(),
				"pagination_config": map[string]any{"max_pages": 1, "js_selector": 0.0}},
			wantField: "pagination_config",
		},
		{
			name: "csr missing selector",
			raw: map[string]any{"data_render_type": "CSR", "json_css_schema": validSchema(),
				"pagination_config": map[string]any{"js_next_button": "button.next"}},
			wantField: "pagination_config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGeneratedConfig(tt.raw)
			var se *SchemaError
			if !errors.As(err, &se) {
				t.Fatalf("expected SchemaError, got %v", err)
			}
			if se.Field != tt.wantField {
				t.Errorf("field = %q, want %q", se.Field, tt.wantField)
			}
		})
	}
}

func TestGeneratedConfigAcceptsCSRVariants(t *testing.T) {
	click := map[string]any{"data_render_type": "CSR", "json_css_schema": validSchema(),
		"pagination_config": map[string]any{"js_next_button": "a[data-link]", "js_selector": "a[data-link]", "max_pages": 10}}
	if _, err := NewGeneratedConfig(click); err != nil {
		t.Errorf("click config rejected: %v", err)
	}

	scroll := map[string]any{"data_render_type": "CSR", "json_css_schema": validSchema(),
		"pagination_config": map[string]any{
			"next_page_link_template": "https://x.test/news?page={}",
			"js_next_button":          "a.more",
			"js_selector":             "a.more",
			"js_mode":                 "scroll",
			"page_key":                "page",
		}}
	if _, err := NewGeneratedConfig(scroll); err != nil {
		t.Errorf("scroll config rejected: %v", err)
	}

	single := map[string]any{"data_render_type": "SSR", "json_css_schema": validSchema(),
		"pagination_config": map[string]any{"max_pages": 1, "js_next_button": nil, "js_selector": " "}}
	if _, err := NewGeneratedConfig(single); err != nil {
		t.Errorf("single-page config rejected: %v", err)
	}
}

func TestNewRequest(t *testing.T) {
	req, err := NewRequest("https://example.com/news?page=2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Domain() != "example.com" {
		t.Errorf("unexpected domain %q", req.Domain())
	}

	for _, bad := range []string{"", "example.com/news", "ftp://example.com", "http://"} {
		if _, err := NewRequest(bad); !errors.Is(err, ErrInvalidURL) {
			t.Errorf("NewRequest(%q) err = %v, want ErrInvalidURL", bad, err)
		}
	}
}

func TestResponseDocument(t *testing.T) {
	resp := &Response{Body: []byte("<html><head><title> Listing </title></head><body></body></html>")}
	if got := strings.TrimSpace(resp.Title()); got != "Listing" {
		t.Errorf("Title() = %q", got)
	}
}

func TestStageErrorUnwrap(t *testing.T) {
	err := &StageError{Stage: StageFeatures, Err: ErrEmptyFeatures}
	if !errors.Is(err, ErrEmptyFeatures) {
		t.Error("expected StageError to unwrap to ErrEmptyFeatures")
	}
	if !strings.Contains(err.Error(), "features") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestHasValueAndTruthy(t *testing.T) {
	m := map[string]any{
		"nil":    nil,
		"blank":  "  ",
		"str":    "a.next",
		"false":  false,
		"zero":   0.0,
		"list":   []any{},
		"object": map[string]any{"k": 1},
	}

	tests := []struct {
		key         string
		wantPresent bool
		wantTruthy  bool
	}{
		{"missing", false, false},
		{"nil", false, false},
		{"blank", false, true},
		{"str", true, true},
		{"false", true, false},
		{"zero", true, false},
		{"list", true, false},
		{"object", true, true},
	}
	for _, tt := range tests {
		if got := HasValue(m, tt.key); got != tt.wantPresent {
			t.Errorf("HasValue(%q) = %v, want %v", tt.key, got, tt.wantPresent)
		}
		if got := Truthy(m[tt.key]); got != tt.wantTruthy {
			t.Errorf("Truthy(%q) = %v, want %v", tt.key, got, tt.wantTruthy)
		}
	}
}
