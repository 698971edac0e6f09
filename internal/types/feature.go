package types

import (
	"strconv"
	"strings"
)

// Render modes. A page is SSR when both its content and its pagination
// resolve through real URLs, CSR when paging needs a JavaScript interaction.
const (
	RenderSSR = "SSR"
	RenderCSR = "CSR"
)

// Unknown is the sentinel for feature fields the LLM did not provide.
const Unknown = "unknown"

// Pagination mechanisms reported by feature extraction.
const (
	PaginationURLParameter    = "url_parameter"
	PaginationNextButtonClick = "next_button_click"
	PaginationInfiniteScroll  = "infinite_scroll"
	PaginationNone            = "none"
	PaginationUnknown         = Unknown
)

var paginationMechanisms = map[string]bool{
	PaginationURLParameter:    true,
	PaginationNextButtonClick: true,
	PaginationInfiniteScroll:  true,
	PaginationNone:            true,
	PaginationUnknown:         true,
}

// FeatureRecord is the structural description of a listing page.
// Values are immutable once built; use NewFeatureRecord to construct one
// from LLM output.
type FeatureRecord struct {
	PageStructure        string `json:"page_structure"`
	ItemContainerPattern string `json:"item_container_pattern"`
	PaginationMechanism  string `json:"pagination_mechanism"`
	DataRenderType       string `json:"data_render_type"`
	ListingType          string `json:"listing_type"`
	HasDetailLinks       bool   `json:"has_detail_links"`
}

// DefaultFeatureRecord returns the record used when nothing usable was extracted.
func DefaultFeatureRecord() FeatureRecord {
	return FeatureRecord{
		PageStructure:        Unknown,
		ItemContainerPattern: Unknown,
		PaginationMechanism:  PaginationUnknown,
		DataRenderType:       RenderSSR,
		ListingType:          Unknown,
		HasDetailLinks:       true,
	}
}

// NewFeatureRecord normalizes an arbitrary value (object, JSON text or nil)
// into a FeatureRecord. Missing or malformed fields keep their defaults. The
// returned record is always usable; the error only reports that v itself
// could not be read as an object.
func NewFeatureRecord(v any) (FeatureRecord, error) {
	rec := DefaultFeatureRecord()
	m, err := EnsureMap(v)
	if err != nil {
		return rec, err
	}

	if s := StringValue(m, "page_structure"); s != "" {
		rec.PageStructure = s
	}
	if s := StringValue(m, "item_container_pattern"); s != "" {
		rec.ItemContainerPattern = s
	}
	rec.PaginationMechanism = NormalizePaginationMechanism(StringValue(m, "pagination_mechanism"))
	rec.DataRenderType = NormalizeRenderMode(StringValue(m, "data_render_type"))
	if s := StringValue(m, "listing_type"); s != "" {
		rec.ListingType = s
	}
	if b, ok := BoolValue(m, "has_detail_links"); ok {
		rec.HasDetailLinks = b
	}
	return rec, nil
}

// NormalizeRenderMode maps s onto SSR or CSR, defaulting to SSR.
func NormalizeRenderMode(s string) string {
	if strings.EqualFold(strings.TrimSpace(s), RenderCSR) {
		return RenderCSR
	}
	return RenderSSR
}

// NormalizePaginationMechanism maps s onto the fixed mechanism enumeration.
func NormalizePaginationMechanism(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if paginationMechanisms[s] {
		return s
	}
	return PaginationUnknown
}

// Text is the canonical pipe-delimited form used for embedding and logging.
func (f FeatureRecord) Text() string {
	parts := []string{
		"structure:" + f.PageStructure,
		"container:" + f.ItemContainerPattern,
		"pagination:" + f.PaginationMechanism,
		"render_type:" + f.DataRenderType,
		"listing:" + f.ListingType,
		"detail_links:" + strconv.FormatBool(f.HasDetailLinks),
	}
	return strings.Join(parts, " | ")
}

// String implements fmt.Stringer.
func (f FeatureRecord) String() string { return f.Text() }
