// Package pagination finds the pagination controls of a listing page,
// classifies them, and assembles the pagination examples shown to the LLM.
package pagination

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/scrapegoat-configgen/internal/markup"
)

// DefaultSnippetLength caps the length of a located pagination snippet.
const DefaultSnippetLength = 2000

// selectors is ordered from semantic nav landmarks to the broadest class
// heuristics. The first selector with any match wins.
var selectors = []string{
	// semantic nav
	"nav[aria-label*='pagination' i]",
	"nav[aria-label*='pager' i]",
	"nav.pagination",
	"nav[class*='pagination']",
	"nav#pagination",
	// class based
	"ul.pagination",
	"div.pagination",
	"nav.pager",
	"ul.pager",
	"div.pager",
	// framework components
	"[class*='paginator']",
	"[class*='dataTables_paginate']",
	"mat-paginator",
	// broad fallbacks
	"[class*='pager']",
	"[class*='interfacciaPagine']",
	"div[class*='pagination']",
}

// Selectors returns a copy of the ordered pagination selector list.
func Selectors() []string {
	return append([]string(nil), selectors...)
}

// Locate returns the outer HTML of the first element matching the selector
// list, truncated to maxLen bytes. When nothing matches, the tail of the
// cleaned page is returned instead since pagination usually sits at the
// bottom. A maxLen <= 0 uses DefaultSnippetLength. The result may be empty.
func Locate(html string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultSnippetLength
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err == nil {
		for _, sel := range selectors {
			match := doc.Find(sel).First()
			if match.Length() == 0 {
				continue
			}
			snippet, err := goquery.OuterHtml(match)
			if err != nil {
				continue
			}
			return markup.Head(snippet, maxLen)
		}
	}

	return markup.Tail(markup.Clean(html, false), maxLen)
}
