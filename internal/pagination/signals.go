package pagination

import (
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/scrapegoat-configgen/internal/types"
)

// Signals counts the navigation affordances found in a pagination snippet.
type Signals struct {
	// URLLinks are anchors whose href is a real query string or path.
	URLLinks int
	// AnchorLinks are anchors with an href of "#" or "#fragment".
	AnchorLinks int
	// ScriptLinks are anchors with a javascript: href.
	ScriptLinks int
	// BareLinks are anchors with no href at all.
	BareLinks int
	// ClickHandlers are elements carrying an onclick attribute.
	ClickHandlers int
	// DataLinks are elements carrying data-link or data-page.
	DataLinks int
	// Buttons are <button> controls.
	Buttons int
	// Components are framework paginators (mat-paginator, eui-paginator).
	Components int
}

const (
	xpathAnchors    = "//a"
	xpathOnclick    = "//*[@onclick]"
	xpathDataLinks  = "//*[@data-link or @data-page]"
	xpathButtons    = "//button"
	xpathComponents = "//mat-paginator | //*[contains(@class, 'eui-paginator') or contains(@class, 'mat-paginator')]"
)

// Analyze inspects a pagination snippet. Unparseable input yields zero
// signals.
func Analyze(snippet string) Signals {
	var s Signals
	if strings.TrimSpace(snippet) == "" {
		return s
	}

	doc, err := htmlquery.Parse(strings.NewReader(snippet))
	if err != nil {
		return s
	}

	for _, a := range find(doc, xpathAnchors) {
		if !htmlquery.ExistsAttr(a, "href") {
			s.BareLinks++
			continue
		}
		href := strings.TrimSpace(htmlquery.SelectAttr(a, "href"))
		switch {
		case href == "" || strings.HasPrefix(href, "#"):
			s.AnchorLinks++
		case strings.HasPrefix(strings.ToLower(href), "javascript:"):
			s.ScriptLinks++
		default:
			s.URLLinks++
		}
	}

	s.ClickHandlers = len(find(doc, xpathOnclick))
	s.DataLinks = len(find(doc, xpathDataLinks))
	s.Buttons = len(find(doc, xpathButtons))
	s.Components = len(find(doc, xpathComponents))
	return s
}

func find(doc *html.Node, expr string) []*html.Node {
	nodes, err := htmlquery.QueryAll(doc, expr)
	if err != nil {
		return nil
	}
	return nodes
}

// HasScriptAffordance reports whether paging needs a JavaScript interaction.
func (s Signals) HasScriptAffordance() bool {
	return s.AnchorLinks > 0 || s.ScriptLinks > 0 || s.BareLinks > 0 ||
		s.ClickHandlers > 0 || s.DataLinks > 0 || s.Buttons > 0 || s.Components > 0
}

// RenderMode classifies the snippet: any JavaScript affordance means CSR,
// otherwise real URL links mean SSR, otherwise the mode is unknown.
func (s Signals) RenderMode() string {
	switch {
	case s.HasScriptAffordance():
		return types.RenderCSR
	case s.URLLinks > 0:
		return types.RenderSSR
	default:
		return types.Unknown
	}
}
