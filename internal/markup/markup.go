// Package markup normalizes raw page HTML before it is shown to the LLM or
// searched for pagination controls.
package markup

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultBudget is the prepared-markup length above which Prepare truncates.
const DefaultBudget = 40000

// TruncationMarker separates the kept head and tail of truncated markup.
const TruncationMarker = "\n... [TRUNCATED MIDDLE] ...\n"

var (
	scriptRe   = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRe    = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptRe = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	commentRe  = regexp.MustCompile(`(?s)<!--.*?-->`)
	spaceRe    = regexp.MustCompile(`\s+`)
)

// Clean removes script and style elements (and noscript when asked), strips
// HTML comments and collapses every whitespace run into one space.
func Clean(html string, removeNoscript bool) string {
	html = scriptRe.ReplaceAllString(html, "")
	html = styleRe.ReplaceAllString(html, "")
	if removeNoscript {
		html = noscriptRe.ReplaceAllString(html, "")
	}
	html = commentRe.ReplaceAllString(html, "")
	html = spaceRe.ReplaceAllString(html, " ")
	return strings.TrimSpace(html)
}

// Prepare cleans html for a prompt. With truncate set and the cleaned text
// longer than budget, the middle is dropped: three quarters of the budget
// are kept from the start and the rest from the end, so pagination at the
// bottom of the page survives. A budget <= 0 uses DefaultBudget.
func Prepare(html string, truncate bool, budget int) string {
	html = Clean(html, true)
	if !truncate {
		return html
	}
	if budget <= 0 {
		budget = DefaultBudget
	}
	return Truncate(html, budget)
}

// Truncate applies the head/tail cut used by Prepare to already cleaned text.
func Truncate(s string, budget int) string {
	if len(s) <= budget {
		return s
	}
	headSize := budget * 3 / 4
	tailSize := budget - headSize
	return Head(s, headSize) + TruncationMarker + Tail(s, tailSize)
}

// Head returns at most the first n bytes of s without splitting a rune.
func Head(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// Tail returns at most the last n bytes of s without splitting a rune.
func Tail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return s[start:]
}
