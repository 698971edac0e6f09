package markup

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestClean(t *testing.T) {
	html := `<html>
<head><SCRIPT type="text/javascript">var x = "<p>";
</SCRIPT><style>
  body { color: red }
</style></head>
<body>
  <!-- banner
       comment -->
  <noscript><img src="pixel.gif"></noscript>
  <p>Hello    world</p>
</body></html>`

	got := Clean(html, false)
	if strings.Contains(got, "var x") || strings.Contains(got, "color: red") {
		t.Errorf("script or style survived: %q", got)
	}
	if strings.Contains(got, "banner") {
		t.Errorf("comment survived: %q", got)
	}
	if !strings.Contains(got, "<noscript>") {
		t.Errorf("noscript should be kept when not requested: %q", got)
	}
	if !strings.Contains(got, "<p>Hello world</p>") {
		t.Errorf("whitespace not collapsed: %q", got)
	}
	if strings.Contains(got, "\n") || strings.HasPrefix(got, " ") || strings.HasSuffix(got, " ") {
		t.Errorf("expected single-line trimmed output: %q", got)
	}

	got = Clean(html, true)
	if strings.Contains(got, "noscript") || strings.Contains(got, "pixel.gif") {
		t.Errorf("noscript survived: %q", got)
	}
}

func TestPrepareShortInputUnchanged(t *testing.T) {
	html := "<div>  short  </div>"
	if got := Prepare(html, true, 100); got != "<div> short </div>" {
		t.Errorf("Prepare() = %q", got)
	}
}

func TestPrepareTruncatesMiddle(t *testing.T) {
	body := "<main>" + strings.Repeat("a", 60000) + "</main><nav class=\"pagination\">next</nav>"
	got := Prepare(body, true, DefaultBudget)

	if !strings.Contains(got, TruncationMarker) {
		t.Fatal("expected truncation marker")
	}
	parts := strings.SplitN(got, TruncationMarker, 2)
	if len(parts[0]) != 30000 {
		t.Errorf("head length = %d, want 30000", len(parts[0]))
	}
	if len(parts[1]) != 10000 {
		t.Errorf("tail length = %d, want 10000", len(parts[1]))
	}
	if !strings.HasSuffix(got, `<nav class="pagination">next</nav>`) {
		t.Error("tail must keep the end of the page")
	}
}

func TestPrepareWithoutTruncation(t *testing.T) {
	body := strings.Repeat("b", 50000)
	if got := Prepare(body, false, DefaultBudget); len(got) != 50000 {
		t.Errorf("expected untruncated output, got %d chars", len(got))
	}
}

func TestTailAndHeadRuneSafe(t *testing.T) {
	s := "ééééé" // 10 bytes
	tail := Tail(s, 3)
	if !utf8.ValidString(tail) || tail != "é" {
		t.Errorf("Tail() = %q", tail)
	}
	head := Head(s, 3)
	if !utf8.ValidString(head) || head != "é" {
		t.Errorf("Head() = %q", head)
	}
	if Tail("abc", 10) != "abc" || Head("abc", 0) != "" {
		t.Error("unexpected boundary behavior")
	}
}
