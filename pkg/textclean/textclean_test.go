package textclean

import (
	"strings"
	"testing"
)

func TestBasic(t *testing.T) {
	in := "  hello\t\tworld \x07\n\n\n\nnext ﬁle — done  "
	got := Basic(in)
	want := "hello world \n\nnext file - done"
	if got != want {
		t.Errorf("Basic() = %q, want %q", got, want)
	}
}

func TestContentStripsHTML(t *testing.T) {
	html := `<html><body><script>var x = 1;</script><h2>Revenue</h2><p>Sales grew <b>12%</b> in 2024.</p><ul><li>Cloud</li></ul></body></html>`
	got := Content(html)
	if strings.Contains(got, "<") || strings.Contains(got, "var x") {
		t.Fatalf("markup survived cleaning: %q", got)
	}
	for _, want := range []string{"Revenue", "Sales grew 12% in 2024.", "- Cloud"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in %q", want, got)
		}
	}
}

func TestContentPlainTextUntouched(t *testing.T) {
	in := "Revenue is 3 < 5 and growing"
	if got := Content(in); got != in {
		t.Errorf("plain text changed: %q", got)
	}
}

func TestHTMLToTextFallsBackToDocumentText(t *testing.T) {
	got, err := HTMLToText("<div><span>just a span</span></div>")
	if err != nil {
		t.Fatalf("HTMLToText: %v", err)
	}
	if got != "just a span" {
		t.Errorf("got %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("héllo", 2); got != "hé" {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("abc", 10); got != "abc" {
		t.Errorf("Truncate = %q", got)
	}
	if got := Preview("abcdef", 3); got != "abc..." {
		t.Errorf("Preview = %q", got)
	}
}
