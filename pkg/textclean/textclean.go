// Package textclean normalises text returned by search providers before it
// is scored or quoted in prompts.
package textclean

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

var (
	reSpaces   = regexp.MustCompile(`[ \t]+`)
	reNewlines = regexp.MustCompile(`\n{3,}`)
	reTag      = regexp.MustCompile(`<[a-zA-Z/!][^>]*>`)

	replacer = strings.NewReplacer(
		"ﬁ", "fi", "ﬂ", "fl",
		"—", "-", "–", "-",
		"·", ".", "•", "-",
		"\u00a0", " ",
	)
)

// Basic drops control characters except newlines and tabs, fixes common ligatures and
// collapses runs of whitespace.
func Basic(text string) string {
	if text == "" {
		return ""
	}
	b := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, text)
	b = replacer.Replace(b)
	b = reSpaces.ReplaceAllString(b, " ")
	b = reNewlines.ReplaceAllString(b, "\n\n")
	return strings.TrimSpace(b)
}

// LooksLikeHTML reports whether text carries markup worth stripping.
func LooksLikeHTML(text string) bool {
	return reTag.MatchString(text)
}

// HTMLToText keeps headings, paragraphs, list items and table rows of an HTML fragment.
// Fragments without any of those blocks fall back to the document's plain text.
func HTMLToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find("script,style,noscript,nav,footer").Remove()

	var out []string
	doc.Find("h1,h2,h3,h4,p,li,pre,table").Each(func(_ int, s *goquery.Selection) {
		switch goquery.NodeName(s) {
		case "li":
			out = append(out, "- "+strings.TrimSpace(s.Text()))
		case "table":
			out = append(out, tableText(s))
		default:
			out = append(out, strings.TrimSpace(s.Text()))
		}
	})
	if len(out) == 0 {
		return strings.TrimSpace(doc.Text()), nil
	}
	return strings.Join(out, "\n\n"), nil
}

func tableText(sel *goquery.Selection) string {
	var rows []string
	sel.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cols []string
		tr.Find("th,td").Each(func(_ int, td *goquery.Selection) {
			cols = append(cols, strings.TrimSpace(td.Text()))
		})
		if len(cols) > 0 {
			rows = append(rows, "| "+strings.Join(cols, " | ")+" |")
		}
	})
	return strings.Join(rows, "\n")
}

// Content cleans provider content, stripping markup when present.
func Content(raw string) string {
	if LooksLikeHTML(raw) {
		if text, err := HTMLToText(raw); err == nil {
			raw = text
		}
	}
	return Basic(raw)
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// Preview truncates s to n runes and appends an ellipsis marker.
func Preview(s string, n int) string {
	return Truncate(s, n) + "..."
}
