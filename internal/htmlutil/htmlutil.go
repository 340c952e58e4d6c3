// Package htmlutil converts HTML fragments returned by hosted chat
// spaces into plain text.
package htmlutil

import (
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// LooksLikeHTML reports whether s appears to be an HTML fragment rather
// than plain text or markdown.
func LooksLikeHTML(s string) bool {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "<") {
		return false
	}
	for _, tag := range []string{"<p", "<div", "<span", "<br", "<html", "<body", "<pre", "<ul", "<ol", "<h1", "<h2", "<h3"} {
		if strings.Contains(strings.ToLower(t), tag) {
			return true
		}
	}
	return false
}

// ToText strips markup from an HTML fragment, keeping block boundaries
// as newlines and <pre>/<code> content fenced. On a parse failure the
// input is returned unchanged.
func ToText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}

	doc.Find("pre").Each(func(_ int, s *goquery.Selection) {
		code := strings.TrimRight(s.Text(), "\n")
		s.ReplaceWithHtml("\n```\n" + html.EscapeString(code) + "\n```\n")
	})
	doc.Find("br").Each(func(_ int, s *goquery.Selection) {
		s.ReplaceWithHtml("\n")
	})
	doc.Find("p, div, li, h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	text := doc.Text()
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	out := strings.Join(lines, "\n")
	for strings.Contains(out, "\n\n\n") {
		out = strings.ReplaceAll(out, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(out)
}

// Normalize returns plain text whether s is HTML or already text.
func Normalize(s string) string {
	if LooksLikeHTML(s) {
		return ToText(s)
	}
	return s
}
