package activitypub

import (
	"html"
	"strings"

	xhtml "golang.org/x/net/html"
)

// PlainText flattens an HTML fragment to its text, with block elements and
// line breaks turned into spaces.
func PlainText(fragment string) string {
	var b strings.Builder

	z := xhtml.NewTokenizer(strings.NewReader(fragment))
	for {
		switch z.Next() {
		case xhtml.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case xhtml.TextToken:
			b.Write(z.Text())
		case xhtml.StartTagToken, xhtml.EndTagToken, xhtml.SelfClosingTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "br", "p", "div", "li":
				b.WriteByte(' ')
			}
		}
	}
}

// Truncate cuts s to at most n characters.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// Paragraph renders text as an escaped HTML paragraph.
func Paragraph(text string) string {
	return "<p>" + html.EscapeString(text) + "</p>"
}
