package extract

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// VisibleText returns the page's human-visible text with whitespace collapsed
func VisibleText(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}
	return NodeText(doc), nil
}

// NodeText returns the visible text below n with whitespace collapsed
func NodeText(n *html.Node) string {
	return strings.Join(strings.Fields(extractVisibleText(n)), " ")
}

// extractVisibleText extracts text nodes from HTML, skipping scripts/styles
func extractVisibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "template", "svg":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return buf.String()
}

// Truncate cuts text to at most max runes
func Truncate(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	i := 0
	for pos := range text {
		if i == max {
			return text[:pos]
		}
		i++
	}
	return text
}
