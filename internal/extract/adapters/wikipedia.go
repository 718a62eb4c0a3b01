package adapters

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// WikipediaAdapter keeps the article prose of Wikipedia pages and drops
// infoboxes, navigation boxes, citation markers and the trailing
// reference sections
type WikipediaAdapter struct {
	BaseAdapter
	stopSections map[string]bool
	skipClasses  []string
}

// NewWikipediaAdapter creates a new Wikipedia adapter
func NewWikipediaAdapter() *WikipediaAdapter {
	return &WikipediaAdapter{
		stopSections: map[string]bool{
			"references":      true,
			"notes":           true,
			"see also":        true,
			"external links":  true,
			"further reading": true,
			"bibliography":    true,
			"citations":       true,
			"sources":         true,
		},
		skipClasses: []string{
			"infobox", "navbox", "metadata", "reflist", "references",
			"reference", "mw-editsection", "hatnote", "thumb", "sidebar",
			"mw-empty-elt", "shortdescription",
		},
	}
}

func (a *WikipediaAdapter) Name() string { return "wikipedia" }

// CanHandle accepts any *.wikipedia.org host
func (a *WikipediaAdapter) CanHandle(pageURL *url.URL, _ *html.Node) bool {
	host := strings.ToLower(pageURL.Hostname())
	return host == "wikipedia.org" || strings.HasSuffix(host, ".wikipedia.org")
}

// ExtractText collects paragraphs and list items of the main content in
// document order up to the first reference-style section
func (a *WikipediaAdapter) ExtractText(doc *html.Node) string {
	content := a.FindFirst(doc, func(n *html.Node) bool {
		return a.IsElement(n, "div") &&
			(a.HasClass(n, "mw-parser-output") || a.GetAttribute(n, "id") == "mw-content-text")
	})
	if content == nil {
		return ""
	}

	var parts []string
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		if a.IsElement(n, "h2") && a.stopSections[strings.ToLower(a.TextWithout(n, a.skip))] {
			return true
		}
		if a.skip(n) || a.IsElement(n, "table") {
			return false
		}
		if a.IsElement(n, "p", "li", "dd") {
			if text := a.TextWithout(n, a.skip); text != "" {
				parts = append(parts, text)
			}
			return false
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(content)

	return strings.Join(parts, " ")
}

func (a *WikipediaAdapter) skip(n *html.Node) bool {
	if invisible(n) {
		return true
	}
	for _, class := range a.skipClasses {
		if a.HasClass(n, class) {
			return true
		}
	}
	return false
}
