package adapters

import (
	"net/url"

	"golang.org/x/net/html"
)

// minArticleChars is the shortest <article>/<main> body worth preferring
// over the whole page
const minArticleChars = 200

// ArticleAdapter handles pages that mark up their body with <article> or
// <main>, as most news and reference sites do, and drops the page chrome
type ArticleAdapter struct {
	BaseAdapter
}

// NewArticleAdapter creates a new article adapter
func NewArticleAdapter() *ArticleAdapter {
	return &ArticleAdapter{}
}

func (a *ArticleAdapter) Name() string { return "article" }

func (a *ArticleAdapter) CanHandle(_ *url.URL, doc *html.Node) bool {
	return a.body(doc) != nil
}

// ExtractText returns the body text without navigation, asides, forms and
// footers. A body shorter than minArticleChars yields "".
func (a *ArticleAdapter) ExtractText(doc *html.Node) string {
	body := a.body(doc)
	if body == nil {
		return ""
	}
	text := a.TextWithout(body, func(n *html.Node) bool {
		return invisible(n) || a.IsElement(n, "nav", "aside", "footer", "form", "button")
	})
	if len(text) < minArticleChars {
		return ""
	}
	return text
}

func (a *ArticleAdapter) body(doc *html.Node) *html.Node {
	if article := a.FindFirst(doc, func(n *html.Node) bool { return a.IsElement(n, "article") }); article != nil {
		return article
	}
	return a.FindFirst(doc, func(n *html.Node) bool { return a.IsElement(n, "main") })
}
