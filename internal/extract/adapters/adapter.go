// Package adapters extracts the readable body of evidence pages, with
// site-specific handling for layouts whose boilerplate would drown the text
package adapters

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/ppiankov/livecheck/internal/extract"
)

// Adapter extracts page text for a family of sites
type Adapter interface {
	// Name identifies the adapter in logs
	Name() string

	// CanHandle reports whether the adapter understands this page
	CanHandle(pageURL *url.URL, doc *html.Node) bool

	// ExtractText returns the page's readable text, whitespace collapsed.
	// An empty result makes the registry fall back to the generic adapter.
	ExtractText(doc *html.Node) string
}

// Content is the text extracted from one page
type Content struct {
	Adapter string
	Text    string
}

// Registry picks the first adapter that can handle a page
type Registry struct {
	adapters []Adapter
	generic  Adapter
}

// NewRegistry creates a registry with the built-in adapters
func NewRegistry() *Registry {
	registry := &Registry{
		adapters: make([]Adapter, 0),
	}

	registry.Register(NewWikipediaAdapter())
	registry.Register(NewArticleAdapter())

	registry.generic = NewGenericAdapter()

	return registry
}

// Register appends an adapter; earlier adapters win
func (r *Registry) Register(adapter Adapter) {
	r.adapters = append(r.adapters, adapter)
}

// FindAdapter returns the adapter for a parsed page
func (r *Registry) FindAdapter(pageURL *url.URL, doc *html.Node) Adapter {
	for _, adapter := range r.adapters {
		if adapter.CanHandle(pageURL, doc) {
			return adapter
		}
	}
	return r.generic
}

// Extract parses htmlContent and returns its readable text
func (r *Registry) Extract(htmlContent, rawURL string) (Content, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return Content{}, err
	}

	pageURL, err := url.Parse(rawURL)
	if err != nil {
		pageURL = &url.URL{}
	}

	adapter := r.FindAdapter(pageURL, doc)
	if text := adapter.ExtractText(doc); text != "" {
		return Content{Adapter: adapter.Name(), Text: text}, nil
	}
	if adapter == r.generic {
		return Content{Adapter: adapter.Name()}, nil
	}
	return Content{Adapter: r.generic.Name(), Text: r.generic.ExtractText(doc)}, nil
}

// BaseAdapter provides tree helpers shared by adapters
type BaseAdapter struct{}

// HasClass checks if a node has a specific CSS class
func (b *BaseAdapter) HasClass(n *html.Node, className string) bool {
	if n.Type != html.ElementNode {
		return false
	}

	for _, attr := range n.Attr {
		if attr.Key == "class" {
			for _, class := range strings.Fields(attr.Val) {
				if class == className {
					return true
				}
			}
		}
	}
	return false
}

// GetAttribute gets an attribute value from a node
func (b *BaseAdapter) GetAttribute(n *html.Node, attrKey string) string {
	for _, attr := range n.Attr {
		if attr.Key == attrKey {
			return attr.Val
		}
	}
	return ""
}

// IsElement reports whether n is an element with one of the given tags
func (b *BaseAdapter) IsElement(n *html.Node, tags ...string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, tag := range tags {
		if n.Data == tag {
			return true
		}
	}
	return false
}

// FindFirst finds the first node matching a predicate in document order
func (b *BaseAdapter) FindFirst(n *html.Node, predicate func(*html.Node) bool) *html.Node {
	var result *html.Node

	var walk func(*html.Node) bool
	walk = func(node *html.Node) bool {
		if predicate(node) {
			result = node
			return true
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}

	walk(n)
	return result
}

// TextWithout returns the visible text below n, skipping subtrees for which
// skip returns true
func (b *BaseAdapter) TextWithout(n *html.Node, skip func(*html.Node) bool) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && skip(node) {
			return
		}
		if node.Type == html.TextNode {
			buf.WriteString(node.Data)
			buf.WriteString(" ")
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

// invisible matches elements whose text a reader never sees
func invisible(n *html.Node) bool {
	switch n.Data {
	case "script", "style", "noscript", "iframe", "template", "svg":
		return true
	}
	return false
}

// GenericAdapter returns the full visible text of any page
type GenericAdapter struct{}

// NewGenericAdapter creates the fallback adapter
func NewGenericAdapter() *GenericAdapter {
	return &GenericAdapter{}
}

func (a *GenericAdapter) Name() string { return "generic" }

func (a *GenericAdapter) CanHandle(*url.URL, *html.Node) bool { return true }

func (a *GenericAdapter) ExtractText(doc *html.Node) string {
	return extract.NodeText(doc)
}
