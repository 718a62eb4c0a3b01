package extract

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// ResultLinks extracts candidate evidence URLs from a search results page,
// in page order. Redirect links of the form /url?q=<target> are unwrapped;
// links back to the search host or to an excluded host are skipped. At most
// limit URLs are returned; duplicates are kept.
func ResultLinks(htmlContent, searchURL string, excluded []string, limit int) ([]string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, err
	}

	baseURL, err := url.Parse(searchURL)
	if err != nil {
		return nil, err
	}

	var links []string
	var walk func(*html.Node)

	walk = func(n *html.Node) {
		if limit > 0 && len(links) >= limit {
			return
		}

		if n.Type == html.ElementNode && n.Data == "a" {
			if href := attr(n, "href"); href != "" {
				if target := resultTarget(baseURL, href, excluded); target != "" {
					links = append(links, target)
				}
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)

	return links, nil
}

// resultTarget returns the external URL a search result anchor points at, or ""
func resultTarget(base *url.URL, href string, excluded []string) string {
	if strings.HasPrefix(href, "/url?") {
		q, err := url.ParseQuery(strings.TrimPrefix(href, "/url?"))
		if err != nil {
			return ""
		}
		href = q.Get("q")
		if href == "" {
			href = q.Get("url")
		}
	}

	resolved := resolveURL(base, href)
	if resolved == "" {
		return ""
	}

	parsed, err := url.Parse(resolved)
	if err != nil {
		return ""
	}
	if parsed.Host == "" || strings.EqualFold(parsed.Host, base.Host) {
		return ""
	}
	if IsExcludedHost(parsed.Hostname(), excluded) {
		return ""
	}

	return resolved
}

// IsExcludedHost reports whether host equals or is a subdomain of an excluded host
func IsExcludedHost(host string, excluded []string) bool {
	host = strings.ToLower(host)
	for _, ex := range excluded {
		ex = strings.ToLower(strings.TrimSpace(ex))
		if ex == "" {
			continue
		}
		if host == ex || strings.HasSuffix(host, "."+ex) {
			return true
		}
	}
	return false
}

// resolveURL resolves a relative URL against a base URL
func resolveURL(base *url.URL, href string) string {
	// Skip anchors
	if strings.HasPrefix(href, "#") {
		return ""
	}

	// Skip javascript: and mailto: links
	if strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
		return ""
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := base.ResolveReference(parsed)

	// Only keep http/https URLs
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}

	return resolved.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}
