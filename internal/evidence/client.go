// Package evidence retrieves web documents relevant to a search query
package evidence

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/livecheck/internal/cache"
	"github.com/ppiankov/livecheck/internal/extract"
	"github.com/ppiankov/livecheck/internal/extract/adapters"
	"github.com/ppiankov/livecheck/internal/model"
	"github.com/ppiankov/livecheck/internal/util"
	"github.com/ppiankov/livecheck/internal/worker"
)

// ErrSearchFailed wraps every failure of the search request itself
var ErrSearchFailed = errors.New("search failed")

// Client issues one search per query and fetches the result pages concurrently
type Client struct {
	fetcher  *Fetcher
	robots   *util.RobotsChecker // nil when robots.txt is ignored
	adapters *adapters.Registry
	limiter  *worker.Limiter
	pages    cache.Cache
	searches cache.Cache
	cfg      model.EvidenceConfig
	cacheCfg model.CacheConfig
	logger   *zap.Logger
}

// NewClient creates an evidence client from configuration
func NewClient(cfg model.EvidenceConfig, cacheCfg model.CacheConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		fetcher: NewFetcher(cfg.FetchTimeout, cfg.UserAgent, cfg.MaxBodyBytes,
			cfg.InsecureTLS, cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
		limiter:  worker.NewLimiter(cfg.RequestsPerSecond, cfg.Burst),
		adapters: adapters.NewRegistry(),
		pages:    cache.Noop{},
		searches: cache.Noop{},
		cfg:      cfg,
		cacheCfg: cacheCfg,
		logger:   logger,
	}

	for _, dr := range cfg.DomainRates {
		c.limiter.SetDomainRate(dr.Domain, dr.RequestsPerSecond, dr.Burst)
	}
	if cfg.RespectRobots {
		c.robots = util.NewRobotsChecker(cfg.UserAgent, cfg.FetchTimeout,
			util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy), logger)
	}
	if cacheCfg.Enabled {
		c.pages = cache.NewMemoryCache(cacheCfg.PageTTL, time.Minute)
		c.searches = cache.NewMemoryCache(cacheCfg.SearchTTL, time.Minute)
	}

	return c
}

// Retrieve searches for query and returns at most MaxResults documents that
// were fetched successfully, in search rank order. A page that fails to
// fetch is dropped; only a failed search is an error.
func (c *Client) Retrieve(ctx context.Context, query string) ([]model.Document, error) {
	links, err := c.search(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		c.logger.Info("search returned no candidate links", zap.String("query", query))
		return []model.Document{}, nil
	}

	all := c.fetchAll(ctx, links)

	docs := make([]model.Document, 0, len(all))
	failed := 0
	for _, d := range all {
		if d.Status != model.FetchSuccess {
			failed++
			c.logger.Warn("evidence fetch failed",
				zap.String("url", d.URL), zap.String("error", d.Error))
			continue
		}
		docs = append(docs, d)
	}

	c.logger.Info("evidence retrieved",
		zap.String("query", query),
		zap.Int("candidates", len(links)),
		zap.Int("fetched", len(docs)),
		zap.Int("failed", failed))

	return docs, nil
}

// search runs the search request and returns the candidate result URLs
func (c *Client) search(ctx context.Context, query string) ([]string, error) {
	key := cache.Key(cache.NamespaceSearch, query)
	if cached, ok := c.searches.Get(key); ok {
		return splitLinks(string(cached)), nil
	}

	searchURL := fmt.Sprintf(c.cfg.SearchURL, url.QueryEscape(query))

	if c.cfg.SearchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.SearchTimeout)
		defer cancel()
	}

	result, err := c.fetcher.FetchWithRetry(ctx, searchURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}

	links, err := extract.ResultLinks(result.HTML, result.FinalURL, c.cfg.ExcludedHosts, c.cfg.MaxResults)
	if err != nil {
		return nil, fmt.Errorf("%w: parse results: %v", ErrSearchFailed, err)
	}

	if len(links) > 0 {
		_ = c.searches.Set(key, []byte(strings.Join(links, "\n")), c.cacheCfg.SearchTTL)
	}
	return links, nil
}

// fetchAll fetches every link concurrently. results[i] always belongs to links[i].
func (c *Client) fetchAll(ctx context.Context, links []string) []model.Document {
	results := make([]model.Document, len(links))
	var wg sync.WaitGroup

	for i, link := range links {
		wg.Add(1)
		go func(idx int, u string) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					c.logger.Error("fetch panicked, dropping document",
						zap.String("url", u), zap.Any("panic", r))
					results[idx] = model.Document{
						URL:    u,
						Rank:   idx,
						Status: model.FetchError,
						Error:  fmt.Sprintf("panic: %v", r),
					}
				}
			}()
			results[idx] = c.fetchDocument(ctx, idx, u)
		}(i, link)
	}

	wg.Wait()
	return results
}

// fetchDocument fetches one page under its own timeout
func (c *Client) fetchDocument(ctx context.Context, rank int, rawURL string) model.Document {
	doc := model.Document{URL: rawURL, Rank: rank, Status: model.FetchError}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.FetchTimeout)
	defer cancel()

	key := cache.Key(cache.NamespacePage, rawURL)
	if cached, ok := c.pages.Get(key); ok {
		doc.Text = string(cached)
		doc.Status = model.FetchSuccess
		return doc
	}

	var crawlDelay time.Duration
	if c.robots != nil {
		allowed, delay, err := c.robots.CanFetch(ctx, rawURL)
		if err != nil {
			doc.Error = err.Error()
			return doc
		}
		if !allowed {
			doc.Error = "disallowed by robots.txt"
			return doc
		}
		// A long crawl delay would eat the whole per-URL budget
		crawlDelay = min(delay, c.cfg.FetchTimeout/4)
	}

	if err := c.limiter.WaitWithDelay(ctx, rawURL, crawlDelay); err != nil {
		doc.Error = fmt.Sprintf("rate limit: %v", err)
		return doc
	}

	result, err := c.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		doc.Error = err.Error()
		return doc
	}

	content, err := c.adapters.Extract(result.HTML, rawURL)
	if err != nil {
		doc.Error = fmt.Sprintf("parse: %v", err)
		return doc
	}
	c.logger.Debug("Extracted page text",
		zap.String("url", rawURL),
		zap.String("adapter", content.Adapter),
		zap.Int("chars", len(content.Text)))

	text := extract.Truncate(content.Text, c.cfg.MaxTextChars)
	if text == "" {
		doc.Error = "no visible text"
		return doc
	}

	_ = c.pages.Set(key, []byte(text), c.cacheCfg.PageTTL)

	doc.Text = text
	doc.Status = model.FetchSuccess
	return doc
}

func splitLinks(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
