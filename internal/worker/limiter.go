package worker

import (
	"context"
	"net/url"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// DefaultIdleTTL is how long an unused bucket is kept. An idle bucket has
// refilled long before it expires, so evicting it loses no state.
const DefaultIdleTTL = 10 * time.Minute

// Limiter keeps one token bucket per key. Keys are domains for evidence
// fetches, remote IPs for websocket upgrades and client ids for inbound
// segments. Buckets expire after an idle period; per-domain overrides set
// with SetDomainRate never do.
type Limiter struct {
	buckets      *gocache.Cache
	overrides    map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a rate limiter whose idle buckets expire after DefaultIdleTTL
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	return NewLimiterWithIdle(requestsPerSecond, burst, DefaultIdleTTL)
}

// NewLimiterWithIdle creates a rate limiter whose buckets expire after idle
func NewLimiterWithIdle(requestsPerSecond float64, burst int, idle time.Duration) *Limiter {
	if burst <= 0 {
		burst = 5
	}
	if idle <= 0 {
		idle = DefaultIdleTTL
	}

	return &Limiter{
		buckets:      gocache.New(idle, idle),
		overrides:    make(map[string]*rate.Limiter),
		defaultRate:  rate.Limit(requestsPerSecond),
		defaultBurst: burst,
	}
}

// Wait waits for rate limit clearance for the domain of the given URL
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	domain, err := extractDomain(rawURL)
	if err != nil {
		return err
	}
	return l.WaitKey(ctx, domain)
}

// WaitKey waits for clearance on an arbitrary key
func (l *Limiter) WaitKey(ctx context.Context, key string) error {
	return l.getLimiter(key).Wait(ctx)
}

// AllowKey reports whether an event for key may happen now
func (l *Limiter) AllowKey(key string) bool {
	return l.getLimiter(key).Allow()
}

// Forget drops the bucket for key
func (l *Limiter) Forget(key string) {
	l.buckets.Delete(key)
}

// Len returns the number of tracked keys, overrides included
func (l *Limiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.buckets.ItemCount() + len(l.overrides)
}

// getLimiter returns the bucket for a key and extends its idle lifetime
func (l *Limiter) getLimiter(key string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.overrides[key]
	l.mu.RUnlock()
	if exists {
		return limiter
	}

	if v, found := l.buckets.Get(key); found {
		l.buckets.SetDefault(key, v)
		return v.(*rate.Limiter)
	}

	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	if err := l.buckets.Add(key, limiter, gocache.DefaultExpiration); err != nil {
		// Another caller created it first
		if v, found := l.buckets.Get(key); found {
			return v.(*rate.Limiter)
		}
	}
	return limiter
}

// SetDomainRate sets a custom rate limit for a specific domain
func (l *Limiter) SetDomainRate(domain string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}

	l.overrides[domain] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	l.buckets.Delete(domain)
}

// extractDomain extracts the domain from a URL
func extractDomain(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return parsed.Host, nil
}

// WaitWithDelay waits for rate limit and adds an additional delay, such as a
// robots.txt crawl delay
func (l *Limiter) WaitWithDelay(ctx context.Context, rawURL string, additionalDelay time.Duration) error {
	if err := l.Wait(ctx, rawURL); err != nil {
		return err
	}

	if additionalDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(additionalDelay):
		}
	}

	return nil
}
