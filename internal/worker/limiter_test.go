package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}
	
	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1) // 100 rps, burst 1
	ctx := context.Background()

	url := "http://example.com/foo"
	if err := limiter.Wait(ctx, url); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	
	// Different domain should also work
	if err := limiter.Wait(ctx, "http://google.com"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestLimiter_WaitWithDelay(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()
	
	start := time.Now()
	err := limiter.WaitWithDelay(ctx, "http://example.com", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("WaitWithDelay failed: %v", err)
	}
	
	duration := time.Since(start)
	if duration < 50*time.Millisecond {
		t.Errorf("expected delay >= 50ms, got %v", duration)
	}
}

func TestLimiter_RateLimit(t *testing.T) {
	// 1 rps, burst 1
	limiter := NewLimiter(1, 1)
	ctx := context.Background()

	// First request ok
	if err := limiter.Wait(ctx, "http://example.com/a"); err != nil {
		t.Errorf("first wait failed: %v", err)
	}

	// The token is consumed for the whole domain
	if limiter.AllowKey("example.com") {
		t.Errorf("expected allow to fail (exhausted tokens)")
	}

	// Different domain should be allowed
	if !limiter.AllowKey("other.com") {
		t.Errorf("expected allow for other domain")
	}
}

func TestLimiter_SetDomainRate(t *testing.T) {
	limiter := NewLimiter(10, 10) // fast default
	domain := "slow.com"

	// Set strict limit for specific domain
	limiter.SetDomainRate(domain, 0.1, 1) // very slow

	// First request passes (burst 1)
	if err := limiter.Wait(context.Background(), "http://"+domain+"/page"); err != nil {
		t.Fatalf("first request should pass: %v", err)
	}

	// Second request fails
	if limiter.AllowKey(domain) {
		t.Errorf("second request should fail")
	}

	// Other domain still fast
	if !limiter.AllowKey("fast.com") {
		t.Errorf("other domain should pass")
	}
}

func TestLimiter_IdleBucketsExpire(t *testing.T) {
	limiter := NewLimiterWithIdle(0.001, 1, 30*time.Millisecond)
	limiter.SetDomainRate("pinned.com", 0.001, 1)

	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		if !limiter.AllowKey(ip) {
			t.Fatalf("expected first event for %s to pass", ip)
		}
	}
	_ = limiter.AllowKey("pinned.com")
	if limiter.AllowKey("10.0.0.1") {
		t.Fatal("expected exhausted bucket before expiry")
	}

	time.Sleep(100 * time.Millisecond)

	if !limiter.AllowKey("10.0.0.1") {
		t.Error("expected an expired bucket to be replaced by a fresh one")
	}
	if limiter.AllowKey("pinned.com") {
		t.Error("domain overrides must not expire")
	}
}

func TestExtractDomain(t *testing.T) {
	domain, err := extractDomain("http://example.com/foo")
	if err != nil {
		t.Fatalf("extractDomain failed: %v", err)
	}
	if domain != "example.com" {
		t.Errorf("expected example.com, got %s", domain)
	}
	
	_, err = extractDomain("::invalid")
	if err == nil {
		t.Errorf("expected error for invalid URL")
	}
}

func TestLimiter_Keys(t *testing.T) {
	limiter := NewLimiter(0.1, 2)

	if !limiter.AllowKey("client-1") || !limiter.AllowKey("client-1") {
		t.Fatal("expected burst of 2 for client-1")
	}
	if limiter.AllowKey("client-1") {
		t.Error("expected third event to be limited")
	}
	if !limiter.AllowKey("client-2") {
		t.Error("keys must not share buckets")
	}

	if limiter.Len() != 2 {
		t.Errorf("expected 2 keys, got %d", limiter.Len())
	}
	limiter.Forget("client-1")
	if limiter.Len() != 1 {
		t.Errorf("expected 1 key after Forget, got %d", limiter.Len())
	}
	if !limiter.AllowKey("client-1") {
		t.Error("forgotten key should start with a fresh bucket")
	}
}

func TestLimiter_WaitKeyCancelled(t *testing.T) {
	limiter := NewLimiter(0.01, 1)
	_ = limiter.AllowKey("ip")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := limiter.WaitKey(ctx, "ip"); err == nil {
		t.Error("expected wait to fail once the context expires")
	}
}
