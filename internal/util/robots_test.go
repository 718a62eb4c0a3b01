package util

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRobotsChecker_CanFetch(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			hits.Add(1)
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\nCrawl-delay: 2\n"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	rc := NewRobotsChecker("livecheck/1.0", 5*time.Second, nil, nil)
	ctx := context.Background()

	allowed, delay, err := rc.CanFetch(ctx, server.URL+"/public/page")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 2*time.Second, delay)

	allowed, _, err = rc.CanFetch(ctx, server.URL+"/private/page")
	require.NoError(t, err)
	assert.False(t, allowed)

	assert.Equal(t, int32(1), hits.Load(), "robots.txt should be cached per host")

	rc.Clear()
	assert.True(t, rc.IsAllowed(ctx, server.URL+"/"))
	assert.Equal(t, int32(2), hits.Load())
}

func TestRobotsChecker_MissingRobotsAllows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	rc := NewRobotsChecker("livecheck/1.0", 5*time.Second, nil, nil)
	assert.True(t, rc.IsAllowed(context.Background(), server.URL+"/anything"))
}

func TestRobotsChecker_UnreachableAllows(t *testing.T) {
	rc := NewRobotsChecker("livecheck/1.0", 500*time.Millisecond, nil, nil)
	assert.True(t, rc.IsAllowed(context.Background(), "http://127.0.0.1:1/page"))
}

func TestNormalizeUserAgent(t *testing.T) {
	assert.Equal(t, "Mozilla", NormalizeUserAgent("Mozilla/5.0 (Windows NT 10.0)"))
	assert.Equal(t, "livecheck", NormalizeUserAgent("livecheck/1.0"))
	assert.Equal(t, "", NormalizeUserAgent(""))
}
