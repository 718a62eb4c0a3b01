// Package util holds the outbound HTTP helpers shared by the evidence client
// and the model providers
package util

import (
	"net/http"
	"net/url"

	"golang.org/x/net/http/httpproxy"
)

// NewProxyFunc returns the transport proxy function for outbound requests.
// HTTP_PROXY, HTTPS_PROXY and NO_PROXY from the environment are the base;
// each non-empty argument overrides its variable. An https request with no
// https proxy configured goes through the http proxy. Hosts matched by
// noProxy, and loopback hosts, are always dialled directly.
func NewProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	cfg := httpproxy.FromEnvironment()
	if httpProxy != "" {
		cfg.HTTPProxy = httpProxy
	}
	if httpsProxy != "" {
		cfg.HTTPSProxy = httpsProxy
	}
	if cfg.HTTPSProxy == "" {
		cfg.HTTPSProxy = cfg.HTTPProxy
	}
	if noProxy != "" {
		cfg.NoProxy = noProxy
	}

	proxy := cfg.ProxyFunc()
	return func(req *http.Request) (*url.URL, error) {
		return proxy(req.URL)
	}
}
