// Package cache holds short-lived in-process caches for search results and
// fetched pages. Nothing is written to disk.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Namespaces
const (
	NamespacePage   = "page"
	NamespaceSearch = "search"
)

// Key generates a cache key for a value in a namespace
func Key(namespace, raw string) string {
	hash := sha256.Sum256([]byte(raw))
	return "livecheck:v1:" + namespace + ":" + hex.EncodeToString(hash[:])
}
