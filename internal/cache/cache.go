package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key namespaces for cached values
const (
	KindSource = "source"
)

// CacheKey generates a cache key for a value of the given kind fetched from url
func CacheKey(kind, url string) string {
	hash := sha256.Sum256([]byte(url))
	return "wikicite:v1:" + kind + ":" + hex.EncodeToString(hash[:])
}

// GetJSON decodes the cached value under key into v. A missing or undecodable
// entry reports false.
func GetJSON(c Cache, key string, v any) bool {
	data, ok := c.Get(key)
	if !ok {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

// SetJSON encodes v and stores it under key
func SetJSON(c Cache, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	return c.Set(key, data, ttl)
}
