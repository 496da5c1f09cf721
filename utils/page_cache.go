package utils

import (
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// PageCache keeps rendered listing pages in memory for a fixed TTL.
// Writes to posts do not touch it; entries only leave by expiry, eviction or Clear.
type PageCache struct {
	lru *expirable.LRU[string, []byte]
	ttl time.Duration
}

// NewPageCache creates a cache holding at most size pages for ttl each.
func NewPageCache(size int, ttl time.Duration) *PageCache {
	if size <= 0 {
		size = 64
	}
	return &PageCache{lru: expirable.NewLRU[string, []byte](size, nil, ttl), ttl: ttl}
}

// IndexKey is the cache key of a global feed page.
func IndexKey(page int) string {
	return "index:page=" + strconv.Itoa(page)
}

// Get returns cached bytes for key.
func (c *PageCache) Get(key string) ([]byte, bool) {
	if c == nil || c.ttl <= 0 {
		return nil, false
	}
	b, ok := c.lru.Get(key)
	if ok && Sugar != nil {
		Sugar.Debugf("page cache hit key=%s", key)
	}
	return b, ok
}

// Set stores b under key. A non-positive TTL disables caching.
func (c *PageCache) Set(key string, b []byte) {
	if c == nil || c.ttl <= 0 {
		return
	}
	c.lru.Add(key, b)
}

// Clear drops every cached page.
func (c *PageCache) Clear() {
	if c == nil {
		return
	}
	c.lru.Purge()
	Sugar.Info("page cache cleared")
}

// Len reports the number of live entries.
func (c *PageCache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
