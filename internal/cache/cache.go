// Package cache holds recent search responses in a bounded LRU.
package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kailas-cloud/docgate/internal/domain/search/result"
	"github.com/kailas-cloud/docgate/internal/metrics"
)

// DefaultMaxEntries is the cache bound when none is configured.
const DefaultMaxEntries = 1000

// ResultCache maps request keys to search pages.
//
// Entries are never invalidated by writes; they only leave by LRU eviction
// or Clear. Reads refresh recency.
type ResultCache struct {
	entries *lru.Cache[string, result.Page]
}

// New creates a cache holding at most maxEntries pages.
func New(maxEntries int) (*ResultCache, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	entries, err := lru.NewWithEvict[string, result.Page](maxEntries, func(string, result.Page) {
		metrics.SearchCacheEvictionsTotal.Inc()
	})
	if err != nil {
		return nil, fmt.Errorf("create result lru: %w", err)
	}
	return &ResultCache{entries: entries}, nil
}

// Get returns the page cached under key.
func (c *ResultCache) Get(key string) (result.Page, bool) {
	p, ok := c.entries.Get(key)
	if ok {
		metrics.SearchCacheTotal.WithLabelValues("hit").Inc()
	} else {
		metrics.SearchCacheTotal.WithLabelValues("miss").Inc()
	}
	return p, ok
}

// Put stores page under key, evicting the least recently used entry when full.
func (c *ResultCache) Put(key string, page result.Page) {
	c.entries.Add(key, page)
}

// Clear drops every entry.
func (c *ResultCache) Clear() {
	c.entries.Purge()
}

// Len returns the number of cached pages.
func (c *ResultCache) Len() int {
	return c.entries.Len()
}
