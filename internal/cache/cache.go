// Package cache holds complete search responses in memory for a bounded time.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/helixir/scholar-search-service/internal/domain"
)

const (
	// DefaultMaxEntries is the default capacity of the cache.
	DefaultMaxEntries = 500

	// DefaultTTL is the default lifetime of an entry, measured from insertion.
	DefaultTTL = 30 * time.Minute
)

// Config configures a ResponseCache.
type Config struct {
	MaxEntries int
	TTL        time.Duration
}

// ResponseCache is a size-bounded LRU of search responses whose entries
// expire a fixed time after insertion. It is safe for concurrent use.
//
// Stored responses are shared with every reader and must not be mutated
// after Set.
type ResponseCache struct {
	lru *expirable.LRU[string, *domain.SearchResponse]
}

// New creates a ResponseCache. Zero config values take the defaults.
func New(cfg Config) *ResponseCache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}

	return &ResponseCache{
		lru: expirable.NewLRU[string, *domain.SearchResponse](cfg.MaxEntries, nil, cfg.TTL),
	}
}

// Get returns the response stored under key. Expired entries read as absent.
// A hit marks the entry as most recently used.
func (c *ResponseCache) Get(key string) (*domain.SearchResponse, bool) {
	return c.lru.Get(key)
}

// Set stores resp under key, evicting the least recently used entry when the
// cache is full. The TTL restarts on every Set.
func (c *ResponseCache) Set(key string, resp *domain.SearchResponse) {
	c.lru.Add(key, resp)
}

// Has reports whether an unexpired entry exists for key without touching its
// recency.
func (c *ResponseCache) Has(key string) bool {
	_, ok := c.lru.Peek(key)
	return ok
}

// Len returns the number of entries, including expired ones not yet purged.
func (c *ResponseCache) Len() int {
	return c.lru.Len()
}
