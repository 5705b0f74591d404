package quotes

import (
    "sync"
    "time"

    "stockdash/pkg/models"
)

// Cache holds one quote per symbol with a freshness TTL. Entries are stored
// by value so a reader never observes a torn write; stale entries stay in
// place until the next successful fetch overwrites them.
type Cache struct {
    mu      sync.RWMutex
    entries map[string]cacheEntry
    ttl     time.Duration
    now     func() time.Time
}

type cacheEntry struct {
    quote  models.Quote
    expiry time.Time
}

// NewCache returns an empty cache whose entries stay fresh for ttl.
func NewCache(ttl time.Duration) *Cache {
    return &Cache{
        entries: make(map[string]cacheEntry),
        ttl:     ttl,
        now:     time.Now,
    }
}

// Get returns the cached quote for symbol if it is still fresh.
// An expired entry behaves as absent.
func (c *Cache) Get(symbol string) (models.Quote, bool) {
    c.mu.RLock()
    defer c.mu.RUnlock()

    entry, ok := c.entries[symbol]
    if !ok || !c.now().Before(entry.expiry) {
        return models.Quote{}, false
    }
    return entry.quote, true
}

// Put stores a quote under symbol, superseding any previous entry.
func (c *Cache) Put(symbol string, q models.Quote) {
    c.mu.Lock()
    defer c.mu.Unlock()

    c.entries[symbol] = cacheEntry{
        quote:  q,
        expiry: c.now().Add(c.ttl),
    }
}

// Len reports the number of entries, fresh or stale.
func (c *Cache) Len() int {
    c.mu.RLock()
    defer c.mu.RUnlock()
    return len(c.entries)
}
