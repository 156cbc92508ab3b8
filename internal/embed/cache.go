package embed

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

type cacheItem struct {
	vector    []float64
	expiresAt time.Time
}

// QueryCache keeps recently encoded query vectors so repeated searches skip
// the provider round trip.
type QueryCache struct {
	mu    sync.RWMutex
	ttl   time.Duration
	items map[string]cacheItem
}

func NewQueryCache(ttl time.Duration) *QueryCache {
	c := &QueryCache{
		ttl:   ttl,
		items: make(map[string]cacheItem),
	}

	// Cleanup expired items every hour
	go c.cleanupLoop()

	return c
}

func (c *QueryCache) Get(query string) ([]float64, bool) {
	key := cacheKey(query)

	c.mu.RLock()
	item, exists := c.items[key]
	c.mu.RUnlock()

	if !exists || time.Now().After(item.expiresAt) {
		return nil, false
	}
	return item.vector, true
}

func (c *QueryCache) Set(query string, vector []float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[cacheKey(query)] = cacheItem{
		vector:    vector,
		expiresAt: time.Now().Add(c.ttl),
	}
}

func cacheKey(query string) string {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(query))))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *QueryCache) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		c.mu.Lock()
		for key, item := range c.items {
			if now.After(item.expiresAt) {
				delete(c.items, key)
			}
		}
		c.mu.Unlock()
	}
}
