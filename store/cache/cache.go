// Package cache provides a small in-process TTL cache used by the store
// to avoid re-reading hot rows (users, preferences) on every request.
package cache

import (
	"sync"
	"time"
)

// Config holds cache settings.
type Config struct {
	DefaultTTL      time.Duration
	CleanupInterval time.Duration
	MaxItems        int
	OnEviction      func(key string, value any)
}

type item struct {
	value     any
	expiresAt time.Time
}

// Cache is a TTL cache with periodic cleanup.
type Cache struct {
	mu     sync.RWMutex
	items  map[string]item
	config Config
	done   chan struct{}
}

// New creates a cache and starts its cleanup goroutine.
func New(config Config) *Cache {
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = 10 * time.Minute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}
	c := &Cache{
		items:  make(map[string]item),
		config: config,
		done:   make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(it.expiresAt) {
		return nil, false
	}
	return it.value, true
}

func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.config.MaxItems > 0 && len(c.items) >= c.config.MaxItems {
		// Evict an arbitrary entry rather than tracking recency; the
		// cache is a best-effort read shortcut, not a source of truth.
		for k, it := range c.items {
			delete(c.items, k)
			if c.config.OnEviction != nil {
				c.config.OnEviction(k, it.value)
			}
			break
		}
	}
	c.items[key] = item{value: value, expiresAt: time.Now().Add(c.config.DefaultTTL)}
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Close stops the cleanup goroutine.
func (c *Cache) Close() {
	close(c.done)
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(c.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for k, it := range c.items {
				if now.After(it.expiresAt) {
					delete(c.items, k)
					if c.config.OnEviction != nil {
						c.config.OnEviction(k, it.value)
					}
				}
			}
			c.mu.Unlock()
		case <-c.done:
			return
		}
	}
}
