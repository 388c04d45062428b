package scanner

import (
	"container/list"
	"sync"
	"time"
)

// resultCache is an LRU cache with TTL for shallow scan results.
// Scan input is often repetitive (the same user agents, the same field
// values), so caching per-string results removes most regex work from
// the hot path.
type resultCache struct {
	maxSize int
	ttl     time.Duration
	items   map[string]*cacheItem
	lru     *list.List
	mu      sync.Mutex
	done    chan struct{}
	closed  sync.Once
}

type cacheItem struct {
	key       string
	value     ScanResult
	element   *list.Element
	expiresAt time.Time
}

func newResultCache(maxSize int, ttl time.Duration) *resultCache {
	c := &resultCache{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*cacheItem),
		lru:     list.New(),
		done:    make(chan struct{}),
	}
	go c.cleanup()
	return c
}

func (c *resultCache) get(key string) (ScanResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok {
		return ScanResult{}, false
	}
	if time.Now().After(item.expiresAt) {
		c.remove(item)
		return ScanResult{}, false
	}
	c.lru.MoveToFront(item.element)
	return item.value, true
}

func (c *resultCache) set(key string, value ScanResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if item, ok := c.items[key]; ok {
		item.value = value
		item.expiresAt = time.Now().Add(c.ttl)
		c.lru.MoveToFront(item.element)
		return
	}

	item := &cacheItem{key: key, value: value, expiresAt: time.Now().Add(c.ttl)}
	item.element = c.lru.PushFront(item)
	c.items[key] = item

	if len(c.items) > c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.remove(oldest.Value.(*cacheItem))
		}
	}
}

func (c *resultCache) remove(item *cacheItem) {
	delete(c.items, item.key)
	c.lru.Remove(item.element)
}

func (c *resultCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *resultCache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			var expired []*cacheItem
			for _, item := range c.items {
				if now.After(item.expiresAt) {
					expired = append(expired, item)
				}
			}
			for _, item := range expired {
				c.remove(item)
			}
			c.mu.Unlock()
		case <-c.done:
			return
		}
	}
}

func (c *resultCache) close() {
	c.closed.Do(func() { close(c.done) })
}
