package cog

import (
	"context"
	"fmt"
	"sync"

	"github.com/carbonwatch/emissions-dataprep/internal/domain"
	"github.com/carbonwatch/emissions-dataprep/internal/observability"
)

// CachedFetcher wraps an ImageFetcher with an in-memory LRU cache. Rows are
// revisited every epoch, so a warm cache saves one tiler round trip per band
// per row.
type CachedFetcher struct {
	inner   domain.ImageFetcher
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedFetcher creates a cache decorator around a fetcher.
func NewCachedFetcher(inner domain.ImageFetcher, maxEntries int, metrics *observability.Metrics) *CachedFetcher {
	return &CachedFetcher{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedFetcher) Fetch(ctx context.Context, src domain.ImageSource, geom domain.Geometry, sizePx int) (domain.Tensor, error) {
	minLon, minLat, maxLon, maxLat := geom.Bounds()
	key := fmt.Sprintf("%s|%.6f,%.6f,%.6f,%.6f|%d", src.Ref(), minLon, minLat, maxLon, maxLat, sizePx)
	if img, ok := c.cache.get(key); ok {
		c.metrics.FetchCache.WithLabelValues("hit").Inc()
		return img, nil
	}
	c.metrics.FetchCache.WithLabelValues("miss").Inc()

	img, err := c.inner.Fetch(ctx, src, geom, sizePx)
	if err != nil {
		return img, err
	}
	if !img.IsZero() {
		c.cache.put(key, img)
	}
	return img, nil
}

// lruCache is a simple thread-safe LRU cache for image tensors.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value domain.Tensor
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (domain.Tensor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.Tensor{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value domain.Tensor) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
