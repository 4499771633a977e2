package cache

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"orderdesk/pkg/logger"
	"orderdesk/pkg/metric"
)

const (
	_removePreallocSize = 10

	reasonCapacity = "lru"
	reasonExpired  = "expired"
	reasonDeleted  = "deleted"
	reasonPurged   = "purge"
)

var _ Cache[string, int] = (*LRUCache[string, int])(nil)

type LRUCache[K comparable, V any] struct {
	items   map[K]*list.Element
	order   *list.List
	mutex   sync.Mutex
	log     logger.Logger
	metrics metric.Cache

	name            string
	now             func() time.Time
	capacity        int
	cleanupInterval time.Duration
	cleanupStop     chan struct{}
	onEvicted       func(key K, value V)
}

type entry[K comparable, V any] struct {
	key     K
	value   V
	expires time.Time
}

type evicted[K comparable, V any] struct {
	key   K
	value V
}

func NewLRUCache[K comparable, V any](
	capacity int,
	log logger.Logger,
	metrics metric.Cache,
	opts ...Option,
) (*LRUCache[K, V], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("cache.NewLRUCache: capacity must be positive, got %d", capacity)
	}

	s := settings{name: _defaultName, now: time.Now}
	for _, opt := range opts {
		opt(&s)
	}

	return &LRUCache[K, V]{
		items:    make(map[K]*list.Element, capacity),
		order:    list.New(),
		log:      log,
		metrics:  metrics,
		name:     s.name,
		now:      s.now,
		capacity: capacity,
	}, nil
}

func (c *LRUCache[K, V]) Get(key K) (V, bool) {
	var zero V

	c.mutex.Lock()
	elem, ok := c.items[key]
	if !ok {
		c.mutex.Unlock()
		c.metrics.Miss(c.name)
		return zero, false
	}

	e := elem.Value.(*entry[K, V])
	if c.expired(e) {
		gone := c.remove(elem, reasonExpired)
		c.mutex.Unlock()
		c.notify(gone)
		c.metrics.Miss(c.name)
		return zero, false
	}

	c.order.MoveToFront(elem)
	c.mutex.Unlock()
	c.metrics.Hit(c.name)

	return e.value, true
}

func (c *LRUCache[K, V]) Put(key K, value V, ttl time.Duration) {
	var expires time.Time
	if ttl > 0 {
		expires = c.now().Add(ttl)
	}

	c.mutex.Lock()
	if elem, ok := c.items[key]; ok {
		e := elem.Value.(*entry[K, V])
		e.value = value
		e.expires = expires
		c.order.MoveToFront(elem)
		c.mutex.Unlock()
		return
	}

	var gone []evicted[K, V]
	if c.order.Len() >= c.capacity {
		if back := c.order.Back(); back != nil {
			gone = c.remove(back, reasonCapacity)
		}
	}

	c.items[key] = c.order.PushFront(&entry[K, V]{key: key, value: value, expires: expires})
	size := c.order.Len()
	c.mutex.Unlock()

	c.notify(gone)
	c.metrics.Size(c.name, size)
}

// Delete drops key and reports whether it was present.
func (c *LRUCache[K, V]) Delete(key K) bool {
	c.mutex.Lock()
	elem, ok := c.items[key]
	if !ok {
		c.mutex.Unlock()
		return false
	}

	gone := c.remove(elem, reasonDeleted)
	size := c.order.Len()
	c.mutex.Unlock()

	c.notify(gone)
	c.metrics.Size(c.name, size)

	return true
}

func (c *LRUCache[K, V]) Has(key K) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return false
	}

	return !c.expired(elem.Value.(*entry[K, V]))
}

func (c *LRUCache[K, V]) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.order.Len()
}

func (c *LRUCache[K, V]) Capacity() int {
	return c.capacity
}

func (c *LRUCache[K, V]) Purge() {
	c.mutex.Lock()
	gone := make([]evicted[K, V], 0, c.order.Len())
	for elem := c.order.Back(); elem != nil; elem = elem.Prev() {
		e := elem.Value.(*entry[K, V])
		gone = append(gone, evicted[K, V]{key: e.key, value: e.value})
		c.metrics.Eviction(c.name, reasonPurged)
	}
	c.order.Init()
	clear(c.items)
	c.mutex.Unlock()

	c.notify(gone)
	c.metrics.Size(c.name, 0)
}

func (c *LRUCache[K, V]) StartCleanup(interval time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.cleanupStop != nil {
		close(c.cleanupStop)
	}

	c.cleanupInterval = interval
	c.cleanupStop = make(chan struct{})
	go c.runCleanup(c.cleanupStop)
}

func (c *LRUCache[K, V]) StopCleanup() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.cleanupStop != nil {
		close(c.cleanupStop)
		c.cleanupStop = nil
	}
}

func (c *LRUCache[K, V]) SetOnEvicted(onEvicted func(key K, value V)) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.onEvicted = onEvicted
}

func (c *LRUCache[K, V]) runCleanup(stop <-chan struct{}) {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-stop:
			return
		}
	}
}

func (c *LRUCache[K, V]) removeExpired() {
	c.mutex.Lock()
	gone := make([]evicted[K, V], 0, _removePreallocSize)
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		if c.expired(elem.Value.(*entry[K, V])) {
			gone = append(gone, c.remove(elem, reasonExpired)...)
		}
		elem = prev
	}
	remaining := c.order.Len()
	c.mutex.Unlock()

	if len(gone) == 0 {
		return
	}

	c.notify(gone)
	c.metrics.Size(c.name, remaining)
	c.log.Infow("cache cleanup completed",
		"cache", c.name,
		"removed", len(gone),
		"remaining", remaining,
	)
}

func (c *LRUCache[K, V]) expired(e *entry[K, V]) bool {
	return !e.expires.IsZero() && !c.now().Before(e.expires)
}

// remove must be called with the mutex held. The eviction callback runs
// after unlocking so it may call back into the cache.
func (c *LRUCache[K, V]) remove(elem *list.Element, reason string) []evicted[K, V] {
	e := c.order.Remove(elem).(*entry[K, V])
	delete(c.items, e.key)
	c.metrics.Eviction(c.name, reason)

	return []evicted[K, V]{{key: e.key, value: e.value}}
}

func (c *LRUCache[K, V]) notify(gone []evicted[K, V]) {
	c.mutex.Lock()
	onEvicted := c.onEvicted
	c.mutex.Unlock()

	if onEvicted == nil {
		return
	}
	for _, g := range gone {
		onEvicted(g.key, g.value)
	}
}
