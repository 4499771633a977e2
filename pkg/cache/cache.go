package cache

import (
	"time"
)

//go:generate mockgen -source=cache.go -destination=mock/cache.go -package=mock_cache

// Cache is a bounded key/value store with optional per-entry TTL. A zero
// ttl means the entry only leaves by eviction or Delete.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Put(key K, value V, ttl time.Duration)
	Delete(key K) bool
	Has(key K) bool

	Len() int
	Capacity() int
	Purge()

	// StartCleanup sweeps expired entries every interval until StopCleanup.
	StartCleanup(interval time.Duration)
	StopCleanup()

	// SetOnEvicted registers a callback for every entry that leaves the
	// cache. It runs outside the cache lock.
	SetOnEvicted(onEvicted func(key K, value V))
}
