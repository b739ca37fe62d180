// Package cache provides the process-wide bounded LRU caches used to avoid
// repeating identical generation work: one cache for sub-query plans and one
// for finished reports. Both are advisory: any failure while deriving a key
// degrades to a cache miss on read and a no-op on write.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// PlanCacheSize bounds the number of cached sub-query plans.
	PlanCacheSize = 50
	// ReportCacheSize bounds the number of cached final reports.
	ReportCacheSize = 20
)

// Store is a bounded least-recently-used key/value cache. The zero value is
// not usable; construct with New.
type Store[V any] struct {
	inner *lru.Cache[string, V]
}

// New creates a Store with the given capacity. Capacity must be positive;
// invalid capacities fall back to a single-entry cache rather than failing,
// since the caches are advisory.
func New[V any](capacity int) *Store[V] {
	if capacity < 1 {
		capacity = 1
	}
	// lru.New only errors on non-positive size, which is guarded above.
	inner, _ := lru.New[string, V](capacity)
	return &Store[V]{inner: inner}
}

// Get looks up the value stored under the fingerprint of key, marking the
// entry as recently used. A key derivation failure reads as a miss.
func (s *Store[V]) Get(key interface{}) (V, bool) {
	var zero V
	fp, err := Fingerprint(key)
	if err != nil {
		return zero, false
	}
	return s.inner.Get(fp)
}

// Set stores value under the fingerprint of key, evicting the least recently
// used entry on capacity pressure. Key derivation failures are silently
// dropped.
func (s *Store[V]) Set(key interface{}, value V) {
	fp, err := Fingerprint(key)
	if err != nil {
		return
	}
	s.inner.Add(fp, value)
}

// Len reports the number of live entries.
func (s *Store[V]) Len() int {
	return s.inner.Len()
}
