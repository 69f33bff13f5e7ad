package cache

import (
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Store memoizes facts about the execution environment that are stable for
// the process lifetime (container ownership, resolved UIDs). Entries are only
// ever added. Thread-safe with sync.RWMutex; concurrent first lookups for the
// same key are collapsed into a single resolution.
type Store[V any] struct {
	mu    sync.RWMutex
	items map[string]V
	group singleflight.Group
}

// New creates an empty Store.
func New[V any]() *Store[V] {
	return &Store[V]{items: make(map[string]V)}
}

// MakeKey builds a cache key from its parts, e.g. MakeKey(target, path).
func MakeKey(parts ...string) string {
	return strings.Join(parts, "\x00")
}

// Get returns the cached value for key, if present.
func (s *Store[V]) Get(key string) (V, bool) {
	s.mu.RLock()
	v, ok := s.items[key]
	s.mu.RUnlock()
	return v, ok
}

// Set stores a value. An existing entry is overwritten with the new value.
func (s *Store[V]) Set(key string, v V) {
	s.mu.Lock()
	s.items[key] = v
	s.mu.Unlock()
}

// Len returns the number of cached entries.
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Resolve returns the cached value for key or runs resolve to produce it.
// Only one resolve runs per key at a time; callers arriving while it runs
// share its result. When resolve reports store=false the value is returned
// but not cached, so the next lookup resolves again.
func (s *Store[V]) Resolve(key string, resolve func() (v V, store bool)) V {
	v, _ := s.ResolveErr(key, func() (V, bool, error) {
		v, store := resolve()
		return v, store, nil
	})
	return v
}

// ResolveErr is Resolve for resolvers that can fail. The error is shared with
// every caller of the same flight and a failed resolution is never cached.
func (s *Store[V]) ResolveErr(key string, resolve func() (v V, store bool, err error)) (V, error) {
	if v, ok := s.Get(key); ok {
		return v, nil
	}

	res, err, _ := s.group.Do(key, func() (any, error) {
		// A previous flight may have populated the key between Get and Do.
		if v, ok := s.Get(key); ok {
			return v, nil
		}
		v, store, err := resolve()
		if err == nil && store {
			s.Set(key, v)
		}
		return v, err
	})
	v, _ := res.(V)
	return v, err
}
