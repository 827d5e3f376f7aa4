// Package pool provides a bounded LRU cache for expensive resources such
// as model handles or backend clients. Construction happens under the pool
// lock so a key is never built twice, and evicted values are handed to a
// release hook whose failures never reach callers.
package pool

import (
	"container/list"
	"log/slog"
	"sync"
	"time"

	"github.com/hollowgrove/cascade/pkg/api"
	"github.com/hollowgrove/cascade/pkg/log"
)

type (
	// Factory constructs a resource. It may block for arbitrary time and
	// runs with the pool lock held, so concurrent Gets for missing keys
	// serialize rather than racing to construct
	Factory[T any] func() (T, error)

	// ReleaseFunc disposes of an evicted resource
	ReleaseFunc[T any] func(T) error

	// Pool keeps up to capacity resources resident, evicting the least
	// recently used entry when the bound is exceeded. A capacity of zero
	// or less disables the bound. Safe for concurrent use
	Pool[T any] struct {
		entries   map[string]*list.Element
		lru       *list.List
		release   ReleaseFunc[T]
		capacity  int
		hits      int64
		misses    int64
		evictions int64
		mu        sync.Mutex
	}

	poolEntry[T any] struct {
		lastAccess time.Time
		value      T
		key        string
	}
)

// New creates a resource pool. release may be nil when evicted values need
// no teardown
func New[T any](capacity int, release ReleaseFunc[T]) *Pool[T] {
	return &Pool[T]{
		entries:  map[string]*list.Element{},
		lru:      list.New(),
		capacity: capacity,
		release:  release,
	}
}

// Get returns the resource cached under key, constructing it with create on
// a miss. A construction failure propagates to the caller and leaves the
// pool unchanged. Inserting beyond capacity evicts the least recently used
// resident
func (p *Pool[T]) Get(key string, create Factory[T]) (T, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	if elem, ok := p.entries[key]; ok {
		entry := elem.Value.(*poolEntry[T])
		entry.lastAccess = now
		p.lru.MoveToFront(elem)
		p.hits++
		return entry.value, nil
	}

	value, err := create()
	if err != nil {
		var zero T
		return zero, err
	}
	p.misses++

	entry := &poolEntry[T]{key: key, value: value, lastAccess: now}
	p.entries[key] = p.lru.PushFront(entry)

	for p.capacity > 0 && p.lru.Len() > p.capacity {
		p.evictBack()
	}

	return value, nil
}

// SweepIdle evicts every resident whose idle time strictly exceeds
// threshold, returning the number evicted. A threshold of zero or less
// disables sweeping
func (p *Pool[T]) SweepIdle(threshold time.Duration) int {
	if threshold <= 0 {
		return 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	var stale []*list.Element
	for elem := p.lru.Back(); elem != nil; elem = elem.Prev() {
		entry := elem.Value.(*poolEntry[T])
		if now.Sub(entry.lastAccess) > threshold {
			stale = append(stale, elem)
		}
	}

	for _, elem := range stale {
		p.evict(elem)
	}
	return len(stale)
}

// Purge evicts every resident, releasing each one. Intended for shutdown
func (p *Pool[T]) Purge() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	count := p.lru.Len()
	for p.lru.Len() > 0 {
		p.evictBack()
	}
	return count
}

// Len returns the number of resident resources
func (p *Pool[T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lru.Len()
}

// Stats returns a snapshot of the pool's bookkeeping counters
func (p *Pool[T]) Stats() api.PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return api.PoolStats{
		Size:      p.lru.Len(),
		Capacity:  p.capacity,
		Hits:      p.hits,
		Misses:    p.misses,
		Evictions: p.evictions,
	}
}

func (p *Pool[T]) evictBack() {
	if back := p.lru.Back(); back != nil {
		p.evict(back)
	}
}

func (p *Pool[T]) evict(elem *list.Element) {
	entry := elem.Value.(*poolEntry[T])
	p.lru.Remove(elem)
	delete(p.entries, entry.key)
	p.evictions++

	if p.release == nil {
		return
	}
	if err := p.release(entry.value); err != nil {
		slog.Warn("Failed to release pool resource",
			log.Key(entry.key),
			log.Error(err))
	}
}
