// Package ratelimit provides the per-key request limiter used for room
// creation, joins, and chat flooding.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter decides if a request identified by key may proceed. When allowed is
// false, retryAfterSec may carry a hint for the Retry-After header (0 = omit).
type Limiter interface {
	Allow(key string) (allowed bool, retryAfterSec int)
}

// Noop allows everything. Used when limiting is disabled.
type Noop struct{}

func (Noop) Allow(string) (bool, int) { return true, 0 }

// bucket holds the recent request times for one key, oldest first.
type bucket struct {
	hits []time.Time
}

func (b *bucket) prune(cutoff time.Time) {
	keep := 0
	for ; keep < len(b.hits); keep++ {
		if b.hits[keep].After(cutoff) {
			break
		}
	}
	b.hits = b.hits[keep:]
}

// InMemory is a sliding-window limiter keyed by string (typically client IP).
// Single-instance only; a multi-node deployment needs a shared store.
type InMemory struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   int
	window  time.Duration
	now     func() time.Time
}

// NewInMemory allows up to limit requests per key within window.
func NewInMemory(limit int, window time.Duration) *InMemory {
	return &InMemory{
		buckets: make(map[string]*bucket),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

func (l *InMemory) Allow(key string) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b := l.buckets[key]
	if b == nil {
		b = &bucket{}
		l.buckets[key] = b
	}
	b.prune(now.Add(-l.window))

	if len(b.hits) >= l.limit {
		wait := b.hits[0].Add(l.window).Sub(now)
		retryAfter := int(wait.Seconds())
		if wait > 0 && retryAfter < 1 {
			retryAfter = 1
		}
		if retryAfter < 0 {
			retryAfter = 0
		}
		return false, retryAfter
	}

	b.hits = append(b.hits, now)
	return true, 0
}
