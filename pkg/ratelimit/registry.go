package ratelimit

import (
	"sort"
	"sync"
	"time"
)

// registry maps keys to buckets. The map is guarded by an RWMutex;
// each bucket carries its own lock so distinct keys never contend.
type registry struct {
	mu      sync.RWMutex
	buckets map[string]*bucket
}

func newRegistry() *registry {
	return &registry{buckets: make(map[string]*bucket)}
}

// getOrCreate returns the bucket for key, creating it from config if absent.
func (r *registry) getOrCreate(key string, config BucketConfig, now time.Time) *bucket {
	// Fast path - bucket exists
	r.mu.RLock()
	b, exists := r.buckets[key]
	r.mu.RUnlock()
	if exists {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check: another goroutine might have created it
	if b, exists = r.buckets[key]; exists {
		return b
	}

	b = newBucket(config, now, false)
	r.buckets[key] = b
	return b
}

// get returns the bucket for key without creating one.
func (r *registry) get(key string) (*bucket, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, exists := r.buckets[key]
	return b, exists
}

// replace installs a fresh bucket for key, discarding any previous state.
// It reports whether a bucket was replaced.
func (r *registry) replace(key string, config BucketConfig, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, existed := r.buckets[key]
	r.buckets[key] = newBucket(config, now, true)
	return existed
}

func (r *registry) remove(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.buckets[key]; !exists {
		return false
	}
	delete(r.buckets, key)
	return true
}

// keys returns the registered keys in sorted order.
func (r *registry) keys() []string {
	r.mu.RLock()
	keys := make([]string, 0, len(r.buckets))
	for key := range r.buckets {
		keys = append(keys, key)
	}
	r.mu.RUnlock()

	sort.Strings(keys)
	return keys
}

// removeIdle drops auto-created buckets unused since before cutoff.
func (r *registry) removeIdle(cutoff, now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for key, b := range r.buckets {
		if b.idle(cutoff, now) {
			delete(r.buckets, key)
			removed++
		}
	}
	return removed
}

func (r *registry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.buckets)
}
