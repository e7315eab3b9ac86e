package ratelimit_test

import (
	"sync"
	"time"
)

// fakeClock is a manually advanced clock shared by the tests in this package.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingObserver struct {
	mu      sync.Mutex
	allowed map[string]int
	denied  map[string]int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{allowed: map[string]int{}, denied: map[string]int{}}
}

func (o *recordingObserver) RecordDecision(key string, allowed bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if allowed {
		o.allowed[key]++
	} else {
		o.denied[key]++
	}
}
