package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	start time.Time
	count int64
}

// MemoryStore keeps counters in process. Limits are per instance, so a
// deployment with several replicas should use RedisStore.
type MemoryStore struct {
	mu         sync.Mutex
	now        func() time.Time
	items      map[string]*window
	lastSweep  time.Time
	sweepEvery time.Duration
}

func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		now:        now,
		items:      make(map[string]*window),
		lastSweep:  now(),
		sweepEvery: time.Minute,
	}
}

func (s *MemoryStore) Incr(_ context.Context, key string, length time.Duration) (int64, time.Duration, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) >= s.sweepEvery {
		s.sweep(now, length)
	}

	w := s.items[key]
	if w == nil || now.Sub(w.start) >= length {
		w = &window{start: now}
		s.items[key] = w
	}
	w.count++

	return w.count, w.start.Add(length).Sub(now), nil
}

// sweep drops windows that ended, bounding memory to active clients.
func (s *MemoryStore) sweep(now time.Time, length time.Duration) {
	for key, w := range s.items {
		if now.Sub(w.start) >= length {
			delete(s.items, key)
		}
	}
	s.lastSweep = now
}

func (s *MemoryStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
