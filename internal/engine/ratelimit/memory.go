package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	hits    []time.Time
	expires time.Time
}

// MemoryStore keeps one ordered timestamp log per key. It is only correct
// for a single process.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// WithClock replaces the time source; used by tests.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) Check(ctx context.Context, key string, limit int, win time.Duration) (Result, error) {
	now := s.now()
	cutoff := now.Add(-win)

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok {
		w = &window{}
		s.windows[key] = w
	}

	kept := w.hits[:0]
	for _, h := range w.hits {
		if h.After(cutoff) {
			kept = append(kept, h)
		}
	}
	w.hits = kept

	var oldest time.Time
	if len(w.hits) > 0 {
		oldest = w.hits[0]
	}

	res := decide(now, len(w.hits), oldest, limit, win)
	if res.Allowed {
		w.hits = append(w.hits, now)
		w.expires = now.Add(win)
	}
	return res, nil
}

// Sweep drops windows whose newest entry has aged out and returns how many
// were removed.
func (s *MemoryStore) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, w := range s.windows {
		if !now.Before(w.expires) {
			delete(s.windows, key)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows = make(map[string]*window)
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}
