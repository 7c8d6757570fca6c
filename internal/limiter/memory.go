package limiter

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// MemoryStore keeps windows in process memory. Entries past their reset time
// are treated as absent and removed lazily or by Sweep.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string]*window)}
}

// Hit implements Store.
func (s *MemoryStore) Hit(_ context.Context, identifier string, rule Rule, now time.Time) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[identifier]
	if !ok || w.resetAt.Before(now) {
		w = &window{count: 1, resetAt: now.Add(rule.Window)}
		s.windows[identifier] = w
		return Result{Allowed: true, Limit: rule.Limit, Remaining: max(rule.Limit-1, 0), ResetAt: w.resetAt}, nil
	}

	if w.count >= rule.Limit {
		return Result{Allowed: false, Limit: rule.Limit, Remaining: 0, ResetAt: w.resetAt}, nil
	}

	w.count++
	return Result{Allowed: true, Limit: rule.Limit, Remaining: rule.Limit - w.count, ResetAt: w.resetAt}, nil
}

// Sweep removes windows that reset before now and returns how many it dropped.
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, w := range s.windows {
		if w.resetAt.Before(now) {
			delete(s.windows, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked identifiers.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}
