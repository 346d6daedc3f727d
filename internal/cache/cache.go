package cache

import (
	"sync"
	"time"
)

// Snapshot is a single-value TTL cache for an expensive read, used to keep
// the admin directory listing from hammering the users table on every poll.
// Writers invalidate it after any mutation.
type Snapshot struct {
	mu  sync.RWMutex
	ttl time.Duration

	val any
	exp time.Time
}

func NewSnapshot(ttl time.Duration) *Snapshot {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	return &Snapshot{ttl: ttl}
}

func (s *Snapshot) Get() (any, bool) {
	s.mu.RLock()
	val, exp := s.val, s.exp
	s.mu.RUnlock()

	if val == nil || time.Now().After(exp) {
		return nil, false
	}

	return val, true
}

func (s *Snapshot) Set(val any) {
	s.mu.Lock()
	s.val = val
	s.exp = time.Now().Add(s.ttl)
	s.mu.Unlock()
}

func (s *Snapshot) Invalidate() {
	s.mu.Lock()
	s.val = nil
	s.mu.Unlock()
}
