package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-process fallback registry used when Redis is not
// configured. Expiry is checked lazily on access.
type MemoryStore struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory registry.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (s *MemoryStore) SaveSession(_ context.Context, sessionID string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expires[sessionID] = s.now().Add(ttl)
	return nil
}

func (s *MemoryStore) TouchSession(_ context.Context, sessionID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.aliveLocked(sessionID) {
		return false, nil
	}
	s.expires[sessionID] = s.now().Add(ttl)
	return true, nil
}

func (s *MemoryStore) LookupSession(_ context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aliveLocked(sessionID), nil
}

func (s *MemoryStore) RevokeSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.expires, sessionID)
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

// aliveLocked checks expiry and prunes dead entries. Callers hold mu.
func (s *MemoryStore) aliveLocked(sessionID string) bool {
	expiry, ok := s.expires[sessionID]
	if !ok {
		return false
	}
	if s.now().After(expiry) {
		delete(s.expires, sessionID)
		return false
	}
	return true
}
