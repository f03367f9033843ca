package fragments

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store for tests and single-node setups where
// fragment durability across restarts does not matter.
type MemoryStore struct {
	mu      sync.Mutex
	buffers map[string][]string
}

// NewMemoryStore creates an empty in-memory fragment store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buffers: make(map[string][]string)}
}

// Append adds a fragment to the end of the user's buffer.
func (s *MemoryStore) Append(_ context.Context, userKey, fragment string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffers[userKey] = append(s.buffers[userKey], fragment)
	return nil
}

// Drain removes and returns all buffered fragments for the user.
func (s *MemoryStore) Drain(_ context.Context, userKey string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.buffers[userKey]
	delete(s.buffers, userKey)
	return out, nil
}
