package contexts

import (
	"context"
	"sync"

	"github.com/jarbasai/jarbas/pkg/models"
)

// MemoryStore is an in-process Store for tests. It applies the same
// truncation and repair semantics as the MongoDB store.
type MemoryStore struct {
	mu        sync.RWMutex
	histories map[string][]models.Message
}

// NewMemoryStore creates an empty in-memory context store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{histories: make(map[string][]models.Message)}
}

// Read returns a repaired copy of the most recent limit messages.
func (s *MemoryStore) Read(_ context.Context, userKey string, limit int) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.histories[userKey]
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	out := make([]models.Message, len(history))
	copy(out, history)
	return RepairOrphanToolMessages(out), nil
}

// Save replaces the user's stored history with a copy.
func (s *MemoryStore) Save(_ context.Context, userKey string, history []models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]models.Message, len(history))
	copy(stored, history)
	s.histories[userKey] = stored
	return nil
}
