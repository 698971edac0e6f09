package index

import (
	"context"
	"sync"
)

// MemoryStore keeps entries in process. Queries are brute force.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	order   []string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Name() string { return BackendMemory }

func (s *MemoryStore) Upsert(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[e.ID]; !ok {
		s.order = append(s.order, e.ID)
	}
	e.Vector = append([]float32(nil), e.Vector...)
	s.entries[e.ID] = e
	return nil
}

func (s *MemoryStore) Query(_ context.Context, vec []float32, k int) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]Entry, 0, len(s.order))
	for _, id := range s.order {
		entries = append(entries, s.entries[id])
	}
	return rank(entries, vec, k)
}

func (s *MemoryStore) Get(_ context.Context, id string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	return e, ok, nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *MemoryStore) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]Entry)
	s.order = nil
	return nil
}

func (s *MemoryStore) Close() error { return nil }
