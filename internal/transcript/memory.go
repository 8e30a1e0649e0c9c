package transcript

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]Entry)}
}

func (s *MemoryStore) Append(_ context.Context, callSID string, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[callSID] = append(s.entries[callSID], entry)
	return nil
}

func (s *MemoryStore) List(_ context.Context, callSID string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries[callSID]))
	copy(out, s.entries[callSID])
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, callSID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, callSID)
	return nil
}
