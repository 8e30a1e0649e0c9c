package callcontext

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryEntry struct {
	cc        CallContext
	expiresAt time.Time
}

// MemoryStore keeps contexts in process memory with per-entry expiry.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Set(_ context.Context, key string, cc CallContext, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)
	s.entries[key] = memoryEntry{cc: cc, expiresAt: now.Add(ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (CallContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return CallContext{}, ErrNotFound
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, key)
		return CallContext{}, ErrNotFound
	}
	return entry.cc, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) Issue(ctx context.Context, cc CallContext, ttl time.Duration) (string, error) {
	key := "temp_" + uuid.NewString()
	if err := s.Set(ctx, key, cc, ttl); err != nil {
		return "", err
	}
	return key, nil
}

// Len returns the number of live entries.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep(s.now())
	return len(s.entries)
}

// sweep drops expired entries. Callers hold mu.
func (s *MemoryStore) sweep(now time.Time) {
	for key, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, key)
		}
	}
}
