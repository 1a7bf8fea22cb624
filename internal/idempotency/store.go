package idempotency

import (
	"context"
	"sync"
	"time"
)

// Store persists resumable keys with an expiry.
type Store interface {
	// SetIfAbsent stores value under key unless an unexpired entry exists, and
	// returns the value that is stored once the call completes.
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (string, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// SetIfAbsent implements Store.
func (s *MemoryStore) SetIfAbsent(_ context.Context, key, value string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if entry, ok := s.entries[key]; ok && now.Before(entry.expiresAt) {
		return entry.value, nil
	}

	s.entries[key] = memoryEntry{value: value, expiresAt: now.Add(ttl)}
	return value, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}
