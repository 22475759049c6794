package ratelimit

import (
	"context"
	"sync"
)

// MemoryStore keeps entries for the life of the process only
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Get(_ context.Context, clientID string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[clientID]
	return e, ok, nil
}

func (s *MemoryStore) Put(_ context.Context, clientID string, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[clientID] = entry
	return nil
}

func (s *MemoryStore) Flush(context.Context) error { return nil }

func (s *MemoryStore) Entries(_ context.Context) (map[string]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Entry, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, clientID)
	return nil
}
