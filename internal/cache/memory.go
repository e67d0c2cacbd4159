package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryStore implements Store on an in-process expirable LRU. Used when no
// Redis address is configured, and in tests.
type MemoryStore struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemoryStore creates a MemoryStore holding at most size entries that
// expire after ttl. The expirable LRU fixes the TTL at construction, so the
// per-call ttl passed to Set is ignored.
func NewMemoryStore(size int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		lru: expirable.NewLRU[string, []byte](size, nil, ttl),
	}
}

// Set stores a value
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.lru.Add(key, value)
	return nil
}

// Get retrieves a value, returning ErrCacheMiss when absent or expired
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	value, ok := s.lru.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	return value, nil
}
