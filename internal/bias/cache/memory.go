package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"biasmeter/pkg/platform/sentinel"
)

// DefaultMemorySize bounds the in-process cache.
const DefaultMemorySize = 1024

// MemoryStore is a size-bounded LRU with per-entry expiry.
type MemoryStore struct {
	lru *expirable.LRU[string, Entry]
}

// NewMemoryStore creates an in-memory store. Non-positive arguments use the
// defaults.
func NewMemoryStore(size int, ttl time.Duration) *MemoryStore {
	if size <= 0 {
		size = DefaultMemorySize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{lru: expirable.NewLRU[string, Entry](size, nil, ttl)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (Entry, error) {
	entry, ok := m.lru.Get(key)
	if !ok {
		return Entry{}, sentinel.ErrNotFound
	}
	return entry, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, entry Entry) error {
	m.lru.Add(key, entry)
	return nil
}

func (m *MemoryStore) Name() string { return "memory" }

// Len reports the number of live entries.
func (m *MemoryStore) Len() int {
	return m.lru.Len()
}
