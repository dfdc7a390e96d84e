package cache

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is an in-process cache for single-instance deployments and tests
type MemoryCache struct {
	store *gocache.Cache

	// guards read-modify-write of index sets
	mu sync.Mutex
}

// NewMemoryCache creates an in-process cache that sweeps expired entries every cleanupInterval
func NewMemoryCache(cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{
		store: gocache.New(gocache.NoExpiration, cleanupInterval),
	}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.store.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	raw, ok := v.([]byte)
	if !ok {
		return nil, ErrMiss
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	m.store.Set(key, stored, ttl)
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		m.store.Delete(k)
	}
	return nil
}

func (m *MemoryCache) AddToIndex(_ context.Context, index, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	members := map[string]struct{}{}
	if v, ok := m.store.Get(index); ok {
		if existing, ok := v.(map[string]struct{}); ok {
			members = existing
		}
	}
	members[key] = struct{}{}
	m.store.Set(index, members, ttl)
	return nil
}

func (m *MemoryCache) InvalidateIndex(_ context.Context, index string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if v, ok := m.store.Get(index); ok {
		if members, ok := v.(map[string]struct{}); ok {
			for k := range members {
				m.store.Delete(k)
			}
		}
	}
	m.store.Delete(index)
	return nil
}

func (m *MemoryCache) Close() error {
	m.store.Flush()
	return nil
}

var (
	_ Cache = (*MemoryCache)(nil)
	_ Cache = (*RedisCache)(nil)
)
