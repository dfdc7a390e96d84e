// Package cache is the lookup cache side-channel. Values are opaque bytes with a TTL;
// indexes group keys so that a whole family (for example every cached retailer page of
// one sales rep) can be dropped at once.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired
var ErrMiss = errors.New("cache: miss")

// Cache is implemented by the redis and in-process drivers
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error

	// AddToIndex records key as a member of index. The index outlives its members by at least ttl.
	AddToIndex(ctx context.Context, index, key string, ttl time.Duration) error
	// InvalidateIndex deletes every key recorded in index, then the index itself.
	InvalidateIndex(ctx context.Context, index string) error

	Close() error
}

// GetJSON decodes the cached value into dst. It reports false on a miss.
func GetJSON(ctx context.Context, c Cache, key string, dst interface{}) (bool, error) {
	raw, err := c.Get(ctx, key)
	if errors.Is(err, ErrMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes value and stores it under key
func SetJSON(ctx context.Context, c Cache, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.Set(ctx, key, raw, ttl)
}
