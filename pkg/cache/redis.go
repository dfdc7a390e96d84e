package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"retailer-service/pkg/config"

	"github.com/redis/go-redis/v9"
)

// RedisCache holds the handler for the redis client
type RedisCache struct {
	client redis.UniversalClient
}

// NewRedisCache connects to redis and verifies the connection with a ping
func NewRedisCache(cfg *config.RedisConfig) (*RedisCache, error) {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{cfg.Addr()},
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	rc := &RedisCache{client: client}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping failed: %w", err)
	}

	return rc, nil
}

// Get returns the raw value stored under key
func (rc *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := rc.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Set stores value under key with the given expiry
func (rc *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return rc.client.Set(ctx, key, value, ttl).Err()
}

// Delete removes the given keys; missing keys are not an error
func (rc *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return rc.client.Del(ctx, keys...).Err()
}

// AddToIndex adds key to the index set and pushes the set's expiry out to ttl
func (rc *RedisCache) AddToIndex(ctx context.Context, index, key string, ttl time.Duration) error {
	pipe := rc.client.TxPipeline()
	pipe.SAdd(ctx, index, key)
	pipe.Expire(ctx, index, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// invalidateIndexScript deletes every member of the index set and the set itself in one step,
// so a key added concurrently is either removed with the set or lands in a fresh set
var invalidateIndexScript = redis.NewScript(`
local members = redis.call('SMEMBERS', KEYS[1])
for i = 1, #members, 500 do
	redis.call('DEL', unpack(members, i, math.min(i + 499, #members)))
end
redis.call('DEL', KEYS[1])
return #members
`)

// InvalidateIndex deletes every member of the index set and the set itself
func (rc *RedisCache) InvalidateIndex(ctx context.Context, index string) error {
	return invalidateIndexScript.Run(ctx, rc.client, []string{index}).Err()
}

// Close disconnects from the redis server
func (rc *RedisCache) Close() error {
	return rc.client.Close()
}
