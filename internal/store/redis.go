package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

// defaultOpTimeout bounds each Redis round-trip when Options.OpTimeout is unset.
const defaultOpTimeout = 2 * time.Second

// RedisStore keeps values as plain Redis strings under a key prefix.
type RedisStore struct {
	client  rdb.UniversalClient
	prefix  string
	timeout time.Duration
}

// NewRedisStore creates a RedisStore for the given address.
// The connection is established lazily on first use.
func NewRedisStore(addr, prefix string, timeout time.Duration) *RedisStore {
	client := rdb.NewUniversalClient(&rdb.UniversalOptions{
		Addrs: []string{addr},
	})
	return newRedisStore(client, prefix, timeout)
}

func newRedisStore(client rdb.UniversalClient, prefix string, timeout time.Duration) *RedisStore {
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	return &RedisStore{client: client, prefix: prefix, timeout: timeout}
}

// Get returns the value for key.
func (r *RedisStore) Get(key string) (string, bool, error) {
	if err := validKey(key); err != nil {
		return "", false, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	v, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, rdb.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store: redis get %q: %w", key, err)
	}
	return v, true, nil
}

// Set replaces the value for key. Keys never expire in Redis; staleness is
// decided by the cache layer.
func (r *RedisStore) Set(key, value string) error {
	if err := validKey(key); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.client.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("store: redis set %q: %w", key, err)
	}
	return nil
}

// Remove deletes key.
func (r *RedisStore) Remove(key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("store: redis del %q: %w", key, err)
	}
	return nil
}

// Close closes the client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

var _ Store = (*RedisStore)(nil)
