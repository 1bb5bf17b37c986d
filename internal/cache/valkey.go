package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ValkeyCache implements Cache using a Valkey server over the Redis
// protocol.
type ValkeyCache struct {
	client *redis.Client
	config *Config
}

// NewValkeyCache creates a new Valkey cache instance and verifies
// connectivity.
func NewValkeyCache(config *Config) (*ValkeyCache, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	client := redis.NewClient(&redis.Options{
		Addr:            config.Address(),
		Password:        config.Password,
		DB:              config.DB,
		MaxRetries:      config.MaxRetries,
		MinRetryBackoff: config.MinRetryBackoff,
		MaxRetryBackoff: config.MaxRetryBackoff,
		DialTimeout:     config.DialTimeout,
		ReadTimeout:     config.ReadTimeout,
		WriteTimeout:    config.WriteTimeout,
		PoolSize:        config.PoolSize,
		MinIdleConns:    config.MinIdleConns,
		ConnMaxIdleTime: config.MaxIdleTime,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	return &ValkeyCache{
		client: client,
		config: config,
	}, nil
}

// Get retrieves a value from the cache
func (v *ValkeyCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := v.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrKeyNotFound
		}
		return nil, NewCacheError("failed to get key", true).WithError(err)
	}
	return val, nil
}

// Set stores a value in the cache with optional TTL
func (v *ValkeyCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = v.config.DefaultTTL
	}

	if err := v.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return NewCacheError("failed to set key", true).WithError(err)
	}
	return nil
}

// Delete removes a value from the cache. Deleting an absent key is not
// an error; invalidation must be idempotent.
func (v *ValkeyCache) Delete(ctx context.Context, key string) error {
	if err := v.client.Del(ctx, key).Err(); err != nil {
		return NewCacheError("failed to delete key", true).WithError(err)
	}
	return nil
}

// Ping checks if the cache is healthy
func (v *ValkeyCache) Ping(ctx context.Context) error {
	if err := v.client.Ping(ctx).Err(); err != nil {
		return NewCacheError("ping failed", false).WithError(err)
	}
	return nil
}

// Close closes the cache connection
func (v *ValkeyCache) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}

// Stats returns connection pool stats
func (v *ValkeyCache) Stats() *redis.PoolStats {
	if v.client != nil {
		return v.client.PoolStats()
	}
	return nil
}
