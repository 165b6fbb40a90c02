package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix  = "catalink"
	redisOpTimeout  = 2 * time.Second
	redisScanBatch  = 200
	redisDefaultTTL = DefaultCacheTTL
)

// RedisStore keeps cache entries in Redis with native key expiry. It lets
// several server replicas share resolver answers.
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to addr and verifies the connection.
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		closeErr := client.Close()
		return nil, errors.Join(fmt.Errorf("failed to connect to redis cache at %s: %w", addr, err), closeErr)
	}

	return NewRedisStoreFromClient(client), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(tableName, key string) string {
	return redisKeyPrefix + ":" + tableName + ":" + key
}

// Get retrieves a cached value. Expiry is enforced by Redis, so ttl is only
// used to reject entries written with a longer lifetime than now configured.
func (r *RedisStore) Get(tableName, key string, ttl time.Duration) (string, bool, error) {
	if err := validateTableName(tableName); err != nil {
		return "", false, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	k := redisKey(tableName, key)
	data, err := r.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query redis cache: %w", err)
	}

	if ttl > 0 {
		remaining, err := r.client.TTL(ctx, k).Result()
		if err == nil && remaining > ttl {
			slog.Debug("Cache entry outlives configured TTL, refreshing", "table", tableName, "key", key)
			return "", false, nil
		}
	}

	return data, true, nil
}

// Set stores a value with the given expiry, or the default TTL when ttl is zero.
func (r *RedisStore) Set(tableName, key, data string, ttl time.Duration) error {
	if err := validateTableName(tableName); err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = configuredTTLOr(redisDefaultTTL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := r.client.Set(ctx, redisKey(tableName, key), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set redis cache: %w", err)
	}
	return nil
}

// InvalidateSource deletes every key belonging to tableName.
func (r *RedisStore) InvalidateSource(tableName string) (int64, error) {
	if err := validateTableName(tableName); err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*redisOpTimeout)
	defer cancel()

	var deleted int64
	pattern := redisKey(tableName, "*")
	iter := r.client.Scan(ctx, 0, pattern, redisScanBatch).Iterator()
	batch := make([]string, 0, redisScanBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := r.client.Del(ctx, batch...).Result()
		if err != nil {
			return err
		}
		deleted += n
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == redisScanBatch {
			if err := flush(); err != nil {
				return deleted, fmt.Errorf("failed to delete cache entries: %w", err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("failed to scan cache entries: %w", err)
	}
	if err := flush(); err != nil {
		return deleted, fmt.Errorf("failed to delete cache entries: %w", err)
	}

	slog.Debug("Cache table cleared", "table", tableName, "rows_deleted", deleted)
	return deleted, nil
}

// Close closes the Redis client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

func configuredTTLOr(fallback time.Duration) time.Duration {
	if ttl := configuredTTL(); ttl > 0 {
		return ttl
	}
	return fallback
}
