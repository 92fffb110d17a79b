package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mortza214/dating-bot-sub000/internal/config"
	"github.com/redis/go-redis/v9"
)

// BalanceTTL bounds how stale a cached balance may get before the next
// read falls through to the database.
const BalanceTTL = time.Hour

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

// KeyForBalance generates the Redis key for a user's wallet balance.
func (c *RedisCache) KeyForBalance(userID uint64) string {
	return fmt.Sprintf("wallet:balance:%d", userID)
}

// KeyForSuggestionCount generates the Redis key for how many suggestions
// a user has consumed (display only).
func (c *RedisCache) KeyForSuggestionCount(userID uint64) string {
	return fmt.Sprintf("suggestions:count:%d", userID)
}

// GetBalance returns the cached balance. The second result is false on a
// cache miss; callers must then read the database.
func (c *RedisCache) GetBalance(ctx context.Context, userID uint64) (int64, bool, error) {
	val, err := c.Client.Get(ctx, c.KeyForBalance(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil // cache miss
	} else if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, nil // unparsable value, treat as miss
	}
	return n, true, nil
}

// UpdateBalance refreshes the cached balance after a confirmed mutation
// or a database read. Always resets the TTL.
func (c *RedisCache) UpdateBalance(ctx context.Context, userID uint64, balance int64) error {
	return c.Client.Set(ctx, c.KeyForBalance(userID), strconv.FormatInt(balance, 10), BalanceTTL).Err()
}

// InvalidateBalance drops the cached balance. Used when a mutation's
// resulting balance is not known to the caller.
func (c *RedisCache) InvalidateBalance(ctx context.Context, userID uint64) error {
	return c.Client.Del(ctx, c.KeyForBalance(userID)).Err()
}

// IncrSuggestionCount bumps the per-user suggestion counter with a 24h
// TTL refresh.
func (c *RedisCache) IncrSuggestionCount(ctx context.Context, userID uint64) (int64, error) {
	key := c.KeyForSuggestionCount(userID)
	n, err := c.Client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	_ = c.Client.Expire(ctx, key, 24*time.Hour).Err()
	return n, nil
}
