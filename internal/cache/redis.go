package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/oggyb/ffm-club/internal/config"
	"github.com/redis/go-redis/v9"
)

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

func (c *RedisCache) Close() error {
	return c.Client.Close()
}

// KeyForUnreadCount generates Redis key for a user's unread message count.
func (c *RedisCache) KeyForUnreadCount(userID string) string {
	return fmt.Sprintf("unread:count:%s", userID)
}

// GetUnreadCount returns the cached count and whether it was present.
// A hit refreshes the TTL since the user is active.
func (c *RedisCache) GetUnreadCount(ctx context.Context, userID string, ttl time.Duration) (int64, bool, error) {
	return c.getCount(ctx, c.KeyForUnreadCount(userID), ttl)
}

func (c *RedisCache) SetUnreadCount(ctx context.Context, userID string, count int64, ttl time.Duration) error {
	return c.Client.Set(ctx, c.KeyForUnreadCount(userID), count, ttl).Err()
}

// InvalidateUnreadCount drops cached counts so the next read recomputes them.
func (c *RedisCache) InvalidateUnreadCount(ctx context.Context, userIDs ...string) error {
	return c.dropKeys(ctx, c.KeyForUnreadCount, userIDs)
}

// KeyForAdmirerCount generates Redis key for the number of one-way likes a
// user has received.
func (c *RedisCache) KeyForAdmirerCount(userID string) string {
	return fmt.Sprintf("admirers:count:%s", userID)
}

func (c *RedisCache) GetAdmirerCount(ctx context.Context, userID string, ttl time.Duration) (int64, bool, error) {
	return c.getCount(ctx, c.KeyForAdmirerCount(userID), ttl)
}

func (c *RedisCache) SetAdmirerCount(ctx context.Context, userID string, count int64, ttl time.Duration) error {
	return c.Client.Set(ctx, c.KeyForAdmirerCount(userID), count, ttl).Err()
}

// InvalidateAdmirerCount drops cached admirer counts. Both ends of a like
// edge need it: a like back turns an admirer into a match.
func (c *RedisCache) InvalidateAdmirerCount(ctx context.Context, userIDs ...string) error {
	return c.dropKeys(ctx, c.KeyForAdmirerCount, userIDs)
}

func (c *RedisCache) getCount(ctx context.Context, key string, ttl time.Duration) (int64, bool, error) {
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil // cache miss
	} else if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, nil // treat garbage as a miss
	}
	_ = c.Client.Expire(ctx, key, ttl).Err()
	return n, true, nil
}

func (c *RedisCache) dropKeys(ctx context.Context, keyFor func(string) string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, keyFor(id))
	}
	return c.Client.Del(ctx, keys...).Err()
}

func keyForRevokedToken(tokenID string) string {
	return fmt.Sprintf("auth:revoked:%s", tokenID)
}

// RevokeToken marks a token id as revoked until it would have expired anyway.
func (c *RedisCache) RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.Client.Set(ctx, keyForRevokedToken(tokenID), 1, ttl).Err()
}

func (c *RedisCache) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := c.Client.Exists(ctx, keyForRevokedToken(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func keyForResetToken(token string) string {
	return fmt.Sprintf("auth:reset:%s", token)
}

// PutResetToken stores a one-time password reset token for userID.
func (c *RedisCache) PutResetToken(ctx context.Context, token, userID string, ttl time.Duration) error {
	return c.Client.Set(ctx, keyForResetToken(token), userID, ttl).Err()
}

// TakeResetToken atomically reads and deletes a reset token.
// Returns "" when the token is unknown or already used.
func (c *RedisCache) TakeResetToken(ctx context.Context, token string) (string, error) {
	userID, err := c.Client.GetDel(ctx, keyForResetToken(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return userID, err
}
