// cache — lookaside-кэш отозванных токенов поверх Redis.
//
// Кэш хранит только положительные записи («токен отозван») с TTL до
// естественного истечения токена. Промах кэша ничего не значит — истина
// всегда в хранилище; поэтому потеря Redis деградирует в лишние походы
// в БД, но не в пропуск отзыва.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationCache — минимальный контракт кэша отозванных токенов.
type RevocationCache interface {
	// Contains сообщает, есть ли ключ в кэше.
	Contains(ctx context.Context, key string) (bool, error)
	// Set помечает ключ отозванным с TTL (обычно expiry-now).
	Set(ctx context.Context, key string, ttl time.Duration) error
	// Close закрывает клиент Redis.
	Close() error
}

type redisCache struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisCache создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "accounts:bl:".
func NewRedisCache(redisURL, prefix string) (RevocationCache, error) {
	if prefix == "" {
		prefix = "accounts:bl:"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return &redisCache{rdb: rdb, prefix: prefix}, nil
}

func (c *redisCache) key(k string) string { return c.prefix + k }

func (c *redisCache) Contains(ctx context.Context, key string) (bool, error) {
	n, err := c.rdb.Exists(ctx, c.key(key)).Result()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

func (c *redisCache) Set(ctx context.Context, key string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	return c.rdb.Set(ctx, c.key(key), 1, ttl).Err()
}

func (c *redisCache) Close() error {
	return c.rdb.Close()
}
