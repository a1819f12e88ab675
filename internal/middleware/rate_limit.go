package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/redis/go-redis/v9"
)

// RateLimit creates a per-user rate limiter middleware instance. A nil storage
// keeps counters in process memory.
func RateLimit(identifier string, max int, window time.Duration, storage fiber.Storage) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Second
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		Storage:    storage,
		KeyGenerator: func(c *fiber.Ctx) string {
			userID := fmt.Sprintf("%v", c.Locals("user_id"))
			if userID == "" || userID == "0" || userID == "<nil>" {
				userID = c.IP()
			}
			return fmt.Sprintf("%s:%s", identifier, userID)
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"message": "too many requests",
			})
		},
	})
}

// RedisLimiterStorage shares limiter counters across API instances.
type RedisLimiterStorage struct {
	client *redis.Client
	prefix string
}

// NewRedisLimiterStorage wraps a redis client as fiber limiter storage.
func NewRedisLimiterStorage(client *redis.Client, prefix string) *RedisLimiterStorage {
	return &RedisLimiterStorage{client: client, prefix: prefix}
}

func (s *RedisLimiterStorage) key(k string) string {
	return s.prefix + ":ratelimit:" + k
}

// Get returns nil without error for unknown keys.
func (s *RedisLimiterStorage) Get(key string) ([]byte, error) {
	val, err := s.client.Get(context.Background(), s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return val, err
}

func (s *RedisLimiterStorage) Set(key string, val []byte, exp time.Duration) error {
	return s.client.Set(context.Background(), s.key(key), val, exp).Err()
}

func (s *RedisLimiterStorage) Delete(key string) error {
	return s.client.Del(context.Background(), s.key(key)).Err()
}

// Reset removes every limiter key under the prefix.
func (s *RedisLimiterStorage) Reset() error {
	ctx := context.Background()
	iter := s.client.Scan(ctx, 0, s.key("*"), 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Close is a no-op; the client is owned by the caller.
func (s *RedisLimiterStorage) Close() error {
	return nil
}
