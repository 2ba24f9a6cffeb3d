package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "tailor:signed-url:"

// URLCache remembers signed URLs until shortly before they expire.
type URLCache struct {
	client *redis.Client
}

func NewURLCache(client *redis.Client) *URLCache {
	return &URLCache{client: client}
}

// Get reports whether a URL is cached for key.
func (c *URLCache) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.client.Get(ctx, keyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get cached url %s: %w", key, err)
	}

	return v, true, nil
}

func (c *URLCache) Set(ctx context.Context, key, url string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	if err := c.client.Set(ctx, keyPrefix+key, url, ttl).Err(); err != nil {
		return fmt.Errorf("cache url %s: %w", key, err)
	}

	return nil
}

func (c *URLCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
