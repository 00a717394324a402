package documents

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	DocumentLinkKey(digest string) string
}

// RedisCache stores resolved links in Redis under a digest of the path.
type RedisCache struct {
	store redisStore
}

// NewRedisCache wraps the shared Redis client.
func NewRedisCache(store redisStore) *RedisCache {
	return &RedisCache{store: store}
}

func (c *RedisCache) Get(ctx context.Context, ref string) (Link, bool, error) {
	raw, err := c.store.Get(ctx, c.key(ref))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Link{}, false, nil
		}
		return Link{}, false, err
	}
	var link Link
	if err := json.Unmarshal([]byte(raw), &link); err != nil {
		return Link{}, false, fmt.Errorf("decode cached link: %w", err)
	}
	return link, true, nil
}

func (c *RedisCache) Put(ctx context.Context, ref string, link Link, ttl time.Duration) error {
	payload, err := json.Marshal(link)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, c.key(ref), payload, ttl)
}

func (c *RedisCache) key(ref string) string {
	sum := sha256.Sum256([]byte(ref))
	return c.store.DocumentLinkKey(hex.EncodeToString(sum[:]))
}
