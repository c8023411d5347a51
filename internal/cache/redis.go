package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"ledgerly/internal/log"
)

// KeyPrefix namespaces every ledgerly key in a shared redis.
const KeyPrefix = "ledgerly:"

// RedisCache shares cached values between processes. Values are stored as
// JSON under prefix+key.
type RedisCache[T any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *log.Logger
}

var _ Cache[int] = (*RedisCache[int])(nil)

// NewRedisClient connects to addr, which may be a redis:// URL or host:port.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	if !strings.Contains(addr, "://") {
		addr = "redis://" + addr
	}
	opt, err := redis.ParseURL(addr)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

func NewRedisCache[T any](client *redis.Client, prefix string, ttl time.Duration, logger *log.Logger) *RedisCache[T] {
	if logger == nil {
		logger = log.Discard()
	}
	return &RedisCache[T]{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger.WithComponent(log.ComponentCache),
	}
}

func (c *RedisCache[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err == redis.Nil {
		return zero, false
	}
	if err != nil {
		c.logger.WarnContext(ctx, "Redis get failed", "key", key, log.FieldError, err)
		return zero, false
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		c.logger.WarnContext(ctx, "Dropping undecodable cache entry", "key", key, log.FieldError, err)
		c.Delete(ctx, key)
		return zero, false
	}
	return out, true
}

func (c *RedisCache[T]) Set(ctx context.Context, key string, data T) {
	raw, err := json.Marshal(data)
	if err != nil {
		c.logger.WarnContext(ctx, "Cache value not encodable", "key", key, log.FieldError, err)
		return
	}
	if err := c.client.SetEx(ctx, c.prefix+key, raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "Redis set failed", "key", key, log.FieldError, err)
	}
}

func (c *RedisCache[T]) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.prefix + k
	}
	if err := c.client.Del(ctx, full...).Err(); err != nil {
		c.logger.WarnContext(ctx, "Redis delete failed", "keys", keys, log.FieldError, err)
	}
}
