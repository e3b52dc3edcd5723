package search

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/seeker/config"
)

// RedisCache persists search rounds in Redis for a short TTL so repeated
// queries skip the providers entirely. All errors are swallowed: a dead
// Redis degrades to cold searches, never to failed requests.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

func NewRedisCache(cfg config.RedisConfig, ttl time.Duration, logger *log.Logger) *RedisCache {
	if logger == nil {
		logger = log.New(log.Writer(), "[CACHE] ", log.LstdFlags)
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Host + ":" + cfg.Port,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, query string) (Results, bool) {
	raw, err := c.client.Get(ctx, cacheKey(query)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Printf("cache get failed: %v", err)
		}
		return Results{}, false
	}
	var res Results
	if err := json.Unmarshal(raw, &res); err != nil {
		c.logger.Printf("cache entry corrupt, ignoring: %v", err)
		return Results{}, false
	}
	return res, true
}

func (c *RedisCache) Set(ctx context.Context, query string, res Results) {
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(query), raw, c.ttl).Err(); err != nil {
		c.logger.Printf("cache set failed: %v", err)
	}
}

func (c *RedisCache) Close() error { return c.client.Close() }

func cacheKey(query string) string {
	sum := sha1.Sum([]byte(strings.ToLower(strings.TrimSpace(query))))
	return "seeker:search:" + hex.EncodeToString(sum[:])
}
