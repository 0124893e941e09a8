// Package redis caches recall results in Redis so hot persona lookups
// skip the database.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/onlymatt/gateway/internal/config"
	"github.com/onlymatt/gateway/internal/model"
	registrycache "github.com/onlymatt/gateway/internal/registry/cache"
	goredis "github.com/redis/go-redis/v9"
)

const defaultTTL = 10 * time.Minute

func init() {
	registrycache.Register(registrycache.Plugin{
		Name:   "redis",
		Loader: load,
	})
}

func load(ctx context.Context) (registrycache.RecallCache, error) {
	cfg := config.FromContext(ctx)
	if cfg == nil || cfg.RedisURL == "" {
		return nil, fmt.Errorf("redis cache: OM_GATEWAY_REDIS_URL is required")
	}
	ttl := cfg.RecallCacheTTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return LoadFromURL(ctx, cfg.RedisURL, ttl)
}

// LoadFromURL creates a RecallCache from a Redis-compatible URL. Exported
// so Redis-protocol-compatible backends can reuse the implementation.
func LoadFromURL(ctx context.Context, redisURL string, ttl time.Duration) (registrycache.RecallCache, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis cache: invalid URL: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis cache: ping failed: %w", err)
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &recallCache{client: client, ttl: ttl}, nil
}

type recallCache struct {
	client *goredis.Client
	ttl    time.Duration
}

func recallKey(userID, persona string) string {
	return fmt.Sprintf("om-recall:%s:%s", userID, persona)
}

func (c *recallCache) Available() bool {
	return true
}

func (c *recallCache) Get(ctx context.Context, userID, persona string) ([]model.Memory, bool, error) {
	data, err := c.client.Get(ctx, recallKey(userID, persona)).Bytes()
	if err == goredis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var memories []model.Memory
	if err := json.Unmarshal(data, &memories); err != nil {
		return nil, false, err
	}
	return memories, true, nil
}

func (c *recallCache) Set(ctx context.Context, userID, persona string, memories []model.Memory, ttl time.Duration) error {
	data, err := json.Marshal(memories)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	return c.client.Set(ctx, recallKey(userID, persona), data, ttl).Err()
}

func (c *recallCache) Remove(ctx context.Context, userID, persona string) error {
	return c.client.Del(ctx, recallKey(userID, persona)).Err()
}

var _ registrycache.RecallCache = (*recallCache)(nil)
