package cache

import (
	"context"
	"fmt"

	"github.com/compozy/groupops/pkg/config"
	"github.com/compozy/groupops/pkg/logger"
)

// Cache bundles the coordination primitives of the service.
type Cache struct {
	Redis   *Redis
	JobLock JobLock
	Deduper Deduper
}

// SetupCache uses Redis when configured and in-process structures otherwise.
func SetupCache(ctx context.Context, cfg *config.RedisConfig) (*Cache, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cache config cannot be nil")
	}
	if cfg.URL == "" {
		logger.FromContext(ctx).Info("Redis not configured, using in-memory job locks and dedupe")
		return &Cache{
			JobLock: NewMemoryJobLock(),
			Deduper: NewMemoryDeduper(cfg.DedupeCapacity, cfg.DedupeTTL),
		}, nil
	}
	redis, err := NewRedis(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Cache{
		Redis:   redis,
		JobLock: NewRedisJobLock(redis, cfg.Prefix, cfg.JobLockTTL),
		Deduper: NewRedisDeduper(redis, cfg.Prefix, cfg.DedupeTTL),
	}, nil
}

// Close gracefully shuts down the cache
func (c *Cache) Close() error {
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			return fmt.Errorf("failed to close Redis: %w", err)
		}
	}
	return nil
}

// HealthCheck performs a health check on all cache components
func (c *Cache) HealthCheck(ctx context.Context) error {
	if c.Redis != nil {
		return c.Redis.HealthCheck(ctx)
	}
	return nil
}
