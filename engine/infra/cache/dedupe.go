package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Deduper remembers processed update ids.
type Deduper interface {
	// Seen marks id as processed and reports whether it already was.
	Seen(ctx context.Context, id int64) (bool, error)
}

type RedisDeduper struct {
	client RedisInterface
	prefix string
	ttl    time.Duration
}

func NewRedisDeduper(client RedisInterface, prefix string, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, prefix: prefix, ttl: ttl}
}

func (d *RedisDeduper) Seen(ctx context.Context, id int64) (bool, error) {
	key := d.prefix + "update:" + strconv.FormatInt(id, 10)
	fresh, err := d.client.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedupe update %d: %w", id, err)
	}
	return !fresh, nil
}

// MemoryDeduper keeps recent ids in a bounded, expiring LRU.
type MemoryDeduper struct {
	mu  sync.Mutex
	lru *expirable.LRU[int64, struct{}]
}

func NewMemoryDeduper(capacity int, ttl time.Duration) *MemoryDeduper {
	return &MemoryDeduper{lru: expirable.NewLRU[int64, struct{}](capacity, nil, ttl)}
}

func (d *MemoryDeduper) Seen(_ context.Context, id int64) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lru.Contains(id) {
		return true, nil
	}
	d.lru.Add(id, struct{}{})
	return false, nil
}
