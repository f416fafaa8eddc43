package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/ksuid"
)

// JobLock guarantees at most one batch job per operator.
type JobLock interface {
	Acquire(ctx context.Context, operatorID int64) (Lock, error)
}

// Lock represents an acquired job slot.
type Lock interface {
	Release(ctx context.Context) error
}

// releaseScript deletes the key only while it still holds our token.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// RedisJobLock stores locks as SET NX PX keys holding a random token.
type RedisJobLock struct {
	client RedisInterface
	prefix string
	ttl    time.Duration
}

func NewRedisJobLock(client RedisInterface, prefix string, ttl time.Duration) *RedisJobLock {
	return &RedisJobLock{client: client, prefix: prefix, ttl: ttl}
}

func (l *RedisJobLock) key(operatorID int64) string {
	return l.prefix + "job:" + strconv.FormatInt(operatorID, 10)
}

func (l *RedisJobLock) Acquire(ctx context.Context, operatorID int64) (Lock, error) {
	key := l.key(operatorID)
	token := ksuid.New().String()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire job lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrJobRunning
	}
	return &redisLock{client: l.client, key: key, token: token}, nil
}

type redisLock struct {
	client RedisInterface
	key    string
	token  string
}

func (l *redisLock) Release(ctx context.Context) error {
	n, err := l.client.Eval(ctx, releaseScript, []string{l.key}, l.token).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release job lock %s: %w", l.key, err)
	}
	if n == 0 {
		return ErrLockLost
	}
	return nil
}

// MemoryJobLock is the single-process JobLock.
type MemoryJobLock struct {
	mu   sync.Mutex
	held map[int64]string
}

func NewMemoryJobLock() *MemoryJobLock {
	return &MemoryJobLock{held: make(map[int64]string)}
}

func (l *MemoryJobLock) Acquire(_ context.Context, operatorID int64) (Lock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[operatorID]; ok {
		return nil, ErrJobRunning
	}
	token := ksuid.New().String()
	l.held[operatorID] = token
	return &memoryLock{owner: l, operatorID: operatorID, token: token}, nil
}

type memoryLock struct {
	owner      *MemoryJobLock
	operatorID int64
	token      string
}

func (l *memoryLock) Release(_ context.Context) error {
	l.owner.mu.Lock()
	defer l.owner.mu.Unlock()
	if l.owner.held[l.operatorID] != l.token {
		return ErrLockLost
	}
	delete(l.owner.held, l.operatorID)
	return nil
}
