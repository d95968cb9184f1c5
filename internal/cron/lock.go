package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultLockTTL = 10 * time.Minute

// Locker hands out per-job leases so only one worker runs a job at a time.
type Locker interface {
	Acquire(ctx context.Context, job string) (*Lease, error)
}

type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	LockKey(name string) string
}

// RedisLocker implements Locker with SETNX plus TTL on cron:<job> keys.
type RedisLocker struct {
	store redisStore
	ttl   time.Duration
}

func NewRedisLocker(store redisStore, ttl time.Duration) (*RedisLocker, error) {
	if store == nil {
		return nil, errors.New("redis client required for lock")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLocker{store: store, ttl: ttl}, nil
}

// Acquire returns a nil lease when another worker holds the job.
func (l *RedisLocker) Acquire(ctx context.Context, job string) (*Lease, error) {
	if job == "" {
		return nil, errors.New("job name is required")
	}
	key := l.store.LockKey("cron:" + job)
	owner := uuid.NewString()
	ok, err := l.store.SetNX(ctx, key, owner, l.ttl)
	if err != nil {
		return nil, fmt.Errorf("setnx %s: %w", key, err)
	}
	if !ok {
		return nil, nil
	}
	return &Lease{store: l.store, key: key, owner: owner}, nil
}

// Lease is a held job lock.
type Lease struct {
	store redisStore
	key   string
	owner string
}

// Release frees the lock only if this lease still owns it.
func (l *Lease) Release(ctx context.Context) error {
	if l == nil || l.owner == "" {
		return nil
	}
	value, err := l.store.Get(ctx, l.key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			l.owner = ""
			return nil
		}
		return fmt.Errorf("read lock owner: %w", err)
	}
	if value != l.owner {
		l.owner = ""
		return nil
	}
	if err := l.store.Del(ctx, l.key); err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	l.owner = ""
	return nil
}
