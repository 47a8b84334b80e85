package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
)

const defaultLockTTL = 25 * time.Hour

// Lock coordinates exclusive cron runs across worker replicas.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type heldLock interface {
	Release(ctx context.Context) error
}

type obtainer func(ctx context.Context, key string, ttl time.Duration) (heldLock, error)

// RedisLock holds a single redislock key for the length of one cycle.
type RedisLock struct {
	obtain obtainer
	key    string
	ttl    time.Duration
	held   heldLock
}

// NewRedisLock builds a cycle lock on key. A non-positive ttl falls back to
// a day and an hour so a crashed worker cannot wedge the next day's cycle.
func NewRedisLock(client redislock.RedisClient, key string, ttl time.Duration) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	locker := redislock.New(client)
	return newRedisLock(func(ctx context.Context, key string, ttl time.Duration) (heldLock, error) {
		lock, err := locker.Obtain(ctx, key, ttl, nil)
		if err != nil {
			return nil, err
		}
		return lock, nil
	}, key, ttl)
}

func newRedisLock(obtain obtainer, key string, ttl time.Duration) (*RedisLock, error) {
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{obtain: obtain, key: key, ttl: ttl}, nil
}

// Acquire reports false without error when another worker holds the key.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	lock, err := l.obtain(ctx, l.key, l.ttl)
	if errors.Is(err, redislock.ErrNotObtained) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("obtain cron lock: %w", err)
	}
	l.held = lock
	return true, nil
}

// Release frees the key if this worker still owns it.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.held == nil {
		return nil
	}
	err := l.held.Release(ctx)
	l.held = nil
	if err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
		return fmt.Errorf("release cron lock: %w", err)
	}
	return nil
}
