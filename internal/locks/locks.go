package locks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/fulfillment-backend/pkg/errors"
	"github.com/angelmondragon/fulfillment-backend/pkg/logger"
)

const (
	defaultTTL        = 30 * time.Second
	defaultRetryLimit = 5
	defaultRetryDelay = 100 * time.Millisecond
)

// OrderLocker runs fn while holding the advisory lock for orderID.
type OrderLocker interface {
	WithOrderLock(ctx context.Context, orderID uuid.UUID, fn func(ctx context.Context) error) error
}

// NoopLocker relies on the database row lock alone.
type NoopLocker struct{}

func (NoopLocker) WithOrderLock(ctx context.Context, _ uuid.UUID, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type releaser interface {
	Release(ctx context.Context) error
}

type obtainFunc func(ctx context.Context, key string) (releaser, error)

type keyBuilder interface {
	LockKey(parts ...string) string
}

// RedisParams configures a RedisOrderLocker.
type RedisParams struct {
	Client     redislock.RedisClient
	Keys       keyBuilder
	Logger     *logger.Logger
	TTL        time.Duration
	RetryLimit int
	RetryDelay time.Duration
}

// RedisOrderLocker takes the advisory lock in Redis via redislock.
type RedisOrderLocker struct {
	obtain obtainFunc
	keys   keyBuilder
	logg   *logger.Logger
}

// NewRedisOrderLocker builds a Redis-backed order locker.
func NewRedisOrderLocker(params RedisParams) (*RedisOrderLocker, error) {
	if params.Client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if params.Keys == nil {
		return nil, fmt.Errorf("lock key builder required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	limit := params.RetryLimit
	if limit <= 0 {
		limit = defaultRetryLimit
	}
	delay := params.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	client := redislock.New(params.Client)
	opts := &redislock.Options{RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(delay), limit)}
	return &RedisOrderLocker{
		obtain: func(ctx context.Context, key string) (releaser, error) {
			lock, err := client.Obtain(ctx, key, ttl, opts)
			if err != nil {
				return nil, err
			}
			return lock, nil
		},
		keys: params.Keys,
		logg: params.Logger,
	}, nil
}

func (l *RedisOrderLocker) WithOrderLock(ctx context.Context, orderID uuid.UUID, fn func(ctx context.Context) error) error {
	key := l.keys.LockKey("order", orderID.String())
	lock, err := l.obtain(ctx, key)
	if errors.Is(err, redislock.ErrNotObtained) {
		return pkgerrors.Rejected(pkgerrors.ReasonOrderBusy, "order is being updated by another request; retry shortly")
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "obtain order lock")
	}
	defer func() {
		if relErr := lock.Release(context.WithoutCancel(ctx)); relErr != nil && !errors.Is(relErr, redislock.ErrLockNotHeld) {
			if l.logg != nil {
				l.logg.Error(l.logg.WithField(ctx, "order_id", orderID.String()), "failed to release order lock", relErr)
			}
		}
	}()
	return fn(ctx)
}
