package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bsm/redislock"
)

type fakeHeldLock struct {
	released int
	err      error
}

func (f *fakeHeldLock) Release(context.Context) error {
	f.released++
	return f.err
}

func TestRedisLockAcquireAndRelease(t *testing.T) {
	held := &fakeHeldLock{}
	var gotKey string
	var gotTTL time.Duration
	lock, err := newRedisLock(func(_ context.Context, key string, ttl time.Duration) (heldLock, error) {
		gotKey, gotTTL = key, ttl
		return held, nil
	}, "ff:cron-worker:lock:test", 0)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}

	ok, err := lock.Acquire(context.Background())
	if err != nil || !ok {
		t.Fatalf("expected lock acquired, got ok=%v err=%v", ok, err)
	}
	if gotKey != "ff:cron-worker:lock:test" || gotTTL != defaultLockTTL {
		t.Fatalf("unexpected obtain args key=%q ttl=%v", gotKey, gotTTL)
	}
	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("second release: %v", err)
	}
	if held.released != 1 {
		t.Fatalf("expected one release, got %d", held.released)
	}
}

func TestRedisLockHeldElsewhere(t *testing.T) {
	lock, err := newRedisLock(func(context.Context, string, time.Duration) (heldLock, error) {
		return nil, redislock.ErrNotObtained
	}, "key", time.Minute)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	ok, err := lock.Acquire(context.Background())
	if err != nil || ok {
		t.Fatalf("expected ok=false err=nil, got ok=%v err=%v", ok, err)
	}
}

func TestRedisLockSurfacesRedisErrors(t *testing.T) {
	lock, err := newRedisLock(func(context.Context, string, time.Duration) (heldLock, error) {
		return nil, errors.New("connection refused")
	}, "key", time.Minute)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	if _, err := lock.Acquire(context.Background()); err == nil {
		t.Fatal("expected acquire error")
	}
}

func TestRedisLockIgnoresExpiredOwnership(t *testing.T) {
	lock, err := newRedisLock(func(context.Context, string, time.Duration) (heldLock, error) {
		return &fakeHeldLock{err: redislock.ErrLockNotHeld}, nil
	}, "key", time.Minute)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	if _, err := lock.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("expected expired lock release to be ignored, got %v", err)
	}
}

func TestNewRedisLockRequiresClientAndKey(t *testing.T) {
	if _, err := NewRedisLock(nil, "key", 0); err == nil {
		t.Fatal("expected nil client error")
	}
	if _, err := newRedisLock(nil, "", 0); err == nil {
		t.Fatal("expected empty key error")
	}
}
