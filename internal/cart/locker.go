package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/shoplane/storefront-backend/pkg/errors"
	"github.com/shoplane/storefront-backend/pkg/redis"
)

// Locker serializes mutations per cart session. Every item or coupon change
// runs inside the lock so concurrent read-modify-write cycles on the same
// cart cannot lose updates.
type Locker interface {
	// Acquire blocks until the session lock is held or the wait window
	// elapses. The returned release function is safe to call exactly once.
	Acquire(ctx context.Context, sessionID string) (release func(), err error)
}

// RedisLocker implements Locker with a SetNX lease. The lock value is a
// random token checked on release so an expired holder cannot free a lock
// someone else now owns.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
	wait   time.Duration
}

// NewRedisLocker builds the production locker.
func NewRedisLocker(client *redis.Client, ttl, retry, wait time.Duration) (*RedisLocker, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if retry <= 0 {
		retry = 25 * time.Millisecond
	}
	if wait <= 0 {
		wait = 2 * time.Second
	}
	return &RedisLocker{client: client, ttl: ttl, retry: retry, wait: wait}, nil
}

func (l *RedisLocker) Acquire(ctx context.Context, sessionID string) (func(), error) {
	key := l.client.CartLockKey(sessionID)
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis: acquire cart lock")
		}
		if ok {
			release := func() {
				releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_, _ = l.client.CompareAndDel(releaseCtx, key, token)
			}
			return release, nil
		}

		if time.Now().After(deadline) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart is busy, try again")
		}
		select {
		case <-ctx.Done():
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, ctx.Err(), "cart lock wait canceled")
		case <-time.After(l.retry):
		}
	}
}

// MemoryLocker is the in-process Locker used by tests and sqlite/dev mode.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewMemoryLocker builds an in-process locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: map[string]*sync.Mutex{}}
}

func (l *MemoryLocker) Acquire(_ context.Context, sessionID string) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[sessionID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[sessionID] = m
	}
	l.mu.Unlock()

	m.Lock()
	var once sync.Once
	return func() {
		once.Do(m.Unlock)
	}, nil
}
