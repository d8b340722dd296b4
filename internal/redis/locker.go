package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	rsgoredis "github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredis "github.com/redis/go-redis/v9"

	"go.uber.org/zap"

	"storefront-support/internal/lock"
	"storefront-support/pkg/logger"
)

const (
	lockKeyPrefix  = "lock:" // Keeps lock keys apart from the data they guard
	lockRetryDelay = 50 * time.Millisecond
)

// Locker serializes work on a key across API instances. A held lock is
// extended in the background until released, so a holder may outlive expiry.
type Locker struct {
	rs     *redsync.Redsync
	expiry time.Duration
	tries  int
}

var _ lock.Locker = (*Locker)(nil)

// NewLocker builds a Locker whose waiters keep retrying for up to wait,
// or until their context is done, whichever comes first.
func NewLocker(client *goredis.Client, expiry, wait time.Duration) *Locker {
	if expiry <= 0 {
		expiry = 10 * time.Second
	}
	if wait <= 0 {
		wait = expiry
	}
	return &Locker{
		rs:     redsync.New(rsgoredis.NewPool(client)),
		expiry: expiry,
		tries:  int(wait/lockRetryDelay) + 1,
	}
}

func (l *Locker) Acquire(ctx context.Context, key string) (func(), error) {
	mutex := l.rs.NewMutex(lockKeyPrefix+key,
		redsync.WithExpiry(l.expiry),
		redsync.WithTries(l.tries),
		redsync.WithRetryDelay(lockRetryDelay),
	)
	if err := mutex.LockContext(ctx); err != nil {
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(ctx, mutex, key, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			// Unlock must run even if the request context is gone.
			if _, err := mutex.UnlockContext(context.Background()); err != nil {
				logger.GetGlobalLogger().WarnCtx(ctx, "lock release failed", zap.String("key", key), zap.Error(err))
			}
		})
	}, nil
}

func (l *Locker) keepAlive(ctx context.Context, mutex *redsync.Mutex, key string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(l.expiry / 3)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if _, err := mutex.ExtendContext(context.Background()); err != nil {
				logger.GetGlobalLogger().WarnCtx(ctx, "lock extend failed", zap.String("key", key), zap.Error(err))
			}
		}
	}
}
