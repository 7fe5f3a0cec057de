package cache

import (
	"context"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/stores/redis"

	"beatai-api/pkg/game"
)

const lockPollInterval = 50 * time.Millisecond

// SettlementLocker is a game.Locker backed by a Redis SETNX lock.
type SettlementLocker struct {
	store  *redis.Redis
	expire int
	wait   time.Duration
}

var _ game.Locker = (*SettlementLocker)(nil)

// NewSettlementLocker holds each lock for at most the short TTL and waits up
// to wait for a busy lock.
func NewSettlementLocker(store *redis.Redis, ttl TTLSet, wait time.Duration) *SettlementLocker {
	expire := ttl.Seconds(TTLShort)
	if expire <= 0 {
		expire = 10
	}
	return &SettlementLocker{store: store, expire: expire, wait: wait}
}

// Lock acquires the settlement lock for gameID, polling until wait elapses.
func (l *SettlementLocker) Lock(ctx context.Context, gameID string) (func(), error) {
	lock := redis.NewRedisLock(l.store, SettlementLockKey(gameID))
	lock.SetExpire(l.expire)

	deadline := time.Now().Add(l.wait)
	for {
		ok, err := lock.AcquireCtx(ctx)
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				if _, err := lock.ReleaseCtx(context.WithoutCancel(ctx)); err != nil {
					logx.WithContext(ctx).Errorf("cache: release settlement lock game=%s err=%v", gameID, err)
				}
			}, nil
		}
		if !time.Now().Before(deadline) {
			return nil, game.ErrSettlementBusy
		}
		timer := time.NewTimer(lockPollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
