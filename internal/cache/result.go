package cache

import (
	"context"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeromicro/go-zero/core/logx"

	"beatai-api/pkg/game"
)

// KV is the subset of *redis.Redis used for result snapshots.
type KV interface {
	GetCtx(ctx context.Context, key string) (string, error)
	SetexCtx(ctx context.Context, key, value string, seconds int) error
}

// ResultCache stores completed game results as msgpack blobs.
type ResultCache struct {
	store   KV
	seconds int
}

var _ game.ResultCache = (*ResultCache)(nil)

// NewResultCache keeps snapshots for the long TTL.
func NewResultCache(store KV, ttl TTLSet) *ResultCache {
	return &ResultCache{store: store, seconds: ttl.Seconds(TTLLong)}
}

func (c *ResultCache) Get(ctx context.Context, gameID string) (*game.GameResult, bool) {
	raw, err := c.store.GetCtx(ctx, GameResultKey(gameID))
	if err != nil {
		logx.WithContext(ctx).Errorf("cache: get result game=%s err=%v", gameID, err)
		return nil, false
	}
	if raw == "" {
		return nil, false
	}
	var res game.GameResult
	if err := msgpack.Unmarshal([]byte(raw), &res); err != nil {
		logx.WithContext(ctx).Errorf("cache: decode result game=%s err=%v", gameID, err)
		return nil, false
	}
	return &res, true
}

func (c *ResultCache) Put(ctx context.Context, res *game.GameResult) {
	if res == nil || c.seconds <= 0 {
		return
	}
	data, err := msgpack.Marshal(res)
	if err != nil {
		logx.WithContext(ctx).Errorf("cache: encode result game=%s err=%v", res.GameID, err)
		return
	}
	if err := c.store.SetexCtx(ctx, GameResultKey(res.GameID), string(data), c.seconds); err != nil {
		logx.WithContext(ctx).Errorf("cache: put result game=%s err=%v", res.GameID, err)
	}
}
