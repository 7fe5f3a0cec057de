package signal

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/syncx"

	"beatai-api/pkg/market"
	"beatai-api/pkg/market/indicators"
	"beatai-api/pkg/timeframe"
)

// DefaultCandleLimit is the candle history fetched per computation.
const DefaultCandleLimit = 80

var cacheLookups = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "beatai_signal_cache_lookups_total",
		Help: "Signal cache lookups by result.",
	},
	[]string{"result"},
)

// KlineSource supplies candle history; *market.Gateway satisfies it.
type KlineSource interface {
	GetKlines(ctx context.Context, asset, interval string, limit int) ([]market.Candle, error)
}

type entry struct {
	value     Signal
	expiresAt time.Time
}

// Cache memoises signals per (asset, timeframe, bucket). Entries are immutable
// and live for twice the bucket width; expired entries are dropped on lookup
// and swept on every insert. Concurrent misses for one key share a single
// computation.
type Cache struct {
	source      KlineSource
	now         func() time.Time
	candleLimit int

	mu      sync.RWMutex
	entries map[string]entry
	flight  syncx.SingleFlight
}

// CacheOption customises a Cache.
type CacheOption func(*Cache)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithCandleLimit overrides DefaultCandleLimit.
func WithCandleLimit(limit int) CacheOption {
	return func(c *Cache) {
		if limit > 0 {
			c.candleLimit = limit
		}
	}
}

// NewCache constructs a signal cache over source.
func NewCache(source KlineSource, opts ...CacheOption) *Cache {
	c := &Cache{
		source:      source,
		now:         time.Now,
		candleLimit: DefaultCandleLimit,
		entries:     make(map[string]entry),
		flight:      syncx.NewSingleFlight(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BucketWidth is 2s for one-minute rounds, 3s for three-minute rounds and 5s
// otherwise.
func BucketWidth(tf string) (time.Duration, error) {
	d, err := timeframe.Duration(tf)
	if err != nil {
		return 0, err
	}
	switch d {
	case time.Minute:
		return 2 * time.Second, nil
	case 3 * time.Minute:
		return 3 * time.Second, nil
	default:
		return 5 * time.Second, nil
	}
}

// Key derives the cache key for a lookup at atMs.
func Key(asset, tf string, atMs int64) (string, error) {
	width, err := BucketWidth(tf)
	if err != nil {
		return "", err
	}
	bucket := width.Milliseconds()
	start := atMs / bucket * bucket
	if atMs < 0 && atMs%bucket != 0 {
		start -= bucket
	}
	return asset + ":" + tf + ":" + strconv.FormatInt(start, 10), nil
}

// GetSignal returns the signal for the bucket containing atMs, computing it on
// a miss. A hit returns the stored signal unchanged, signalAt included.
func (c *Cache) GetSignal(ctx context.Context, asset, tf string, atMs int64) (Signal, error) {
	key, err := Key(asset, tf, atMs)
	if err != nil {
		return Signal{}, err
	}
	if sig, ok := c.lookup(key); ok {
		cacheLookups.WithLabelValues("hit").Inc()
		return sig, nil
	}

	v, err := c.flight.Do(key, func() (any, error) {
		if sig, ok := c.lookup(key); ok {
			return sig, nil
		}
		// Joined callers share this result, so one caller going away must
		// not cancel it for the rest.
		return c.compute(context.WithoutCancel(ctx), key, asset, tf)
	})
	if err != nil {
		cacheLookups.WithLabelValues("error").Inc()
		return Signal{}, err
	}
	cacheLookups.WithLabelValues("miss").Inc()
	return v.(Signal), nil
}

// Warm computes and caches the signal for the current bucket without handing
// it to the caller.
func (c *Cache) Warm(ctx context.Context, asset, tf string) error {
	_, err := c.GetSignal(ctx, asset, tf, c.now().UnixMilli())
	if err != nil {
		logx.WithContext(ctx).Errorf("signal: warm failed asset=%s timeframe=%s err=%v", asset, tf, err)
	}
	return err
}

// Len reports the number of live entries.
func (c *Cache) Len() int {
	now := c.now()
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, e := range c.entries {
		if now.Before(e.expiresAt) {
			n++
		}
	}
	return n
}

func (c *Cache) lookup(key string) (Signal, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return Signal{}, false
	}
	if !c.now().Before(e.expiresAt) {
		c.mu.Lock()
		if cur, ok := c.entries[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return Signal{}, false
	}
	return e.value, true
}

func (c *Cache) compute(ctx context.Context, key, asset, tf string) (Signal, error) {
	if c.source == nil {
		return Signal{}, errors.New("signal: no kline source configured")
	}
	interval, err := timeframe.CandleInterval(tf)
	if err != nil {
		return Signal{}, err
	}
	width, err := BucketWidth(tf)
	if err != nil {
		return Signal{}, err
	}
	candles, err := c.source.GetKlines(ctx, asset, interval, c.candleLimit)
	if err != nil {
		return Signal{}, fmt.Errorf("signal: klines for %s %s: %w", asset, tf, err)
	}

	verdict := Build(indicators.Compute(candles))
	now := c.now()
	sig := Signal{
		Prediction: verdict.Prediction,
		Confidence: verdict.Confidence,
		Reasoning:  verdict.Reasoning,
		SignalAt:   now.UTC(),
		Version:    Version,
	}

	c.mu.Lock()
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = entry{value: sig, expiresAt: now.Add(2 * width)}
	c.mu.Unlock()
	return sig, nil
}
