package market

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
)

const (
	defaultCallTimeout = 8 * time.Second

	// priceAtTimeInterval and priceAtTimeLimit bound the candle window used to
	// approximate a historical price.
	priceAtTimeInterval = "1m"
	priceAtTimeLimit    = 6
)

// Gateway queries an ordered provider list, returning the first success.
// Providers are tried sequentially; order encodes trust and cost priority.
type Gateway struct {
	providers []Provider
	timeout   time.Duration
}

// GatewayOption customises a Gateway.
type GatewayOption func(*Gateway)

// WithCallTimeout bounds every individual provider call.
func WithCallTimeout(timeout time.Duration) GatewayOption {
	return func(g *Gateway) {
		if timeout > 0 {
			g.timeout = timeout
		}
	}
}

// NewGateway constructs a gateway over providers in priority order.
func NewGateway(providers []Provider, opts ...GatewayOption) *Gateway {
	ordered := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			ordered = append(ordered, p)
		}
	}
	g := &Gateway{providers: ordered, timeout: defaultCallTimeout}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ProviderNames lists providers in the order they are tried.
func (g *Gateway) ProviderNames() []string {
	names := make([]string, len(g.providers))
	for i, p := range g.providers {
		names[i] = p.Name()
	}
	return names
}

// GetCurrentPrice returns the first provider's valid price for asset.
func (g *Gateway) GetCurrentPrice(ctx context.Context, asset string) (float64, error) {
	return firstSuccess(ctx, g, "price:"+asset, "price", func(ctx context.Context, p Provider) (float64, error) {
		price, err := p.CurrentPrice(ctx, asset)
		if err != nil {
			return 0, err
		}
		if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
			return 0, Failf(p.Name(), "invalid price %v for %s", price, asset)
		}
		return price, nil
	})
}

// GetKlines returns the first provider's non-empty candle series. Results from
// different providers are never merged.
func (g *Gateway) GetKlines(ctx context.Context, asset, interval string, limit int) ([]Candle, error) {
	label := fmt.Sprintf("klines:%s:%s", asset, interval)
	return firstSuccess(ctx, g, label, "klines", func(ctx context.Context, p Provider) ([]Candle, error) {
		candles, err := p.Candles(ctx, asset, interval, limit)
		if err != nil {
			return nil, err
		}
		if len(candles) == 0 {
			return nil, Failf(p.Name(), "empty candle response for %s %s", asset, interval)
		}
		return candles, nil
	})
}

// GetPriceAtTime approximates the price at ts (unix ms) with the close of the
// 1m candle whose open time is nearest to ts. The result is a best available
// reference, not an exact historical print.
func (g *Gateway) GetPriceAtTime(ctx context.Context, asset string, ts int64) (float64, error) {
	candles, err := g.GetKlines(ctx, asset, priceAtTimeInterval, priceAtTimeLimit)
	if err != nil {
		return 0, err
	}
	closest, ok := ClosestCandle(candles, ts)
	if !ok {
		return 0, fmt.Errorf("market: no candle data for %s at %d", asset, ts)
	}
	return closest.Close, nil
}

// ClosestCandle selects the candle whose OpenTime is nearest ts; ties keep the
// earliest candle in iteration order.
func ClosestCandle(candles []Candle, ts int64) (Candle, bool) {
	if len(candles) == 0 {
		return Candle{}, false
	}
	best := candles[0]
	bestDiff := absInt64(best.OpenTime - ts)
	for _, c := range candles[1:] {
		if diff := absInt64(c.OpenTime - ts); diff < bestDiff {
			best, bestDiff = c, diff
		}
	}
	return best, true
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

type callResult[T any] struct {
	value T
	err   error
}

func firstSuccess[T any](ctx context.Context, g *Gateway, label, op string, call func(context.Context, Provider) (T, error)) (T, error) {
	var zero T
	if ctx == nil {
		ctx = context.Background()
	}
	failures := make([]*ProviderError, 0, len(g.providers))
	for _, p := range g.providers {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		started := time.Now()
		value, err := invoke(ctx, g.timeout, p, call)
		observeProvider(p.Name(), op, time.Since(started).Seconds(), err)
		if err == nil {
			return value, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		pe := NewProviderError(p.Name(), err)
		failures = append(failures, pe)
		logx.WithContext(ctx).Infof("market: provider failed label=%s provider=%s err=%s", label, p.Name(), pe.Reason)
	}
	if len(failures) == 0 {
		failures = append(failures, Failf("gateway", "no providers configured"))
	}
	return zero, &AllProvidersFailedError{Label: label, Failures: failures}
}

// invoke runs one provider call under the gateway timeout. A call that outlives
// its deadline is abandoned and its eventual result discarded.
func invoke[T any](ctx context.Context, timeout time.Duration, p Provider, call func(context.Context, Provider) (T, error)) (T, error) {
	var zero T
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan callResult[T], 1)
	go func() {
		v, err := call(callCtx, p)
		done <- callResult[T]{value: v, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil && errors.Is(res.err, context.DeadlineExceeded) {
			return zero, Failf(p.Name(), "timeout after %s", timeout)
		}
		return res.value, res.err
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, Failf(p.Name(), "timeout after %s", timeout)
	}
}
