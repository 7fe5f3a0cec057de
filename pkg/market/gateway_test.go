package market

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name    string
	price   float64
	candles []Candle
	err     error
	delay   time.Duration
	calls   atomic.Int32
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) CurrentPrice(ctx context.Context, asset string) (float64, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return 0, f.err
	}
	return f.price, nil
}

func (f *fakeProvider) Candles(ctx context.Context, asset, interval string, limit int) ([]Candle, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.candles, nil
}

func TestGatewayFallsBackToSecondProvider(t *testing.T) {
	first := &fakeProvider{name: "primary", err: errors.New("http status 502")}
	second := &fakeProvider{name: "secondary", price: 101.5}
	third := &fakeProvider{name: "tertiary", price: 999}
	gw := NewGateway([]Provider{first, second, third})

	price, err := gw.GetCurrentPrice(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	require.Equal(t, 101.5, price)
	require.EqualValues(t, 1, first.calls.Load())
	require.EqualValues(t, 1, second.calls.Load())
	require.EqualValues(t, 0, third.calls.Load())
}

func TestGatewayAllProvidersFailed(t *testing.T) {
	gw := NewGateway([]Provider{
		&fakeProvider{name: "a", err: errors.New("boom")},
		&fakeProvider{name: "b", price: -1},
		&fakeProvider{name: "c", price: 0},
	})

	_, err := gw.GetCurrentPrice(context.Background(), "ETHUSDT")
	var all *AllProvidersFailedError
	require.True(t, errors.As(err, &all))
	require.Len(t, all.Failures, 3)
	require.Equal(t, "a", all.Failures[0].Provider)
	require.Contains(t, err.Error(), "all providers failed for price:ETHUSDT")
	require.Contains(t, err.Error(), "a: boom")
	require.Contains(t, err.Error(), "b: invalid price")
}

func TestGatewayRejectsEmptyCandles(t *testing.T) {
	empty := &fakeProvider{name: "empty"}
	good := &fakeProvider{name: "good", candles: []Candle{{OpenTime: 1, Close: 10}}}
	gw := NewGateway([]Provider{empty, good})

	candles, err := gw.GetKlines(context.Background(), "BTCUSDT", "1m", 10)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	require.EqualValues(t, 1, empty.calls.Load())
}

func TestGatewayAbandonsSlowProvider(t *testing.T) {
	slow := &fakeProvider{name: "slow", price: 1, delay: 200 * time.Millisecond}
	fast := &fakeProvider{name: "fast", price: 2}
	gw := NewGateway([]Provider{slow, fast}, WithCallTimeout(20*time.Millisecond))

	started := time.Now()
	price, err := gw.GetCurrentPrice(context.Background(), "SOLUSDT")
	require.NoError(t, err)
	require.Equal(t, 2.0, price)
	require.Less(t, time.Since(started), 150*time.Millisecond)
}

func TestGatewayStopsOnCancelledContext(t *testing.T) {
	p := &fakeProvider{name: "a", price: 1}
	gw := NewGateway([]Provider{p})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gw.GetCurrentPrice(ctx, "BTCUSDT")
	require.ErrorIs(t, err, context.Canceled)
	require.EqualValues(t, 0, p.calls.Load())
}

func TestGatewayNoProviders(t *testing.T) {
	_, err := NewGateway(nil).GetCurrentPrice(context.Background(), "BTCUSDT")
	var all *AllProvidersFailedError
	require.True(t, errors.As(err, &all))
}

func TestGetPriceAtTimePicksClosestOpenTime(t *testing.T) {
	candles := []Candle{
		{OpenTime: 60_000, Close: 1},
		{OpenTime: 120_000, Close: 2},
		{OpenTime: 180_000, Close: 3},
		{OpenTime: 240_000, Close: 4},
	}
	gw := NewGateway([]Provider{&fakeProvider{name: "a", candles: candles}})

	price, err := gw.GetPriceAtTime(context.Background(), "BTCUSDT", 170_000)
	require.NoError(t, err)
	require.Equal(t, 3.0, price)

	// Equidistant: the first candle in iteration order wins.
	price, err = gw.GetPriceAtTime(context.Background(), "BTCUSDT", 150_000)
	require.NoError(t, err)
	require.Equal(t, 2.0, price)
}

func TestClosestCandleEmpty(t *testing.T) {
	_, ok := ClosestCandle(nil, 10)
	require.False(t, ok)
}

func TestProviderNamesKeepOrder(t *testing.T) {
	gw := NewGateway([]Provider{&fakeProvider{name: "x"}, nil, &fakeProvider{name: "y"}})
	require.Equal(t, []string{"x", "y"}, gw.ProviderNames())
}
