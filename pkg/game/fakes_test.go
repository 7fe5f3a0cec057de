package game_test

import (
	"context"
	"sync"
	"time"

	"beatai-api/pkg/market"
	"beatai-api/pkg/scoring"
	"beatai-api/pkg/signal"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(t time.Time) *clock { return &clock{now: t} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeMarket serves fixed prices. failures[asset] makes the next N price
// calls for asset fail with an AllProvidersFailedError.
type fakeMarket struct {
	mu         sync.Mutex
	prices     map[string]float64
	endPrices  map[string]float64
	failures   map[string]int
	failAtTime bool

	priceCalls  map[string]int
	klineLimits []int
	atTimeCalls []int64
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{
		prices:     map[string]float64{},
		endPrices:  map[string]float64{},
		failures:   map[string]int{},
		priceCalls: map[string]int{},
	}
}

func unavailable(label string) error {
	return &market.AllProvidersFailedError{
		Label:    label,
		Failures: []*market.ProviderError{market.Failf("fake", "down")},
	}
}

func (m *fakeMarket) GetCurrentPrice(_ context.Context, asset string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.priceCalls[asset]++
	if m.failures[asset] > 0 {
		m.failures[asset]--
		return 0, unavailable("price:" + asset)
	}
	if p, ok := m.prices[asset]; ok {
		return p, nil
	}
	return 100, nil
}

func (m *fakeMarket) GetKlines(_ context.Context, asset, interval string, limit int) ([]market.Candle, error) {
	m.mu.Lock()
	m.klineLimits = append(m.klineLimits, limit)
	m.mu.Unlock()
	out := make([]market.Candle, limit)
	for i := range out {
		out[i] = market.Candle{OpenTime: int64(i) * 60_000, Open: 1, High: 2, Low: 0.5, Close: float64(i + 1), Volume: 10}
	}
	return out, nil
}

func (m *fakeMarket) GetPriceAtTime(_ context.Context, asset string, ts int64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.atTimeCalls = append(m.atTimeCalls, ts)
	if m.failAtTime {
		return 0, unavailable("klines:" + asset + ":1m")
	}
	if p, ok := m.endPrices[asset]; ok {
		return p, nil
	}
	return 100, nil
}

func (m *fakeMarket) setPrice(asset string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[asset] = price
}

func (m *fakeMarket) atTimes() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.atTimeCalls...)
}

// fakeSignals always predicts DOWN with signalAt equal to the requested instant.
type fakeSignals struct {
	mu     sync.Mutex
	frozen []int64
	warmed []string
	err    error
}

func (f *fakeSignals) GetSignal(_ context.Context, asset, tf string, atMs int64) (signal.Signal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return signal.Signal{}, f.err
	}
	f.frozen = append(f.frozen, atMs)
	return signal.Signal{
		Prediction: scoring.Down,
		Confidence: 72,
		Reasoning:  "bearish on " + asset,
		SignalAt:   time.UnixMilli(atMs).UTC(),
		Version:    signal.Version,
	}, nil
}

func (f *fakeSignals) Warm(_ context.Context, asset, tf string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.warmed = append(f.warmed, asset+":"+tf)
	return nil
}
