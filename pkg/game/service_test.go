package game_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beatai-api/internal/store/memory"
	"beatai-api/pkg/game"
	"beatai-api/pkg/market"
	"beatai-api/pkg/scoring"
	"beatai-api/pkg/settlement"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 500_000_000, time.UTC)

type harness struct {
	clock   *clock
	market  *fakeMarket
	signals *fakeSignals
	store   *memory.Store
	svc     *game.Service
}

func newHarness(opts ...game.ServiceOption) *harness {
	h := &harness{
		clock:   newClock(t0),
		market:  newFakeMarket(),
		signals: &fakeSignals{},
		store:   memory.New(),
	}
	engine := game.NewEngine(h.market, h.signals, game.WithClock(h.clock.Now))
	base := []game.ServiceOption{
		game.WithRand(func(int) int { return 0 }),
		game.WithRetry(game.RetryConfig{InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}),
	}
	h.svc = game.NewService(engine, h.store, append(base, opts...)...)
	return h
}

func picks(started *game.StartedGame, dirs ...string) []game.Pick {
	out := make([]game.Pick, len(started.Rounds))
	for i, r := range started.Rounds {
		out[i] = game.Pick{RoundID: r.RoundID, Direction: dirs[i]}
	}
	return out
}

func TestStartGame(t *testing.T) {
	h := newHarness()
	h.market.setPrice("BTCUSDT", 64000)

	started, err := h.svc.StartGame(context.Background(), "alice", "flash")
	require.NoError(t, err)
	assert.Equal(t, scoring.Flash, started.Mode)
	require.Len(t, started.Rounds, scoring.RoundCount)

	assets := make([]string, 0, len(started.Rounds))
	for i, r := range started.Rounds {
		assets = append(assets, r.Asset)
		assert.Equal(t, i+1, r.RoundNumber)
		assert.Equal(t, "1m", r.Timeframe)
		assert.Len(t, r.Candles, game.DefaultChartCandles)
	}
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT", "BNBUSDT"}, assets)
	assert.Equal(t, 64000.0, started.Rounds[0].CurrentPrice)

	rounds, err := h.store.ListRounds(context.Background(), started.GameID)
	require.NoError(t, err)
	for _, r := range rounds {
		assert.Equal(t, scoring.Up, r.AIPrediction)
		assert.False(t, r.Picked())
		assert.Nil(t, r.AIConfidence)
	}
}

func TestStartGameValidation(t *testing.T) {
	h := newHarness()
	_, err := h.svc.StartGame(context.Background(), "alice", "TURBO")
	assert.ErrorIs(t, err, game.ErrInvalidMode)

	_, err = h.svc.StartGame(context.Background(), "   ", "FLASH")
	assert.ErrorIs(t, err, game.ErrInvalidUsername)
}

func TestStartGameRetriesProviderFailures(t *testing.T) {
	h := newHarness()
	h.market.failures["BTCUSDT"] = 2

	started, err := h.svc.StartGame(context.Background(), "alice", "SPEED")
	require.NoError(t, err)
	assert.Len(t, started.Rounds, scoring.RoundCount)
	assert.Equal(t, 3, h.market.priceCalls["BTCUSDT"])
}

func TestStartGameReportsMarketUnavailable(t *testing.T) {
	h := newHarness()
	h.market.failures["ETHUSDT"] = 100

	_, err := h.svc.StartGame(context.Background(), "alice", "STANDARD")
	require.Error(t, err)
	assert.ErrorIs(t, err, game.ErrMarketUnavailable)
	var all *market.AllProvidersFailedError
	assert.True(t, errors.As(err, &all))
	assert.Equal(t, 3, h.market.priceCalls["ETHUSDT"])
}

func TestWarmGame(t *testing.T) {
	h := newHarness()
	started, err := h.svc.StartGame(context.Background(), "alice", "FLASH")
	require.NoError(t, err)

	require.NoError(t, h.svc.WarmGame(context.Background(), started.GameID))
	assert.ElementsMatch(t, []string{"BTCUSDT:1m", "ETHUSDT:1m", "BNBUSDT:1m"}, h.signals.warmed)
	assert.Empty(t, h.signals.frozen)

	assert.ErrorIs(t, h.svc.WarmGame(context.Background(), "missing"), game.ErrGameNotFound)
}

func TestSubmitValidation(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	started, err := h.svc.StartGame(ctx, "alice", "FLASH")
	require.NoError(t, err)

	_, err = h.svc.Submit(ctx, started.GameID, picks(started, "UP", "DOWN", "UP")[:2])
	require.ErrorIs(t, err, game.ErrPredictionCount)
	assert.Contains(t, err.Error(), "all 3 rounds")

	_, err = h.svc.Submit(ctx, started.GameID, picks(started, "UP", "SIDEWAYS", "UP"))
	assert.ErrorIs(t, err, game.ErrInvalidDirection)

	bad := picks(started, "UP", "DOWN", "UP")
	bad[1].RoundID = "other"
	_, err = h.svc.Submit(ctx, started.GameID, bad)
	assert.ErrorIs(t, err, game.ErrRoundNotFound)

	dup := picks(started, "UP", "DOWN", "UP")
	dup[2].RoundID = dup[0].RoundID
	_, err = h.svc.Submit(ctx, started.GameID, dup)
	assert.ErrorIs(t, err, game.ErrPredictionCount)

	_, err = h.svc.Submit(ctx, "missing", nil)
	assert.ErrorIs(t, err, game.ErrGameNotFound)

	assert.Empty(t, h.signals.frozen)
}

func TestSubmitFreezesSignalsAtLock(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	started, err := h.svc.StartGame(ctx, "alice", "FLASH")
	require.NoError(t, err)

	h.clock.Advance(10 * time.Second)
	h.market.setPrice("BTCUSDT", 101)
	lock := h.clock.Now()

	sub, err := h.svc.Submit(ctx, started.GameID, picks(started, "up", "DOWN", "UP"))
	require.NoError(t, err)
	assert.True(t, sub.LockTime.Equal(lock))

	w, err := settlement.Compute(lock.UnixMilli(), "1m")
	require.NoError(t, err)
	assert.Equal(t, w.SettleAtMs, sub.EarliestAt.UnixMilli())
	assert.Equal(t, w.SettleAtMs, sub.LatestAt.UnixMilli())
	require.Len(t, sub.Rounds, 3)
	assert.Equal(t, 101.0, sub.Rounds[0].StartPrice)
	assert.Equal(t, int64(60_000), sub.Rounds[0].DurationMs)
	assert.True(t, sub.Rounds[0].OpenAt.Equal(lock))

	assert.Equal(t, []int64{lock.UnixMilli(), lock.UnixMilli(), lock.UnixMilli()}, h.signals.frozen)

	rounds, err := h.store.ListRounds(ctx, started.GameID)
	require.NoError(t, err)
	for _, r := range rounds {
		assert.True(t, r.Picked())
		assert.Equal(t, scoring.Down, r.AIPrediction)
		require.NotNil(t, r.AIConfidence)
		assert.Equal(t, 72, *r.AIConfidence)
		assert.True(t, strings.HasPrefix(r.AIReasoning, "[signal-v1 @ "+lock.UTC().Format(time.RFC3339Nano)+"] "), r.AIReasoning)
		assert.True(t, r.CreatedAt.Equal(lock))
	}
	assert.Equal(t, scoring.Up, rounds[0].UserPrediction)

	g, err := h.store.GetGame(ctx, started.GameID)
	require.NoError(t, err)
	require.NotNil(t, g.CompletedAt)
	assert.True(t, g.CompletedAt.Equal(lock))

	_, err = h.svc.Submit(ctx, started.GameID, picks(started, "UP", "UP", "UP"))
	assert.ErrorIs(t, err, game.ErrAlreadyPicked)
}

func TestSubmitReportsMarketUnavailable(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	started, err := h.svc.StartGame(ctx, "alice", "FLASH")
	require.NoError(t, err)

	h.signals.err = unavailable("klines:BTCUSDT:1m")
	_, err = h.svc.Submit(ctx, started.GameID, picks(started, "UP", "UP", "UP"))
	assert.ErrorIs(t, err, game.ErrMarketUnavailable)

	rounds, err := h.store.ListRounds(ctx, started.GameID)
	require.NoError(t, err)
	for _, r := range rounds {
		assert.False(t, r.Picked())
	}
}

// flakyStore fails the first LockGame write after it reaches the database.
type flakyStore struct {
	*memory.Store
	failures int
}

func (f *flakyStore) LockGame(ctx context.Context, gameID string, locks map[string]game.RoundLock, lockedAt time.Time) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("db: connection reset")
	}
	return f.Store.LockGame(ctx, gameID, locks, lockedAt)
}

func TestSubmitAfterFailedLockWriteSucceeds(t *testing.T) {
	h := newHarness()
	flaky := &flakyStore{Store: h.store, failures: 1}
	engine := game.NewEngine(h.market, h.signals, game.WithClock(h.clock.Now))
	svc := game.NewService(engine, flaky, game.WithRand(func(int) int { return 0 }))
	ctx := context.Background()

	started, err := svc.StartGame(ctx, "alice", "FLASH")
	require.NoError(t, err)

	_, err = svc.Submit(ctx, started.GameID, picks(started, "UP", "DOWN", "UP"))
	require.Error(t, err)
	rounds, err := h.store.ListRounds(ctx, started.GameID)
	require.NoError(t, err)
	for _, r := range rounds {
		assert.False(t, r.Picked())
	}
	g, err := h.store.GetGame(ctx, started.GameID)
	require.NoError(t, err)
	assert.Nil(t, g.CompletedAt)

	sub, err := svc.Submit(ctx, started.GameID, picks(started, "UP", "DOWN", "UP"))
	require.NoError(t, err)
	assert.Len(t, sub.Rounds, scoring.RoundCount)

	h.clock.Advance(10 * time.Minute)
	res, err := svc.Result(ctx, started.GameID)
	require.NoError(t, err)
	assert.Equal(t, game.ResultCompleted, res.Status)
}

func TestResultGameWithoutRounds(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	g := &game.Game{UserID: "u1", Mode: scoring.Flash, Status: game.StatusActive, CreatedAt: t0}
	require.NoError(t, h.store.CreateGame(ctx, g, nil))

	_, err := h.svc.Result(ctx, g.ID)
	assert.ErrorIs(t, err, game.ErrRoundNotFound)
	_, err = h.svc.Submit(ctx, g.ID, nil)
	assert.ErrorIs(t, err, game.ErrRoundNotFound)

	stored, err := h.store.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, game.StatusActive, stored.Status)
}

func TestResultLifecycle(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	started, err := h.svc.StartGame(ctx, "alice", "FLASH")
	require.NoError(t, err)

	res, err := h.svc.Result(ctx, started.GameID)
	require.NoError(t, err)
	assert.Equal(t, game.ResultPending, res.Status)
	for _, r := range res.Rounds {
		assert.Equal(t, game.RoundPendingPick, r.Status)
	}

	_, err = h.svc.Submit(ctx, started.GameID, picks(started, "UP", "DOWN", "UP"))
	require.NoError(t, err)
	lockMs := h.clock.Now().UnixMilli()
	w, err := settlement.Compute(lockMs, "1m")
	require.NoError(t, err)

	h.clock.Advance(30 * time.Second)
	res, err = h.svc.Result(ctx, started.GameID)
	require.NoError(t, err)
	assert.Equal(t, game.ResultPending, res.Status)
	for _, r := range res.Rounds {
		assert.Equal(t, game.RoundPending, r.Status)
		require.NotNil(t, r.TimeRemaining)
		assert.Equal(t, (w.SettleAtMs-h.clock.Now().UnixMilli())/1000, *r.TimeRemaining)
		assert.Equal(t, w.SettleAtMs, r.CloseAt.UnixMilli())
	}
	assert.Empty(t, h.market.atTimes())

	// BTC up: user right, AI wrong. ETH down: both right. BNB up: user right.
	h.market.endPrices["BTCUSDT"] = 110
	h.market.endPrices["ETHUSDT"] = 90
	h.market.endPrices["BNBUSDT"] = 120
	h.clock.Advance(35 * time.Second)

	res, err = h.svc.Result(ctx, started.GameID)
	require.NoError(t, err)
	assert.Equal(t, game.ResultCompleted, res.Status)
	assert.Equal(t, 2, res.UserScore)
	assert.Equal(t, 0, res.AIScore)
	assert.Equal(t, 67, res.PointsEarned)
	outcomes := []scoring.Outcome{res.Rounds[0].Result, res.Rounds[1].Result, res.Rounds[2].Result}
	assert.Equal(t, []scoring.Outcome{scoring.UserWin, scoring.Draw, scoring.UserWin}, outcomes)
	assert.Equal(t, []int64{w.SettleAtMs, w.SettleAtMs, w.SettleAtMs}, h.market.atTimes())

	// Completed games are served from storage without new lookups.
	h.market.endPrices["BTCUSDT"] = 1
	h.clock.Advance(time.Hour)
	again, err := h.svc.Result(ctx, started.GameID)
	require.NoError(t, err)
	assert.Equal(t, res.PointsEarned, again.PointsEarned)
	assert.Equal(t, res.UserScore, again.UserScore)
	assert.Equal(t, scoring.UserWin, again.Rounds[0].Result)
	assert.Len(t, h.market.atTimes(), 3)

	g, err := h.store.GetGame(ctx, started.GameID)
	require.NoError(t, err)
	assert.Equal(t, game.StatusCompleted, g.Status)
}

func TestResultReportsRoundErrors(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	started, err := h.svc.StartGame(ctx, "alice", "FLASH")
	require.NoError(t, err)
	_, err = h.svc.Submit(ctx, started.GameID, picks(started, "UP", "UP", "UP"))
	require.NoError(t, err)
	h.clock.Advance(2 * time.Minute)

	h.market.failAtTime = true
	res, err := h.svc.Result(ctx, started.GameID)
	require.NoError(t, err)
	assert.Equal(t, game.ResultPending, res.Status)
	for _, r := range res.Rounds {
		assert.Equal(t, game.RoundError, r.Status)
		assert.Equal(t, "Failed to fetch candle close price", r.Error)
		assert.Nil(t, r.EndPrice)
	}

	h.market.failAtTime = false
	res, err = h.svc.Result(ctx, started.GameID)
	require.NoError(t, err)
	assert.Equal(t, game.ResultCompleted, res.Status)
	// Flat prices everywhere: all draws, no points.
	assert.Equal(t, 0, res.UserScore)
	assert.Equal(t, 0, res.PointsEarned)
}

func TestConcurrentResultSettlesOnce(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	started, err := h.svc.StartGame(ctx, "alice", "FLASH")
	require.NoError(t, err)
	_, err = h.svc.Submit(ctx, started.GameID, picks(started, "UP", "UP", "UP"))
	require.NoError(t, err)
	h.clock.Advance(2 * time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := h.svc.Result(ctx, started.GameID)
			assert.NoError(t, err)
			assert.Equal(t, game.ResultCompleted, res.Status)
		}()
	}
	wg.Wait()
	assert.Len(t, h.market.atTimes(), 3)
}

type countingLocker struct {
	mu       sync.Mutex
	locks    int
	releases int
	err      error
}

func (l *countingLocker) Lock(_ context.Context, _ string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.locks++
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.releases++
	}, nil
}

type mapResultCache struct {
	mu   sync.Mutex
	puts int
	data map[string]*game.GameResult
}

func (c *mapResultCache) Get(_ context.Context, id string) (*game.GameResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.data[id]
	return r, ok
}

func (c *mapResultCache) Put(_ context.Context, r *game.GameResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts++
	c.data[r.GameID] = r
}

func TestResultUsesLockerAndCache(t *testing.T) {
	locker := &countingLocker{}
	results := &mapResultCache{data: map[string]*game.GameResult{}}
	h := newHarness(game.WithLocker(locker), game.WithResultCache(results))
	ctx := context.Background()
	started, err := h.svc.StartGame(ctx, "alice", "FLASH")
	require.NoError(t, err)

	_, err = h.svc.Result(ctx, started.GameID)
	require.NoError(t, err)
	assert.Equal(t, 0, results.puts)

	_, err = h.svc.Submit(ctx, started.GameID, picks(started, "UP", "UP", "UP"))
	require.NoError(t, err)
	h.clock.Advance(2 * time.Minute)

	_, err = h.svc.Result(ctx, started.GameID)
	require.NoError(t, err)
	_, err = h.svc.Result(ctx, started.GameID)
	require.NoError(t, err)

	assert.Equal(t, 2, locker.locks)
	assert.Equal(t, locker.locks, locker.releases)
	assert.Equal(t, 1, results.puts)
}

func TestResultBusyLock(t *testing.T) {
	h := newHarness(game.WithLocker(&countingLocker{err: game.ErrSettlementBusy}))
	started, err := h.svc.StartGame(context.Background(), "alice", "FLASH")
	require.NoError(t, err)

	_, err = h.svc.Result(context.Background(), started.GameID)
	assert.ErrorIs(t, err, game.ErrSettlementBusy)
}
