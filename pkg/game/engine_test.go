package game_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beatai-api/pkg/game"
	"beatai-api/pkg/scoring"
	"beatai-api/pkg/timeframe"
)

func TestEngineStartRound(t *testing.T) {
	m := newFakeMarket()
	m.setPrice("ETHUSDT", 3200)
	e := game.NewEngine(m, &fakeSignals{}, game.WithChartCandles(12))

	start, err := e.StartRound(context.Background(), "ETHUSDT", "3m")
	require.NoError(t, err)
	assert.Equal(t, 3200.0, start.StartPrice)
	assert.Len(t, start.Candles, 12)
	assert.Equal(t, []int{12}, m.klineLimits)

	_, err = e.StartRound(context.Background(), "ETHUSDT", "3 minutes")
	var tfErr *timeframe.InvalidTimeframeError
	assert.True(t, errors.As(err, &tfErr))
}

func TestEngineEvaluateRound(t *testing.T) {
	c := newClock(time.UnixMilli(1_700_000_000_000))
	m := newFakeMarket()
	m.endPrices["BTCUSDT"] = 110
	e := game.NewEngine(m, &fakeSignals{}, game.WithClock(c.Now))

	r := &game.Round{
		Asset:          "BTCUSDT",
		Timeframe:      "1m",
		StartPrice:     100,
		UserPrediction: scoring.Up,
		AIPrediction:   scoring.Down,
		CreatedAt:      c.Now(),
	}

	_, err := e.EvaluateRound(context.Background(), &game.Round{Timeframe: "1m"})
	assert.ErrorIs(t, err, game.ErrNotPicked)

	ev, err := e.EvaluateRound(context.Background(), r)
	assert.ErrorIs(t, err, game.ErrNotDue)
	assert.Equal(t, int64(1_700_000_060_000), ev.Window.SettleAtMs)
	assert.Empty(t, m.atTimes())

	c.Advance(time.Minute)
	ev, err = e.EvaluateRound(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, 110.0, ev.EndPrice)
	assert.Equal(t, scoring.UserWin, ev.Result)
	assert.Equal(t, []int64{1_700_000_060_000}, m.atTimes())
}

func TestEngineSettlementWindowAndPoints(t *testing.T) {
	e := game.NewEngine(newFakeMarket(), &fakeSignals{})
	w, err := e.SettlementWindow(1_000, "1m")
	require.NoError(t, err)
	assert.Equal(t, int64(61_000), w.TargetMs)
	assert.Equal(t, int64(2_000), w.BucketMs)
	assert.Equal(t, int64(62_000), w.SettleAtMs)

	assert.Equal(t, 67, e.ScorePoints(scoring.Flash, 2, 0))
	assert.Equal(t, 0, e.ScorePoints(scoring.Flash, 1, 1))
}

func TestEngineFreezeAndWarm(t *testing.T) {
	s := &fakeSignals{}
	e := game.NewEngine(newFakeMarket(), s)

	sig, err := e.FreezeSignal(context.Background(), "SOLUSDT", "5m", 42_000)
	require.NoError(t, err)
	assert.Equal(t, scoring.Down, sig.Prediction)
	assert.Equal(t, []int64{42_000}, s.frozen)

	require.NoError(t, e.WarmSignal(context.Background(), "SOLUSDT", "5m"))
	assert.Equal(t, []string{"SOLUSDT:5m"}, s.warmed)

	assert.Error(t, e.WarmSignal(context.Background(), "SOLUSDT", "5x"))
}
