package game

import (
	"context"
	"time"

	"github.com/zeromicro/go-zero/core/mr"

	"beatai-api/pkg/market"
	"beatai-api/pkg/scoring"
	"beatai-api/pkg/settlement"
	"beatai-api/pkg/signal"
	"beatai-api/pkg/timeframe"
)

// DefaultChartCandles is the candle history returned with a new round.
const DefaultChartCandles = 30

// MarketData is the slice of *market.Gateway the engine needs.
type MarketData interface {
	GetCurrentPrice(ctx context.Context, asset string) (float64, error)
	GetKlines(ctx context.Context, asset, interval string, limit int) ([]market.Candle, error)
	GetPriceAtTime(ctx context.Context, asset string, ts int64) (float64, error)
}

// Signals is the slice of *signal.Cache the engine needs.
type Signals interface {
	GetSignal(ctx context.Context, asset, tf string, atMs int64) (signal.Signal, error)
	Warm(ctx context.Context, asset, tf string) error
}

// RoundStart is the market snapshot a new round is created from.
type RoundStart struct {
	StartPrice float64
	Candles    []market.Candle
}

// Evaluation is the outcome of settling one round.
type Evaluation struct {
	Window   settlement.Window
	EndPrice float64
	Result   scoring.Outcome
}

// Engine exposes the per-round operations of the game.
type Engine struct {
	market       MarketData
	signals      Signals
	chartCandles int
	now          func() time.Time
}

// EngineOption customises an Engine.
type EngineOption func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithChartCandles overrides DefaultChartCandles.
func WithChartCandles(limit int) EngineOption {
	return func(e *Engine) {
		if limit > 0 {
			e.chartCandles = limit
		}
	}
}

// NewEngine wires an engine over market data and a signal source.
func NewEngine(data MarketData, signals Signals, opts ...EngineOption) *Engine {
	e := &Engine{
		market:       data,
		signals:      signals,
		chartCandles: DefaultChartCandles,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now returns the engine clock.
func (e *Engine) Now() time.Time {
	return e.now()
}

// StartRound fetches the current price and recent candles for a new round.
func (e *Engine) StartRound(ctx context.Context, asset, tf string) (RoundStart, error) {
	interval, err := timeframe.CandleInterval(tf)
	if err != nil {
		return RoundStart{}, err
	}

	var start RoundStart
	err = mr.Finish(func() error {
		price, err := e.market.GetCurrentPrice(ctx, asset)
		if err != nil {
			return err
		}
		start.StartPrice = price
		return nil
	}, func() error {
		candles, err := e.market.GetKlines(ctx, asset, interval, e.chartCandles)
		if err != nil {
			return err
		}
		start.Candles = candles
		return nil
	})
	if err != nil {
		return RoundStart{}, err
	}
	return start, nil
}

// CurrentPrice returns the live price used to re-stamp a round at lock time.
func (e *Engine) CurrentPrice(ctx context.Context, asset string) (float64, error) {
	return e.market.GetCurrentPrice(ctx, asset)
}

// WarmSignal computes and caches the current signal without freezing it.
func (e *Engine) WarmSignal(ctx context.Context, asset, tf string) error {
	if err := timeframe.Validate(tf); err != nil {
		return err
	}
	return e.signals.Warm(ctx, asset, tf)
}

// FreezeSignal returns the signal for the bucket containing lockMs. Callers
// persist it once per round at submission.
func (e *Engine) FreezeSignal(ctx context.Context, asset, tf string, lockMs int64) (signal.Signal, error) {
	return e.signals.GetSignal(ctx, asset, tf, lockMs)
}

// SettlementWindow computes the evaluation schedule for a round locked at lockMs.
func (e *Engine) SettlementWindow(lockMs int64, tf string) (settlement.Window, error) {
	return settlement.Compute(lockMs, tf)
}

// EvaluateRound prices a picked round at its settle instant and decides the
// winner. It returns ErrNotDue before the settle instant.
func (e *Engine) EvaluateRound(ctx context.Context, r *Round) (Evaluation, error) {
	if !r.Picked() {
		return Evaluation{}, ErrNotPicked
	}
	w, err := settlement.Compute(r.CreatedAt.UnixMilli(), r.Timeframe)
	if err != nil {
		return Evaluation{}, err
	}
	if !w.Due(e.now().UnixMilli()) {
		return Evaluation{Window: w}, ErrNotDue
	}
	end, err := e.market.GetPriceAtTime(ctx, r.Asset, w.SettleAtMs)
	if err != nil {
		return Evaluation{Window: w}, err
	}
	return Evaluation{
		Window:   w,
		EndPrice: end,
		Result:   scoring.DetermineRoundWinner(r.StartPrice, end, r.UserPrediction, r.AIPrediction),
	}, nil
}

// ScorePoints converts a final score line into points for mode.
func (e *Engine) ScorePoints(mode scoring.Mode, userScore, aiScore int) int {
	return scoring.CalculatePoints(mode, userScore, aiScore)
}
