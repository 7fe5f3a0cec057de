// Package indicators computes the fixed technical indicator pack that feeds the
// signal heuristic. Every function is pure and total: short or degenerate
// input yields the documented neutral value instead of an error.
package indicators

import (
	"math"

	"beatai-api/pkg/market"
)

const (
	// NeutralRSI is returned when there is too little history or no movement.
	NeutralRSI = 50.0
	// CappedRSI replaces +Inf when the window has gains but no losses.
	CappedRSI = 80.0
	// NeutralVolumeRatio is returned when the volume baseline is unusable.
	NeutralVolumeRatio = 1.0

	rsiPeriod        = 14
	atrPeriod        = 14
	momentumLookback = 10
	volumeWindow     = 20
	ema20Period      = 20
	ema20Window      = 30
	ema50Period      = 50
	ema50Window      = 60
)

// Pack is the indicator set derived from one candle series.
type Pack struct {
	Close         float64 `json:"close"`
	EMA20         float64 `json:"ema20"`
	EMA50         float64 `json:"ema50"`
	RSI14         float64 `json:"rsi14"`
	ATR14Pct      float64 `json:"atr14pct"`
	Momentum10Pct float64 `json:"momentum10pct"`
	VolumeRatio   float64 `json:"volumeRatio"`
}

// Compute derives the indicator pack from candles ordered by open time.
func Compute(candles []market.Candle) Pack {
	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = finite(c.Close)
		highs[i] = finite(c.High)
		lows[i] = finite(c.Low)
		volumes[i] = finite(c.Volume)
	}

	return Pack{
		Close:         last(closes),
		EMA20:         EMA(tail(closes, ema20Window), ema20Period),
		EMA50:         EMA(tail(closes, ema50Window), ema50Period),
		RSI14:         RSI(closes, rsiPeriod),
		ATR14Pct:      ATRPercent(highs, lows, closes, atrPeriod),
		Momentum10Pct: Momentum(closes, momentumLookback),
		VolumeRatio:   VolumeRatio(volumes, volumeWindow),
	}
}

// EMA seeds with the first value and smooths with k = 2/(period+1). It
// returns the final value, or 0 for an empty series.
func EMA(values []float64, period int) float64 {
	if len(values) == 0 {
		return 0
	}
	k := 2.0 / float64(period+1)
	out := values[0]
	for _, v := range values[1:] {
		out = v*k + out*(1-k)
	}
	return out
}

// RSI sums gains and losses over the trailing period differences.
func RSI(closes []float64, period int) float64 {
	if len(closes) < period+1 {
		return NeutralRSI
	}
	var gain, loss float64
	for i := len(closes) - period; i < len(closes); i++ {
		diff := closes[i] - closes[i-1]
		if diff > 0 {
			gain += diff
		} else {
			loss -= diff
		}
	}
	switch {
	case gain == 0 && loss == 0:
		return NeutralRSI
	case loss == 0:
		return CappedRSI
	}
	return 100 - 100/(1+gain/loss)
}

// ATRPercent averages the trailing period true ranges and expresses the result
// as a percentage of the latest close. Too little history yields 0.
func ATRPercent(highs, lows, closes []float64, period int) float64 {
	if len(closes) < period+1 || len(highs) != len(closes) || len(lows) != len(closes) {
		return 0
	}
	trs := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		prevClose := closes[i-1]
		trs = append(trs, math.Max(highs[i]-lows[i], math.Max(math.Abs(highs[i]-prevClose), math.Abs(lows[i]-prevClose))))
	}
	window := tail(trs, period)
	sum := 0.0
	for _, tr := range window {
		sum += tr
	}
	atr := sum / float64(len(window))
	lastClose := last(closes)
	if lastClose == 0 {
		lastClose = 1
	}
	return atr / lastClose * 100
}

// Momentum is the percent change from the close lookback bars ago, or the
// earliest bar when history is shorter, to the latest close.
func Momentum(closes []float64, lookback int) float64 {
	current := last(closes)
	base := current
	if len(closes) > 0 {
		if v := closes[max(0, len(closes)-lookback-1)]; v != 0 {
			base = v
		}
	}
	if base == 0 {
		return 0
	}
	return (current - base) / base * 100
}

// VolumeRatio divides the latest volume by the mean of the trailing window.
func VolumeRatio(volumes []float64, window int) float64 {
	base := tail(volumes, window)
	if len(base) == 0 {
		return NeutralVolumeRatio
	}
	sum := 0.0
	for _, v := range base {
		sum += v
	}
	avg := sum / float64(len(base))
	if avg <= 0 {
		return NeutralVolumeRatio
	}
	return last(volumes) / avg
}

func tail(values []float64, n int) []float64 {
	if len(values) > n {
		return values[len(values)-n:]
	}
	return values
}

func last(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
