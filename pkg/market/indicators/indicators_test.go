package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"beatai-api/pkg/market"
)

func TestEMA(t *testing.T) {
	require.InDelta(t, 2.25, EMA([]float64{1, 2, 3}, 3), 1e-12)
	require.Equal(t, 7.0, EMA([]float64{7}, 20))
	require.Zero(t, EMA(nil, 20))
}

func TestRSI(t *testing.T) {
	require.Equal(t, NeutralRSI, RSI([]float64{1, 2, 3}, 14))

	rising := make([]float64, 15)
	for i := range rising {
		rising[i] = float64(i + 1)
	}
	require.Equal(t, CappedRSI, RSI(rising, 14))

	flat := make([]float64, 20)
	for i := range flat {
		flat[i] = 10
	}
	require.Equal(t, NeutralRSI, RSI(flat, 14))

	// Seven +2 moves and seven -1 moves: gain 14, loss 7, RS 2.
	zigzag := []float64{10}
	for i := 0; i < 7; i++ {
		prev := zigzag[len(zigzag)-1]
		zigzag = append(zigzag, prev+2, prev+1)
	}
	require.InDelta(t, 100-100.0/3, RSI(zigzag, 14), 1e-9)
}

func TestATRPercent(t *testing.T) {
	n := 15
	highs, lows, closes := make([]float64, n), make([]float64, n), make([]float64, n)
	for i := 0; i < n; i++ {
		closes[i] = 100
		highs[i] = 101
		lows[i] = 99
	}
	require.InDelta(t, 2.0, ATRPercent(highs, lows, closes, 14), 1e-12)
	require.Zero(t, ATRPercent(highs[:14], lows[:14], closes[:14], 14))

	// Gap from the previous close dominates the high-low range.
	closes[13] = 90
	require.InDelta(t, (2.0*13+11)/14, ATRPercent(highs, lows, closes, 14), 1e-9)
}

func TestMomentum(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}
	require.InDelta(t, 1000.0, Momentum(closes, 10), 1e-9)

	// Fewer than eleven bars: measure from the earliest.
	require.InDelta(t, 50.0, Momentum([]float64{2, 3}, 10), 1e-9)
	require.Zero(t, Momentum(nil, 10))

	// A zero base falls back to the latest close, giving no momentum.
	require.Zero(t, Momentum([]float64{0, 5}, 10))
}

func TestVolumeRatio(t *testing.T) {
	require.InDelta(t, 2.0, VolumeRatio([]float64{1, 1, 1, 3}, 20), 1e-12)
	require.Equal(t, NeutralVolumeRatio, VolumeRatio([]float64{0, 0, 0}, 20))
	require.Equal(t, NeutralVolumeRatio, VolumeRatio(nil, 20))

	long := make([]float64, 30)
	for i := range long {
		long[i] = 100
	}
	long[29] = 150
	// Only the trailing twenty enter the mean.
	require.InDelta(t, 150/(float64(19*100+150)/20), VolumeRatio(long, 20), 1e-12)
}

func TestComputeFlatSeries(t *testing.T) {
	candles := make([]market.Candle, 60)
	for i := range candles {
		candles[i] = market.Candle{OpenTime: int64(i) * 60_000, Open: 100, High: 100, Low: 100, Close: 100, Volume: 10}
	}
	pack := Compute(candles)
	require.Equal(t, Pack{
		Close:         100,
		EMA20:         100,
		EMA50:         100,
		RSI14:         NeutralRSI,
		ATR14Pct:      0,
		Momentum10Pct: 0,
		VolumeRatio:   1,
	}, pack)
}

func TestComputeEmptyAndNonFinite(t *testing.T) {
	pack := Compute(nil)
	require.Equal(t, Pack{RSI14: NeutralRSI, VolumeRatio: NeutralVolumeRatio}, pack)

	pack = Compute([]market.Candle{{Close: 10, Volume: 5}, {Close: math.NaN(), Volume: math.Inf(1)}})
	require.Zero(t, pack.Close)
	require.False(t, math.IsNaN(pack.EMA20))
	require.Zero(t, pack.VolumeRatio)
}

func TestComputeUptrend(t *testing.T) {
	candles := make([]market.Candle, 80)
	for i := range candles {
		price := 100 + float64(i)
		candles[i] = market.Candle{High: price + 0.5, Low: price - 0.5, Close: price, Volume: 10}
	}
	pack := Compute(candles)
	require.Equal(t, 179.0, pack.Close)
	require.Greater(t, pack.Close, pack.EMA20)
	require.Greater(t, pack.EMA20, pack.EMA50)
	require.Equal(t, CappedRSI, pack.RSI14)
	require.InDelta(t, (179.0-169.0)/169.0*100, pack.Momentum10Pct, 1e-9)
	// True range is the gap from the prior close: high - prevClose = 1.5.
	require.InDelta(t, 1.5/179.0*100, pack.ATR14Pct, 1e-9)
}
