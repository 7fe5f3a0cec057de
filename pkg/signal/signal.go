// Package signal turns an indicator pack into the AI opponent's prediction and
// caches the result per time bucket.
package signal

import (
	"fmt"
	"math"
	"time"

	"beatai-api/pkg/market/indicators"
	"beatai-api/pkg/scoring"
)

// Version tags every signal produced by this heuristic.
const Version = "signal-v1"

// Signal is the AI prediction for one asset and timeframe at one instant.
type Signal struct {
	Prediction scoring.Direction `json:"prediction"`
	Confidence int               `json:"confidence"`
	Reasoning  string            `json:"reasoning"`
	SignalAt   time.Time         `json:"signalAt"`
	Version    string            `json:"version"`
}

// Verdict is the time-independent part of a Signal.
type Verdict struct {
	Prediction scoring.Direction
	Confidence int
	Reasoning  string
}

// Score applies the additive heuristic to a pack.
func Score(p indicators.Pack) float64 {
	score := 0.0
	if p.Close > p.EMA20 {
		score++
	} else {
		score--
	}
	if p.Close > p.EMA50 {
		score++
	} else {
		score--
	}
	if p.Momentum10Pct > 0.08 {
		score++
	}
	if p.Momentum10Pct < -0.08 {
		score--
	}
	if p.RSI14 >= 55 && p.RSI14 <= 75 {
		score++
	}
	if p.RSI14 >= 25 && p.RSI14 <= 45 {
		score--
	}
	if p.VolumeRatio >= 1.15 {
		score += 0.5
	}
	if p.VolumeRatio <= 0.85 {
		score -= 0.5
	}
	return score
}

// Build derives prediction, confidence and reasoning from a pack. Confidence
// is always within [55, 90].
func Build(p indicators.Pack) Verdict {
	score := Score(p)
	prediction := scoring.Up
	if score < 0 {
		prediction = scoring.Down
	}
	strength := math.Min(1, math.Abs(score)/4.5)
	return Verdict{
		Prediction: prediction,
		Confidence: int(math.Round(55 + strength*35)),
		Reasoning:  Reasoning(prediction, p),
	}
}

// Reasoning renders the one-line summary: trend, EMA relation, momentum, RSI,
// ATR and volume ratio in that order.
func Reasoning(prediction scoring.Direction, p indicators.Pack) string {
	trend := "short-term trend is upward"
	if prediction == scoring.Down {
		trend = "short-term trend is downward"
	}
	emaRelation := "mixed"
	if p.Close > p.EMA20 && p.Close > p.EMA50 {
		emaRelation = "supportive"
	}
	momentum := "positive"
	if p.Momentum10Pct < 0 {
		momentum = "negative"
	}
	return fmt.Sprintf("%s; price vs EMA20/EMA50 is %s; momentum %s (%.2f%%); RSI %.1f; ATR %.2f%%; volume ratio %.2fx.",
		trend, emaRelation, momentum, p.Momentum10Pct, p.RSI14, p.ATR14Pct, p.VolumeRatio)
}

// Frozen formats a signal for storage on a round: "[version @ signalAt] reasoning".
func (s Signal) Frozen() string {
	return fmt.Sprintf("[%s @ %s] %s", s.Version, s.SignalAt.UTC().Format(time.RFC3339Nano), s.Reasoning)
}
