// Package scoring holds the game mode table and the pure functions that turn
// price movement and predictions into round outcomes and points.
package scoring

import (
	"math"
	"math/rand"
	"strings"
)

// Direction is a price movement prediction.
type Direction string

const (
	Up   Direction = "UP"
	Down Direction = "DOWN"
	// Flat is only ever an observed movement, never a prediction.
	Flat Direction = "FLAT"
)

// ParseDirection accepts UP or DOWN, case-insensitively.
func ParseDirection(s string) (Direction, bool) {
	switch d := Direction(strings.ToUpper(strings.TrimSpace(s))); d {
	case Up, Down:
		return d, true
	}
	return "", false
}

// Outcome is the result of a settled round.
type Outcome string

const (
	UserWin Outcome = "user_win"
	AIWin   Outcome = "ai_win"
	Draw    Outcome = "draw"
)

// Mode names a game mode.
type Mode string

const (
	Flash    Mode = "FLASH"
	Speed    Mode = "SPEED"
	Standard Mode = "STANDARD"
)

// RoundCount is the number of rounds in every mode.
const RoundCount = 3

// ModeConfig is the static configuration of one mode.
type ModeConfig struct {
	Mode       Mode
	Timeframe  string
	RoundCount int
	AssetPool  []string
	BasePoints int
}

var modes = map[Mode]ModeConfig{
	Flash: {
		Mode:       Flash,
		Timeframe:  "1m",
		RoundCount: RoundCount,
		AssetPool:  []string{"BTCUSDT", "ETHUSDT", "BNBUSDT", "SOLUSDT", "XRPUSDT", "ADAUSDT", "DOGEUSDT", "LINKUSDT"},
		BasePoints: 100,
	},
	Speed: {
		Mode:       Speed,
		Timeframe:  "3m",
		RoundCount: RoundCount,
		AssetPool:  []string{"BTCUSDT", "ETHUSDT", "BNBUSDT", "SOLUSDT", "XRPUSDT", "ADAUSDT", "DOGEUSDT", "AVAXUSDT"},
		BasePoints: 150,
	},
	Standard: {
		Mode:       Standard,
		Timeframe:  "5m",
		RoundCount: RoundCount,
		AssetPool:  []string{"BTCUSDT", "ETHUSDT", "BNBUSDT", "SOLUSDT", "XRPUSDT", "ADAUSDT", "DOGEUSDT", "TRXUSDT"},
		BasePoints: 250,
	},
}

// Modes lists the supported modes in ascending timeframe order.
func Modes() []Mode { return []Mode{Flash, Speed, Standard} }

// ParseMode accepts a mode name case-insensitively.
func ParseMode(s string) (Mode, bool) {
	m := Mode(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := modes[m]
	return m, ok
}

// Lookup returns a copy of the mode's configuration.
func Lookup(mode Mode) (ModeConfig, bool) {
	cfg, ok := modes[mode]
	if !ok {
		return ModeConfig{}, false
	}
	cfg.AssetPool = append([]string(nil), cfg.AssetPool...)
	return cfg, true
}

// ActualDirection classifies the price move from start to end.
func ActualDirection(startPrice, endPrice float64) Direction {
	switch delta := endPrice - startPrice; {
	case delta > 0:
		return Up
	case delta < 0:
		return Down
	default:
		return Flat
	}
}

// DetermineRoundWinner awards the round to the only side that called the
// move. A flat market, or both or neither side being right, is a draw.
func DetermineRoundWinner(startPrice, endPrice float64, userPrediction, aiPrediction Direction) Outcome {
	actual := ActualDirection(startPrice, endPrice)
	if actual == Flat {
		return Draw
	}
	userCorrect := userPrediction == actual
	aiCorrect := aiPrediction == actual
	switch {
	case userCorrect && !aiCorrect:
		return UserWin
	case aiCorrect && !userCorrect:
		return AIWin
	default:
		return Draw
	}
}

// CalculatePoints is round(basePoints * (user - ai) / RoundCount) when the
// user outscored the AI, and 0 otherwise. Unknown modes earn nothing.
func CalculatePoints(mode Mode, userScore, aiScore int) int {
	cfg, ok := modes[mode]
	if !ok || userScore <= aiScore {
		return 0
	}
	points := int(math.Round(float64(cfg.BasePoints) * float64(userScore-aiScore) / float64(RoundCount)))
	if points < 0 {
		return 0
	}
	return points
}

// Tally counts round wins per side; draws and unsettled rounds count for neither.
func Tally(outcomes []Outcome) (userScore, aiScore int) {
	for _, o := range outcomes {
		switch o {
		case UserWin:
			userScore++
		case AIWin:
			aiScore++
		}
	}
	return userScore, aiScore
}

// PickRoundAssets draws RoundCount distinct assets from the mode's pool.
// intn defaults to math/rand when nil.
func PickRoundAssets(mode Mode, intn func(n int) int) []string {
	cfg, ok := Lookup(mode)
	if !ok {
		return nil
	}
	if intn == nil {
		intn = rand.Intn
	}
	pool := cfg.AssetPool
	picks := make([]string, 0, cfg.RoundCount)
	for len(picks) < cfg.RoundCount && len(pool) > 0 {
		i := intn(len(pool))
		picks = append(picks, pool[i])
		pool = append(pool[:i], pool[i+1:]...)
	}
	return picks
}
