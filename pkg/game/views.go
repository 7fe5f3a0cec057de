package game

import (
	"time"

	"beatai-api/pkg/market"
	"beatai-api/pkg/scoring"
)

// Round statuses reported by Result.
const (
	RoundPendingPick = "pending_pick"
	RoundPending     = "pending"
	RoundSettled     = "settled"
	RoundError       = "error"
)

// Game statuses reported by Result.
const (
	ResultPending   = "pending"
	ResultCompleted = "completed"
)

// StartedRound is a new round as shown to the player. The AI prediction is
// deliberately absent.
type StartedRound struct {
	RoundID      string
	RoundNumber  int
	Asset        string
	Timeframe    string
	CurrentPrice float64
	Candles      []market.Candle
}

// StartedGame is the response to StartGame.
type StartedGame struct {
	GameID string
	Mode   scoring.Mode
	Rounds []StartedRound
}

// Pick is one user prediction in a submission.
type Pick struct {
	RoundID   string
	Direction string
}

// LockedRound describes a round accepted by Submit.
type LockedRound struct {
	RoundID    string
	Asset      string
	Timeframe  string
	StartPrice float64
	// OpenAt and CloseAt bound the evaluation candle: lock time to settle time.
	OpenAt     time.Time
	CloseAt    time.Time
	DurationMs int64
}

// Submission is the response to Submit.
type Submission struct {
	GameID     string
	LockTime   time.Time
	EarliestAt time.Time
	LatestAt   time.Time
	Rounds     []LockedRound
}

// RoundResult is one round in a Result response.
type RoundResult struct {
	RoundID        string
	RoundNumber    int
	Asset          string
	Timeframe      string
	Status         string
	StartPrice     float64
	EndPrice       *float64
	UserPrediction scoring.Direction
	AIPrediction   scoring.Direction
	AIConfidence   *int
	AIReasoning    string
	Result         scoring.Outcome
	OpenAt         *time.Time
	CloseAt        *time.Time
	TimeRemaining  *int64
	Error          string
}

// GameResult is the response to Result.
type GameResult struct {
	GameID       string
	Mode         scoring.Mode
	Status       string
	UserScore    int
	AIScore      int
	PointsEarned int
	Rounds       []RoundResult
}
