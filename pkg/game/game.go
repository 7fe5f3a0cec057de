// Package game runs prediction games on top of the market, signal,
// settlement and scoring packages. Engine exposes the per-round operations;
// Service drives whole games against a Store.
package game

import (
	"context"
	"time"

	"beatai-api/pkg/scoring"
)

// Status is the lifecycle state of a game.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Game is one persisted game.
type Game struct {
	ID           string
	UserID       string
	Mode         scoring.Mode
	Status       Status
	UserScore    int
	AIScore      int
	PointsEarned int
	CreatedAt    time.Time
	// CompletedAt holds the submission lock time while the game is active.
	CompletedAt *time.Time
}

// Round is one asset/timeframe prediction inside a game.
type Round struct {
	ID             string
	GameID         string
	RoundNumber    int
	Asset          string
	Timeframe      string
	StartPrice     float64
	EndPrice       *float64
	UserPrediction scoring.Direction
	AIPrediction   scoring.Direction
	AIConfidence   *int
	AIReasoning    string
	Result         scoring.Outcome
	// CreatedAt is re-stamped to the lock instant when the pick is recorded.
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// Picked reports whether the user prediction has been recorded.
func (r *Round) Picked() bool { return r.UserPrediction != "" }

// Settled reports whether the round has an end price and a result.
func (r *Round) Settled() bool { return r.EndPrice != nil && r.Result != "" }

// RoundLock is everything written when a user pick is accepted.
type RoundLock struct {
	UserPrediction scoring.Direction
	AIPrediction   scoring.Direction
	AIConfidence   int
	AIReasoning    string
	StartPrice     float64
	LockedAt       time.Time
}

// RoundSettlement is written once when a round is evaluated.
type RoundSettlement struct {
	EndPrice    float64
	Result      scoring.Outcome
	CompletedAt time.Time
}

// GameCompletion is written once when every round has settled.
type GameCompletion struct {
	UserScore    int
	AIScore      int
	PointsEarned int
	CompletedAt  time.Time
}

// Store persists games and rounds.
//
// LockGame, CompleteRound and CompleteGame are write-once: LockGame fails
// with ErrAlreadyPicked if any of its rounds is picked, and the Complete
// methods leave an already completed record untouched and return what is
// stored.
type Store interface {
	EnsureUser(ctx context.Context, username string) (string, error)
	// CreateGame assigns IDs to g and rounds and persists them together.
	CreateGame(ctx context.Context, g *Game, rounds []*Round) error
	GetGame(ctx context.Context, gameID string) (*Game, error)
	// ListRounds returns the game's rounds ordered by round number.
	ListRounds(ctx context.Context, gameID string) ([]*Round, error)
	// LockGame records every round's pick and stamps the game's lock time
	// in one all-or-nothing write. locks is keyed by round ID and every key
	// must belong to gameID. An inactive game fails with ErrGameNotActive.
	LockGame(ctx context.Context, gameID string, locks map[string]RoundLock, lockedAt time.Time) error
	CompleteRound(ctx context.Context, roundID string, s RoundSettlement) (*Round, error)
	CompleteGame(ctx context.Context, gameID string, c GameCompletion) (*Game, error)
}
