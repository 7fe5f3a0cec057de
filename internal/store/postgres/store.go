// Package postgres is a game.Store on PostgreSQL via go-zero sqlx and the
// pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	"beatai-api/pkg/game"
	"beatai-api/pkg/scoring"
)

//go:embed schema.sql
var schema string

const driverName = "pgx"

// Store implements game.Store.
type Store struct {
	conn sqlx.SqlConn
}

var _ game.Store = (*Store)(nil)

// New wraps an existing connection.
func New(conn sqlx.SqlConn) *Store {
	return &Store{conn: conn}
}

// Open connects to dsn with the given pool limits.
func Open(dsn string, maxOpen, maxIdle int) (*Store, error) {
	conn := sqlx.NewSqlConn(driverName, dsn)
	db, err := conn.RawDB()
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}
	return New(conn), nil
}

// Migrate creates the tables when missing.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.conn.ExecCtx(ctx, schema)
	return err
}

type gameRow struct {
	ID           string       `db:"id"`
	UserID       string       `db:"user_id"`
	Mode         string       `db:"mode"`
	Status       string       `db:"status"`
	UserScore    int64        `db:"user_score"`
	AIScore      int64        `db:"ai_score"`
	PointsEarned int64        `db:"points_earned"`
	CreatedAt    time.Time    `db:"created_at"`
	CompletedAt  sql.NullTime `db:"completed_at"`
}

type roundRow struct {
	ID             string          `db:"id"`
	GameID         string          `db:"game_id"`
	RoundNumber    int64           `db:"round_number"`
	Asset          string          `db:"asset"`
	Timeframe      string          `db:"timeframe"`
	StartPrice     float64         `db:"start_price"`
	EndPrice       sql.NullFloat64 `db:"end_price"`
	UserPrediction sql.NullString  `db:"user_prediction"`
	AIPrediction   string          `db:"ai_prediction"`
	AIConfidence   sql.NullInt64   `db:"ai_confidence"`
	AIReasoning    sql.NullString  `db:"ai_reasoning"`
	Result         sql.NullString  `db:"result"`
	CreatedAt      time.Time       `db:"created_at"`
	CompletedAt    sql.NullTime    `db:"completed_at"`
}

const gameColumns = `id, user_id, mode, status, user_score, ai_score, points_earned, created_at, completed_at`

const roundColumns = `id, game_id, round_number, asset, timeframe, start_price, end_price, user_prediction,
    ai_prediction, ai_confidence, ai_reasoning, result, created_at, completed_at`

func (s *Store) EnsureUser(ctx context.Context, username string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(username))
	if name == "" {
		return "", game.ErrInvalidUsername
	}
	const stmt = `
INSERT INTO public.users (id, username)
VALUES ($1, $2)
ON CONFLICT (username) DO UPDATE SET username = EXCLUDED.username
RETURNING id`
	var id string
	if err := s.conn.QueryRowCtx(ctx, &id, stmt, uuid.NewString(), name); err != nil {
		return "", fmt.Errorf("postgres: ensure user: %w", err)
	}
	return id, nil
}

func (s *Store) CreateGame(ctx context.Context, g *game.Game, rounds []*game.Round) error {
	const gameStmt = `
INSERT INTO public.games (id, user_id, mode, status, user_score, ai_score, points_earned, created_at)
VALUES ($1, $2, $3, $4, 0, 0, 0, $5)`
	const roundStmt = `
INSERT INTO public.rounds (id, game_id, round_number, asset, timeframe, start_price, ai_prediction, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	gameID := uuid.NewString()
	roundIDs := make([]string, len(rounds))
	err := s.conn.TransactCtx(ctx, func(ctx context.Context, session sqlx.Session) error {
		if _, err := session.ExecCtx(ctx, gameStmt, gameID, g.UserID, string(g.Mode), string(g.Status), g.CreatedAt.UTC()); err != nil {
			return err
		}
		for i, r := range rounds {
			roundIDs[i] = uuid.NewString()
			if _, err := session.ExecCtx(ctx, roundStmt,
				roundIDs[i],
				gameID,
				r.RoundNumber,
				r.Asset,
				r.Timeframe,
				r.StartPrice,
				string(r.AIPrediction),
				r.CreatedAt.UTC(),
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("postgres: create game: %w", err)
	}
	g.ID = gameID
	for i, r := range rounds {
		r.ID, r.GameID = roundIDs[i], gameID
	}
	return nil
}

func (s *Store) GetGame(ctx context.Context, gameID string) (*game.Game, error) {
	if !validID(gameID) {
		return nil, game.ErrGameNotFound
	}
	var row gameRow
	err := s.conn.QueryRowCtx(ctx, &row, `SELECT `+gameColumns+` FROM public.games WHERE id = $1`, gameID)
	switch {
	case errors.Is(err, sqlx.ErrNotFound):
		return nil, game.ErrGameNotFound
	case err != nil:
		return nil, fmt.Errorf("postgres: get game: %w", err)
	}
	return row.toGame(), nil
}

func (s *Store) ListRounds(ctx context.Context, gameID string) ([]*game.Round, error) {
	if !validID(gameID) {
		return nil, nil
	}
	var rows []roundRow
	err := s.conn.QueryRowsCtx(ctx, &rows,
		`SELECT `+roundColumns+` FROM public.rounds WHERE game_id = $1 ORDER BY round_number ASC`, gameID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list rounds: %w", err)
	}
	out := make([]*game.Round, len(rows))
	for i := range rows {
		out[i] = rows[i].toRound()
	}
	return out, nil
}

func (s *Store) getRound(ctx context.Context, roundID string) (*game.Round, error) {
	if !validID(roundID) {
		return nil, fmt.Errorf("%w: %s", game.ErrRoundNotFound, roundID)
	}
	var row roundRow
	err := s.conn.QueryRowCtx(ctx, &row, `SELECT `+roundColumns+` FROM public.rounds WHERE id = $1`, roundID)
	switch {
	case errors.Is(err, sqlx.ErrNotFound):
		return nil, fmt.Errorf("%w: %s", game.ErrRoundNotFound, roundID)
	case err != nil:
		return nil, fmt.Errorf("postgres: get round: %w", err)
	}
	return row.toRound(), nil
}

// LockGame updates every round conditionally on it being unpicked and then
// stamps the game, all in one transaction. Rounds are updated in ID order so
// concurrent submissions take row locks in the same order.
func (s *Store) LockGame(ctx context.Context, gameID string, locks map[string]game.RoundLock, lockedAt time.Time) error {
	if !validID(gameID) {
		return game.ErrGameNotFound
	}
	const roundStmt = `
UPDATE public.rounds SET
    user_prediction = $3,
    ai_prediction = $4,
    ai_confidence = $5,
    ai_reasoning = $6,
    start_price = $7,
    created_at = $8,
    updated_at = NOW()
WHERE id = $1 AND game_id = $2 AND user_prediction IS NULL`
	const gameStmt = `
UPDATE public.games SET completed_at = $2, updated_at = NOW()
WHERE id = $1 AND status = 'active'`

	roundIDs := make([]string, 0, len(locks))
	for id := range locks {
		if !validID(id) {
			return fmt.Errorf("%w: %s", game.ErrRoundNotFound, id)
		}
		roundIDs = append(roundIDs, id)
	}
	sort.Strings(roundIDs)

	err := s.conn.TransactCtx(ctx, func(ctx context.Context, session sqlx.Session) error {
		for _, id := range roundIDs {
			lock := locks[id]
			res, err := session.ExecCtx(ctx, roundStmt,
				id,
				gameID,
				string(lock.UserPrediction),
				string(lock.AIPrediction),
				lock.AIConfidence,
				lock.AIReasoning,
				lock.StartPrice,
				lock.LockedAt.UTC(),
			)
			if err != nil {
				return err
			}
			if n, err := res.RowsAffected(); err != nil || n != 1 {
				return lockRoundFailure(ctx, session, gameID, id)
			}
		}

		res, err := session.ExecCtx(ctx, gameStmt, gameID, lockedAt.UTC())
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil || n != 1 {
			var status string
			if err := session.QueryRowCtx(ctx, &status, `SELECT status FROM public.games WHERE id = $1`, gameID); err != nil {
				if errors.Is(err, sqlx.ErrNotFound) {
					return game.ErrGameNotFound
				}
				return err
			}
			return game.ErrGameNotActive
		}
		return nil
	})
	if err != nil {
		if isGameError(err) {
			return err
		}
		return fmt.Errorf("postgres: lock game: %w", err)
	}
	return nil
}

// lockRoundFailure explains why a conditional round update touched no row.
func lockRoundFailure(ctx context.Context, session sqlx.Session, gameID, roundID string) error {
	var owner string
	err := session.QueryRowCtx(ctx, &owner, `SELECT game_id FROM public.rounds WHERE id = $1`, roundID)
	switch {
	case errors.Is(err, sqlx.ErrNotFound) || (err == nil && !strings.EqualFold(owner, gameID)):
		return fmt.Errorf("%w: %s", game.ErrRoundNotFound, roundID)
	case err != nil:
		return err
	}
	return game.ErrAlreadyPicked
}

func isGameError(err error) bool {
	for _, target := range []error{game.ErrGameNotFound, game.ErrGameNotActive, game.ErrRoundNotFound, game.ErrAlreadyPicked} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (s *Store) CompleteRound(ctx context.Context, roundID string, st game.RoundSettlement) (*game.Round, error) {
	if !validID(roundID) {
		return nil, fmt.Errorf("%w: %s", game.ErrRoundNotFound, roundID)
	}
	const stmt = `
UPDATE public.rounds SET end_price = $2, result = $3, completed_at = $4, updated_at = NOW()
WHERE id = $1 AND result IS NULL`
	if _, err := s.conn.ExecCtx(ctx, stmt, roundID, st.EndPrice, string(st.Result), st.CompletedAt.UTC()); err != nil {
		return nil, fmt.Errorf("postgres: complete round: %w", err)
	}
	return s.getRound(ctx, roundID)
}

func (s *Store) CompleteGame(ctx context.Context, gameID string, c game.GameCompletion) (*game.Game, error) {
	if !validID(gameID) {
		return nil, game.ErrGameNotFound
	}
	const stmt = `
UPDATE public.games SET
    status = 'completed',
    user_score = $2,
    ai_score = $3,
    points_earned = $4,
    completed_at = $5,
    updated_at = NOW()
WHERE id = $1 AND status <> 'completed'`
	if _, err := s.conn.ExecCtx(ctx, stmt, gameID, c.UserScore, c.AIScore, c.PointsEarned, c.CompletedAt.UTC()); err != nil {
		return nil, fmt.Errorf("postgres: complete game: %w", err)
	}
	return s.GetGame(ctx, gameID)
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (r gameRow) toGame() *game.Game {
	g := &game.Game{
		ID:           r.ID,
		UserID:       r.UserID,
		Mode:         scoring.Mode(r.Mode),
		Status:       game.Status(r.Status),
		UserScore:    int(r.UserScore),
		AIScore:      int(r.AIScore),
		PointsEarned: int(r.PointsEarned),
		CreatedAt:    r.CreatedAt.UTC(),
	}
	if r.CompletedAt.Valid {
		t := r.CompletedAt.Time.UTC()
		g.CompletedAt = &t
	}
	return g
}

func (r roundRow) toRound() *game.Round {
	out := &game.Round{
		ID:           r.ID,
		GameID:       r.GameID,
		RoundNumber:  int(r.RoundNumber),
		Asset:        r.Asset,
		Timeframe:    r.Timeframe,
		StartPrice:   r.StartPrice,
		AIPrediction: scoring.Direction(r.AIPrediction),
		AIReasoning:  r.AIReasoning.String,
		CreatedAt:    r.CreatedAt.UTC(),
	}
	if r.EndPrice.Valid {
		v := r.EndPrice.Float64
		out.EndPrice = &v
	}
	if r.UserPrediction.Valid {
		out.UserPrediction = scoring.Direction(r.UserPrediction.String)
	}
	if r.AIConfidence.Valid {
		v := int(r.AIConfidence.Int64)
		out.AIConfidence = &v
	}
	if r.Result.Valid {
		out.Result = scoring.Outcome(r.Result.String)
	}
	if r.CompletedAt.Valid {
		t := r.CompletedAt.Time.UTC()
		out.CompletedAt = &t
	}
	return out
}
