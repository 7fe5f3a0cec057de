// Package memory is an in-process game.Store for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"beatai-api/pkg/game"
)

// Store keeps games, rounds and users in maps guarded by one mutex. Records
// are copied on the way in and out.
type Store struct {
	mu     sync.RWMutex
	users  map[string]string
	games  map[string]*game.Game
	rounds map[string]*game.Round
	byGame map[string][]string
}

var _ game.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		users:  make(map[string]string),
		games:  make(map[string]*game.Game),
		rounds: make(map[string]*game.Round),
		byGame: make(map[string][]string),
	}
}

func (s *Store) EnsureUser(_ context.Context, username string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(username))
	if key == "" {
		return "", game.ErrInvalidUsername
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.users[key]; ok {
		return id, nil
	}
	id := uuid.NewString()
	s.users[key] = id
	return id, nil
}

func (s *Store) CreateGame(_ context.Context, g *game.Game, rounds []*game.Round) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g.ID = uuid.NewString()
	s.games[g.ID] = copyGame(g)
	ids := make([]string, len(rounds))
	for i, r := range rounds {
		r.ID = uuid.NewString()
		r.GameID = g.ID
		s.rounds[r.ID] = copyRound(r)
		ids[i] = r.ID
	}
	s.byGame[g.ID] = ids
	return nil
}

func (s *Store) GetGame(_ context.Context, gameID string) (*game.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.games[gameID]
	if !ok {
		return nil, game.ErrGameNotFound
	}
	return copyGame(g), nil
}

func (s *Store) ListRounds(_ context.Context, gameID string) ([]*game.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byGame[gameID]
	out := make([]*game.Round, 0, len(ids))
	for _, id := range ids {
		out = append(out, copyRound(s.rounds[id]))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoundNumber < out[j].RoundNumber })
	return out, nil
}

func (s *Store) LockGame(_ context.Context, gameID string, locks map[string]game.RoundLock, lockedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[gameID]
	if !ok {
		return game.ErrGameNotFound
	}
	if g.Status != game.StatusActive {
		return game.ErrGameNotActive
	}
	for roundID := range locks {
		r, ok := s.rounds[roundID]
		if !ok || r.GameID != gameID {
			return fmt.Errorf("%w: %s", game.ErrRoundNotFound, roundID)
		}
		if r.Picked() {
			return game.ErrAlreadyPicked
		}
	}

	for roundID, lock := range locks {
		r := s.rounds[roundID]
		confidence := lock.AIConfidence
		r.UserPrediction = lock.UserPrediction
		r.AIPrediction = lock.AIPrediction
		r.AIConfidence = &confidence
		r.AIReasoning = lock.AIReasoning
		r.StartPrice = lock.StartPrice
		r.CreatedAt = lock.LockedAt.UTC()
	}
	t := lockedAt.UTC()
	g.CompletedAt = &t
	return nil
}

func (s *Store) CompleteRound(_ context.Context, roundID string, st game.RoundSettlement) (*game.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rounds[roundID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", game.ErrRoundNotFound, roundID)
	}
	if !r.Settled() {
		end := st.EndPrice
		completed := st.CompletedAt.UTC()
		r.EndPrice = &end
		r.Result = st.Result
		r.CompletedAt = &completed
	}
	return copyRound(r), nil
}

func (s *Store) CompleteGame(_ context.Context, gameID string, c game.GameCompletion) (*game.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[gameID]
	if !ok {
		return nil, game.ErrGameNotFound
	}
	if g.Status != game.StatusCompleted {
		completed := c.CompletedAt.UTC()
		g.Status = game.StatusCompleted
		g.UserScore = c.UserScore
		g.AIScore = c.AIScore
		g.PointsEarned = c.PointsEarned
		g.CompletedAt = &completed
	}
	return copyGame(g), nil
}

func copyGame(g *game.Game) *game.Game {
	out := *g
	if g.CompletedAt != nil {
		t := *g.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}

func copyRound(r *game.Round) *game.Round {
	out := *r
	if r.EndPrice != nil {
		v := *r.EndPrice
		out.EndPrice = &v
	}
	if r.AIConfidence != nil {
		v := *r.AIConfidence
		out.AIConfidence = &v
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}
