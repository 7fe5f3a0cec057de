package game

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/mr"
	"github.com/zeromicro/go-zero/core/syncx"

	"beatai-api/pkg/scoring"
	"beatai-api/pkg/settlement"
	"beatai-api/pkg/signal"
	"beatai-api/pkg/timeframe"
)

// Locker serialises settlement of one game across processes.
type Locker interface {
	// Lock blocks until gameID is held or fails with ErrSettlementBusy.
	Lock(ctx context.Context, gameID string) (release func(), err error)
}

// ResultCache keeps completed game results. Implementations swallow their
// own failures; a miss only costs a store read.
type ResultCache interface {
	Get(ctx context.Context, gameID string) (*GameResult, bool)
	Put(ctx context.Context, result *GameResult)
}

// Service drives whole games: start, warm, submit and result.
type Service struct {
	engine  *Engine
	store   Store
	retry   *RetryHandler
	intn    func(n int) int
	locker  Locker
	results ResultCache
	calls   syncx.LockedCalls
}

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithRetry overrides the round-building retry policy.
func WithRetry(cfg RetryConfig) ServiceOption {
	return func(s *Service) {
		s.retry = NewRetryHandler(cfg)
	}
}

// WithRand replaces the asset picker's random source.
func WithRand(intn func(n int) int) ServiceOption {
	return func(s *Service) {
		s.intn = intn
	}
}

// WithLocker adds a cross-process settlement lock.
func WithLocker(l Locker) ServiceOption {
	return func(s *Service) {
		s.locker = l
	}
}

// WithResultCache adds a completed-result cache.
func WithResultCache(c ResultCache) ServiceOption {
	return func(s *Service) {
		s.results = c
	}
}

// NewService wires a game service.
func NewService(engine *Engine, store Store, opts ...ServiceOption) *Service {
	s := &Service{
		engine: engine,
		store:  store,
		retry:  NewRetryHandler(RetryConfig{}),
		calls:  syncx.NewLockedCalls(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine returns the underlying round engine.
func (s *Service) Engine() *Engine {
	return s.engine
}

type builtRound struct {
	index int
	start RoundStart
}

// StartGame creates a game for username with RoundCount random assets from
// the mode pool. Rounds are built concurrently; provider failures are retried
// and finally reported as ErrMarketUnavailable.
func (s *Service) StartGame(ctx context.Context, username, mode string) (*StartedGame, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrInvalidUsername
	}
	m, ok := scoring.ParseMode(mode)
	if !ok {
		return nil, ErrInvalidMode
	}
	cfg, _ := scoring.Lookup(m)
	assets := scoring.PickRoundAssets(m, s.intn)

	starts, err := mr.MapReduce(func(source chan<- int) {
		for i := range assets {
			source <- i
		}
	}, func(i int, writer mr.Writer[builtRound], cancel func(error)) {
		var start RoundStart
		err := s.retry.Do(ctx, func() error {
			var err error
			start, err = s.engine.StartRound(ctx, assets[i], cfg.Timeframe)
			return err
		})
		if err != nil {
			cancel(fmt.Errorf("build round %s: %w", assets[i], err))
			return
		}
		writer.Write(builtRound{index: i, start: start})
	}, func(pipe <-chan builtRound, writer mr.Writer[[]RoundStart], cancel func(error)) {
		out := make([]RoundStart, len(assets))
		for b := range pipe {
			out[b.index] = b.start
		}
		writer.Write(out)
	}, mr.WithContext(ctx))
	if err != nil {
		logx.WithContext(ctx).Errorf("game: start failed mode=%s err=%v", m, err)
		return nil, marketUnavailable(err)
	}

	userID, err := s.store.EnsureUser(ctx, username)
	if err != nil {
		return nil, err
	}
	now := s.engine.Now().UTC()
	g := &Game{UserID: userID, Mode: m, Status: StatusActive, CreatedAt: now}
	rounds := make([]*Round, len(assets))
	for i, asset := range assets {
		rounds[i] = &Round{
			RoundNumber:  i + 1,
			Asset:        asset,
			Timeframe:    cfg.Timeframe,
			StartPrice:   starts[i].StartPrice,
			AIPrediction: scoring.Up,
			CreatedAt:    now,
		}
	}
	if err := s.store.CreateGame(ctx, g, rounds); err != nil {
		return nil, err
	}

	out := &StartedGame{GameID: g.ID, Mode: m, Rounds: make([]StartedRound, len(rounds))}
	for i, r := range rounds {
		out.Rounds[i] = StartedRound{
			RoundID:      r.ID,
			RoundNumber:  r.RoundNumber,
			Asset:        r.Asset,
			Timeframe:    r.Timeframe,
			CurrentPrice: r.StartPrice,
			Candles:      starts[i].Candles,
		}
	}
	logx.WithContext(ctx).Infof("game: started id=%s mode=%s assets=%v", g.ID, m, assets)
	return out, nil
}

// WarmGame pre-computes the current signal for every round of a game. Warm
// failures are logged by the signal cache and do not fail the call.
func (s *Service) WarmGame(ctx context.Context, gameID string) error {
	if _, err := s.store.GetGame(ctx, gameID); err != nil {
		return err
	}
	rounds, err := s.store.ListRounds(ctx, gameID)
	if err != nil {
		return err
	}
	mr.ForEach(func(source chan<- *Round) {
		for _, r := range rounds {
			if !r.Picked() {
				source <- r
			}
		}
	}, func(r *Round) {
		_ = s.engine.WarmSignal(ctx, r.Asset, r.Timeframe)
	}, mr.WithContext(ctx))
	return nil
}

type lockedPick struct {
	round     *Round
	direction scoring.Direction
	signal    signal.Signal
	price     float64
	window    settlement.Window
}

// Submit records the user's picks for every round. The AI signal of each
// round is frozen at the lock instant before the pick is persisted, and the
// start price is re-read at lock time.
func (s *Service) Submit(ctx context.Context, gameID string, picks []Pick) (*Submission, error) {
	g, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if g.Status != StatusActive {
		return nil, ErrGameNotActive
	}
	rounds, err := s.store.ListRounds(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if len(rounds) == 0 {
		return nil, fmt.Errorf("%w: game %s has no rounds", ErrRoundNotFound, gameID)
	}
	if len(picks) != len(rounds) {
		return nil, fmt.Errorf("%w: you must submit predictions for all %d rounds", ErrPredictionCount, len(rounds))
	}

	byID := make(map[string]*Round, len(rounds))
	for _, r := range rounds {
		byID[r.ID] = r
	}
	pending := make([]lockedPick, 0, len(picks))
	seen := make(map[string]struct{}, len(picks))
	for _, p := range picks {
		r, ok := byID[p.RoundID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrRoundNotFound, p.RoundID)
		}
		if _, dup := seen[p.RoundID]; dup {
			return nil, fmt.Errorf("%w: round %s submitted twice", ErrPredictionCount, p.RoundID)
		}
		seen[p.RoundID] = struct{}{}
		dir, ok := scoring.ParseDirection(p.Direction)
		if !ok {
			return nil, ErrInvalidDirection
		}
		if r.Picked() {
			return nil, ErrAlreadyPicked
		}
		pending = append(pending, lockedPick{round: r, direction: dir})
	}

	lockTime := s.engine.Now().UTC().Truncate(time.Millisecond)
	lockMs := lockTime.UnixMilli()

	locked, err := mr.MapReduce(func(source chan<- int) {
		for i := range pending {
			source <- i
		}
	}, func(i int, writer mr.Writer[lockedPick], cancel func(error)) {
		lp := pending[i]
		r := lp.round
		sig, err := s.engine.FreezeSignal(ctx, r.Asset, r.Timeframe, lockMs)
		if err != nil {
			cancel(fmt.Errorf("freeze signal %s: %w", r.Asset, err))
			return
		}
		price, err := s.engine.CurrentPrice(ctx, r.Asset)
		if err != nil {
			cancel(fmt.Errorf("price %s: %w", r.Asset, err))
			return
		}
		w, err := s.engine.SettlementWindow(lockMs, r.Timeframe)
		if err != nil {
			cancel(err)
			return
		}
		lp.signal, lp.price, lp.window = sig, price, w
		writer.Write(lp)
	}, func(pipe <-chan lockedPick, writer mr.Writer[[]lockedPick], cancel func(error)) {
		out := make([]lockedPick, 0, len(pending))
		for lp := range pipe {
			out = append(out, lp)
		}
		writer.Write(out)
	}, mr.WithContext(ctx))
	if err != nil {
		logx.WithContext(ctx).Errorf("game: submit failed id=%s err=%v", gameID, err)
		return nil, marketUnavailable(err)
	}

	orderByRound(locked)
	windows := make([]settlement.Window, len(locked))
	out := &Submission{GameID: gameID, LockTime: lockTime, Rounds: make([]LockedRound, len(locked))}
	locks := make(map[string]RoundLock, len(locked))
	for i, lp := range locked {
		locks[lp.round.ID] = RoundLock{
			UserPrediction: lp.direction,
			AIPrediction:   lp.signal.Prediction,
			AIConfidence:   lp.signal.Confidence,
			AIReasoning:    lp.signal.Frozen(),
			StartPrice:     lp.price,
			LockedAt:       lockTime,
		}
		windows[i] = lp.window
		durationMs, _ := timeframe.Millis(lp.round.Timeframe)
		out.Rounds[i] = LockedRound{
			RoundID:    lp.round.ID,
			Asset:      lp.round.Asset,
			Timeframe:  lp.round.Timeframe,
			StartPrice: lp.price,
			OpenAt:     lockTime,
			CloseAt:    time.UnixMilli(lp.window.SettleAtMs).UTC(),
			DurationMs: durationMs,
		}
	}
	if err := s.store.LockGame(ctx, gameID, locks, lockTime); err != nil {
		logx.WithContext(ctx).Errorf("game: lock failed id=%s err=%v", gameID, err)
		return nil, err
	}

	earliest, latest := settlement.Span(windows)
	out.EarliestAt = time.UnixMilli(earliest).UTC()
	out.LatestAt = time.UnixMilli(latest).UTC()
	logx.WithContext(ctx).Infof("game: locked id=%s lock=%d settle=[%d,%d]", gameID, lockMs, earliest, latest)
	return out, nil
}

func orderByRound(picks []lockedPick) {
	sort.Slice(picks, func(i, j int) bool {
		return picks[i].round.RoundNumber < picks[j].round.RoundNumber
	})
}

// Result settles every due round and completes the game once all rounds
// have settled. Calls for one game are serialised; a completed game returns
// its stored scores unchanged.
func (s *Service) Result(ctx context.Context, gameID string) (*GameResult, error) {
	if s.results != nil {
		if cached, ok := s.results.Get(ctx, gameID); ok {
			return cached, nil
		}
	}

	v, err := s.calls.Do(gameID, func() (any, error) {
		if s.locker != nil {
			release, err := s.locker.Lock(ctx, gameID)
			if err != nil {
				return nil, err
			}
			defer release()
		}
		return s.settle(ctx, gameID)
	})
	if err != nil {
		return nil, err
	}
	res := v.(*GameResult)
	if res.Status == ResultCompleted && s.results != nil {
		s.results.Put(ctx, res)
	}
	return res, nil
}

func (s *Service) settle(ctx context.Context, gameID string) (*GameResult, error) {
	g, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	rounds, err := s.store.ListRounds(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if len(rounds) == 0 {
		return nil, fmt.Errorf("%w: game %s has no rounds", ErrRoundNotFound, gameID)
	}

	now := s.engine.Now().UTC()
	nowMs := now.UnixMilli()
	res := &GameResult{GameID: g.ID, Mode: g.Mode, Rounds: make([]RoundResult, 0, len(rounds))}
	outcomes := make([]scoring.Outcome, 0, len(rounds))
	allSettled := true

	for _, r := range rounds {
		if !r.Picked() {
			allSettled = false
			view := roundView(r)
			view.Status = RoundPendingPick
			res.Rounds = append(res.Rounds, view)
			continue
		}

		w, err := s.engine.SettlementWindow(r.CreatedAt.UnixMilli(), r.Timeframe)
		if err != nil {
			return nil, err
		}

		if !r.Settled() && !w.Due(nowMs) {
			allSettled = false
			view := withWindow(roundView(r), r, w)
			view.Status = RoundPending
			remaining := w.RemainingSeconds(nowMs)
			view.TimeRemaining = &remaining
			res.Rounds = append(res.Rounds, view)
			continue
		}

		if !r.Settled() {
			ev, err := s.engine.EvaluateRound(ctx, r)
			if err != nil {
				logx.WithContext(ctx).Errorf("game: settle round failed game=%s round=%s asset=%s err=%v", gameID, r.ID, r.Asset, err)
				allSettled = false
				view := roundView(r)
				view.Status = RoundError
				view.Error = "Failed to fetch candle close price"
				res.Rounds = append(res.Rounds, view)
				continue
			}
			stored, err := s.store.CompleteRound(ctx, r.ID, RoundSettlement{
				EndPrice:    ev.EndPrice,
				Result:      ev.Result,
				CompletedAt: now,
			})
			if err != nil {
				return nil, err
			}
			r = stored
		}

		view := withWindow(roundView(r), r, w)
		view.Status = RoundSettled
		res.Rounds = append(res.Rounds, view)
		outcomes = append(outcomes, r.Result)
	}

	userScore, aiScore := scoring.Tally(outcomes)
	switch {
	case g.Status == StatusCompleted:
		res.Status = ResultCompleted
		res.UserScore, res.AIScore, res.PointsEarned = g.UserScore, g.AIScore, g.PointsEarned
	case allSettled:
		points := s.engine.ScorePoints(g.Mode, userScore, aiScore)
		stored, err := s.store.CompleteGame(ctx, g.ID, GameCompletion{
			UserScore:    userScore,
			AIScore:      aiScore,
			PointsEarned: points,
			CompletedAt:  now,
		})
		if err != nil {
			return nil, err
		}
		res.Status = ResultCompleted
		res.UserScore, res.AIScore, res.PointsEarned = stored.UserScore, stored.AIScore, stored.PointsEarned
		logx.WithContext(ctx).Infof("game: completed id=%s user=%d ai=%d points=%d", g.ID, stored.UserScore, stored.AIScore, stored.PointsEarned)
	default:
		res.Status = ResultPending
		res.UserScore, res.AIScore = userScore, aiScore
	}
	return res, nil
}

func roundView(r *Round) RoundResult {
	return RoundResult{
		RoundID:        r.ID,
		RoundNumber:    r.RoundNumber,
		Asset:          r.Asset,
		Timeframe:      r.Timeframe,
		StartPrice:     r.StartPrice,
		EndPrice:       r.EndPrice,
		UserPrediction: r.UserPrediction,
		AIPrediction:   r.AIPrediction,
		AIConfidence:   r.AIConfidence,
		AIReasoning:    r.AIReasoning,
		Result:         r.Result,
	}
}

func withWindow(view RoundResult, r *Round, w settlement.Window) RoundResult {
	openAt := r.CreatedAt.UTC()
	closeAt := time.UnixMilli(w.SettleAtMs).UTC()
	view.OpenAt, view.CloseAt = &openAt, &closeAt
	return view
}
