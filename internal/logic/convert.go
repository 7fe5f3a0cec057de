package logic

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"beatai-api/internal/types"
	"beatai-api/pkg/game"
	"beatai-api/pkg/market"
)

// isoMillis renders instants the way JavaScript's toISOString does.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(isoMillis)
}

func validate(v *validator.Validate, req any) error {
	if err := v.Struct(req); err != nil {
		return types.BadRequest(fmt.Errorf("invalid request: %w", err))
	}
	return nil
}

func toStartedRound(r game.StartedRound) types.StartedRound {
	out := types.StartedRound{
		RoundId:      r.RoundID,
		RoundNumber:  r.RoundNumber,
		Asset:        r.Asset,
		Timeframe:    r.Timeframe,
		CurrentPrice: r.CurrentPrice,
		ChartPoints:  make([]float64, len(r.Candles)),
		ChartCandles: make([]types.ChartCandle, len(r.Candles)),
	}
	for i, c := range r.Candles {
		out.ChartPoints[i] = c.Close
		out.ChartCandles[i] = toChartCandle(c)
	}
	return out
}

func toChartCandle(c market.Candle) types.ChartCandle {
	return types.ChartCandle{T: c.OpenTime, O: c.Open, H: c.High, L: c.Low, C: c.Close, V: c.Volume}
}

func toSubmitResponse(s *game.Submission) *types.SubmitResponse {
	resp := &types.SubmitResponse{
		Status:   "accepted",
		LockTime: formatTime(s.LockTime),
		SettleWindow: types.SettleWindow{
			EarliestAt: formatTime(s.EarliestAt),
			LatestAt:   formatTime(s.LatestAt),
		},
		Rounds: make([]types.LockedRound, len(s.Rounds)),
	}
	for i, r := range s.Rounds {
		resp.Rounds[i] = types.LockedRound{
			RoundId:    r.RoundID,
			Asset:      r.Asset,
			Timeframe:  r.Timeframe,
			StartPrice: r.StartPrice,
			EvaluationCandle: types.EvaluationCandle{
				OpenAt:     formatTime(r.OpenAt),
				CloseAt:    formatTime(r.CloseAt),
				DurationMs: r.DurationMs,
			},
		}
	}
	return resp
}

func toResultResponse(res *game.GameResult) *types.ResultResponse {
	resp := &types.ResultResponse{
		GameId:       res.GameID,
		Mode:         string(res.Mode),
		Status:       res.Status,
		UserScore:    res.UserScore,
		AiScore:      res.AIScore,
		PointsEarned: res.PointsEarned,
		Rounds:       make([]types.RoundResult, len(res.Rounds)),
	}
	for i, r := range res.Rounds {
		resp.Rounds[i] = toRoundResult(r)
	}
	return resp
}

// toRoundResult hides the AI side of a round until the user has picked; the
// stored AI prediction is only a placeholder before that.
func toRoundResult(r game.RoundResult) types.RoundResult {
	out := types.RoundResult{
		RoundId:       r.RoundID,
		RoundNumber:   r.RoundNumber,
		Asset:         r.Asset,
		Timeframe:     r.Timeframe,
		StartPrice:    r.StartPrice,
		EndPrice:      r.EndPrice,
		Result:        r.Status,
		TimeRemaining: r.TimeRemaining,
		Error:         r.Error,
	}
	if r.Status == game.RoundSettled {
		out.Result = string(r.Result)
	}
	if r.Status != game.RoundPendingPick {
		user := string(r.UserPrediction)
		ai := string(r.AIPrediction)
		out.UserPrediction, out.AiPrediction = &user, &ai
		out.AiConfidence = r.AIConfidence
		if r.AIReasoning != "" {
			reasoning := r.AIReasoning
			out.AiReasoning = &reasoning
		}
	}
	if r.OpenAt != nil && r.CloseAt != nil {
		out.EvaluationCandle = &types.EvaluationCandle{
			OpenAt:  formatTime(*r.OpenAt),
			CloseAt: formatTime(*r.CloseAt),
		}
	}
	return out
}
