// Code scaffolded by goctl. Safe to edit.
// goctl 1.9.2

package types

type StartGameRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Mode     string `json:"mode" validate:"required"`
}

type ChartCandle struct {
	T int64   `json:"t"`
	O float64 `json:"o"`
	H float64 `json:"h"`
	L float64 `json:"l"`
	C float64 `json:"c"`
	V float64 `json:"v"`
}

type StartedRound struct {
	RoundId      string        `json:"round_id"`
	RoundNumber  int           `json:"round_number"`
	Asset        string        `json:"asset"`
	Timeframe    string        `json:"timeframe"`
	CurrentPrice float64       `json:"current_price"`
	ChartPoints  []float64     `json:"chart_points"`
	ChartCandles []ChartCandle `json:"chart_candles"`
}

type StartGameResponse struct {
	GameId string         `json:"game_id"`
	Mode   string         `json:"mode"`
	Rounds []StartedRound `json:"rounds"`
}

type WarmRequest struct {
	GameId string `json:"game_id" validate:"required"`
}

type WarmResponse struct {
	Status string `json:"status"`
}

type Prediction struct {
	RoundId   string `json:"round_id" validate:"required"`
	Direction string `json:"direction" validate:"required"`
}

type SubmitRequest struct {
	GameId      string       `json:"game_id" validate:"required"`
	Predictions []Prediction `json:"predictions" validate:"required,min=1,dive"`
}

type SettleWindow struct {
	EarliestAt string `json:"earliest_at"`
	LatestAt   string `json:"latest_at"`
}

type EvaluationCandle struct {
	OpenAt     string `json:"open_at"`
	CloseAt    string `json:"close_at"`
	DurationMs int64  `json:"duration_ms,omitempty"`
}

type LockedRound struct {
	RoundId          string           `json:"round_id"`
	Asset            string           `json:"asset"`
	Timeframe        string           `json:"timeframe"`
	StartPrice       float64          `json:"start_price"`
	EvaluationCandle EvaluationCandle `json:"evaluation_candle"`
}

type SubmitResponse struct {
	Status       string        `json:"status"`
	LockTime     string        `json:"lock_time"`
	SettleWindow SettleWindow  `json:"settle_window"`
	Rounds       []LockedRound `json:"rounds"`
}

type ResultRequest struct {
	GameId string `form:"game_id" validate:"required"`
}

type RoundResult struct {
	RoundId          string            `json:"round_id"`
	RoundNumber      int               `json:"round_number"`
	Asset            string            `json:"asset"`
	Timeframe        string            `json:"timeframe"`
	StartPrice       float64           `json:"start_price"`
	EndPrice         *float64          `json:"end_price"`
	UserPrediction   *string           `json:"user_prediction"`
	AiPrediction     *string           `json:"ai_prediction"`
	AiConfidence     *int              `json:"ai_confidence"`
	AiReasoning      *string           `json:"ai_reasoning"`
	Result           string            `json:"result"`
	TimeRemaining    *int64            `json:"time_remaining,omitempty"`
	EvaluationCandle *EvaluationCandle `json:"evaluation_candle,omitempty"`
	Error            string            `json:"error,omitempty"`
}

type ResultResponse struct {
	GameId       string        `json:"game_id"`
	Mode         string        `json:"mode"`
	Status       string        `json:"status"`
	UserScore    int           `json:"user_score"`
	AiScore      int           `json:"ai_score"`
	PointsEarned int           `json:"points_earned"`
	Rounds       []RoundResult `json:"rounds"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
