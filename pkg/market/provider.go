package market

import "context"

// Provider is a single external market-data source. Implementations perform one
// bounded network call per method and never retry; failover is the Gateway's job.
type Provider interface {
	// Name identifies the provider in logs, metrics and aggregated errors.
	Name() string
	// CurrentPrice returns the latest traded/quoted price for the canonical asset.
	CurrentPrice(ctx context.Context, asset string) (float64, error)
	// Candles returns up to limit candles ordered ascending by open time.
	Candles(ctx context.Context, asset, interval string, limit int) ([]Candle, error)
}

// Candle is one OHLCV bar. Times are unix milliseconds.
type Candle struct {
	OpenTime  int64   `json:"openTime"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	CloseTime int64   `json:"closeTime"`
}

// Closes extracts the close series.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}
