package hyperliquid

import (
	"context"
	"fmt"
	"time"

	"beatai-api/pkg/market"
	"beatai-api/pkg/market/symbols"
)

var supportedIntervals = map[string]struct{}{
	"1m": {}, "3m": {}, "5m": {}, "15m": {}, "30m": {},
	"1h": {}, "2h": {}, "4h": {}, "8h": {}, "12h": {}, "1d": {},
}

// GetKlines fetches OHLCV data for the given interval.
func (c *Client) GetKlines(ctx context.Context, symbol string, interval string, limit int) ([]market.Candle, error) {
	if _, ok := supportedIntervals[interval]; !ok {
		return nil, fmt.Errorf("hyperliquid: unsupported interval %q", interval)
	}
	duration, err := symbols.IntervalDuration(interval)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("hyperliquid: limit must be positive")
	}

	canonical, err := c.canonicalSymbolFor(ctx, symbol)
	if err != nil {
		return nil, err
	}
	endTime := time.Now().UTC()
	startTime := endTime.Add(-duration * time.Duration(limit+10))

	var response CandleResponse
	request := InfoRequest{
		Type: "candleSnapshot",
		Req: CandleSnapshotRequest{
			Coin:      canonical,
			Interval:  interval,
			StartTime: startTime.UnixMilli(),
			EndTime:   endTime.UnixMilli(),
		},
	}
	if err := c.doRequest(ctx, request, &response); err != nil {
		return nil, err
	}
	if len(response) == 0 {
		return nil, fmt.Errorf("hyperliquid: empty kline response for %s %s", canonical, interval)
	}

	candles := make([]market.Candle, 0, len(response))
	for _, item := range response {
		candles = append(candles, market.Candle{
			OpenTime:  item.T,
			Open:      item.O,
			High:      item.H,
			Low:       item.L,
			Close:     item.C,
			Volume:    item.V,
			CloseTime: item.TClose,
		})
	}
	market.SortCandles(candles)
	return market.TrimCandles(candles, limit), nil
}
