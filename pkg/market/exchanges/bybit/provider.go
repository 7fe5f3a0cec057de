// Package bybit adapts Bybit v5 linear market endpoints to market.Provider.
package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"beatai-api/pkg/market"
	"beatai-api/pkg/market/exchanges/restclient"
	"beatai-api/pkg/market/symbols"
)

const (
	// ProviderType is the registry key for this adapter.
	ProviderType   = "bybit"
	defaultBaseURL = "https://api.bybit.com"
	category       = "linear"
)

// Provider queries Bybit's public market data.
type Provider struct {
	name    string
	baseURL string
	client  *restclient.Client
}

// New constructs the adapter.
func New(ep restclient.Endpoint) *Provider {
	ep = ep.Merge(restclient.Endpoint{Name: ProviderType, BaseURL: defaultBaseURL})
	return &Provider{name: ep.Name, baseURL: ep.BaseURL, client: ep.Client()}
}

func init() {
	market.RegisterProvider(ProviderType, func(cfg *market.ProviderConfig) (market.Provider, error) {
		return New(restclient.FromConfig(cfg)), nil
	})
}

// Name implements market.Provider.
func (p *Provider) Name() string { return p.name }

type envelope[T any] struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List []T `json:"list"`
	} `json:"result"`
}

func (e envelope[T]) err() error {
	if e.RetCode != 0 {
		return fmt.Errorf("retCode %d: %s", e.RetCode, e.RetMsg)
	}
	return nil
}

// CurrentPrice implements market.Provider.
func (p *Provider) CurrentPrice(ctx context.Context, asset string) (float64, error) {
	var resp envelope[struct {
		LastPrice json.Number `json:"lastPrice"`
	}]
	params := map[string]string{"category": category, "symbol": asset}
	if err := p.client.GetJSON(ctx, p.baseURL+"/v5/market/tickers", params, &resp); err != nil {
		return 0, err
	}
	if err := resp.err(); err != nil {
		return 0, err
	}
	if len(resp.Result.List) == 0 {
		return 0, fmt.Errorf("price unavailable for %s", asset)
	}
	price, err := restclient.ParseNumber(resp.Result.List[0].LastPrice)
	if err != nil {
		return 0, fmt.Errorf("price unavailable for %s: %w", asset, err)
	}
	return price, nil
}

// Candles implements market.Provider. Bybit returns newest first; the result
// is re-sorted ascending.
func (p *Provider) Candles(ctx context.Context, asset, interval string, limit int) ([]market.Candle, error) {
	intervalMs, err := symbols.IntervalMillis(interval)
	if err != nil {
		return nil, err
	}
	var resp envelope[[]json.Number]
	params := map[string]string{
		"category": category,
		"symbol":   asset,
		"interval": symbols.BybitInterval(interval),
		"limit":    strconv.Itoa(market.RequestLimit(limit)),
	}
	if err := p.client.GetJSON(ctx, p.baseURL+"/v5/market/kline", params, &resp); err != nil {
		return nil, err
	}
	if err := resp.err(); err != nil {
		return nil, err
	}
	if len(resp.Result.List) == 0 {
		return nil, fmt.Errorf("klines unavailable for %s", asset)
	}
	candles := make([]market.Candle, 0, len(resp.Result.List))
	for _, row := range resp.Result.List {
		if len(row) < 5 {
			return nil, fmt.Errorf("kline row has %d fields", len(row))
		}
		ts, err := restclient.ParseMillis(row[0])
		if err != nil {
			return nil, err
		}
		c := market.Candle{OpenTime: ts, CloseTime: ts + intervalMs - 1}
		for i, dst := range []*float64{&c.Open, &c.High, &c.Low, &c.Close} {
			if *dst, err = restclient.ParseNumber(row[i+1]); err != nil {
				return nil, err
			}
		}
		if len(row) > 5 {
			if c.Volume, err = restclient.ParseNumber(row[5]); err != nil {
				return nil, err
			}
		}
		candles = append(candles, c)
	}
	market.SortCandles(candles)
	return market.TrimCandles(candles, limit), nil
}
