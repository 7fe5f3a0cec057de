// Package coingecko adapts the CoinGecko public API to market.Provider.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"

	"beatai-api/pkg/market"
	"beatai-api/pkg/market/exchanges/restclient"
	"beatai-api/pkg/market/symbols"
)

const (
	// ProviderType is the registry key for this adapter.
	ProviderType   = "coingecko"
	defaultBaseURL = "https://api.coingecko.com/api/v3"
	vsCurrency     = "usd"
	historyDays    = "1"
)

// Provider queries CoinGecko. Prices are always quoted in USD.
type Provider struct {
	name    string
	baseURL string
	client  *restclient.Client
}

// New constructs the adapter. An API key is sent as the demo-key header.
func New(ep restclient.Endpoint) *Provider {
	ep = ep.Merge(restclient.Endpoint{Name: ProviderType, BaseURL: defaultBaseURL})
	var opts []restclient.Option
	if ep.APIKey != "" {
		opts = append(opts, restclient.WithHeader("x-cg-demo-api-key", ep.APIKey))
	}
	return &Provider{name: ep.Name, baseURL: ep.BaseURL, client: ep.Client(opts...)}
}

func init() {
	market.RegisterProvider(ProviderType, func(cfg *market.ProviderConfig) (market.Provider, error) {
		return New(restclient.FromConfig(cfg)), nil
	})
}

// Name implements market.Provider.
func (p *Provider) Name() string { return p.name }

func coinID(asset string) (string, error) {
	id, ok := symbols.CoinGeckoID(asset)
	if !ok {
		return "", fmt.Errorf("id mapping missing for %s", asset)
	}
	return id, nil
}

// CurrentPrice implements market.Provider.
func (p *Provider) CurrentPrice(ctx context.Context, asset string) (float64, error) {
	id, err := coinID(asset)
	if err != nil {
		return 0, err
	}
	var data map[string]map[string]any
	params := map[string]string{"ids": id, "vs_currencies": vsCurrency}
	if err := p.client.GetJSON(ctx, p.baseURL+"/simple/price", params, &data); err != nil {
		return 0, err
	}
	price, err := restclient.ParseNumber(data[id][vsCurrency])
	if err != nil {
		return 0, fmt.Errorf("price unavailable for %s: %w", asset, err)
	}
	return price, nil
}

// Candles implements market.Provider. The OHLC endpoint is preferred; when it
// fails or is empty, market_chart prices are folded into interval buckets.
func (p *Provider) Candles(ctx context.Context, asset, interval string, limit int) ([]market.Candle, error) {
	id, err := coinID(asset)
	if err != nil {
		return nil, err
	}
	bucketMs, err := symbols.IntervalMillis(interval)
	if err != nil {
		return nil, err
	}
	params := map[string]string{"vs_currency": vsCurrency, "days": historyDays}

	candles, ohlcErr := p.ohlc(ctx, id, params, bucketMs)
	if ohlcErr == nil && len(candles) > 0 {
		return market.TrimCandles(candles, limit), nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	var chart struct {
		Prices [][]json.Number `json:"prices"`
	}
	if err := p.client.GetJSON(ctx, p.baseURL+"/coins/"+id+"/market_chart", params, &chart); err != nil {
		return nil, err
	}
	points := make([]market.PricePoint, 0, len(chart.Prices))
	for _, row := range chart.Prices {
		if len(row) < 2 {
			continue
		}
		ts, err := restclient.ParseMillis(row[0])
		if err != nil {
			continue
		}
		price, err := restclient.ParseNumber(row[1])
		if err != nil {
			continue
		}
		points = append(points, market.PricePoint{Time: ts, Price: price})
	}
	candles = market.BucketPrices(points, bucketMs)
	if len(candles) == 0 {
		return nil, fmt.Errorf("klines unavailable for %s", asset)
	}
	return market.TrimCandles(candles, limit), nil
}

func (p *Provider) ohlc(ctx context.Context, id string, params map[string]string, bucketMs int64) ([]market.Candle, error) {
	var rows [][]json.Number
	if err := p.client.GetJSON(ctx, p.baseURL+"/coins/"+id+"/ohlc", params, &rows); err != nil {
		return nil, err
	}
	candles := make([]market.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 5 {
			return nil, fmt.Errorf("ohlc row has %d fields", len(row))
		}
		ts, err := restclient.ParseMillis(row[0])
		if err != nil {
			return nil, err
		}
		c := market.Candle{OpenTime: ts, CloseTime: ts + bucketMs - 1}
		for i, dst := range []*float64{&c.Open, &c.High, &c.Low, &c.Close} {
			if *dst, err = restclient.ParseNumber(row[i+1]); err != nil {
				return nil, err
			}
		}
		candles = append(candles, c)
	}
	market.SortCandles(candles)
	return candles, nil
}
