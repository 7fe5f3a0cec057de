// Package yahoo adapts the Yahoo Finance chart API to market.Provider. It is
// the last-resort venue and also covers commodities and equities.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"beatai-api/pkg/market"
	"beatai-api/pkg/market/exchanges/restclient"
	"beatai-api/pkg/market/symbols"
)

const (
	// ProviderType is the registry key for this adapter.
	ProviderType   = "yahoo"
	defaultBaseURL = "https://query1.finance.yahoo.com"
	defaultTimeout = 8 * time.Second
)

// Provider queries the v8 chart endpoint.
type Provider struct {
	name    string
	baseURL string
	client  *restclient.Client
}

// New constructs the adapter.
func New(ep restclient.Endpoint) *Provider {
	ep = ep.Merge(restclient.Endpoint{Name: ProviderType, BaseURL: defaultBaseURL, Timeout: defaultTimeout})
	return &Provider{name: ep.Name, baseURL: ep.BaseURL, client: ep.Client()}
}

func init() {
	market.RegisterProvider(ProviderType, func(cfg *market.ProviderConfig) (market.Provider, error) {
		return New(restclient.FromConfig(cfg)), nil
	})
}

// Name implements market.Provider.
func (p *Provider) Name() string { return p.name }

type chartResult struct {
	Meta struct {
		RegularMarketPrice json.Number `json:"regularMarketPrice"`
	} `json:"meta"`
	Timestamp  []json.Number `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []any `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (p *Provider) chart(ctx context.Context, asset string, params map[string]string) (*chartResult, error) {
	path := "/v8/finance/chart/" + url.PathEscape(symbols.YahooSymbol(asset))
	var resp chartResponse
	if err := p.client.GetJSON(ctx, p.baseURL+path, params, &resp); err != nil {
		return nil, err
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("chart error for %s: %s", asset, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("chart unavailable for %s", asset)
	}
	return &resp.Chart.Result[0], nil
}

func (r *chartResult) closes() []any {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	return r.Indicators.Quote[0].Close
}

// CurrentPrice implements market.Provider. The regular market price is used
// when present, otherwise the latest finite close.
func (p *Provider) CurrentPrice(ctx context.Context, asset string) (float64, error) {
	result, err := p.chart(ctx, asset, map[string]string{"interval": "1m", "range": "1d"})
	if err != nil {
		return 0, err
	}
	if price, err := restclient.ParseNumber(result.Meta.RegularMarketPrice); err == nil {
		return price, nil
	}
	closes := result.closes()
	for i := len(closes) - 1; i >= 0; i-- {
		if price, err := restclient.ParseNumber(closes[i]); err == nil {
			return price, nil
		}
	}
	return 0, fmt.Errorf("price unavailable for %s", asset)
}

// Candles implements market.Provider. Yahoo's close series is bucketed into
// candles of the requested interval; volume is not carried over.
func (p *Provider) Candles(ctx context.Context, asset, interval string, limit int) ([]market.Candle, error) {
	bucketMs, err := symbols.IntervalMillis(interval)
	if err != nil {
		return nil, err
	}
	result, err := p.chart(ctx, asset, map[string]string{
		"interval":       symbols.YahooInterval(interval),
		"range":          "1d",
		"includePrePost": "false",
		"events":         "div,splits",
	})
	if err != nil {
		return nil, err
	}
	closes := result.closes()
	if len(result.Timestamp) == 0 || closes == nil {
		return nil, fmt.Errorf("klines unavailable for %s", asset)
	}
	points := make([]market.PricePoint, 0, len(result.Timestamp))
	for i, raw := range result.Timestamp {
		if i >= len(closes) {
			break
		}
		seconds, err := restclient.ParseMillis(raw)
		if err != nil {
			continue
		}
		price, err := restclient.ParseNumber(closes[i])
		if err != nil {
			continue
		}
		points = append(points, market.PricePoint{Time: seconds * 1000, Price: price})
	}
	candles := market.BucketPrices(points, bucketMs)
	if len(candles) == 0 {
		return nil, fmt.Errorf("klines unavailable for %s", asset)
	}
	return market.TrimCandles(candles, limit), nil
}
