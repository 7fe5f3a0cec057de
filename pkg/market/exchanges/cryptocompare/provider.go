// Package cryptocompare adapts the CryptoCompare min-api to market.Provider.
package cryptocompare

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
	ProviderType   = "cryptocompare"
	defaultBaseURL = "https://min-api.cryptocompare.com"
)

// Provider queries CryptoCompare for spot prices and minute/hour history.
type Provider struct {
	name    string
	baseURL string
	client  *restclient.Client
}

// New constructs the adapter. An API key, when present, is sent as an
// Authorization header.
func New(ep restclient.Endpoint) *Provider {
	ep = ep.Merge(restclient.Endpoint{Name: ProviderType, BaseURL: defaultBaseURL})
	var opts []restclient.Option
	if ep.APIKey != "" {
		opts = append(opts, restclient.WithHeader("Authorization", "Apikey "+ep.APIKey))
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

// CurrentPrice implements market.Provider.
func (p *Provider) CurrentPrice(ctx context.Context, asset string) (float64, error) {
	legs := symbols.Resolve(asset)
	var data map[string]any
	params := map[string]string{"fsym": legs.Base, "tsyms": legs.Quote}
	if err := p.client.GetJSON(ctx, p.baseURL+"/data/price", params, &data); err != nil {
		return 0, err
	}
	price, err := restclient.ParseNumber(data[legs.Quote])
	if err != nil {
		return 0, fmt.Errorf("price unavailable for %s: %w", asset, err)
	}
	return price, nil
}

type histoRow struct {
	Time       json.Number `json:"time"`
	Open       json.Number `json:"open"`
	High       json.Number `json:"high"`
	Low        json.Number `json:"low"`
	Close      json.Number `json:"close"`
	VolumeFrom json.Number `json:"volumefrom"`
}

type histoResponse struct {
	Response string `json:"Response"`
	Message  string `json:"Message"`
	Data     struct {
		Data []histoRow `json:"Data"`
	} `json:"Data"`
}

// Candles implements market.Provider.
func (p *Provider) Candles(ctx context.Context, asset, interval string, limit int) ([]market.Candle, error) {
	endpoint, aggregate, err := symbols.CryptoCompareHistory(interval)
	if err != nil {
		return nil, err
	}
	intervalMs, err := symbols.IntervalMillis(interval)
	if err != nil {
		return nil, err
	}
	legs := symbols.Resolve(asset)
	params := map[string]string{
		"fsym":      legs.Base,
		"tsym":      legs.Quote,
		"aggregate": strconv.Itoa(aggregate),
		"limit":     strconv.Itoa(market.RequestLimit(limit)),
	}
	var resp histoResponse
	if err := p.client.GetJSON(ctx, p.baseURL+"/data/v2/"+endpoint, params, &resp); err != nil {
		return nil, err
	}
	rows := resp.Data.Data
	if len(rows) == 0 {
		if resp.Message != "" {
			return nil, fmt.Errorf("klines unavailable for %s: %s", asset, resp.Message)
		}
		return nil, fmt.Errorf("klines unavailable for %s", asset)
	}

	candles := make([]market.Candle, 0, len(rows))
	for _, row := range rows {
		c, err := row.candle(intervalMs)
		if err != nil {
			return nil, fmt.Errorf("klines for %s: %w", asset, err)
		}
		candles = append(candles, c)
	}
	market.SortCandles(candles)
	return market.TrimCandles(candles, limit), nil
}

func (r histoRow) candle(intervalMs int64) (market.Candle, error) {
	var (
		c   market.Candle
		err error
	)
	seconds, err := restclient.ParseMillis(r.Time)
	if err != nil {
		return c, fmt.Errorf("time: %w", err)
	}
	c.OpenTime = seconds * 1000
	c.CloseTime = c.OpenTime + intervalMs - 1
	fields := []struct {
		dst *float64
		raw json.Number
	}{{&c.Open, r.Open}, {&c.High, r.High}, {&c.Low, r.Low}, {&c.Close, r.Close}}
	for _, f := range fields {
		if *f.dst, err = restclient.ParseNumber(f.raw); err != nil {
			return c, err
		}
	}
	if r.VolumeFrom != "" {
		if c.Volume, err = restclient.ParseNumber(r.VolumeFrom); err != nil {
			return c, err
		}
	}
	return c, nil
}
