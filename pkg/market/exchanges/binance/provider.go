// Package binance adapts the Binance spot REST API to market.Provider. The
// same wire format is served by MEXC, which reuses the decoding helpers here.
package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"beatai-api/pkg/market"
	"beatai-api/pkg/market/exchanges/restclient"
	"beatai-api/pkg/market/symbols"
)

// ProviderType is the registry key for this adapter.
const ProviderType = "binance"

// DefaultHosts are tried in order within a single adapter call.
var DefaultHosts = []string{
	"https://api.binance.com",
	"https://api1.binance.com",
	"https://api2.binance.com",
	"https://api3.binance.com",
	"https://api4.binance.com",
}

// Provider queries Binance, walking its mirror hosts until one answers.
type Provider struct {
	name   string
	hosts  []string
	client *restclient.Client
}

// New constructs the adapter. A configured BaseURL is tried before Hosts.
func New(ep restclient.Endpoint) *Provider {
	ep = ep.Merge(restclient.Endpoint{Name: ProviderType, Hosts: DefaultHosts})
	return &Provider{name: ep.Name, hosts: uniqueHosts(ep.BaseURL, ep.Hosts), client: ep.Client()}
}

func init() {
	market.RegisterProvider(ProviderType, func(cfg *market.ProviderConfig) (market.Provider, error) {
		return New(restclient.FromConfig(cfg)), nil
	})
}

func uniqueHosts(primary string, hosts []string) []string {
	seen := make(map[string]struct{}, len(hosts)+1)
	out := make([]string, 0, len(hosts)+1)
	for _, h := range append([]string{primary}, hosts...) {
		h = strings.TrimRight(strings.TrimSpace(h), "/")
		if h == "" {
			continue
		}
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}

// Name implements market.Provider.
func (p *Provider) Name() string { return p.name }

// Hosts returns the ordered host list.
func (p *Provider) Hosts() []string { return append([]string(nil), p.hosts...) }

func (p *Provider) getAny(ctx context.Context, path string, params map[string]string, out any) error {
	var lastErr error
	for _, host := range p.hosts {
		err := p.client.GetJSON(ctx, host+path, params, out)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("no hosts configured")
	}
	return lastErr
}

// CurrentPrice implements market.Provider.
func (p *Provider) CurrentPrice(ctx context.Context, asset string) (float64, error) {
	var ticker Ticker
	if err := p.getAny(ctx, "/api/v3/ticker/price", map[string]string{"symbol": asset}, &ticker); err != nil {
		return 0, err
	}
	return ticker.Value(asset)
}

// Candles implements market.Provider.
func (p *Provider) Candles(ctx context.Context, asset, interval string, limit int) ([]market.Candle, error) {
	var rows [][]any
	if err := p.getAny(ctx, "/api/v3/klines", KlineParams(asset, interval, limit), &rows); err != nil {
		return nil, err
	}
	return ParseKlines(asset, interval, rows, limit)
}

// Ticker is the /api/v3/ticker/price payload.
type Ticker struct {
	Symbol string      `json:"symbol"`
	Price  json.Number `json:"price"`
}

// Value parses the ticker price.
func (t Ticker) Value(asset string) (float64, error) {
	price, err := restclient.ParseNumber(t.Price)
	if err != nil {
		return 0, fmt.Errorf("price unavailable for %s: %w", asset, err)
	}
	return price, nil
}

// KlineParams builds the /api/v3/klines query.
func KlineParams(asset, interval string, limit int) map[string]string {
	return map[string]string{
		"symbol":   asset,
		"interval": interval,
		"limit":    strconv.Itoa(market.RequestLimit(limit)),
	}
}

// ParseKlines decodes array-form klines [openTime, o, h, l, c, v, closeTime, ...].
// A missing close time is derived from the interval.
func ParseKlines(asset, interval string, rows [][]any, limit int) ([]market.Candle, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("klines unavailable for %s", asset)
	}
	intervalMs, err := symbols.IntervalMillis(interval)
	if err != nil {
		return nil, err
	}
	candles := make([]market.Candle, 0, len(rows))
	for _, row := range rows {
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
		if len(row) > 5 && row[5] != nil {
			if c.Volume, err = restclient.ParseNumber(row[5]); err != nil {
				return nil, err
			}
		}
		if len(row) > 6 && row[6] != nil {
			if c.CloseTime, err = restclient.ParseMillis(row[6]); err != nil {
				return nil, err
			}
		}
		candles = append(candles, c)
	}
	market.SortCandles(candles)
	return market.TrimCandles(candles, limit), nil
}
