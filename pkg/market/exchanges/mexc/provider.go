// Package mexc adapts the MEXC spot API, which mirrors Binance's wire format.
package mexc

import (
	"context"

	"beatai-api/pkg/market"
	"beatai-api/pkg/market/exchanges/binance"
	"beatai-api/pkg/market/exchanges/restclient"
)

const (
	// ProviderType is the registry key for this adapter.
	ProviderType   = "mexc"
	defaultBaseURL = "https://api.mexc.com"
)

// Provider queries a single MEXC host.
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

// CurrentPrice implements market.Provider.
func (p *Provider) CurrentPrice(ctx context.Context, asset string) (float64, error) {
	var ticker binance.Ticker
	if err := p.client.GetJSON(ctx, p.baseURL+"/api/v3/ticker/price", map[string]string{"symbol": asset}, &ticker); err != nil {
		return 0, err
	}
	return ticker.Value(asset)
}

// Candles implements market.Provider.
func (p *Provider) Candles(ctx context.Context, asset, interval string, limit int) ([]market.Candle, error) {
	var rows [][]any
	if err := p.client.GetJSON(ctx, p.baseURL+"/api/v3/klines", binance.KlineParams(asset, interval, limit), &rows); err != nil {
		return nil, err
	}
	return binance.ParseKlines(asset, interval, rows, limit)
}
