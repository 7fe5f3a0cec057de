package hyperliquid

import (
	"context"

	"beatai-api/pkg/market"
)

// ProviderType is the registry key for this adapter.
const ProviderType = "hyperliquid"

// Provider exposes Hyperliquid perpetual mids and candles as a market.Provider.
type Provider struct {
	name   string
	client *Client
}

// ProviderOption customises the Hyperliquid provider.
type ProviderOption func(*Provider)

// WithName overrides the provider name used in logs and errors.
func WithName(name string) ProviderOption {
	return func(p *Provider) {
		if name != "" {
			p.name = name
		}
	}
}

// NewProvider constructs a Hyperliquid market provider.
func NewProvider(client *Client, opts ...ProviderOption) *Provider {
	if client == nil {
		client = NewClient()
	}
	p := &Provider{name: ProviderType, client: client}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func init() {
	market.RegisterProvider(ProviderType, func(cfg *market.ProviderConfig) (market.Provider, error) {
		client := NewClient(WithBaseURL(cfg.BaseURL), WithTimeout(cfg.Timeout))
		return NewProvider(client, WithName(cfg.Name)), nil
	})
}

// Name implements market.Provider.
func (p *Provider) Name() string { return p.name }

// CurrentPrice implements market.Provider.
func (p *Provider) CurrentPrice(ctx context.Context, asset string) (float64, error) {
	return p.client.GetCurrentPrice(ctx, asset)
}

// Candles implements market.Provider.
func (p *Provider) Candles(ctx context.Context, asset, interval string, limit int) ([]market.Candle, error) {
	return p.client.GetKlines(ctx, asset, interval, limit)
}
