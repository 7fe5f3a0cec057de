package hyperliquid

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"beatai-api/pkg/market/exchanges/restclient"
)

const (
	defaultBaseURL     = "https://api.hyperliquid.xyz/info"
	defaultHTTPTimeout = 8 * time.Second
)

// ErrSymbolNotFound indicates that the requested symbol is not listed.
var ErrSymbolNotFound = errors.New("hyperliquid: symbol not found")

// Client wraps access to the Hyperliquid info endpoint. Every method issues a
// single POST; failover belongs to the market gateway.
type Client struct {
	baseURL string
	rest    *restclient.Client

	symbolsMu   sync.RWMutex
	symbolIndex map[string]string
}

type clientConfig struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// Option configures a new Client.
type Option func(*clientConfig)

// WithHTTPClient injects a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *clientConfig) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURL overrides the default info endpoint URL.
func WithBaseURL(url string) Option {
	return func(c *clientConfig) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithTimeout bounds each request.
func WithTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// NewClient constructs a Hyperliquid API client.
func NewClient(opts ...Option) *Client {
	cfg := &clientConfig{baseURL: defaultBaseURL, timeout: defaultHTTPTimeout}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Client{
		baseURL: cfg.baseURL,
		rest:    restclient.New(restclient.WithTimeout(cfg.timeout), restclient.WithHTTPClient(cfg.httpClient)),
	}
}

// doRequest posts an InfoRequest and decodes the response into result.
func (c *Client) doRequest(ctx context.Context, req InfoRequest, result interface{}) error {
	if err := c.rest.PostJSON(ctx, c.baseURL, req, result); err != nil {
		return fmt.Errorf("hyperliquid: %s: %w", req.Type, err)
	}
	return nil
}

func (c *Client) canonicalFromCache(symbol string) (string, bool) {
	key := normalizeKey(symbol)
	if key == "" {
		return "", false
	}
	c.symbolsMu.RLock()
	canonical, ok := c.symbolIndex[key]
	c.symbolsMu.RUnlock()
	return canonical, ok
}

func (c *Client) refreshSymbolDirectory(ctx context.Context) error {
	var payload MetaAndAssetCtxsResponse
	if err := c.doRequest(ctx, InfoRequest{Type: "metaAndAssetCtxs"}, &payload); err != nil {
		return err
	}

	index := make(map[string]string, len(payload.Universe))
	for _, entry := range payload.Universe {
		canonical := strings.TrimSpace(entry.Name)
		if canonical == "" || entry.IsDelisted {
			continue
		}
		if key := normalizeKey(canonical); key != "" {
			index[key] = canonical
		}
	}

	c.symbolsMu.Lock()
	c.symbolIndex = index
	c.symbolsMu.Unlock()
	return nil
}

// canonicalSymbolFor resolves BTCUSDT or kpepeusdt to the listed coin name,
// refreshing the universe once on a cache miss.
func (c *Client) canonicalSymbolFor(ctx context.Context, symbol string) (string, error) {
	if canonical, ok := c.canonicalFromCache(symbol); ok {
		return canonical, nil
	}
	if err := c.refreshSymbolDirectory(ctx); err != nil {
		return "", err
	}
	if canonical, ok := c.canonicalFromCache(symbol); ok {
		return canonical, nil
	}
	return "", ErrSymbolNotFound
}

func normalizeKey(symbol string) string {
	trimmed := strings.TrimSpace(symbol)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) > 4 && strings.EqualFold(trimmed[len(trimmed)-4:], "USDT") {
		trimmed = trimmed[:len(trimmed)-4]
	}
	return strings.ToUpper(trimmed)
}

// GetCurrentPrice returns the current mid price for the given symbol.
func (c *Client) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	canonical, err := c.canonicalSymbolFor(ctx, symbol)
	if err != nil {
		return 0, err
	}

	var response AllMidsResponse
	if err := c.doRequest(ctx, InfoRequest{Type: "allMids"}, &response); err != nil {
		return 0, err
	}
	val, ok := response[canonical]
	if !ok {
		return 0, fmt.Errorf("hyperliquid: price for %s not found", canonical)
	}
	price, err := restclient.ParseNumber(val)
	if err != nil {
		return 0, fmt.Errorf("hyperliquid: parse price %q: %w", val, err)
	}
	return price, nil
}
