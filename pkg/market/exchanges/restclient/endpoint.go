package restclient

import (
	"net/http"
	"strings"
	"time"

	"beatai-api/pkg/market"
)

// Endpoint holds the settings every REST venue adapter shares. Zero fields are
// filled from the adapter's defaults by Merge.
type Endpoint struct {
	Name       string
	BaseURL    string
	Hosts      []string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// FromConfig lifts a market provider config into an Endpoint.
func FromConfig(cfg *market.ProviderConfig) Endpoint {
	if cfg == nil {
		return Endpoint{}
	}
	return Endpoint{
		Name:    cfg.Name,
		BaseURL: cfg.BaseURL,
		Hosts:   append([]string(nil), cfg.Hosts...),
		APIKey:  cfg.APIKey,
		Timeout: cfg.Timeout,
	}
}

// Merge fills unset fields of e from defaults.
func (e Endpoint) Merge(defaults Endpoint) Endpoint {
	if e.Name == "" {
		e.Name = defaults.Name
	}
	if e.BaseURL == "" {
		e.BaseURL = defaults.BaseURL
	}
	e.BaseURL = strings.TrimRight(e.BaseURL, "/")
	if len(e.Hosts) == 0 {
		e.Hosts = defaults.Hosts
	}
	if e.APIKey == "" {
		e.APIKey = defaults.APIKey
	}
	if e.Timeout <= 0 {
		e.Timeout = defaults.Timeout
	}
	if e.Timeout <= 0 {
		e.Timeout = DefaultTimeout
	}
	if e.HTTPClient == nil {
		e.HTTPClient = defaults.HTTPClient
	}
	return e
}

// Client builds a restclient for the endpoint with optional extra headers.
func (e Endpoint) Client(opts ...Option) *Client {
	base := []Option{WithTimeout(e.Timeout), WithHTTPClient(e.HTTPClient)}
	return New(append(base, opts...)...)
}
