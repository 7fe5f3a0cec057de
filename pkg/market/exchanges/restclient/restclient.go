// Package restclient is the shared GET-JSON transport behind the REST market
// data adapters. It performs exactly one request per call and never retries.
package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const (
	// DefaultTimeout bounds a single venue request.
	DefaultTimeout = 7 * time.Second
	userAgent      = "beatai-api/1.0"
	maxBodyInError = 180
)

// ErrMissingNumber is returned by ParseNumber for absent fields.
var ErrMissingNumber = errors.New("missing numeric field")

// Client issues GET requests and decodes JSON payloads.
type Client struct {
	http *resty.Client
}

type options struct {
	timeout    time.Duration
	headers    map[string]string
	httpClient *http.Client
}

// Option customises a Client.
type Option func(*options)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithHeader adds a header to every request. Empty values are ignored.
func WithHeader(key, value string) Option {
	return func(o *options) {
		if value != "" {
			o.headers[key] = value
		}
	}
}

// WithHTTPClient swaps the underlying http.Client, e.g. for a recording transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		if hc != nil {
			o.httpClient = hc
		}
	}
}

// New constructs a Client.
func New(opts ...Option) *Client {
	o := &options{timeout: DefaultTimeout, headers: map[string]string{}}
	for _, opt := range opts {
		opt(o)
	}
	var rc *resty.Client
	if o.httpClient != nil {
		rc = resty.NewWithClient(o.httpClient)
	} else {
		rc = resty.New()
	}
	rc.SetTimeout(o.timeout)
	rc.SetRetryCount(0)
	rc.SetHeader("Accept", "application/json")
	rc.SetHeader("User-Agent", userAgent)
	rc.SetHeaders(o.headers)
	return &Client{http: rc}
}

// GetJSON fetches url with query params and decodes the body into out.
// Numbers decode as json.Number so ParseNumber keeps full precision.
func (c *Client) GetJSON(ctx context.Context, url string, params map[string]string, out any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(url)
	return c.decode(ctx, url, resp, err, out)
}

// PostJSON posts body encoded as JSON and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, url string, body, out any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(url)
	return c.decode(ctx, url, resp, err, out)
}

func (c *Client) decode(ctx context.Context, url string, resp *resty.Response, err error, out any) error {
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("request %s: %w", url, err)
	}
	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		body := strings.TrimSpace(string(resp.Body()))
		if len(body) > maxBodyInError {
			body = body[:maxBodyInError]
		}
		return fmt.Errorf("http %s %s", resp.Status(), body)
	}
	if out == nil {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(resp.Body()))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// ParseNumber converts a decoded JSON value (json.Number, string or float)
// into a finite float64.
func ParseNumber(v any) (float64, error) {
	var (
		d   decimal.Decimal
		err error
	)
	switch t := v.(type) {
	case nil:
		return 0, ErrMissingNumber
	case json.Number:
		if t == "" {
			return 0, ErrMissingNumber
		}
		d, err = decimal.NewFromString(t.String())
	case string:
		if strings.TrimSpace(t) == "" {
			return 0, ErrMissingNumber
		}
		d, err = decimal.NewFromString(strings.TrimSpace(t))
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, fmt.Errorf("non-finite number %v", t)
		}
		return t, nil
	case int64:
		return float64(t), nil
	case int:
		return float64(t), nil
	default:
		return 0, fmt.Errorf("unexpected numeric type %T", v)
	}
	if err != nil {
		return 0, fmt.Errorf("parse number %v: %w", v, err)
	}
	f, _ := d.Float64()
	return f, nil
}

// ParseMillis parses a timestamp field that is already in milliseconds.
func ParseMillis(v any) (int64, error) {
	f, err := ParseNumber(v)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}
