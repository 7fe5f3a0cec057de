// Package symbols maps canonical tickers such as BTCUSDT onto the identifiers
// and interval strings each market data venue expects.
package symbols

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultQuote is assumed when a ticker carries no recognised quote suffix.
const DefaultQuote = "USDT"

// KnownQuotes are matched as ticker suffixes in this order.
var KnownQuotes = []string{"USDT", "USDC", "BUSD", "FDUSD", "USD", "BTC", "ETH"}

// Legs is the base/quote decomposition of a ticker.
type Legs struct {
	Base  string
	Quote string
}

// Resolve splits asset into base and quote. It never fails: unknown tickers
// keep the whole string as base with the default quote.
func Resolve(asset string) Legs {
	for _, quote := range KnownQuotes {
		if strings.HasSuffix(asset, quote) && len(asset) > len(quote) {
			return Legs{Base: asset[:len(asset)-len(quote)], Quote: quote}
		}
	}
	return Legs{Base: asset, Quote: DefaultQuote}
}

var coinGeckoIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"BNB":   "binancecoin",
	"SOL":   "solana",
	"XRP":   "ripple",
	"ADA":   "cardano",
	"DOGE":  "dogecoin",
	"LINK":  "chainlink",
	"AVAX":  "avalanche-2",
	"TRX":   "tron",
	"MATIC": "matic-network",
	"LTC":   "litecoin",
	"BCH":   "bitcoin-cash",
}

// CoinGeckoID returns the CoinGecko coin id for the asset's base leg.
func CoinGeckoID(asset string) (string, bool) {
	id, ok := coinGeckoIDs[Resolve(asset).Base]
	return id, ok
}

var yahooOverrides = map[string]string{
	"XAUUSD":    "GC=F",
	"XAGUSD":    "SI=F",
	"WTICOUSD":  "CL=F",
	"BCOUSD":    "BZ=F",
	"NATGASUSD": "NG=F",
}

var plainTicker = regexp.MustCompile(`^[A-Z]{1,6}$`)

// YahooSymbol maps an asset onto a Yahoo Finance chart symbol: commodity
// overrides first, plain equity tickers unchanged, everything else BASE-USD.
func YahooSymbol(asset string) string {
	if sym, ok := yahooOverrides[asset]; ok {
		return sym
	}
	if plainTicker.MatchString(asset) {
		return asset
	}
	return Resolve(asset).Base + "-USD"
}

var intervalPattern = regexp.MustCompile(`^(\d+)(m|h|d)$`)

// IntervalDuration parses a venue interval such as 1m, 4h or 1d.
func IntervalDuration(interval string) (time.Duration, error) {
	m := intervalPattern.FindStringSubmatch(interval)
	if m == nil {
		return 0, fmt.Errorf("symbols: unsupported interval %q", interval)
	}
	value, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("symbols: unsupported interval %q: %w", interval, err)
	}
	unit := time.Minute
	switch m[2] {
	case "h":
		unit = time.Hour
	case "d":
		unit = 24 * time.Hour
	}
	return time.Duration(value) * unit, nil
}

// IntervalMillis is IntervalDuration in milliseconds.
func IntervalMillis(interval string) (int64, error) {
	d, err := IntervalDuration(interval)
	if err != nil {
		return 0, err
	}
	return d.Milliseconds(), nil
}

// IntervalMinutes rounds the interval to whole minutes, never below one.
func IntervalMinutes(interval string) (int, error) {
	d, err := IntervalDuration(interval)
	if err != nil {
		return 0, err
	}
	minutes := int((d + 30*time.Second) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return minutes, nil
}

var bybitMinutes = map[int]struct{}{
	1: {}, 3: {}, 5: {}, 15: {}, 30: {}, 60: {}, 120: {}, 240: {}, 360: {}, 720: {},
}

// BybitInterval translates an interval into Bybit's minute notation. Sizes the
// venue does not offer collapse to "1".
func BybitInterval(interval string) string {
	minutes, err := IntervalMinutes(interval)
	if err != nil {
		return "1"
	}
	if _, ok := bybitMinutes[minutes]; !ok {
		return "1"
	}
	return strconv.Itoa(minutes)
}

// YahooInterval picks the smallest Yahoo chart interval covering interval.
func YahooInterval(interval string) string {
	minutes, err := IntervalMinutes(interval)
	if err != nil {
		return "1m"
	}
	switch {
	case minutes <= 1:
		return "1m"
	case minutes <= 2:
		return "2m"
	case minutes <= 5:
		return "5m"
	case minutes <= 15:
		return "15m"
	case minutes <= 30:
		return "30m"
	case minutes <= 60:
		return "60m"
	default:
		return "1d"
	}
}

// CryptoCompareHistory selects the history endpoint and aggregate factor.
func CryptoCompareHistory(interval string) (endpoint string, aggregate int, err error) {
	minutes, err := IntervalMinutes(interval)
	if err != nil {
		return "", 0, err
	}
	if minutes < 60 || strings.HasSuffix(interval, "m") {
		return "histominute", minutes, nil
	}
	aggregate = (minutes + 30) / 60
	if aggregate < 1 {
		aggregate = 1
	}
	return "histohour", aggregate, nil
}
