// Package timeframe parses round timeframes such as "1m", "30s" or "1h".
package timeframe

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var pattern = regexp.MustCompile(`^(\d+)(s|m|h)$`)

// InvalidTimeframeError reports a timeframe string outside the supported grammar.
type InvalidTimeframeError struct {
	Value string
}

func (e *InvalidTimeframeError) Error() string {
	return fmt.Sprintf("timeframe: invalid format %q", e.Value)
}

func parse(tf string) (int, string, error) {
	m := pattern.FindStringSubmatch(tf)
	if m == nil {
		return 0, "", &InvalidTimeframeError{Value: tf}
	}
	value, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", &InvalidTimeframeError{Value: tf}
	}
	return value, m[2], nil
}

// Duration converts a timeframe into its wall-clock length.
func Duration(tf string) (time.Duration, error) {
	value, unit, err := parse(tf)
	if err != nil {
		return 0, err
	}
	switch unit {
	case "s":
		return time.Duration(value) * time.Second, nil
	case "m":
		return time.Duration(value) * time.Minute, nil
	default:
		return time.Duration(value) * time.Hour, nil
	}
}

// Millis is Duration expressed in milliseconds.
func Millis(tf string) (int64, error) {
	d, err := Duration(tf)
	if err != nil {
		return 0, err
	}
	return d.Milliseconds(), nil
}

// CandleInterval maps a round timeframe to the candle interval used for
// analysis. Second-level rounds read 1m candles and unsupported minute
// granularities collapse to 1m.
func CandleInterval(tf string) (string, error) {
	value, unit, err := parse(tf)
	if err != nil {
		return "", err
	}
	switch unit {
	case "s":
		return "1m", nil
	case "m":
		switch value {
		case 1, 3, 5, 15, 30:
			return fmt.Sprintf("%dm", value), nil
		}
		return "1m", nil
	default:
		return fmt.Sprintf("%dh", value), nil
	}
}

// Validate returns an InvalidTimeframeError when tf cannot be parsed.
func Validate(tf string) error {
	_, _, err := parse(tf)
	return err
}
