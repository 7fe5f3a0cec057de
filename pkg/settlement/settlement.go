// Package settlement computes when a locked round may be evaluated. The
// evaluation instant is the lock time plus the timeframe, rounded up onto a
// small bucket grid so that near-simultaneous rounds share settlement checks.
package settlement

import (
	"time"

	"beatai-api/pkg/timeframe"
)

// Window is the settlement schedule for one round. All values are unix ms.
type Window struct {
	TargetMs   int64 `json:"settleTargetMs"`
	BucketMs   int64 `json:"settleBucketMs"`
	SettleAtMs int64 `json:"settleAtMs"`
}

// BucketFor returns the bucket width tier for a timeframe length.
func BucketFor(d time.Duration) time.Duration {
	switch {
	case d <= time.Minute:
		return 2 * time.Second
	case d <= 3*time.Minute:
		return 3 * time.Second
	default:
		return 5 * time.Second
	}
}

// BucketMs returns the bucket width for a timeframe string.
func BucketMs(tf string) (int64, error) {
	d, err := timeframe.Duration(tf)
	if err != nil {
		return 0, err
	}
	return BucketFor(d).Milliseconds(), nil
}

// Compute builds the window for a round locked at lockMs.
func Compute(lockMs int64, tf string) (Window, error) {
	d, err := timeframe.Duration(tf)
	if err != nil {
		return Window{}, err
	}
	target := lockMs + d.Milliseconds()
	bucket := BucketFor(d).Milliseconds()
	return Window{
		TargetMs:   target,
		BucketMs:   bucket,
		SettleAtMs: ceilTo(target, bucket),
	}, nil
}

func ceilTo(v, step int64) int64 {
	q := v / step
	if v%step != 0 && v > 0 {
		q++
	}
	return q * step
}

// Due reports whether the round may be evaluated at nowMs.
func (w Window) Due(nowMs int64) bool {
	return nowMs >= w.SettleAtMs
}

// RemainingSeconds is the whole seconds left until SettleAtMs, never negative.
func (w Window) RemainingSeconds(nowMs int64) int64 {
	left := w.SettleAtMs - nowMs
	if left <= 0 {
		return 0
	}
	return left / 1000
}

// Span returns the earliest and latest SettleAtMs across windows.
func Span(windows []Window) (earliest, latest int64) {
	for i, w := range windows {
		if i == 0 || w.SettleAtMs < earliest {
			earliest = w.SettleAtMs
		}
		if i == 0 || w.SettleAtMs > latest {
			latest = w.SettleAtMs
		}
	}
	return earliest, latest
}
