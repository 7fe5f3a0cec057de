package settlement

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beatai-api/pkg/timeframe"
)

func TestComputeOneMinute(t *testing.T) {
	// 10:00:37 lock on a 1m round settles on the next 2s boundary after 10:01:37.
	const lock = int64(1_700_000_037_000)
	w, err := Compute(lock, "1m")
	require.NoError(t, err)
	assert.Equal(t, lock+60_000, w.TargetMs)
	assert.EqualValues(t, 2000, w.BucketMs)
	assert.EqualValues(t, 1_700_000_098_000, w.SettleAtMs)
}

func TestComputeAlreadyOnBoundary(t *testing.T) {
	w, err := Compute(1_700_000_000_000, "5m")
	require.NoError(t, err)
	assert.EqualValues(t, 5000, w.BucketMs)
	assert.Equal(t, w.TargetMs, w.SettleAtMs)
}

func TestComputeProperties(t *testing.T) {
	tfs := []string{"30s", "1m", "2m", "3m", "5m", "15m", "1h"}
	for _, tf := range tfs {
		for lock := int64(1_700_000_000_000); lock < 1_700_000_010_000; lock += 777 {
			w, err := Compute(lock, tf)
			require.NoError(t, err)
			d, _ := timeframe.Millis(tf)
			assert.GreaterOrEqual(t, w.SettleAtMs, lock+d, tf)
			assert.Zero(t, w.SettleAtMs%w.BucketMs, tf)
			assert.Less(t, w.SettleAtMs-w.TargetMs, w.BucketMs, tf)
		}
	}
}

func TestBucketTiers(t *testing.T) {
	cases := map[string]int64{"30s": 2000, "1m": 2000, "61s": 3000, "3m": 3000, "181s": 5000, "1h": 5000}
	for tf, want := range cases {
		got, err := BucketMs(tf)
		require.NoError(t, err)
		assert.Equal(t, want, got, tf)
	}
}

func TestInvalidTimeframe(t *testing.T) {
	_, err := Compute(0, "1d")
	var invalid *timeframe.InvalidTimeframeError
	assert.True(t, errors.As(err, &invalid))
}

func TestDueAndRemaining(t *testing.T) {
	w := Window{SettleAtMs: 10_000}
	assert.False(t, w.Due(9_999))
	assert.True(t, w.Due(10_000))
	assert.EqualValues(t, 1, w.RemainingSeconds(8_500))
	assert.EqualValues(t, 0, w.RemainingSeconds(9_999))
	assert.EqualValues(t, 0, w.RemainingSeconds(12_000))
}

func TestSpan(t *testing.T) {
	e, l := Span([]Window{{SettleAtMs: 5}, {SettleAtMs: 2}, {SettleAtMs: 9}})
	assert.EqualValues(t, 2, e)
	assert.EqualValues(t, 9, l)
	e, l = Span(nil)
	assert.Zero(t, e)
	assert.Zero(t, l)
}
