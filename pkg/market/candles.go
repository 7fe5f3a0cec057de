package market

import "sort"

// MinRequestLimit is the smallest candle count requested from venues that
// accept a limit; results are trimmed back to the caller's limit.
const MinRequestLimit = 20

// RequestLimit returns max(limit, MinRequestLimit).
func RequestLimit(limit int) int {
	if limit < MinRequestLimit {
		return MinRequestLimit
	}
	return limit
}

// SortCandles orders candles ascending by open time in place.
func SortCandles(candles []Candle) {
	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].OpenTime < candles[j].OpenTime
	})
}

// TrimCandles keeps the trailing limit candles. A non-positive limit keeps all.
func TrimCandles(candles []Candle, limit int) []Candle {
	if limit > 0 && len(candles) > limit {
		return candles[len(candles)-limit:]
	}
	return candles
}

// PricePoint is a single (timestamp ms, price) observation.
type PricePoint struct {
	Time  int64
	Price float64
}

// BucketPrices folds flat price observations into candles of bucketMs width.
// Volume is unknown for such feeds and is reported as zero.
func BucketPrices(points []PricePoint, bucketMs int64) []Candle {
	if len(points) == 0 || bucketMs <= 0 {
		return nil
	}
	index := make(map[int64]int)
	candles := make([]Candle, 0)
	for _, p := range points {
		bucket := floorDiv(p.Time, bucketMs) * bucketMs
		i, ok := index[bucket]
		if !ok {
			index[bucket] = len(candles)
			candles = append(candles, Candle{
				OpenTime:  bucket,
				Open:      p.Price,
				High:      p.Price,
				Low:       p.Price,
				Close:     p.Price,
				CloseTime: bucket + bucketMs - 1,
			})
			continue
		}
		c := &candles[i]
		if p.Price > c.High {
			c.High = p.Price
		}
		if p.Price < c.Low {
			c.Low = p.Price
		}
		c.Close = p.Price
	}
	SortCandles(candles)
	return candles
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
