package valuation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/vault-valuation-service/internal/models"
)

// IntervalUnit is the width of a series bucket
type IntervalUnit string

const (
	IntervalMinute IntervalUnit = "minute"
	IntervalHour   IntervalUnit = "hour"
	IntervalDay    IntervalUnit = "day"
	IntervalWeek   IntervalUnit = "week"
)

// ParseInterval parses a bucket interval name, case-insensitively
func ParseInterval(s string) (IntervalUnit, error) {
	switch unit := IntervalUnit(strings.ToLower(strings.TrimSpace(s))); unit {
	case IntervalMinute, IntervalHour, IntervalDay, IntervalWeek:
		return unit, nil
	default:
		return "", fmt.Errorf("%w: unknown interval %q", models.ErrInvalidInput, s)
	}
}

// BucketStart floors t to the start of its bucket. All units align in UTC;
// week buckets start on Monday 00:00 UTC.
func BucketStart(t time.Time, unit IntervalUnit) time.Time {
	t = t.UTC()
	switch unit {
	case IntervalMinute:
		return t.Truncate(time.Minute)
	case IntervalHour:
		return t.Truncate(time.Hour)
	case IntervalDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case IntervalWeek:
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		sinceMonday := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -sinceMonday)
	default:
		return t
	}
}

// Accumulator is the running sum and count of prices seen in one bucket
type Accumulator struct {
	Sum   decimal.Decimal
	Count int
}

// Mean returns the arithmetic mean of the accumulated prices
func (a Accumulator) Mean() decimal.Decimal {
	if a.Count == 0 {
		return decimal.Zero
	}
	return a.Sum.Div(decimal.NewFromInt(int64(a.Count)))
}

// BucketedPrices maps (assetKey, bucketStart) to the accumulated ticks for
// that bucket. Bucket starts are kept as unix seconds.
type BucketedPrices struct {
	Interval IntervalUnit
	cells    map[string]map[int64]*Accumulator
}

// Aggregate folds an unordered tick stream into per-asset, per-bucket sums.
// Empty input yields an empty result.
func Aggregate(ticks []models.PriceTick, unit IntervalUnit) (*BucketedPrices, error) {
	if _, err := ParseInterval(string(unit)); err != nil {
		return nil, err
	}

	b := &BucketedPrices{
		Interval: unit,
		cells:    make(map[string]map[int64]*Accumulator),
	}
	for _, tick := range ticks {
		if tick.AssetKey == "" {
			return nil, fmt.Errorf("%w: tick without asset key", models.ErrInvalidInput)
		}
		if tick.SampledAt.IsZero() {
			return nil, fmt.Errorf("%w: tick for %s has no sample time", models.ErrInvalidInput, tick.AssetKey)
		}
		if tick.Price.IsNegative() {
			return nil, fmt.Errorf("%w: negative price %s for %s", models.ErrInvalidInput, tick.Price, tick.AssetKey)
		}

		start := BucketStart(tick.SampledAt, unit).Unix()
		byBucket, ok := b.cells[tick.AssetKey]
		if !ok {
			byBucket = make(map[int64]*Accumulator)
			b.cells[tick.AssetKey] = byBucket
		}
		acc, ok := byBucket[start]
		if !ok {
			acc = &Accumulator{Sum: decimal.Zero}
			byBucket[start] = acc
		}
		acc.Sum = acc.Sum.Add(tick.Price)
		acc.Count++
	}
	return b, nil
}

// Len returns the number of populated (asset, bucket) cells
func (b *BucketedPrices) Len() int {
	n := 0
	for _, byBucket := range b.cells {
		n += len(byBucket)
	}
	return n
}

// Mean returns the mean price of an asset in the bucket starting at start
func (b *BucketedPrices) Mean(assetKey string, start time.Time) (decimal.Decimal, bool) {
	acc, ok := b.cells[assetKey][start.Unix()]
	if !ok {
		return decimal.Zero, false
	}
	return acc.Mean(), true
}

// AssetBuckets returns the bucket starts with data for an asset, ascending
func (b *BucketedPrices) AssetBuckets(assetKey string) []int64 {
	byBucket := b.cells[assetKey]
	starts := make([]int64, 0, len(byBucket))
	for start := range byBucket {
		starts = append(starts, start)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })
	return starts
}

// Buckets returns the union of bucket starts across the given assets,
// ascending. With no assets it covers every asset seen.
func (b *BucketedPrices) Buckets(assetKeys ...string) []time.Time {
	if len(assetKeys) == 0 {
		for key := range b.cells {
			assetKeys = append(assetKeys, key)
		}
	}

	seen := make(map[int64]struct{})
	for _, key := range assetKeys {
		for start := range b.cells[key] {
			seen[start] = struct{}{}
		}
	}

	starts := make([]int64, 0, len(seen))
	for start := range seen {
		starts = append(starts, start)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })

	out := make([]time.Time, len(starts))
	for i, s := range starts {
		out[i] = time.Unix(s, 0).UTC()
	}
	return out
}

// Ticks flattens the bucketed means back into one tick per cell, stamped at
// the bucket start, ordered by time then asset
func (b *BucketedPrices) Ticks() []models.PriceTick {
	ticks := make([]models.PriceTick, 0, b.Len())
	for key, byBucket := range b.cells {
		for start, acc := range byBucket {
			ticks = append(ticks, models.PriceTick{
				AssetKey:  key,
				Price:     acc.Mean(),
				SampledAt: time.Unix(start, 0).UTC(),
			})
		}
	}
	sort.Slice(ticks, func(i, j int) bool {
		if !ticks[i].SampledAt.Equal(ticks[j].SampledAt) {
			return ticks[i].SampledAt.Before(ticks[j].SampledAt)
		}
		return ticks[i].AssetKey < ticks[j].AssetKey
	})
	return ticks
}
