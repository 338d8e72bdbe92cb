package valuation

import (
	"time"

	"github.com/shopspring/decimal"
)

// ResolvedBucket holds the price of every asset resolvable at a bucket.
// Assets with no price at or before the bucket are absent from Prices.
type ResolvedBucket struct {
	Start  time.Time
	Prices map[string]decimal.Decimal
	// Fresh marks assets whose price came from this bucket rather than an
	// earlier one.
	Fresh map[string]bool
}

// ResolveCarryForward walks the union of bucket starts for the given assets
// and, for each asset, takes the mean from the latest bucket at or before
// the candidate. Buckets where no asset resolves are dropped.
func ResolveCarryForward(b *BucketedPrices, assetKeys []string) []ResolvedBucket {
	candidates := b.Buckets(assetKeys...)
	if len(candidates) == 0 {
		return nil
	}

	series := make(map[string][]int64, len(assetKeys))
	cursor := make(map[string]int, len(assetKeys))
	for _, key := range assetKeys {
		series[key] = b.AssetBuckets(key)
		cursor[key] = -1
	}

	out := make([]ResolvedBucket, 0, len(candidates))
	for _, candidate := range candidates {
		at := candidate.Unix()
		rb := ResolvedBucket{
			Start:  candidate,
			Prices: make(map[string]decimal.Decimal, len(assetKeys)),
			Fresh:  make(map[string]bool, len(assetKeys)),
		}

		for _, key := range assetKeys {
			starts := series[key]
			i := cursor[key]
			// candidates ascend, so each cursor only moves forward
			for i+1 < len(starts) && starts[i+1] <= at {
				i++
			}
			cursor[key] = i
			if i < 0 {
				continue
			}
			price, _ := b.Mean(key, time.Unix(starts[i], 0))
			rb.Prices[key] = price
			rb.Fresh[key] = starts[i] == at
		}

		if len(rb.Prices) == 0 {
			continue
		}
		out = append(out, rb)
	}
	return out
}
