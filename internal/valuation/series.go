package valuation

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/vault-valuation-service/internal/models"
)

// SeriesInput is everything needed to build a NAV series for one vault.
// Ticks may include prices sampled before From; they seed carry-forward but
// buckets starting before From's bucket are not emitted. A zero From emits
// every bucket.
type SeriesInput struct {
	Basket      []models.BasketAsset
	Ticks       []models.PriceTick
	Interval    IntervalUnit
	FeePercent  decimal.Decimal
	TotalSupply decimal.Decimal
	From        time.Time
}

// BuildNavSeries runs ticks through bucketing, carry-forward and basket
// valuation, returning one point per populated bucket in ascending order
func BuildNavSeries(in SeriesInput) ([]models.ValuationPoint, error) {
	bucketed, err := Aggregate(in.Ticks, in.Interval)
	if err != nil {
		return nil, fmt.Errorf("failed to bucket price ticks: %w", err)
	}

	keys := make([]string, 0, len(in.Basket))
	for _, a := range in.Basket {
		keys = append(keys, a.AssetKey)
	}

	var first time.Time
	if !in.From.IsZero() {
		first = BucketStart(in.From, in.Interval)
	}

	resolved := ResolveCarryForward(bucketed, keys)
	points := make([]models.ValuationPoint, 0, len(resolved))
	for _, rb := range resolved {
		if rb.Start.Before(first) {
			continue
		}
		gav := ComputeBasketPrice(in.Basket, rb.Prices)
		nav, err := ComputeNav(gav, in.FeePercent)
		if err != nil {
			return nil, err
		}
		points = append(points, models.ValuationPoint{
			Timestamp:   rb.Start,
			GAV:         gav,
			NAV:         nav,
			SharePrice:  DeriveSharePrice(nav, in.TotalSupply),
			TotalSupply: in.TotalSupply,
		})
	}
	return points, nil
}
