package valuation

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/vault-valuation-service/internal/models"
)

const (
	// MaxBasisPoints is 100% expressed in basis points
	MaxBasisPoints = 10000

	MinBasketAssets = 1
	MaxBasketAssets = 240

	usdScale        = 2
	sharePriceScale = 6
)

var (
	bpsDenominator = decimal.NewFromInt(MaxBasisPoints)
	hundred        = decimal.NewFromInt(100)
)

// BasketBreakdown weights each resolved price by its basis points and returns
// the unrounded sum with one contribution per basket asset. Assets without a
// price are marked Excluded and add nothing.
func BasketBreakdown(basket []models.BasketAsset, prices map[string]decimal.Decimal) (decimal.Decimal, []models.AssetContribution) {
	total := decimal.Zero
	contributions := make([]models.AssetContribution, 0, len(basket))
	for _, asset := range basket {
		price, ok := prices[asset.AssetKey]
		if !ok {
			contributions = append(contributions, models.AssetContribution{
				AssetKey: asset.AssetKey,
				Excluded: true,
			})
			continue
		}
		value := decimal.NewFromInt(int64(asset.WeightBasisPoints)).Div(bpsDenominator).Mul(price)
		total = total.Add(value)
		contributions = append(contributions, models.AssetContribution{
			AssetKey: asset.AssetKey,
			Price:    price,
			Value:    value,
		})
	}
	return total, contributions
}

// ComputeBasketPrice returns the weighted basket value rounded once to cents
func ComputeBasketPrice(basket []models.BasketAsset, prices map[string]decimal.Decimal) decimal.Decimal {
	gav, _ := BasketBreakdown(basket, prices)
	return gav.Round(usdScale)
}

// ComputeNav deducts a proportional fee charge from gav
func ComputeNav(gav, feePercent decimal.Decimal) (decimal.Decimal, error) {
	if feePercent.IsNegative() || feePercent.GreaterThan(hundred) {
		return decimal.Zero, fmt.Errorf("%w: fee percent %s outside [0,100]", models.ErrInvalidInput, feePercent)
	}
	return gav.Sub(gav.Mul(feePercent).Div(hundred)).Round(usdScale), nil
}

// ValidateBasket checks a basket the way vault creation does: 1..240 assets,
// each weight in 0..10000, no duplicates, weights summing to exactly 10000.
// The calculators themselves accept partial baskets.
func ValidateBasket(basket []models.BasketAsset) error {
	if len(basket) < MinBasketAssets || len(basket) > MaxBasketAssets {
		return fmt.Errorf("%w: basket must have %d-%d assets, got %d",
			models.ErrInvalidInput, MinBasketAssets, MaxBasketAssets, len(basket))
	}

	seen := make(map[string]bool, len(basket))
	sum := 0
	for _, a := range basket {
		if a.AssetKey == "" {
			return fmt.Errorf("%w: basket asset without key", models.ErrInvalidInput)
		}
		if seen[a.AssetKey] {
			return fmt.Errorf("%w: duplicate basket asset %s", models.ErrInvalidInput, a.AssetKey)
		}
		seen[a.AssetKey] = true
		if a.WeightBasisPoints < 0 || a.WeightBasisPoints > MaxBasisPoints {
			return fmt.Errorf("%w: weight %d for %s outside 0-%d",
				models.ErrInvalidInput, a.WeightBasisPoints, a.AssetKey, MaxBasisPoints)
		}
		sum += a.WeightBasisPoints
	}
	if sum != MaxBasisPoints {
		return fmt.Errorf("%w: basket weights sum to %d, want %d", models.ErrInvalidInput, sum, MaxBasisPoints)
	}
	return nil
}
