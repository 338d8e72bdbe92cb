package fees

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/vault-valuation-service/internal/models"
)

// Holding is a raw token balance held by a vault
type Holding struct {
	AssetKey   string
	RawBalance decimal.Decimal
	Decimals   int
	Required   bool
}

// Value converts the raw balance to whole tokens and prices it
func (h Holding) Value(price decimal.Decimal) decimal.Decimal {
	return h.RawBalance.Shift(int32(-h.Decimals)).Mul(price)
}

// HoldingsFromVault lists the reserve asset (required) followed by the
// underlying assets (optional). Every mint must carry its own decimals;
// no default is assumed.
func HoldingsFromVault(v *models.OnChainVault) ([]Holding, error) {
	holdings := make([]Holding, 0, len(v.UnderlyingAssets)+1)

	add := func(key string, required bool) error {
		decimals, ok := v.Decimals[key]
		if !ok {
			return fmt.Errorf("%w: decimals unknown for mint %s", models.ErrInvalidInput, key)
		}
		if decimals < 0 || decimals > 18 {
			return fmt.Errorf("%w: implausible decimals %d for mint %s", models.ErrInvalidInput, decimals, key)
		}
		balance, ok := v.TokenBalances[key]
		if !ok {
			balance = decimal.Zero
		}
		holdings = append(holdings, Holding{
			AssetKey:   key,
			RawBalance: balance,
			Decimals:   decimals,
			Required:   required,
		})
		return nil
	}

	if v.ReserveAssetKey != "" {
		if err := add(v.ReserveAssetKey, true); err != nil {
			return nil, err
		}
	}
	for _, asset := range v.UnderlyingAssets {
		if asset.AssetKey == v.ReserveAssetKey {
			continue
		}
		if err := add(asset.AssetKey, false); err != nil {
			return nil, err
		}
	}
	return holdings, nil
}

// ComputeLiveGAV values holdings at live prices. A required holding without
// a price aborts with a *models.PriceUnavailableError; optional holdings
// without a price are returned as Excluded contributions.
func ComputeLiveGAV(holdings []Holding, prices map[string]decimal.Decimal) (decimal.Decimal, []models.AssetContribution, error) {
	gav := decimal.Zero
	contributions := make([]models.AssetContribution, 0, len(holdings))

	for _, h := range holdings {
		price, ok := prices[h.AssetKey]
		if !ok {
			if h.Required {
				return decimal.Zero, nil, &models.PriceUnavailableError{AssetKey: h.AssetKey, Required: true}
			}
			contributions = append(contributions, models.AssetContribution{
				AssetKey: h.AssetKey,
				Balance:  h.RawBalance,
				Excluded: true,
			})
			continue
		}
		if price.IsNegative() {
			return decimal.Zero, nil, fmt.Errorf("%w: negative price %s for %s", models.ErrInvalidInput, price, h.AssetKey)
		}

		value := h.Value(price)
		gav = gav.Add(value)
		contributions = append(contributions, models.AssetContribution{
			AssetKey: h.AssetKey,
			Balance:  h.RawBalance,
			Price:    price,
			Value:    value.Truncate(usdcScale),
			Required: h.Required,
		})
	}
	return gav.Truncate(usdcScale), contributions, nil
}

// ExcludedAssets returns the keys of contributions that were left out
func ExcludedAssets(contributions []models.AssetContribution) []string {
	var keys []string
	for _, c := range contributions {
		if c.Excluded {
			keys = append(keys, c.AssetKey)
		}
	}
	sort.Strings(keys)
	return keys
}
