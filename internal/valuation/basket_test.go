package valuation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/vault-valuation-service/internal/models"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeBasketPrice(t *testing.T) {
	basket := []models.BasketAsset{
		{AssetKey: "SOL", WeightBasisPoints: 4000},
		{AssetKey: "JUP", WeightBasisPoints: 6000},
	}

	t.Run("full basket is the weighted average", func(t *testing.T) {
		prices := map[string]decimal.Decimal{"SOL": d("100"), "JUP": d("200")}
		assert.True(t, d("160").Equal(ComputeBasketPrice(basket, prices)))
	})

	t.Run("missing price under-weights the basket", func(t *testing.T) {
		prices := map[string]decimal.Decimal{"JUP": d("200")}
		assert.True(t, d("120").Equal(ComputeBasketPrice(basket, prices)))

		_, contributions := BasketBreakdown(basket, prices)
		require.Len(t, contributions, 2)
		assert.True(t, contributions[0].Excluded)
		assert.Equal(t, "SOL", contributions[0].AssetKey)
		assert.False(t, contributions[1].Excluded)
	})

	t.Run("zero price is not an exclusion", func(t *testing.T) {
		prices := map[string]decimal.Decimal{"SOL": decimal.Zero, "JUP": d("1")}
		_, contributions := BasketBreakdown(basket, prices)
		assert.False(t, contributions[0].Excluded)
	})

	t.Run("rounds once after summation", func(t *testing.T) {
		thirds := []models.BasketAsset{
			{AssetKey: "A", WeightBasisPoints: 3333},
			{AssetKey: "B", WeightBasisPoints: 3333},
			{AssetKey: "C", WeightBasisPoints: 3334},
		}
		prices := map[string]decimal.Decimal{"A": d("0.015"), "B": d("0.015"), "C": d("0.015")}
		// per-term rounding would give 0.00 + 0.00 + 0.01
		assert.True(t, d("0.02").Equal(ComputeBasketPrice(thirds, prices)))
	})

	t.Run("weights summing to 10000 give the exact weighted average", func(t *testing.T) {
		weighted := []models.BasketAsset{
			{AssetKey: "A", WeightBasisPoints: 2500},
			{AssetKey: "B", WeightBasisPoints: 2500},
			{AssetKey: "C", WeightBasisPoints: 5000},
		}
		prices := map[string]decimal.Decimal{"A": d("12.34"), "B": d("56.78"), "C": d("9.10")}
		want := d("12.34").Add(d("56.78")).Mul(d("0.25")).Add(d("9.10").Mul(d("0.5"))).Round(2)
		assert.True(t, want.Equal(ComputeBasketPrice(weighted, prices)))
	})
}

func TestComputeNav(t *testing.T) {
	gav := d("1234.56")

	t.Run("zero fee leaves gav unchanged", func(t *testing.T) {
		nav, err := ComputeNav(gav, decimal.Zero)
		require.NoError(t, err)
		assert.True(t, gav.Equal(nav))
	})

	t.Run("two percent fee", func(t *testing.T) {
		nav, err := ComputeNav(d("1000"), d("2"))
		require.NoError(t, err)
		assert.True(t, d("980").Equal(nav))
	})

	t.Run("nav never exceeds gav", func(t *testing.T) {
		for fee := d("0.5"); fee.LessThanOrEqual(d("100")); fee = fee.Add(d("0.5")) {
			nav, err := ComputeNav(gav, fee)
			require.NoError(t, err)
			assert.True(t, nav.LessThan(gav), "fee %s gave nav %s", fee, nav)
		}
	})

	t.Run("rejects fee outside 0-100", func(t *testing.T) {
		_, err := ComputeNav(gav, d("-1"))
		require.ErrorIs(t, err, models.ErrInvalidInput)
		_, err = ComputeNav(gav, d("100.01"))
		require.ErrorIs(t, err, models.ErrInvalidInput)
	})
}

func TestValidateBasket(t *testing.T) {
	tests := []struct {
		name    string
		basket  []models.BasketAsset
		wantErr bool
	}{
		{"valid", []models.BasketAsset{{AssetKey: "A", WeightBasisPoints: 4000}, {AssetKey: "B", WeightBasisPoints: 6000}}, false},
		{"empty", nil, true},
		{"short of 10000", []models.BasketAsset{{AssetKey: "A", WeightBasisPoints: 4000}, {AssetKey: "B", WeightBasisPoints: 5000}}, true},
		{"duplicate", []models.BasketAsset{{AssetKey: "A", WeightBasisPoints: 5000}, {AssetKey: "A", WeightBasisPoints: 5000}}, true},
		{"weight out of range", []models.BasketAsset{{AssetKey: "A", WeightBasisPoints: 12000}, {AssetKey: "B", WeightBasisPoints: -2000}}, true},
		{"missing key", []models.BasketAsset{{AssetKey: "", WeightBasisPoints: 10000}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBasket(tt.basket)
			if tt.wantErr {
				require.ErrorIs(t, err, models.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestDeriveSharePrice(t *testing.T) {
	assert.True(t, decimal.Zero.Equal(DeriveSharePrice(decimal.Zero, decimal.Zero)))
	assert.True(t, decimal.Zero.Equal(DeriveSharePrice(d("100"), d("-5"))))
	assert.True(t, d("2.5").Equal(DeriveSharePrice(d("1000"), d("400"))))
	assert.True(t, d("0.333333").Equal(DeriveSharePrice(d("1"), d("3"))))
}
