package valuation

import "github.com/shopspring/decimal"

// DeriveSharePrice returns nav per outstanding share at 6 decimals, or zero
// when there is no supply
func DeriveSharePrice(nav, totalSupply decimal.Decimal) decimal.Decimal {
	if !totalSupply.IsPositive() {
		return decimal.Zero
	}
	return nav.Div(totalSupply).Round(sharePriceScale)
}
