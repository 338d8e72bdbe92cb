package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ValuationPoint is one bucket of a vault's NAV series
type ValuationPoint struct {
	Timestamp   time.Time       `json:"timestamp"`
	GAV         decimal.Decimal `json:"gav"`
	NAV         decimal.Decimal `json:"nav"`
	SharePrice  decimal.Decimal `json:"share_price"`
	TotalSupply decimal.Decimal `json:"total_supply"`
}

// AssetContribution records how one asset fed into a valuation. Excluded is
// set when the asset had no price; Value is then zero and must not be read as
// a real zero price.
type AssetContribution struct {
	AssetKey string          `json:"asset_key"`
	Balance  decimal.Decimal `json:"balance,omitempty"`
	Price    decimal.Decimal `json:"price"`
	Value    decimal.Decimal `json:"value"`
	Required bool            `json:"required,omitempty"`
	Excluded bool            `json:"excluded"`
}

// YieldResult is the annualized yield of a series, or the reason it is unavailable
type YieldResult struct {
	Available bool            `json:"available"`
	APY       decimal.Decimal `json:"apy"`
	Reason    string          `json:"reason,omitempty"`
}

// NavSeries is the response body for a vault's NAV series
type NavSeries struct {
	VaultID  string           `json:"vault_id"`
	Interval string           `json:"interval"`
	Start    time.Time        `json:"start"`
	End      time.Time        `json:"end"`
	Points   []ValuationPoint `json:"points"`
	Yield    YieldResult      `json:"yield"`
}
