package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BasketAsset is one underlying asset of a vault and its target allocation
type BasketAsset struct {
	AssetKey          string `json:"asset_key"`
	WeightBasisPoints int    `json:"weight_bps"` // 0-10000
}

// VaultConfig is the off-chain configuration record for a vault. It is the
// secondary source of truth when on-chain reads are unavailable.
type VaultConfig struct {
	VaultID                  string          `json:"vault_id"`
	VaultIndex               int             `json:"vault_index"`
	Name                     string          `json:"name"`
	Symbol                   string          `json:"symbol"`
	Assets                   []BasketAsset   `json:"assets"`
	ManagementFeeBasisPoints int             `json:"management_fee_bps"`
	FeePercent               decimal.Decimal `json:"fee_percent"`
	TotalSupply              decimal.Decimal `json:"total_supply"`
	Active                   bool            `json:"active"`
	CreatedAt                time.Time       `json:"created_at"`
	UpdatedAt                time.Time       `json:"updated_at"`
}

// AssetKeys returns the basket's asset keys in allocation order
func (v *VaultConfig) AssetKeys() []string {
	keys := make([]string, 0, len(v.Assets))
	for _, a := range v.Assets {
		keys = append(keys, a.AssetKey)
	}
	return keys
}

// OnChainVault is the state read from the vault program for a vault index
type OnChainVault struct {
	VaultIndex               int                        `json:"vault_index"`
	UnderlyingAssets         []BasketAsset              `json:"underlying_assets"`
	ReserveAssetKey          string                     `json:"reserve_asset_key"`
	TotalSupply              decimal.Decimal            `json:"total_supply"`
	ManagementFeeBasisPoints int                        `json:"management_fee_bps"`
	LastAccrualTimestamp     int64                      `json:"last_accrual_ts"`
	PreviouslyAccruedFeeUSD  decimal.Decimal            `json:"previously_accrued_fee_usd"`
	TokenBalances            map[string]decimal.Decimal `json:"token_balances"` // raw, undivided units
	Decimals                 map[string]int             `json:"decimals"`
	ReadAt                   time.Time                  `json:"read_at"`
}

// Checkpoint extracts the accrual checkpoint last written by the vault program
func (v *OnChainVault) Checkpoint(vaultID string) FeeAccrualCheckpoint {
	return FeeAccrualCheckpoint{
		VaultID:                  vaultID,
		PreviouslyAccruedFeeUSD:  v.PreviouslyAccruedFeeUSD,
		LastAccrualTimestamp:     v.LastAccrualTimestamp,
		ManagementFeeBasisPoints: v.ManagementFeeBasisPoints,
	}
}
