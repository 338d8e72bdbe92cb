package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FeeAccrualCheckpoint is the previously persisted on-chain accrual state
type FeeAccrualCheckpoint struct {
	VaultID                  string          `json:"vault_id"`
	PreviouslyAccruedFeeUSD  decimal.Decimal `json:"previously_accrued_fee_usd"`
	LastAccrualTimestamp     int64           `json:"last_accrual_ts"` // unix seconds
	ManagementFeeBasisPoints int             `json:"management_fee_bps"`
}

// FeeAccrualResult is the outcome of reconciling live GAV against a checkpoint
type FeeAccrualResult struct {
	VaultID                 string              `json:"vault_id,omitempty"`
	VaultIndex              int                 `json:"vault_index"`
	GAV                     decimal.Decimal     `json:"gav"`
	NAV                     decimal.Decimal     `json:"nav"`
	ElapsedSeconds          int64               `json:"elapsed_seconds"`
	PreviouslyAccruedFeeUSD decimal.Decimal     `json:"previously_accrued_fee_usd"`
	NewlyAccruedFeeUSD      decimal.Decimal     `json:"newly_accrued_fee_usd"`
	TotalAccruedFeeUSD      decimal.Decimal     `json:"total_accrued_fee_usd"`
	CreatorShareUSD         decimal.Decimal     `json:"creator_share_usd"`
	PlatformShareUSD        decimal.Decimal     `json:"platform_share_usd"`
	SharePrice              decimal.Decimal     `json:"share_price"`     // post-fee NAV per share, zero without supply
	CreatorShares           decimal.Decimal     `json:"creator_shares"`  // creator fee minted at SharePrice
	PlatformShares          decimal.Decimal     `json:"platform_shares"` // platform fee minted at SharePrice
	Contributions           []AssetContribution `json:"contributions,omitempty"`
	ComputedAt              time.Time           `json:"computed_at"`
}

// FeeAccrualSnapshot is a persisted copy of a batch-computed FeeAccrualResult
type FeeAccrualSnapshot struct {
	ID     int64            `json:"id"`
	RunID  string           `json:"run_id"`
	Result FeeAccrualResult `json:"result"`
}

// FeeAccrualEvent is published after a batch run computes a vault's accrual
type FeeAccrualEvent struct {
	EventType  string            `json:"event_type"`
	VaultIndex int               `json:"vault_index"`
	Result     *FeeAccrualResult `json:"result"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Fee accrual event types
const (
	EventTypeFeeAccrualComputed = "FEE_ACCRUAL_COMPUTED"
)
