package fees

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/vault-valuation-service/internal/models"
)

// Deposit is the outcome of depositing stablecoin into a vault
type Deposit struct {
	Amount       decimal.Decimal `json:"amount"`
	EntryFee     decimal.Decimal `json:"entry_fee"`
	NetAmount    decimal.Decimal `json:"net_amount"`
	SharePrice   decimal.Decimal `json:"share_price"`
	SharesMinted decimal.Decimal `json:"shares_minted"`
}

// Redemption is the outcome of redeeming vault shares
type Redemption struct {
	Shares      decimal.Decimal `json:"shares"`
	SharePrice  decimal.Decimal `json:"share_price"`
	GrossPayout decimal.Decimal `json:"gross_payout"`
	ExitFee     decimal.Decimal `json:"exit_fee"`
	NetPayout   decimal.Decimal `json:"net_payout"`
}

// FeeShares is the accrued fee split expressed as vault shares to mint
type FeeShares struct {
	CreatorShares  decimal.Decimal `json:"creator_shares"`
	PlatformShares decimal.Decimal `json:"platform_shares"`
}

func bpsOf(amount decimal.Decimal, bps int) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(int64(bps))).Div(decimal.NewFromInt(MaxBasisPoints)).Truncate(usdcScale)
}

// ComputeDeposit deducts the entry fee and prices the remainder in shares.
// A zero share price mints shares 1:1 with the net deposit.
func ComputeDeposit(amount decimal.Decimal, entryFeeBps int, sharePrice decimal.Decimal, shareDecimals int) (*Deposit, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: deposit amount must be positive", models.ErrInvalidInput)
	}
	if entryFeeBps < 0 || entryFeeBps > MaxEntryExitLimitBps {
		return nil, fmt.Errorf("%w: entry fee %d bps outside 0-%d", models.ErrInvalidInput, entryFeeBps, MaxEntryExitLimitBps)
	}
	if sharePrice.IsNegative() {
		return nil, fmt.Errorf("%w: negative share price", models.ErrInvalidInput)
	}

	fee := bpsOf(amount, entryFeeBps)
	net := amount.Sub(fee)
	shares := net
	if sharePrice.IsPositive() {
		shares = net.Div(sharePrice).Truncate(int32(shareDecimals))
	}

	return &Deposit{Amount: amount, EntryFee: fee, NetAmount: net, SharePrice: sharePrice, SharesMinted: shares}, nil
}

// ComputeRedeem prices shares at sharePrice and deducts the exit fee. A zero
// share price pays out nothing.
func ComputeRedeem(shares, sharePrice decimal.Decimal, exitFeeBps int) (*Redemption, error) {
	if !shares.IsPositive() {
		return nil, fmt.Errorf("%w: redeemed shares must be positive", models.ErrInvalidInput)
	}
	if exitFeeBps < 0 || exitFeeBps > MaxEntryExitLimitBps {
		return nil, fmt.Errorf("%w: exit fee %d bps outside 0-%d", models.ErrInvalidInput, exitFeeBps, MaxEntryExitLimitBps)
	}
	if sharePrice.IsNegative() {
		return nil, fmt.Errorf("%w: negative share price", models.ErrInvalidInput)
	}

	gross := shares.Mul(sharePrice).Truncate(usdcScale)
	fee := bpsOf(gross, exitFeeBps)
	return &Redemption{Shares: shares, SharePrice: sharePrice, GrossPayout: gross, ExitFee: fee, NetPayout: gross.Sub(fee)}, nil
}

// SharesForFees converts the creator and platform fee amounts into shares at
// the current share price
func SharesForFees(result *models.FeeAccrualResult, sharePrice decimal.Decimal, shareDecimals int) (*FeeShares, error) {
	if !sharePrice.IsPositive() {
		return nil, fmt.Errorf("%w: share price must be positive to distribute fees", models.ErrInvalidInput)
	}
	places := int32(shareDecimals)
	return &FeeShares{
		CreatorShares:  result.CreatorShareUSD.Div(sharePrice).Truncate(places),
		PlatformShares: result.PlatformShareUSD.Div(sharePrice).Truncate(places),
	}, nil
}
