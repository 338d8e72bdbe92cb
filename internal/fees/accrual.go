package fees

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/vault-valuation-service/internal/models"
)

// SecondsPerYearFee is the fixed 365-day year used by management fee accrual.
// Leap years are ignored; this matches the vault program's accrual and must
// not be replaced by the 365.25-day year used for APY.
const SecondsPerYearFee = 365 * 24 * 60 * 60

// usdcScale is the precision of fee amounts (USDC has 6 decimals)
const usdcScale = 6

var accrualDenominator = decimal.NewFromInt(MaxBasisPoints * SecondsPerYearFee)

// AccrualInput is a live GAV plus the checkpoint values it is reconciled against
type AccrualInput struct {
	GAV                      decimal.Decimal
	ManagementFeeBasisPoints int
	ElapsedSeconds           int64
	PreviouslyAccruedFeeUSD  decimal.Decimal
}

// Engine computes management fee accrual and its creator/platform split
type Engine struct {
	split Split
}

// NewEngine creates an accrual engine with a validated fee split
func NewEngine(split Split) (*Engine, error) {
	if err := split.Validate(); err != nil {
		return nil, err
	}
	return &Engine{split: split}, nil
}

// Split returns the engine's fee split
func (e *Engine) Split() Split {
	return e.split
}

// Accrue reconciles gav against the previously accrued fee:
//
//	newly = gav * bps * elapsed / (10000 * SecondsPerYearFee)
//	total = previously + newly
//	nav   = gav - total (floored at zero)
//
// Amounts are floored to USDC precision, as on-chain integer math does.
func (e *Engine) Accrue(in AccrualInput) (*models.FeeAccrualResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	newly := decimal.Zero
	if in.ElapsedSeconds > 0 && in.ManagementFeeBasisPoints > 0 && in.GAV.IsPositive() {
		newly = in.GAV.
			Mul(decimal.NewFromInt(int64(in.ManagementFeeBasisPoints))).
			Mul(decimal.NewFromInt(in.ElapsedSeconds)).
			Div(accrualDenominator).
			Truncate(usdcScale)
	}

	total := in.PreviouslyAccruedFeeUSD.Add(newly)
	nav := in.GAV.Sub(total)
	if nav.IsNegative() {
		nav = decimal.Zero
	}
	creator, platform := e.split.Apply(total)

	return &models.FeeAccrualResult{
		GAV:                     in.GAV,
		NAV:                     nav,
		ElapsedSeconds:          in.ElapsedSeconds,
		PreviouslyAccruedFeeUSD: in.PreviouslyAccruedFeeUSD,
		NewlyAccruedFeeUSD:      newly,
		TotalAccruedFeeUSD:      total,
		CreatorShareUSD:         creator,
		PlatformShareUSD:        platform,
	}, nil
}

func (in AccrualInput) validate() error {
	if in.GAV.IsNegative() {
		return fmt.Errorf("%w: negative gav %s", models.ErrInvalidInput, in.GAV)
	}
	if in.PreviouslyAccruedFeeUSD.IsNegative() {
		return fmt.Errorf("%w: negative previously accrued fee %s", models.ErrInvalidInput, in.PreviouslyAccruedFeeUSD)
	}
	if in.ElapsedSeconds < 0 {
		return fmt.Errorf("%w: negative elapsed seconds %d", models.ErrInvalidInput, in.ElapsedSeconds)
	}
	if in.ManagementFeeBasisPoints < 0 || in.ManagementFeeBasisPoints > MaxManagementFeeLimitBps {
		return fmt.Errorf("%w: management fee %d bps outside 0-%d",
			models.ErrInvalidInput, in.ManagementFeeBasisPoints, MaxManagementFeeLimitBps)
	}
	return nil
}

// ElapsedSince returns whole seconds from lastAccrualTs to now, or zero if
// the checkpoint is not in the past
func ElapsedSince(lastAccrualTs int64, now time.Time) int64 {
	elapsed := now.Unix() - lastAccrualTs
	if elapsed < 0 {
		return 0
	}
	return elapsed
}
