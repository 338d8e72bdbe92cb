package valuation

import (
	"math"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/vault-valuation-service/internal/models"
)

// DaysPerYearAPY is the year length used to annualize NAV growth. Fee
// accrual uses a fixed 365-day year instead (see fees.SecondsPerYearFee).
const DaysPerYearAPY = 365.25

const secondsPerYearAPY = DaysPerYearAPY * 24 * 60 * 60

// AnnualizedYield computes the compound annual growth rate between the first
// and last points of a chronologically sorted series, as a percentage
// rounded to 2 decimals.
//
// Spans are measured against a 365.25-day year, so a calendar year is
// slightly short of one APY year: +10% over exactly 365 days reports 10.01,
// and the same growth over 365 days and 6 hours reports 10.00.
func AnnualizedYield(points []models.ValuationPoint) models.YieldResult {
	if len(points) < 2 {
		return unavailable("need at least two valuation points")
	}

	first, last := points[0], points[len(points)-1]
	if !first.NAV.IsPositive() || !last.NAV.IsPositive() {
		return unavailable("first and last NAV must be positive")
	}

	years := last.Timestamp.Sub(first.Timestamp).Seconds() / secondsPerYearAPY
	if years <= 0 {
		return unavailable("series spans no time")
	}

	ratio := last.NAV.Div(first.NAV).InexactFloat64()
	growth := math.Pow(ratio, 1/years) - 1
	if math.IsNaN(growth) || math.IsInf(growth, 0) {
		return unavailable("growth rate is not finite")
	}

	return models.YieldResult{
		Available: true,
		APY:       decimal.NewFromFloat(growth * 100).Round(usdScale),
	}
}

func unavailable(reason string) models.YieldResult {
	return models.YieldResult{Reason: reason}
}
