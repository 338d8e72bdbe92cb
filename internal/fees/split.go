package fees

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/vault-valuation-service/internal/models"
)

// Default management fee distribution
const (
	DefaultCreatorRatioBps  = 7000
	DefaultPlatformRatioBps = 3000
)

// Split divides accrued fees between the vault creator and the platform treasury
type Split struct {
	CreatorBps  int
	PlatformBps int
}

// DefaultSplit is the 70/30 creator/platform split
func DefaultSplit() Split {
	return Split{CreatorBps: DefaultCreatorRatioBps, PlatformBps: DefaultPlatformRatioBps}
}

// Validate requires both ratios positive and summing to 10000
func (s Split) Validate() error {
	if s.CreatorBps <= 0 || s.PlatformBps <= 0 {
		return fmt.Errorf("%w: fee ratios must both be positive (creator=%d, platform=%d)",
			models.ErrInvalidInput, s.CreatorBps, s.PlatformBps)
	}
	if s.CreatorBps+s.PlatformBps != MaxBasisPoints {
		return fmt.Errorf("%w: fee ratios sum to %d, want %d",
			models.ErrInvalidInput, s.CreatorBps+s.PlatformBps, MaxBasisPoints)
	}
	return nil
}

// Apply floors the creator share and gives the platform the remainder, so
// the two always add back to total exactly
func (s Split) Apply(total decimal.Decimal) (creator, platform decimal.Decimal) {
	creator = total.
		Mul(decimal.NewFromInt(int64(s.CreatorBps))).
		Div(decimal.NewFromInt(MaxBasisPoints)).
		Truncate(usdcScale)
	return creator, total.Sub(creator)
}
