package fees

import (
	"fmt"

	"github.com/trogers1052/vault-valuation-service/internal/models"
)

const (
	MaxBasisPoints = 10000

	MaxEntryExitLimitBps     = 1000 // 10%
	MaxManagementFeeLimitBps = 2000 // 20%

	DefaultEntryExitFeeBps     = 25
	DefaultMinManagementFeeBps = 50
	DefaultMaxManagementFeeBps = 300

	// ShareDecimals is the precision of vault share token amounts
	ShareDecimals = 6
)

// Schedule holds the platform-wide fee parameters
type Schedule struct {
	EntryFeeBps         int
	ExitFeeBps          int
	MinManagementFeeBps int
	MaxManagementFeeBps int
}

// DefaultSchedule returns the platform's default fee parameters
func DefaultSchedule() Schedule {
	return Schedule{
		EntryFeeBps:         DefaultEntryExitFeeBps,
		ExitFeeBps:          DefaultEntryExitFeeBps,
		MinManagementFeeBps: DefaultMinManagementFeeBps,
		MaxManagementFeeBps: DefaultMaxManagementFeeBps,
	}
}

// Validate checks limits and the management fee range
func (s Schedule) Validate() error {
	if s.EntryFeeBps < 0 || s.ExitFeeBps < 0 || s.MinManagementFeeBps < 0 {
		return fmt.Errorf("%w: fees cannot be negative", models.ErrInvalidInput)
	}
	if s.EntryFeeBps > MaxEntryExitLimitBps || s.ExitFeeBps > MaxEntryExitLimitBps {
		return fmt.Errorf("%w: entry/exit fees above %d bps", models.ErrInvalidInput, MaxEntryExitLimitBps)
	}
	if s.MinManagementFeeBps > s.MaxManagementFeeBps {
		return fmt.Errorf("%w: management fee range min %d > max %d",
			models.ErrInvalidInput, s.MinManagementFeeBps, s.MaxManagementFeeBps)
	}
	if s.MaxManagementFeeBps > MaxManagementFeeLimitBps {
		return fmt.Errorf("%w: max management fee above %d bps", models.ErrInvalidInput, MaxManagementFeeLimitBps)
	}
	return nil
}

// ValidateManagementFee checks a vault's management fee against the schedule
func (s Schedule) ValidateManagementFee(bps int) error {
	if bps < s.MinManagementFeeBps || bps > s.MaxManagementFeeBps {
		return fmt.Errorf("%w: management fee %d bps outside %d-%d",
			models.ErrInvalidInput, bps, s.MinManagementFeeBps, s.MaxManagementFeeBps)
	}
	return nil
}
