package valuation

import (
	"fmt"
	"strings"
	"time"

	"github.com/trogers1052/vault-valuation-service/internal/models"
)

// Period is a named chart range
type Period string

const (
	Period1D  Period = "1D"
	Period1W  Period = "1W"
	Period1M  Period = "1M"
	Period3M  Period = "3M"
	Period6M  Period = "6M"
	Period1Y  Period = "1Y"
	PeriodAll Period = "ALL"
)

// TimeRange is a concrete query window and its bucket width
type TimeRange struct {
	Start    time.Time
	End      time.Time
	Interval IntervalUnit
}

// ParsePeriod parses a period name, case-insensitively
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToUpper(strings.TrimSpace(s))); p {
	case Period1D, Period1W, Period1M, Period3M, Period6M, Period1Y, PeriodAll:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown period %q", models.ErrInvalidInput, s)
	}
}

// ResolveTimeRange maps a period to a window ending today 23:59:59.999 UTC.
// PeriodAll starts at allAnchor, the earliest creation time of the requested
// vaults, which the caller must supply.
func ResolveTimeRange(period Period, now time.Time, allAnchor *time.Time) (TimeRange, error) {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := today.Add(24*time.Hour - time.Millisecond)

	r := TimeRange{End: end}
	switch period {
	case Period1D:
		r.Start, r.Interval = today, IntervalHour
	case Period1W:
		r.Start, r.Interval = today.AddDate(0, 0, -6), IntervalDay
	case Period1M:
		r.Start, r.Interval = today.AddDate(0, -1, 0), IntervalDay
	case Period3M:
		r.Start, r.Interval = today.AddDate(0, -3, 0), IntervalDay
	case Period6M:
		r.Start, r.Interval = today.AddDate(0, -6, 0), IntervalWeek
	case Period1Y:
		r.Start, r.Interval = today.AddDate(-1, 0, 0), IntervalWeek
	case PeriodAll:
		if allAnchor == nil || allAnchor.IsZero() {
			return TimeRange{}, fmt.Errorf("%w: period ALL requires an anchor timestamp", models.ErrInvalidInput)
		}
		r.Start, r.Interval = allAnchor.UTC(), IntervalWeek
	default:
		return TimeRange{}, fmt.Errorf("%w: unknown period %q", models.ErrInvalidInput, period)
	}
	return r, nil
}
