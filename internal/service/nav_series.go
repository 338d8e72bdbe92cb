package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/trogers1052/vault-valuation-service/internal/models"
	"github.com/trogers1052/vault-valuation-service/internal/valuation"
)

// NavSeriesRequest selects a window either by named Period or by explicit
// Start/End/Interval. Period wins when both are set.
type NavSeriesRequest struct {
	VaultID  string
	Period   valuation.Period
	Start    *time.Time
	End      *time.Time
	Interval valuation.IntervalUnit
}

// NavSeriesService builds historical NAV series from stored price ticks
type NavSeriesService struct {
	vaults VaultConfigStore
	ticks  PriceTickStore
	logger *slog.Logger
	now    func() time.Time
}

// NewNavSeriesService creates a NavSeriesService
func NewNavSeriesService(vaults VaultConfigStore, ticks PriceTickStore, logger *slog.Logger) *NavSeriesService {
	return &NavSeriesService{
		vaults: vaults,
		ticks:  ticks,
		logger: logger.With("component", "nav_series"),
		now:    time.Now,
	}
}

// GetNavSeries returns the vault's bucketed NAV series and its annualized yield
func (s *NavSeriesService) GetNavSeries(ctx context.Context, req NavSeriesRequest) (*models.NavSeries, error) {
	vault, err := s.vaults.GetVaultByID(ctx, req.VaultID)
	if err != nil {
		return nil, err
	}

	window, err := s.resolveWindow(ctx, vault, req)
	if err != nil {
		return nil, err
	}

	keys := vault.AssetKeys()
	ticks, err := s.ticks.GetPriceTicks(ctx, keys, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("failed to load price ticks: %w", err)
	}

	// the last price before the window carries into its first buckets
	seed, err := s.ticks.GetLatestPriceTicksBefore(ctx, keys, window.Start)
	if err != nil {
		return nil, fmt.Errorf("failed to load prices before %s: %w", window.Start.Format(time.RFC3339), err)
	}
	ticks = append(seed, ticks...)

	points, err := valuation.BuildNavSeries(valuation.SeriesInput{
		Basket:      vault.Assets,
		Ticks:       ticks,
		Interval:    window.Interval,
		FeePercent:  vault.FeePercent,
		TotalSupply: vault.TotalSupply,
		From:        window.Start,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build nav series for %s: %w", vault.VaultID, err)
	}

	yield := valuation.AnnualizedYield(points)
	s.logger.Debug("built nav series",
		"vault_id", vault.VaultID,
		"interval", window.Interval,
		"ticks", len(ticks),
		"points", len(points),
		"apy_available", yield.Available,
	)

	return &models.NavSeries{
		VaultID:  vault.VaultID,
		Interval: string(window.Interval),
		Start:    window.Start,
		End:      window.End,
		Points:   points,
		Yield:    yield,
	}, nil
}

func (s *NavSeriesService) resolveWindow(ctx context.Context, vault *models.VaultConfig, req NavSeriesRequest) (valuation.TimeRange, error) {
	now := s.now().UTC()

	if req.Period != "" {
		var anchor *time.Time
		if req.Period == valuation.PeriodAll {
			earliest, err := s.vaults.GetEarliestVaultCreation(ctx, []string{vault.VaultID})
			if err != nil {
				return valuation.TimeRange{}, fmt.Errorf("failed to resolve ALL anchor: %w", err)
			}
			anchor = &earliest
		}
		return valuation.ResolveTimeRange(req.Period, now, anchor)
	}

	interval := req.Interval
	if interval == "" {
		interval = valuation.IntervalDay
	}

	window := valuation.TimeRange{Interval: interval, Start: vault.CreatedAt.UTC(), End: now}
	if req.Start != nil {
		window.Start = req.Start.UTC()
	}
	if req.End != nil {
		window.End = req.End.UTC()
	}
	if window.Start.After(window.End) {
		return valuation.TimeRange{}, fmt.Errorf("%w: start %s is after end %s",
			models.ErrInvalidInput, window.Start.Format(time.RFC3339), window.End.Format(time.RFC3339))
	}
	return window, nil
}
