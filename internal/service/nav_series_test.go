package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/vault-valuation-service/internal/models"
	"github.com/trogers1052/vault-valuation-service/internal/valuation"
)

var navNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func navVault() *models.VaultConfig {
	return &models.VaultConfig{
		VaultID:    "v1",
		VaultIndex: 1,
		Assets: []models.BasketAsset{
			{AssetKey: "A", WeightBasisPoints: 4000},
			{AssetKey: "B", WeightBasisPoints: 6000},
		},
		FeePercent:  decimal.Zero,
		TotalSupply: decimal.NewFromInt(10),
		CreatedAt:   time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
	}
}

func newNavService(vaults *MockVaultStore, ticks *MockTickStore) *NavSeriesService {
	s := NewNavSeriesService(vaults, ticks, testLogger())
	s.now = func() time.Time { return navNow }
	return s
}

func TestGetNavSeries_Period1D(t *testing.T) {
	ctx := context.Background()
	vaults := new(MockVaultStore)
	ticks := new(MockTickStore)
	service := newNavService(vaults, ticks)

	today := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	end := today.Add(24*time.Hour - time.Millisecond)

	vaults.On("GetVaultByID", ctx, "v1").Return(navVault(), nil)
	ticks.On("GetLatestPriceTicksBefore", ctx, []string{"A", "B"}, today).Return(nil, nil)
	ticks.On("GetPriceTicks", ctx, []string{"A", "B"}, today, end).Return([]models.PriceTick{
		{AssetKey: "A", Price: decimal.NewFromInt(100), SampledAt: today},
		{AssetKey: "B", Price: decimal.NewFromInt(200), SampledAt: today.Add(10 * time.Minute)},
		{AssetKey: "B", Price: decimal.NewFromInt(210), SampledAt: today.Add(70 * time.Minute)},
	}, nil)

	series, err := service.GetNavSeries(ctx, NavSeriesRequest{VaultID: "v1", Period: valuation.Period1D})
	require.NoError(t, err)

	assert.Equal(t, "v1", series.VaultID)
	assert.Equal(t, "hour", series.Interval)
	assert.True(t, series.Start.Equal(today))
	assert.True(t, series.End.Equal(end))
	require.Len(t, series.Points, 2)
	assert.True(t, series.Points[0].GAV.Equal(decimal.NewFromInt(160)))
	assert.True(t, series.Points[1].GAV.Equal(decimal.NewFromInt(166)))
	assert.True(t, series.Points[1].SharePrice.Equal(decimal.RequireFromString("16.6")))
	assert.True(t, series.Yield.Available)

	vaults.AssertExpectations(t)
	ticks.AssertExpectations(t)
}

func TestGetNavSeries_CarriesPriceFromBeforeWindow(t *testing.T) {
	ctx := context.Background()
	vaults := new(MockVaultStore)
	ticks := new(MockTickStore)
	service := newNavService(vaults, ticks)

	today := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	end := today.Add(24*time.Hour - time.Millisecond)

	vaults.On("GetVaultByID", ctx, "v1").Return(navVault(), nil)
	ticks.On("GetPriceTicks", ctx, []string{"A", "B"}, today, end).Return([]models.PriceTick{
		{AssetKey: "B", Price: decimal.NewFromInt(200), SampledAt: today.Add(time.Hour)},
	}, nil)
	ticks.On("GetLatestPriceTicksBefore", ctx, []string{"A", "B"}, today).Return([]models.PriceTick{
		{AssetKey: "A", Price: decimal.NewFromInt(100), SampledAt: today.Add(-time.Hour)},
	}, nil)

	series, err := service.GetNavSeries(ctx, NavSeriesRequest{VaultID: "v1", Period: valuation.Period1D})
	require.NoError(t, err)

	require.Len(t, series.Points, 1)
	assert.True(t, series.Points[0].Timestamp.Equal(today.Add(time.Hour)))
	// 40% of A at 100 plus 60% of B at 200
	assert.True(t, series.Points[0].GAV.Equal(decimal.NewFromInt(160)), "got %s", series.Points[0].GAV)
	ticks.AssertExpectations(t)
}

func TestGetNavSeries_PeriodAllUsesEarliestCreation(t *testing.T) {
	ctx := context.Background()
	vaults := new(MockVaultStore)
	ticks := new(MockTickStore)
	service := newNavService(vaults, ticks)

	created := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
	vaults.On("GetVaultByID", ctx, "v1").Return(navVault(), nil)
	vaults.On("GetEarliestVaultCreation", ctx, []string{"v1"}).Return(created, nil)
	ticks.On("GetPriceTicks", ctx, []string{"A", "B"}, created, mock.AnythingOfType("time.Time")).
		Return([]models.PriceTick{}, nil)
	ticks.On("GetLatestPriceTicksBefore", ctx, []string{"A", "B"}, created).Return([]models.PriceTick{}, nil)

	series, err := service.GetNavSeries(ctx, NavSeriesRequest{VaultID: "v1", Period: valuation.PeriodAll})
	require.NoError(t, err)

	assert.Equal(t, "week", series.Interval)
	assert.True(t, series.Start.Equal(created))
	assert.Empty(t, series.Points)
	assert.False(t, series.Yield.Available)
	vaults.AssertExpectations(t)
}

func TestGetNavSeries_ExplicitRange(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

	t.Run("uses given start, end and interval", func(t *testing.T) {
		vaults := new(MockVaultStore)
		ticks := new(MockTickStore)
		service := newNavService(vaults, ticks)

		vaults.On("GetVaultByID", ctx, "v1").Return(navVault(), nil)
		ticks.On("GetLatestPriceTicksBefore", ctx, []string{"A", "B"}, start).Return(nil, nil)
		ticks.On("GetPriceTicks", ctx, []string{"A", "B"}, start, end).Return([]models.PriceTick{
			{AssetKey: "A", Price: decimal.NewFromInt(100), SampledAt: start.Add(time.Minute)},
			{AssetKey: "A", Price: decimal.NewFromInt(110), SampledAt: start.Add(3 * time.Minute)},
		}, nil)

		series, err := service.GetNavSeries(ctx, NavSeriesRequest{
			VaultID:  "v1",
			Start:    &start,
			End:      &end,
			Interval: valuation.IntervalMinute,
		})
		require.NoError(t, err)
		require.Len(t, series.Points, 2)
		// only A priced: partial basket, 40% of price
		assert.True(t, series.Points[0].GAV.Equal(decimal.NewFromInt(40)))
		assert.True(t, series.Points[1].GAV.Equal(decimal.NewFromInt(44)))
	})

	t.Run("defaults to creation time, now and day buckets", func(t *testing.T) {
		vaults := new(MockVaultStore)
		ticks := new(MockTickStore)
		service := newNavService(vaults, ticks)

		vault := navVault()
		vaults.On("GetVaultByID", ctx, "v1").Return(vault, nil)
		ticks.On("GetPriceTicks", ctx, []string{"A", "B"}, vault.CreatedAt, navNow).Return(nil, nil)
		ticks.On("GetLatestPriceTicksBefore", ctx, []string{"A", "B"}, vault.CreatedAt).Return(nil, nil)

		series, err := service.GetNavSeries(ctx, NavSeriesRequest{VaultID: "v1"})
		require.NoError(t, err)
		assert.Equal(t, "day", series.Interval)
	})

	t.Run("start after end is invalid", func(t *testing.T) {
		vaults := new(MockVaultStore)
		service := newNavService(vaults, new(MockTickStore))
		vaults.On("GetVaultByID", ctx, "v1").Return(navVault(), nil)

		_, err := service.GetNavSeries(ctx, NavSeriesRequest{VaultID: "v1", Start: &end, End: &start})
		assert.True(t, errors.Is(err, models.ErrInvalidInput))
	})
}

func TestGetNavSeries_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("vault not found", func(t *testing.T) {
		vaults := new(MockVaultStore)
		service := newNavService(vaults, new(MockTickStore))
		vaults.On("GetVaultByID", ctx, "nope").Return(nil, fmt.Errorf("vault nope: %w", models.ErrNotFound))

		_, err := service.GetNavSeries(ctx, NavSeriesRequest{VaultID: "nope", Period: valuation.Period1W})
		assert.True(t, errors.Is(err, models.ErrNotFound))
	})

	t.Run("tick store failure", func(t *testing.T) {
		vaults := new(MockVaultStore)
		ticks := new(MockTickStore)
		service := newNavService(vaults, ticks)
		vaults.On("GetVaultByID", ctx, "v1").Return(navVault(), nil)
		ticks.On("GetPriceTicks", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

		_, err := service.GetNavSeries(ctx, NavSeriesRequest{VaultID: "v1", Period: valuation.Period1W})
		assert.ErrorContains(t, err, "db down")
	})

	t.Run("lookback failure", func(t *testing.T) {
		vaults := new(MockVaultStore)
		ticks := new(MockTickStore)
		service := newNavService(vaults, ticks)
		vaults.On("GetVaultByID", ctx, "v1").Return(navVault(), nil)
		ticks.On("GetPriceTicks", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
		ticks.On("GetLatestPriceTicksBefore", ctx, mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

		_, err := service.GetNavSeries(ctx, NavSeriesRequest{VaultID: "v1", Period: valuation.Period1W})
		assert.ErrorContains(t, err, "failed to load prices before")
	})

	t.Run("invalid fee percent", func(t *testing.T) {
		vaults := new(MockVaultStore)
		ticks := new(MockTickStore)
		service := newNavService(vaults, ticks)

		vault := navVault()
		vault.FeePercent = decimal.NewFromInt(150)
		vaults.On("GetVaultByID", ctx, "v1").Return(vault, nil)
		ticks.On("GetPriceTicks", ctx, mock.Anything, mock.Anything, mock.Anything).Return([]models.PriceTick{
			{AssetKey: "A", Price: decimal.NewFromInt(1), SampledAt: navNow},
		}, nil)
		ticks.On("GetLatestPriceTicksBefore", ctx, mock.Anything, mock.Anything).Return(nil, nil)

		_, err := service.GetNavSeries(ctx, NavSeriesRequest{VaultID: "v1", Period: valuation.Period1D})
		assert.Error(t, err)
	})
}
