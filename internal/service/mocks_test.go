package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/trogers1052/vault-valuation-service/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockVaultStore is a mock implementation of VaultConfigStore for testing
type MockVaultStore struct {
	mock.Mock
}

func (m *MockVaultStore) GetVaultByID(ctx context.Context, vaultID string) (*models.VaultConfig, error) {
	args := m.Called(ctx, vaultID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VaultConfig), args.Error(1)
}

func (m *MockVaultStore) GetVaultByIndex(ctx context.Context, vaultIndex int) (*models.VaultConfig, error) {
	args := m.Called(ctx, vaultIndex)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VaultConfig), args.Error(1)
}

func (m *MockVaultStore) GetActiveVaults(ctx context.Context) ([]*models.VaultConfig, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.VaultConfig), args.Error(1)
}

func (m *MockVaultStore) GetEarliestVaultCreation(ctx context.Context, vaultIDs []string) (time.Time, error) {
	args := m.Called(ctx, vaultIDs)
	return args.Get(0).(time.Time), args.Error(1)
}

// MockVaultWriter is a mock implementation of VaultConfigWriter for testing
type MockVaultWriter struct {
	mock.Mock
}

func (m *MockVaultWriter) CreateVault(ctx context.Context, v *models.VaultConfig) error {
	return m.Called(ctx, v).Error(0)
}

func (m *MockVaultWriter) UpdateVaultBasket(ctx context.Context, vaultID string, assets []models.BasketAsset) error {
	return m.Called(ctx, vaultID, assets).Error(0)
}

// MockChainWriter is a mock implementation of OnChainVaultWriter for testing
type MockChainWriter struct {
	mock.Mock
}

func (m *MockChainWriter) UpsertOnChainVault(ctx context.Context, v *models.OnChainVault) error {
	return m.Called(ctx, v).Error(0)
}

// MockTickStore is a mock implementation of PriceTickStore for testing
type MockTickStore struct {
	mock.Mock
}

func (m *MockTickStore) GetPriceTicks(ctx context.Context, assetKeys []string, start, end time.Time) ([]models.PriceTick, error) {
	args := m.Called(ctx, assetKeys, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PriceTick), args.Error(1)
}

func (m *MockTickStore) GetLatestPriceTicksBefore(ctx context.Context, assetKeys []string, cutoff time.Time) ([]models.PriceTick, error) {
	args := m.Called(ctx, assetKeys, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PriceTick), args.Error(1)
}

// MockChainReader is a mock implementation of OnChainVaultReader for testing
type MockChainReader struct {
	mock.Mock
}

func (m *MockChainReader) GetOnChainVault(ctx context.Context, vaultIndex int) (*models.OnChainVault, error) {
	args := m.Called(ctx, vaultIndex)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OnChainVault), args.Error(1)
}

// MockOracle is a mock implementation of PriceOracle for testing
type MockOracle struct {
	mock.Mock
}

func (m *MockOracle) FetchPrices(ctx context.Context, assetKeys []string) (map[string]models.LivePrice, error) {
	args := m.Called(ctx, assetKeys)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]models.LivePrice), args.Error(1)
}

// MockSnapshotStore is a mock implementation of SnapshotStore for testing
type MockSnapshotStore struct {
	mock.Mock
}

func (m *MockSnapshotStore) CreateFeeAccrualSnapshot(ctx context.Context, runID string, r *models.FeeAccrualResult) (int64, error) {
	args := m.Called(ctx, runID, r)
	return args.Get(0).(int64), args.Error(1)
}

// MockPublisher is a mock implementation of AccrualPublisher for testing
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishFeeAccrual(ctx context.Context, r *models.FeeAccrualResult) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

// MockAccrualCalculator is a mock implementation of AccrualCalculator for testing
type MockAccrualCalculator struct {
	mock.Mock
}

func (m *MockAccrualCalculator) GetFeeAccrual(ctx context.Context, vaultIndex int) (*models.FeeAccrualResult, error) {
	args := m.Called(ctx, vaultIndex)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FeeAccrualResult), args.Error(1)
}

// MockObserver is a mock implementation of Observer for testing
type MockObserver struct {
	mock.Mock
}

func (m *MockObserver) RecordAccrual(outcome string, excluded int) {
	m.Called(outcome, excluded)
}

func (m *MockObserver) RecordBatchRun(outcome string, elapsed time.Duration) {
	m.Called(outcome, elapsed)
}

func (m *MockObserver) RecordError(component, errorType string) {
	m.Called(component, errorType)
}
