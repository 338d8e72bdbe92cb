package service

import (
	"context"
	"time"

	"github.com/trogers1052/vault-valuation-service/internal/models"
)

// VaultConfigStore reads off-chain vault configuration
type VaultConfigStore interface {
	GetVaultByID(ctx context.Context, vaultID string) (*models.VaultConfig, error)
	GetVaultByIndex(ctx context.Context, vaultIndex int) (*models.VaultConfig, error)
	GetActiveVaults(ctx context.Context) ([]*models.VaultConfig, error)
	GetEarliestVaultCreation(ctx context.Context, vaultIDs []string) (time.Time, error)
}

// VaultConfigWriter registers vaults and edits their baskets
type VaultConfigWriter interface {
	CreateVault(ctx context.Context, v *models.VaultConfig) error
	UpdateVaultBasket(ctx context.Context, vaultID string, assets []models.BasketAsset) error
}

// OnChainVaultWriter stores the latest on-chain read of a vault
type OnChainVaultWriter interface {
	UpsertOnChainVault(ctx context.Context, v *models.OnChainVault) error
}

// PriceTickStore reads historical price ticks
type PriceTickStore interface {
	GetPriceTicks(ctx context.Context, assetKeys []string, start, end time.Time) ([]models.PriceTick, error)
	GetLatestPriceTicksBefore(ctx context.Context, assetKeys []string, cutoff time.Time) ([]models.PriceTick, error)
}

// OnChainVaultReader returns the on-chain state of a vault
type OnChainVaultReader interface {
	GetOnChainVault(ctx context.Context, vaultIndex int) (*models.OnChainVault, error)
}

// PriceOracle fetches live USD prices. Keys without data are omitted.
type PriceOracle interface {
	FetchPrices(ctx context.Context, assetKeys []string) (map[string]models.LivePrice, error)
}

// SnapshotStore persists batch-computed accruals
type SnapshotStore interface {
	CreateFeeAccrualSnapshot(ctx context.Context, runID string, r *models.FeeAccrualResult) (int64, error)
}

// AccrualPublisher announces batch-computed accruals
type AccrualPublisher interface {
	PublishFeeAccrual(ctx context.Context, r *models.FeeAccrualResult) error
}

// Observer receives accrual and batch outcomes, e.g. for metrics
type Observer interface {
	RecordAccrual(outcome string, excluded int)
	RecordBatchRun(outcome string, elapsed time.Duration)
	RecordError(component, errorType string)
}

type nopObserver struct{}

func (nopObserver) RecordAccrual(string, int)                 {}
func (nopObserver) RecordBatchRun(string, time.Duration)      {}
func (nopObserver) RecordError(string, string)                {}
