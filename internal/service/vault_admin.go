package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/vault-valuation-service/internal/fees"
	"github.com/trogers1052/vault-valuation-service/internal/models"
	"github.com/trogers1052/vault-valuation-service/internal/valuation"
)

var hundred = decimal.NewFromInt(100)

// VaultAdminService validates and records vault configuration and the
// on-chain state pushed by the indexer
type VaultAdminService struct {
	vaults   VaultConfigWriter
	chain    OnChainVaultWriter
	schedule fees.Schedule
	logger   *slog.Logger
	now      func() time.Time
}

// NewVaultAdminService creates a VaultAdminService
func NewVaultAdminService(vaults VaultConfigWriter, chain OnChainVaultWriter, schedule fees.Schedule, logger *slog.Logger) *VaultAdminService {
	return &VaultAdminService{
		vaults:   vaults,
		chain:    chain,
		schedule: schedule,
		logger:   logger.With("component", "vault_admin"),
		now:      time.Now,
	}
}

// CreateVault registers a vault. The basket must be complete and the
// management fee inside the platform schedule.
func (s *VaultAdminService) CreateVault(ctx context.Context, v *models.VaultConfig) error {
	v.VaultID = strings.TrimSpace(v.VaultID)
	if v.VaultID == "" {
		return fmt.Errorf("%w: vault id is required", models.ErrInvalidInput)
	}
	if v.VaultIndex < 0 {
		return fmt.Errorf("%w: vault index cannot be negative", models.ErrInvalidInput)
	}
	if v.Name == "" || v.Symbol == "" {
		return fmt.Errorf("%w: vault name and symbol are required", models.ErrInvalidInput)
	}
	if err := valuation.ValidateBasket(v.Assets); err != nil {
		return err
	}
	if err := s.schedule.ValidateManagementFee(v.ManagementFeeBasisPoints); err != nil {
		return err
	}
	if v.FeePercent.IsNegative() || v.FeePercent.GreaterThan(hundred) {
		return fmt.Errorf("%w: fee percent %s outside [0,100]", models.ErrInvalidInput, v.FeePercent)
	}
	if v.TotalSupply.IsNegative() {
		return fmt.Errorf("%w: total supply cannot be negative", models.ErrInvalidInput)
	}

	if err := s.vaults.CreateVault(ctx, v); err != nil {
		return err
	}
	s.logger.Info("vault created",
		"vault_id", v.VaultID,
		"vault_index", v.VaultIndex,
		"assets", len(v.Assets),
	)
	return nil
}

// UpdateBasket replaces a vault's basket with a complete new allocation
func (s *VaultAdminService) UpdateBasket(ctx context.Context, vaultID string, assets []models.BasketAsset) error {
	if err := valuation.ValidateBasket(assets); err != nil {
		return err
	}
	if err := s.vaults.UpdateVaultBasket(ctx, vaultID, assets); err != nil {
		return err
	}
	s.logger.Info("vault basket updated", "vault_id", vaultID, "assets", len(assets))
	return nil
}

// RecordOnChainState stores an on-chain read of a vault for the accrual path.
// A missing read time is stamped with the current time.
func (s *VaultAdminService) RecordOnChainState(ctx context.Context, v *models.OnChainVault) error {
	if v.VaultIndex < 0 {
		return fmt.Errorf("%w: vault index cannot be negative", models.ErrInvalidInput)
	}
	if v.TotalSupply.IsNegative() || v.PreviouslyAccruedFeeUSD.IsNegative() {
		return fmt.Errorf("%w: supply and accrued fees cannot be negative", models.ErrInvalidInput)
	}
	if v.LastAccrualTimestamp < 0 {
		return fmt.Errorf("%w: last accrual timestamp cannot be negative", models.ErrInvalidInput)
	}
	for key, balance := range v.TokenBalances {
		if balance.IsNegative() {
			return fmt.Errorf("%w: negative balance for %s", models.ErrInvalidInput, key)
		}
	}
	if v.ReadAt.IsZero() {
		v.ReadAt = s.now().UTC()
	}

	if err := s.chain.UpsertOnChainVault(ctx, v); err != nil {
		return err
	}
	s.logger.Debug("on-chain vault state recorded", "vault_index", v.VaultIndex, "read_at", v.ReadAt)
	return nil
}
