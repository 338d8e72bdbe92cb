package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/vault-valuation-service/internal/fees"
	"github.com/trogers1052/vault-valuation-service/internal/models"
	"github.com/trogers1052/vault-valuation-service/internal/oracle"
	"github.com/trogers1052/vault-valuation-service/internal/valuation"
)

// FeeAccrualService reconciles live vault value against the on-chain accrual checkpoint
type FeeAccrualService struct {
	vaults          VaultConfigStore
	chain           OnChainVaultReader
	oracle          PriceOracle
	engine          *fees.Engine
	schedule        fees.Schedule
	reserveAssetKey string
	observer        Observer
	logger          *slog.Logger
	now             func() time.Time
}

// FeeAccrualDeps groups the collaborators of a FeeAccrualService
type FeeAccrualDeps struct {
	Vaults          VaultConfigStore
	Chain           OnChainVaultReader
	Oracle          PriceOracle
	Engine          *fees.Engine
	Schedule        fees.Schedule
	ReserveAssetKey string
	Observer        Observer
}

// NewFeeAccrualService creates a FeeAccrualService
func NewFeeAccrualService(deps FeeAccrualDeps, logger *slog.Logger) *FeeAccrualService {
	observer := deps.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	return &FeeAccrualService{
		vaults:          deps.Vaults,
		chain:           deps.Chain,
		oracle:          deps.Oracle,
		engine:          deps.Engine,
		schedule:        deps.Schedule,
		reserveAssetKey: deps.ReserveAssetKey,
		observer:        observer,
		logger:          logger.With("component", "fee_accrual"),
		now:             time.Now,
	}
}

// GetFeeAccrual computes the current accrual for a vault. A missing price
// for the reserve asset fails the calculation; missing prices for other
// assets exclude them from GAV and are logged.
func (s *FeeAccrualService) GetFeeAccrual(ctx context.Context, vaultIndex int) (*models.FeeAccrualResult, error) {
	result, excluded, err := s.compute(ctx, vaultIndex)
	if err != nil {
		s.observer.RecordAccrual("error", 0)
		return nil, err
	}
	s.observer.RecordAccrual("ok", excluded)
	return result, nil
}

func (s *FeeAccrualService) compute(ctx context.Context, vaultIndex int) (*models.FeeAccrualResult, int, error) {
	state, vaultID, err := s.loadVault(ctx, vaultIndex)
	if err != nil {
		return nil, 0, err
	}

	if err := s.schedule.ValidateManagementFee(state.ManagementFeeBasisPoints); err != nil {
		s.logger.Warn("management fee outside schedule",
			"vault_index", vaultIndex,
			"management_fee_bps", state.ManagementFeeBasisPoints,
			"error", err,
		)
	}

	holdings, err := fees.HoldingsFromVault(state)
	if err != nil {
		return nil, 0, fmt.Errorf("vault %d: %w", vaultIndex, err)
	}

	keys := make([]string, 0, len(holdings))
	for _, h := range holdings {
		keys = append(keys, h.AssetKey)
	}
	live, err := s.oracle.FetchPrices(ctx, keys)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch live prices for vault %d: %w", vaultIndex, err)
	}

	gav, contributions, err := fees.ComputeLiveGAV(holdings, oracle.PriceMap(live))
	if err != nil {
		return nil, 0, fmt.Errorf("vault %d: %w", vaultIndex, err)
	}

	excluded := fees.ExcludedAssets(contributions)
	if len(excluded) > 0 {
		s.logger.Warn("excluding unpriced assets from live GAV",
			"vault_index", vaultIndex,
			"assets", excluded,
		)
	}

	now := s.now()
	checkpoint := state.Checkpoint(vaultID)
	result, err := s.engine.Accrue(fees.AccrualInput{
		GAV:                      gav,
		ManagementFeeBasisPoints: checkpoint.ManagementFeeBasisPoints,
		ElapsedSeconds:           fees.ElapsedSince(checkpoint.LastAccrualTimestamp, now),
		PreviouslyAccruedFeeUSD:  checkpoint.PreviouslyAccruedFeeUSD,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("vault %d: %w", vaultIndex, err)
	}

	// fees are minted at the post-fee share price; without supply there is
	// nothing to mint against
	result.SharePrice = valuation.DeriveSharePrice(result.NAV, state.TotalSupply)
	if result.SharePrice.IsPositive() {
		shares, err := fees.SharesForFees(result, result.SharePrice, fees.ShareDecimals)
		if err != nil {
			return nil, 0, fmt.Errorf("vault %d: %w", vaultIndex, err)
		}
		result.CreatorShares = shares.CreatorShares
		result.PlatformShares = shares.PlatformShares
	}

	result.VaultID = vaultID
	result.VaultIndex = vaultIndex
	result.Contributions = contributions
	result.ComputedAt = now.UTC()
	return result, len(excluded), nil
}

// QuoteDeposit prices a deposit of amount stablecoin into a vault at its live
// share price, net of the schedule's entry fee
func (s *FeeAccrualService) QuoteDeposit(ctx context.Context, vaultIndex int, amount decimal.Decimal) (*fees.Deposit, error) {
	result, err := s.GetFeeAccrual(ctx, vaultIndex)
	if err != nil {
		return nil, err
	}
	return fees.ComputeDeposit(amount, s.schedule.EntryFeeBps, result.SharePrice, fees.ShareDecimals)
}

// QuoteRedeem prices a redemption of shares from a vault at its live share
// price, net of the schedule's exit fee
func (s *FeeAccrualService) QuoteRedeem(ctx context.Context, vaultIndex int, shares decimal.Decimal) (*fees.Redemption, error) {
	result, err := s.GetFeeAccrual(ctx, vaultIndex)
	if err != nil {
		return nil, err
	}
	return fees.ComputeRedeem(shares, result.SharePrice, s.schedule.ExitFeeBps)
}

// loadVault reads on-chain state and fills basket, fee and supply gaps from
// the configuration store
func (s *FeeAccrualService) loadVault(ctx context.Context, vaultIndex int) (*models.OnChainVault, string, error) {
	state, err := s.chain.GetOnChainVault(ctx, vaultIndex)
	if err != nil {
		return nil, "", err
	}

	var vaultID string
	cfg, err := s.vaults.GetVaultByIndex(ctx, vaultIndex)
	switch {
	case err == nil:
		vaultID = cfg.VaultID
		if len(state.UnderlyingAssets) == 0 {
			state.UnderlyingAssets = cfg.Assets
		}
		if state.ManagementFeeBasisPoints == 0 {
			state.ManagementFeeBasisPoints = cfg.ManagementFeeBasisPoints
		}
		if state.TotalSupply.IsZero() {
			state.TotalSupply = cfg.TotalSupply
		}
	case errors.Is(err, models.ErrNotFound):
		s.logger.Debug("no vault configuration, using on-chain state only", "vault_index", vaultIndex)
	default:
		s.logger.Warn("vault configuration unavailable, using on-chain state only",
			"vault_index", vaultIndex,
			"error", err,
		)
	}

	if state.ReserveAssetKey == "" {
		state.ReserveAssetKey = s.reserveAssetKey
	}
	return state, vaultID, nil
}
