package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/trogers1052/vault-valuation-service/internal/models"
)

// UpsertOnChainVault stores the latest on-chain read for a vault index
func (db *DB) UpsertOnChainVault(ctx context.Context, v *models.OnChainVault) error {
	underlying, err := json.Marshal(v.UnderlyingAssets)
	if err != nil {
		return fmt.Errorf("failed to marshal underlying assets: %w", err)
	}
	balances, err := json.Marshal(v.TokenBalances)
	if err != nil {
		return fmt.Errorf("failed to marshal token balances: %w", err)
	}
	decimals, err := json.Marshal(v.Decimals)
	if err != nil {
		return fmt.Errorf("failed to marshal decimals: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO onchain_vault_snapshots (
			vault_index, reserve_asset_key, underlying_assets, total_supply, management_fee_bps,
			last_accrual_ts, previously_accrued_fee_usd, token_balances, decimals, read_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (vault_index) DO UPDATE SET
			reserve_asset_key = EXCLUDED.reserve_asset_key,
			underlying_assets = EXCLUDED.underlying_assets,
			total_supply = EXCLUDED.total_supply,
			management_fee_bps = EXCLUDED.management_fee_bps,
			last_accrual_ts = EXCLUDED.last_accrual_ts,
			previously_accrued_fee_usd = EXCLUDED.previously_accrued_fee_usd,
			token_balances = EXCLUDED.token_balances,
			decimals = EXCLUDED.decimals,
			read_at = EXCLUDED.read_at
	`, v.VaultIndex, v.ReserveAssetKey, underlying, v.TotalSupply, v.ManagementFeeBasisPoints,
		v.LastAccrualTimestamp, v.PreviouslyAccruedFeeUSD, balances, decimals, v.ReadAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert on-chain vault: %w", err)
	}
	return nil
}

// GetOnChainVault returns the latest on-chain read for a vault index
func (db *DB) GetOnChainVault(ctx context.Context, vaultIndex int) (*models.OnChainVault, error) {
	query := `
		SELECT vault_index, reserve_asset_key, underlying_assets, total_supply, management_fee_bps,
			last_accrual_ts, previously_accrued_fee_usd, token_balances, decimals, read_at
		FROM onchain_vault_snapshots
		WHERE vault_index = $1
	`
	var v models.OnChainVault
	var underlying, balances, decimals []byte

	err := db.conn.QueryRowContext(ctx, query, vaultIndex).Scan(
		&v.VaultIndex, &v.ReserveAssetKey, &underlying, &v.TotalSupply, &v.ManagementFeeBasisPoints,
		&v.LastAccrualTimestamp, &v.PreviouslyAccruedFeeUSD, &balances, &decimals, &v.ReadAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("on-chain vault %d: %w", vaultIndex, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get on-chain vault: %w", err)
	}

	if err := json.Unmarshal(underlying, &v.UnderlyingAssets); err != nil {
		return nil, fmt.Errorf("failed to decode underlying assets: %w", err)
	}
	if err := json.Unmarshal(balances, &v.TokenBalances); err != nil {
		return nil, fmt.Errorf("failed to decode token balances: %w", err)
	}
	if err := json.Unmarshal(decimals, &v.Decimals); err != nil {
		return nil, fmt.Errorf("failed to decode decimals: %w", err)
	}
	v.ReadAt = v.ReadAt.UTC()
	return &v, nil
}
