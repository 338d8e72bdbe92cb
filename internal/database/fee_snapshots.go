package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/trogers1052/vault-valuation-service/internal/models"
)

// CreateFeeAccrualSnapshot persists a batch-computed accrual result
func (db *DB) CreateFeeAccrualSnapshot(ctx context.Context, runID string, r *models.FeeAccrualResult) (int64, error) {
	contributions, err := json.Marshal(r.Contributions)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal contributions: %w", err)
	}

	var id int64
	err = db.conn.QueryRowContext(ctx, `
		INSERT INTO fee_accrual_snapshots (
			run_id, vault_id, vault_index, gav, nav, elapsed_seconds, previously_accrued_fee_usd,
			newly_accrued_fee_usd, total_accrued_fee_usd, creator_share_usd, platform_share_usd,
			share_price, creator_shares, platform_shares, contributions, computed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id
	`, runID, r.VaultID, r.VaultIndex, r.GAV, r.NAV, r.ElapsedSeconds, r.PreviouslyAccruedFeeUSD,
		r.NewlyAccruedFeeUSD, r.TotalAccruedFeeUSD, r.CreatorShareUSD, r.PlatformShareUSD,
		r.SharePrice, r.CreatorShares, r.PlatformShares, contributions, r.ComputedAt.UTC(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create fee accrual snapshot: %w", err)
	}
	return id, nil
}

// GetLatestFeeAccrualSnapshot returns the most recent snapshot for a vault index
func (db *DB) GetLatestFeeAccrualSnapshot(ctx context.Context, vaultIndex int) (*models.FeeAccrualSnapshot, error) {
	query := `
		SELECT id, run_id, vault_id, vault_index, gav, nav, elapsed_seconds, previously_accrued_fee_usd,
			newly_accrued_fee_usd, total_accrued_fee_usd, creator_share_usd, platform_share_usd,
			share_price, creator_shares, platform_shares, contributions, computed_at
		FROM fee_accrual_snapshots
		WHERE vault_index = $1
		ORDER BY computed_at DESC, id DESC
		LIMIT 1
	`
	var s models.FeeAccrualSnapshot
	var contributions []byte
	r := &s.Result

	err := db.conn.QueryRowContext(ctx, query, vaultIndex).Scan(
		&s.ID, &s.RunID, &r.VaultID, &r.VaultIndex, &r.GAV, &r.NAV, &r.ElapsedSeconds, &r.PreviouslyAccruedFeeUSD,
		&r.NewlyAccruedFeeUSD, &r.TotalAccruedFeeUSD, &r.CreatorShareUSD, &r.PlatformShareUSD,
		&r.SharePrice, &r.CreatorShares, &r.PlatformShares, &contributions, &r.ComputedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("fee accrual snapshot for vault %d: %w", vaultIndex, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fee accrual snapshot: %w", err)
	}

	if err := json.Unmarshal(contributions, &r.Contributions); err != nil {
		return nil, fmt.Errorf("failed to decode contributions: %w", err)
	}
	r.ComputedAt = r.ComputedAt.UTC()
	return &s, nil
}
