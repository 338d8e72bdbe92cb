package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/trogers1052/vault-valuation-service/internal/models"
)

const vaultColumns = `vault_id, vault_index, name, symbol, management_fee_bps, fee_percent, total_supply, active, created_at, updated_at`

// CreateVault inserts a vault configuration and its basket
func (db *DB) CreateVault(ctx context.Context, v *models.VaultConfig) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = now

	_, err = tx.ExecContext(ctx, `
		INSERT INTO vaults (`+vaultColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, v.VaultID, v.VaultIndex, v.Name, v.Symbol, v.ManagementFeeBasisPoints,
		v.FeePercent, v.TotalSupply, v.Active, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create vault: %w", err)
	}

	if err := insertVaultAssets(ctx, tx, v.VaultID, v.Assets); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpdateVaultBasket replaces the basket of a vault
func (db *DB) UpdateVaultBasket(ctx context.Context, vaultID string, assets []models.BasketAsset) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE vaults SET updated_at = $2 WHERE vault_id = $1`, vaultID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update vault: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("vault %s: %w", vaultID, models.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM vault_assets WHERE vault_id = $1`, vaultID); err != nil {
		return fmt.Errorf("failed to clear vault assets: %w", err)
	}
	if err := insertVaultAssets(ctx, tx, vaultID, assets); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func insertVaultAssets(ctx context.Context, tx *sql.Tx, vaultID string, assets []models.BasketAsset) error {
	for i, a := range assets {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO vault_assets (vault_id, asset_key, weight_bps, position)
			VALUES ($1, $2, $3, $4)
		`, vaultID, a.AssetKey, a.WeightBasisPoints, i)
		if err != nil {
			return fmt.Errorf("failed to insert vault asset %s: %w", a.AssetKey, err)
		}
	}
	return nil
}

// GetVaultByID retrieves a vault configuration with its basket
func (db *DB) GetVaultByID(ctx context.Context, vaultID string) (*models.VaultConfig, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+vaultColumns+` FROM vaults WHERE vault_id = $1`, vaultID)
	v, err := scanVault(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("vault %s: %w", vaultID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vault: %w", err)
	}
	if err := db.loadAssets(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// GetVaultByIndex retrieves a vault configuration by its on-chain index
func (db *DB) GetVaultByIndex(ctx context.Context, vaultIndex int) (*models.VaultConfig, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+vaultColumns+` FROM vaults WHERE vault_index = $1`, vaultIndex)
	v, err := scanVault(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("vault index %d: %w", vaultIndex, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vault: %w", err)
	}
	if err := db.loadAssets(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// GetActiveVaults returns all active vaults ordered by index
func (db *DB) GetActiveVaults(ctx context.Context) ([]*models.VaultConfig, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT `+vaultColumns+` FROM vaults WHERE active = TRUE ORDER BY vault_index`)
	if err != nil {
		return nil, fmt.Errorf("failed to query vaults: %w", err)
	}
	defer rows.Close()

	var vaults []*models.VaultConfig
	for rows.Next() {
		v, err := scanVault(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vault: %w", err)
		}
		vaults = append(vaults, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate vaults: %w", err)
	}

	for _, v := range vaults {
		if err := db.loadAssets(ctx, v); err != nil {
			return nil, err
		}
	}
	return vaults, nil
}

// GetEarliestVaultCreation returns the earliest created_at among vaultIDs
func (db *DB) GetEarliestVaultCreation(ctx context.Context, vaultIDs []string) (time.Time, error) {
	var earliest sql.NullTime
	err := db.conn.QueryRowContext(ctx,
		`SELECT MIN(created_at) FROM vaults WHERE vault_id = ANY($1)`, pq.Array(vaultIDs),
	).Scan(&earliest)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get earliest vault creation: %w", err)
	}
	if !earliest.Valid {
		return time.Time{}, fmt.Errorf("vaults %v: %w", vaultIDs, models.ErrNotFound)
	}
	return earliest.Time.UTC(), nil
}

func (db *DB) loadAssets(ctx context.Context, v *models.VaultConfig) error {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT asset_key, weight_bps
		FROM vault_assets
		WHERE vault_id = $1
		ORDER BY position
	`, v.VaultID)
	if err != nil {
		return fmt.Errorf("failed to query vault assets: %w", err)
	}
	defer rows.Close()

	v.Assets = v.Assets[:0]
	for rows.Next() {
		var a models.BasketAsset
		if err := rows.Scan(&a.AssetKey, &a.WeightBasisPoints); err != nil {
			return fmt.Errorf("failed to scan vault asset: %w", err)
		}
		v.Assets = append(v.Assets, a)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVault(row rowScanner) (*models.VaultConfig, error) {
	var v models.VaultConfig
	err := row.Scan(
		&v.VaultID, &v.VaultIndex, &v.Name, &v.Symbol, &v.ManagementFeeBasisPoints,
		&v.FeePercent, &v.TotalSupply, &v.Active, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	v.CreatedAt = v.CreatedAt.UTC()
	v.UpdatedAt = v.UpdatedAt.UTC()
	return &v, nil
}
