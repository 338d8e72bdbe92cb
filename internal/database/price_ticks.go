package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/trogers1052/vault-valuation-service/internal/models"
)

// CreatePriceTicksBatch stores ticks, ignoring exact duplicates of
// (asset_key, sampled_at). It returns the number of rows inserted.
func (db *DB) CreatePriceTicksBatch(ctx context.Context, ticks []models.PriceTick) (int64, error) {
	if len(ticks) == 0 {
		return 0, nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO price_ticks (asset_key, price, sampled_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (asset_key, sampled_at) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, t := range ticks {
		res, err := stmt.ExecContext(ctx, t.AssetKey, t.Price, t.SampledAt.UTC())
		if err != nil {
			return 0, fmt.Errorf("failed to insert price tick for %s: %w", t.AssetKey, err)
		}
		n, _ := res.RowsAffected()
		inserted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return inserted, nil
}

// GetPriceTicks returns ticks for the given assets with start <= sampled_at <= end
func (db *DB) GetPriceTicks(ctx context.Context, assetKeys []string, start, end time.Time) ([]models.PriceTick, error) {
	if len(assetKeys) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, asset_key, price, sampled_at
		FROM price_ticks
		WHERE asset_key = ANY($1) AND sampled_at >= $2 AND sampled_at <= $3
		ORDER BY sampled_at ASC, asset_key ASC
	`
	rows, err := db.conn.QueryContext(ctx, query, pq.Array(assetKeys), start.UTC(), end.UTC())
	return scanPriceTicks(rows, err)
}

// GetLatestPriceTicksBefore returns, per asset, the most recent tick sampled
// strictly before cutoff. Assets with no earlier tick are omitted.
func (db *DB) GetLatestPriceTicksBefore(ctx context.Context, assetKeys []string, cutoff time.Time) ([]models.PriceTick, error) {
	if len(assetKeys) == 0 {
		return nil, nil
	}

	query := `
		SELECT DISTINCT ON (asset_key) id, asset_key, price, sampled_at
		FROM price_ticks
		WHERE asset_key = ANY($1) AND sampled_at < $2
		ORDER BY asset_key ASC, sampled_at DESC
	`
	rows, err := db.conn.QueryContext(ctx, query, pq.Array(assetKeys), cutoff.UTC())
	return scanPriceTicks(rows, err)
}

// DeletePriceTicksOlderThan removes ticks sampled before cutoff
func (db *DB) DeletePriceTicksOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM price_ticks WHERE sampled_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old price ticks: %w", err)
	}
	return res.RowsAffected()
}

func scanPriceTicks(rows *sql.Rows, err error) ([]models.PriceTick, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to query price ticks: %w", err)
	}
	defer rows.Close()

	var ticks []models.PriceTick
	for rows.Next() {
		var t models.PriceTick
		if err := rows.Scan(&t.ID, &t.AssetKey, &t.Price, &t.SampledAt); err != nil {
			return nil, fmt.Errorf("failed to scan price tick: %w", err)
		}
		t.SampledAt = t.SampledAt.UTC()
		ticks = append(ticks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate price ticks: %w", err)
	}
	return ticks, nil
}
