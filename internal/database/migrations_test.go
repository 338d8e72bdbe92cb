package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)

	t.Run("all tables exist", func(t *testing.T) {
		expectedTables := []string{
			"price_ticks",
			"vaults",
			"vault_assets",
			"onchain_vault_snapshots",
			"fee_accrual_snapshots",
		}

		for _, tableName := range expectedTables {
			var exists bool
			err := testDB.GetRawConn().QueryRow(`
				SELECT EXISTS (
					SELECT FROM information_schema.tables
					WHERE table_schema = 'public'
					AND table_name = $1
				)
			`, tableName).Scan(&exists)

			require.NoError(t, err, "failed to check table existence for %s", tableName)
			assert.True(t, exists, "table %s should exist", tableName)
		}
	})

	t.Run("price_ticks table has correct columns", func(t *testing.T) {
		expectedColumns := map[string]string{
			"id":         "bigint",
			"asset_key":  "character varying",
			"price":      "numeric",
			"sampled_at": "timestamp with time zone",
			"created_at": "timestamp with time zone",
		}

		for colName, expectedType := range expectedColumns {
			var actualType string
			err := testDB.GetRawConn().QueryRow(`
				SELECT data_type
				FROM information_schema.columns
				WHERE table_name = 'price_ticks' AND column_name = $1
			`, colName).Scan(&actualType)

			require.NoError(t, err, "column %s should exist in price_ticks table", colName)
			assert.Equal(t, expectedType, actualType, "column %s should have type %s", colName, expectedType)
		}
	})

	t.Run("fee_accrual_snapshots table has correct columns", func(t *testing.T) {
		expectedColumns := []string{
			"id", "run_id", "vault_id", "vault_index", "gav", "nav", "elapsed_seconds",
			"previously_accrued_fee_usd", "newly_accrued_fee_usd", "total_accrued_fee_usd",
			"creator_share_usd", "platform_share_usd", "share_price", "creator_shares", "platform_shares",
			"contributions", "computed_at", "created_at",
		}

		for _, colName := range expectedColumns {
			var exists bool
			err := testDB.GetRawConn().QueryRow(`
				SELECT EXISTS (
					SELECT FROM information_schema.columns
					WHERE table_name = 'fee_accrual_snapshots' AND column_name = $1
				)
			`, colName).Scan(&exists)

			require.NoError(t, err)
			assert.True(t, exists, "column %s should exist in fee_accrual_snapshots table", colName)
		}
	})

	t.Run("indexes exist", func(t *testing.T) {
		expectedIndexes := []struct {
			table string
			index string
		}{
			{"price_ticks", "idx_price_ticks_asset_sampled"},
			{"fee_accrual_snapshots", "idx_fee_accrual_snapshots_vault"},
			{"fee_accrual_snapshots", "idx_fee_accrual_snapshots_run"},
		}

		for _, idx := range expectedIndexes {
			var exists bool
			err := testDB.GetRawConn().QueryRow(`
				SELECT EXISTS (
					SELECT FROM pg_indexes
					WHERE tablename = $1 AND indexname = $2
				)
			`, idx.table, idx.index).Scan(&exists)

			require.NoError(t, err)
			assert.True(t, exists, "index %s should exist on %s", idx.index, idx.table)
		}
	})

	t.Run("migrate is idempotent", func(t *testing.T) {
		require.NoError(t, testDB.RunMigrations())
	})
}
