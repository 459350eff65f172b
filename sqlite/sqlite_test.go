package sqlite_test

import (
	"context"
	"testing"

	"github.com/fwojciec/cdbf/sqlite"
	"github.com/stretchr/testify/require"
)

func TestDB_Open(t *testing.T) {
	t.Parallel()

	t.Run("creates schema on first open", func(t *testing.T) {
		t.Parallel()

		db := sqlite.NewDB(":memory:")
		err := db.Open()
		require.NoError(t, err)
		defer db.Close()

		ctx := context.Background()

		var snapshotCount int
		err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM snapshots").Scan(&snapshotCount)
		require.NoError(t, err)

		var generationCount int
		err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM generations").Scan(&generationCount)
		require.NoError(t, err)
	})

	t.Run("returns error for invalid path", func(t *testing.T) {
		t.Parallel()

		db := sqlite.NewDB("/nonexistent/path/db.sqlite")
		err := db.Open()
		require.Error(t, err)
	})

	t.Run("enables WAL mode for file-based databases", func(t *testing.T) {
		t.Parallel()

		dbPath := t.TempDir() + "/test.db"
		db := sqlite.NewDB(dbPath)
		err := db.Open()
		require.NoError(t, err)
		defer db.Close()

		ctx := context.Background()
		var journalMode string
		err = db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journalMode)
		require.NoError(t, err)
		require.Equal(t, "wal", journalMode)
	})
}

func TestDB_foreign_keys(t *testing.T) {
	t.Parallel()

	db := sqlite.NewDB(":memory:")
	require.NoError(t, db.Open())
	defer db.Close()

	ctx := context.Background()
	_, err := db.ExecContext(ctx, `
		INSERT INTO generations (snapshot_id, position, capacity, error_rate, expiration, count, head, unset, estimated, cells)
		VALUES ('missing', 0, 1, 0.5, 1, 0, 0, 0.5, 0, x'00')
	`)
	require.Error(t, err)
}

func TestDB_BeginTx(t *testing.T) {
	t.Parallel()

	db := sqlite.NewDB(":memory:")
	require.NoError(t, db.Open())
	defer db.Close()

	ctx := context.Background()
	tx, err := db.BeginTx(ctx)
	require.NoError(t, err)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots (id, name, indexer, initial_capacity, error_rate, expiration, growth, active, created_at)
		VALUES ('a', 'n', 'murmur3', 1, 0.5, 1, 2, -1, '2024-01-01T00:00:00Z')
	`)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	var n int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM snapshots").Scan(&n))
	require.Equal(t, 0, n)
}
