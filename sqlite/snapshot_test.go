package sqlite_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/fwojciec/cdbf"
	"github.com/fwojciec/cdbf/bloom"
	"github.com/fwojciec/cdbf/countdown"
	"github.com/fwojciec/cdbf/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db := sqlite.NewDB(":memory:")
	require.NoError(t, db.Open())
	t.Cleanup(func() { db.Close() })
	return db
}

// newSnapshot builds a snapshot of a chain holding n keys.
func newSnapshot(t *testing.T, name string, n int) *cdbf.Snapshot {
	t.Helper()
	chain, err := countdown.NewChain(cdbf.ChainConfig{
		InitialCapacity: 100,
		ErrorRate:       0.01,
		Expiration:      time.Minute,
		Growth:          cdbf.SmallSetGrowth,
	}, bloom.NewIndexer())
	require.NoError(t, err)
	for i := range n {
		_, err := chain.Insert([]byte(fmt.Sprintf("key-%d", i)))
		require.NoError(t, err)
	}
	require.NoError(t, chain.Maintain(time.Second))
	return &cdbf.Snapshot{Name: name, Indexer: bloom.Name, Chain: chain.State()}
}

func TestSnapshotService_CreateSnapshot(t *testing.T) {
	t.Parallel()

	t.Run("creates snapshot with generated ID and timestamp", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewSnapshotService(setupTestDB(t))
		snap := newSnapshot(t, "events", 250)

		err := svc.CreateSnapshot(context.Background(), snap)
		require.NoError(t, err)

		assert.NotEmpty(t, snap.ID, "ID should be generated")
		assert.False(t, snap.CreatedAt.IsZero(), "CreatedAt should be set")
	})

	t.Run("returns error for invalid snapshot", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewSnapshotService(setupTestDB(t))
		snap := newSnapshot(t, "", 10)

		err := svc.CreateSnapshot(context.Background(), snap)
		require.Error(t, err)
		assert.Equal(t, cdbf.EINVALID, cdbf.ErrorCode(err))
		assert.Empty(t, snap.ID)
	})

	t.Run("rejects generations with the wrong number of cells", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewSnapshotService(setupTestDB(t))
		snap := newSnapshot(t, "events", 10)
		snap.Chain.Generations[0].Cells = snap.Chain.Generations[0].Cells[:10]

		err := svc.CreateSnapshot(context.Background(), snap)
		require.Error(t, err)
		assert.Equal(t, cdbf.EINVALID, cdbf.ErrorCode(err))
	})
}

func TestSnapshotService_FindSnapshotByID(t *testing.T) {
	t.Parallel()

	t.Run("round-trips the chain state", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewSnapshotService(setupTestDB(t))
		ctx := context.Background()
		snap := newSnapshot(t, "events", 250)
		require.NoError(t, svc.CreateSnapshot(ctx, snap))

		found, err := svc.FindSnapshotByID(ctx, snap.ID)
		require.NoError(t, err)

		assert.Equal(t, snap.ID, found.ID)
		assert.Equal(t, "events", found.Name)
		assert.Equal(t, bloom.Name, found.Indexer)
		assert.True(t, snap.CreatedAt.Equal(found.CreatedAt))
		assert.Equal(t, snap.Chain, found.Chain)

		chain, err := countdown.RestoreChain(found.Chain, bloom.NewIndexer())
		require.NoError(t, err)
		for i := range 250 {
			assert.True(t, chain.Contains([]byte(fmt.Sprintf("key-%d", i))))
		}
	})

	t.Run("round-trips an empty chain", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewSnapshotService(setupTestDB(t))
		ctx := context.Background()
		snap := newSnapshot(t, "empty", 0)
		require.NoError(t, svc.CreateSnapshot(ctx, snap))

		found, err := svc.FindSnapshotByID(ctx, snap.ID)
		require.NoError(t, err)
		assert.Equal(t, cdbf.NoActive, found.Chain.Active)
		assert.Empty(t, found.Chain.Generations)
	})

	t.Run("returns ENOTFOUND for missing snapshot", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewSnapshotService(setupTestDB(t))

		_, err := svc.FindSnapshotByID(context.Background(), "missing")
		require.Error(t, err)
		assert.Equal(t, cdbf.ENOTFOUND, cdbf.ErrorCode(err))
	})
}

func TestSnapshotService_FindSnapshotByName(t *testing.T) {
	t.Parallel()

	t.Run("returns the latest snapshot with the name", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewSnapshotService(setupTestDB(t))
		ctx := context.Background()
		first := newSnapshot(t, "events", 10)
		require.NoError(t, svc.CreateSnapshot(ctx, first))
		second := newSnapshot(t, "events", 250)
		require.NoError(t, svc.CreateSnapshot(ctx, second))
		require.NoError(t, svc.CreateSnapshot(ctx, newSnapshot(t, "other", 10)))

		found, err := svc.FindSnapshotByName(ctx, "events")
		require.NoError(t, err)
		assert.Equal(t, second.ID, found.ID)
		assert.Len(t, found.Chain.Generations, len(second.Chain.Generations))
	})

	t.Run("returns ENOTFOUND for unknown name", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewSnapshotService(setupTestDB(t))

		_, err := svc.FindSnapshotByName(context.Background(), "missing")
		require.Error(t, err)
		assert.Equal(t, cdbf.ENOTFOUND, cdbf.ErrorCode(err))
	})
}

func TestSnapshotService_FindSnapshots(t *testing.T) {
	t.Parallel()

	t.Run("lists headers newest first without cells", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewSnapshotService(setupTestDB(t))
		ctx := context.Background()
		a := newSnapshot(t, "a", 10)
		require.NoError(t, svc.CreateSnapshot(ctx, a))
		b := newSnapshot(t, "b", 250)
		require.NoError(t, svc.CreateSnapshot(ctx, b))

		snaps, err := svc.FindSnapshots(ctx, cdbf.SnapshotFilter{})
		require.NoError(t, err)
		require.Len(t, snaps, 2)

		assert.Equal(t, b.ID, snaps[0].ID)
		assert.Equal(t, a.ID, snaps[1].ID)
		require.Len(t, snaps[0].Chain.Generations, len(b.Chain.Generations))
		for i, g := range snaps[0].Chain.Generations {
			assert.Nil(t, g.Cells)
			assert.Equal(t, b.Chain.Generations[i].Config, g.Config)
			assert.Equal(t, b.Chain.Generations[i].Count, g.Count)
		}
	})

	t.Run("filters by name", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewSnapshotService(setupTestDB(t))
		ctx := context.Background()
		require.NoError(t, svc.CreateSnapshot(ctx, newSnapshot(t, "a", 10)))
		require.NoError(t, svc.CreateSnapshot(ctx, newSnapshot(t, "b", 10)))

		name := "b"
		snaps, err := svc.FindSnapshots(ctx, cdbf.SnapshotFilter{Name: &name})
		require.NoError(t, err)
		require.Len(t, snaps, 1)
		assert.Equal(t, "b", snaps[0].Name)
	})

	t.Run("paginates", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewSnapshotService(setupTestDB(t))
		ctx := context.Background()
		var ids []string
		for i := range 3 {
			snap := newSnapshot(t, fmt.Sprintf("s%d", i), 10)
			require.NoError(t, svc.CreateSnapshot(ctx, snap))
			ids = append(ids, snap.ID)
		}

		snaps, err := svc.FindSnapshots(ctx, cdbf.SnapshotFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, snaps, 1)
		assert.Equal(t, ids[1], snaps[0].ID)

		snaps, err = svc.FindSnapshots(ctx, cdbf.SnapshotFilter{Offset: 2})
		require.NoError(t, err)
		require.Len(t, snaps, 1)
		assert.Equal(t, ids[0], snaps[0].ID)
	})
}

func TestSnapshotService_DeleteSnapshot(t *testing.T) {
	t.Parallel()

	t.Run("deletes snapshot and its generations", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewSnapshotService(db)
		ctx := context.Background()
		snap := newSnapshot(t, "events", 250)
		require.NoError(t, svc.CreateSnapshot(ctx, snap))

		require.NoError(t, svc.DeleteSnapshot(ctx, snap.ID))

		_, err := svc.FindSnapshotByID(ctx, snap.ID)
		assert.Equal(t, cdbf.ENOTFOUND, cdbf.ErrorCode(err))

		var n int
		require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM generations").Scan(&n))
		assert.Equal(t, 0, n)
	})

	t.Run("returns ENOTFOUND for missing snapshot", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewSnapshotService(setupTestDB(t))

		err := svc.DeleteSnapshot(context.Background(), "missing")
		require.Error(t, err)
		assert.Equal(t, cdbf.ENOTFOUND, cdbf.ErrorCode(err))
	})
}
