package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSQLite(t *testing.T) *SQLiteTableRepository {
	t.Helper()
	repo, err := NewSQLiteTableRepository(filepath.Join(t.TempDir(), "repo.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLite_InsertReturnsStoredRows(t *testing.T) {
	repo := newTestSQLite(t)
	ctx := context.Background()

	rows, err := repo.Insert(ctx, TableInventory,
		Row{"dump_name": "Osazz", "deposit": 1500.5, "date": "2026-01-02", "quantity_remaining": int64(4)},
		Row{"dump_name": "CAC", "deposit": int64(10), "date": "2026-01-03"},
	)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, int64(1), rows[0]["id"])
	assert.Equal(t, int64(2), rows[1]["id"])
	assert.Equal(t, "Osazz", rows[0]["dump_name"])
	assert.Equal(t, 1500.5, rows[0]["deposit"])
	assert.Contains(t, rows[1], "status")
}

func TestSQLite_SelectFiltersAndOrder(t *testing.T) {
	repo := newTestSQLite(t)
	ctx := context.Background()

	_, err := repo.Insert(ctx, TableDeliveries,
		Row{"dump": "CAC", "date": "2026-01-05", "driver": "Musa", "containers_delivered": int64(5)},
		Row{"dump": "cac", "date": "2026-03-01", "driver": "Ade", "containers_delivered": int64(7)},
		Row{"dump": "Igwe", "date": "2026-02-01", "driver": "Musa", "containers_delivered": int64(3)},
	)
	require.NoError(t, err)

	all, err := repo.Select(ctx, TableDeliveries, Query{Order: Desc("date")})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "2026-03-01", all[0]["date"])
	assert.Equal(t, "2026-01-05", all[2]["date"])

	exact, err := repo.Select(ctx, TableDeliveries, Query{Filters: []Filter{Eq("dump", "CAC")}})
	require.NoError(t, err)
	assert.Len(t, exact, 1)

	folded, err := repo.Select(ctx, TableDeliveries, Query{Filters: []Filter{ILike("dump", "CAC")}, Order: Asc("date")})
	require.NoError(t, err)
	require.Len(t, folded, 2)
	assert.Equal(t, "2026-01-05", folded[0]["date"])

	sub, err := repo.Select(ctx, TableDeliveries, Query{Filters: []Filter{Contains("driver", "us")}})
	require.NoError(t, err)
	assert.Len(t, sub, 2)

	for _, literal := range []string{"C_C", "%", "_A_"} {
		none, err := repo.Select(ctx, TableDeliveries, Query{Filters: []Filter{ILike("dump", EscapeLike(literal))}})
		require.NoError(t, err)
		assert.Empty(t, none, literal)
	}
	wild, err := repo.Select(ctx, TableDeliveries, Query{Filters: []Filter{ILike("dump", "C_C")}})
	require.NoError(t, err)
	assert.Len(t, wild, 2)

	limited, err := repo.Select(ctx, TableDeliveries, Query{Order: Desc("date"), Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLite_UpdateAndDelete(t *testing.T) {
	repo := newTestSQLite(t)
	ctx := context.Background()

	_, err := repo.Insert(ctx, TableDumps, Row{"name": "Papa", "status": "Active"}, Row{"name": "France", "status": "Active"})
	require.NoError(t, err)

	updated, err := repo.Update(ctx, TableDumps, Row{"status": "Inactive"}, Eq("name", "Papa"))
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.Equal(t, "Inactive", updated[0]["status"])

	none, err := repo.Update(ctx, TableDumps, Row{"status": "Inactive"}, Eq("name", "Nobody"))
	require.NoError(t, err)
	assert.Empty(t, none)

	n, err := repo.Delete(ctx, TableDumps, Eq("name", "France"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	left, err := repo.Select(ctx, TableDumps, Query{})
	require.NoError(t, err)
	assert.Len(t, left, 1)
}

func TestSQLite_RejectsUnsafeInput(t *testing.T) {
	repo := newTestSQLite(t)
	ctx := context.Background()

	_, err := repo.Select(ctx, "sqlite_master", Query{})
	assert.ErrorIs(t, err, ErrUnknownTable)

	_, err = repo.Select(ctx, TableDumps, Query{Filters: []Filter{Eq("name; DROP TABLE x", 1)}})
	assert.ErrorIs(t, err, ErrUnknownColumn)

	_, err = repo.Select(ctx, TableDumps, Query{Order: Desc("nope")})
	assert.ErrorIs(t, err, ErrUnknownColumn)

	_, err = repo.Insert(ctx, TableDumps, Row{"bogus": 1})
	assert.ErrorIs(t, err, ErrUnknownColumn)

	_, err = repo.Update(ctx, TableDumps, Row{"status": "x"})
	assert.ErrorIs(t, err, ErrMissingFilter)

	_, err = repo.Update(ctx, TableDumps, Row{}, Eq("id", 1))
	assert.ErrorIs(t, err, ErrEmptyPatch)

	_, err = repo.Delete(ctx, TableDumps)
	assert.ErrorIs(t, err, ErrMissingFilter)
}

func TestSQLite_InsertIsAtomic(t *testing.T) {
	repo := newTestSQLite(t)
	ctx := context.Background()

	_, err := repo.Insert(ctx, TableBatches,
		Row{"batch_id": "BATCH-1"},
		Row{"batch_id": "BATCH-1"},
	)
	require.Error(t, err)

	rows, err := repo.Select(ctx, TableBatches, Query{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSQLite_GetStats(t *testing.T) {
	repo := newTestSQLite(t)
	ctx := context.Background()

	_, err := repo.Insert(ctx, TableReports, Row{"content": "hello", "type": "inventory"})
	require.NoError(t, err)

	stats, err := repo.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", stats["driver"])
	counts := stats["tables"].(map[string]int64)
	assert.Equal(t, int64(1), counts[TableReports])
	assert.Equal(t, int64(0), counts[TableDumps])
}

func TestOpen_UnknownType(t *testing.T) {
	_, err := Open(Options{Type: "oracle"}, zap.NewNop())
	assert.Error(t, err)
}
