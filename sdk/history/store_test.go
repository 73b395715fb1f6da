package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rnative/rnative-client/sdk/common"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "nested", common.FileNameHistoryDB)
	store, err := Open(context.Background(), common.HistoryDriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndLatest(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	_, err := store.Latest(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Record(ctx, Entry{
		TaskID: "t1", BaseURL: "http://localhost/api/compute", FileNames: []string{"a.pdb"},
		Analyzer: "BPNET", ConsensusMode: "CANONICAL", Status: "SUBMITTED", SubmittedAt: base,
	}))
	require.NoError(t, store.Record(ctx, Entry{
		TaskID: "t2", BaseURL: "http://localhost/api/compute", FileNames: []string{"a.pdb", "b.pdb"},
		Analyzer: "FR3D", ConsensusMode: "ALL", Status: "SUBMITTED", SubmittedAt: base.Add(time.Minute),
	}))

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t2", latest.TaskID)
	assert.Equal(t, []string{"a.pdb", "b.pdb"}, latest.FileNames)
	assert.True(t, latest.SubmittedAt.Equal(base.Add(time.Minute)))
	assert.True(t, latest.UpdatedAt.Equal(latest.SubmittedAt))
}

func TestListNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"t1", "t2", "t3"} {
		require.NoError(t, store.Record(ctx, Entry{
			TaskID: id, FileNames: []string{id + ".pdb"}, Status: "SUBMITTED",
			SubmittedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "t3", all[0].TaskID)
	assert.Equal(t, "t1", all[2].TaskID)

	two, err := store.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestUpdateStatus(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	submitted := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.Record(ctx, Entry{TaskID: "t1", FileNames: []string{"a.pdb"}, Status: "SUBMITTED", SubmittedAt: submitted}))
	require.NoError(t, store.UpdateStatus(ctx, "t1", "FAILED", "Analysis failed", submitted.Add(time.Minute)))

	e, err := store.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "FAILED", e.Status)
	assert.Equal(t, "Analysis failed", e.Message)
	assert.True(t, e.UpdatedAt.Equal(submitted.Add(time.Minute)))

	assert.ErrorIs(t, store.UpdateStatus(ctx, "unknown", "COMPLETED", "", submitted), ErrNotFound)

	_, err = store.Get(ctx, "unknown")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordReplacesExistingEntry(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, Entry{TaskID: "t1", FileNames: []string{"a.pdb"}, Status: "SUBMITTED"}))
	require.NoError(t, store.Record(ctx, Entry{TaskID: "t1", FileNames: []string{"b.pdb"}, Status: "PENDING"}))

	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, []string{"b.pdb"}, all[0].FileNames)
	assert.Equal(t, "PENDING", all[0].Status)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "x")
	assert.Error(t, err)
}

func TestRebindForPostgres(t *testing.T) {
	pg := &Store{driver: common.HistoryDriverPQ}
	assert.Equal(t, "UPDATE task SET a = $1 WHERE b = $2", pg.rebind("UPDATE task SET a = ? WHERE b = ?"))

	lite := &Store{driver: common.HistoryDriverSQLite}
	assert.Equal(t, "WHERE b = ?", lite.rebind("WHERE b = ?"))
}
