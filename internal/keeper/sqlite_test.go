package keeper

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/cryptkeeper/internal/common"
	"github.com/dmitrijs2005/cryptkeeper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLite_CreateOrUpdate_InsertAndUpdate(t *testing.T) {
	s := newMemoryStore(t)
	ctx := context.Background()

	rec := newRecord(1)
	require.NoError(t, s.CreateOrUpdate(ctx, rec))

	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	upd := rec.Clone()
	upd.Key[1] = 0xaa
	upd.RemoteID = "Crypt/docs/file1.crypt"
	require.NoError(t, s.CreateOrUpdate(ctx, upd))

	got, err = s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, upd, got)

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSQLite_UpsertIsIdempotent(t *testing.T) {
	s := newMemoryStore(t)
	ctx := context.Background()

	rec := newRecord(7)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.CreateOrUpdate(ctx, rec))
	}

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, rec, all[0])
}

func TestSQLite_GetMissing(t *testing.T) {
	s := newMemoryStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "nope")
	assert.ErrorIs(t, err, common.ErrRecordNotFound)

	_, err = s.GetByPath(ctx, "/nope")
	assert.ErrorIs(t, err, common.ErrRecordNotFound)
}

func TestSQLite_GetByPath(t *testing.T) {
	s := newMemoryStore(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		require.NoError(t, s.CreateOrUpdate(ctx, newRecord(i)))
	}

	got, err := s.GetByPath(ctx, "/home/u/docs/file2.txt")
	require.NoError(t, err)
	assert.Equal(t, newRecord(2).ID, got.ID)
}

func TestSQLite_GetByPath_NewestWins(t *testing.T) {
	s := newMemoryStore(t)
	ctx := context.Background()

	older, newer := newRecord(9), newRecord(1)
	newer.FullPath = older.FullPath
	require.NoError(t, s.CreateOrUpdate(ctx, older))
	require.NoError(t, s.CreateOrUpdate(ctx, newer))

	got, err := s.GetByPath(ctx, older.FullPath)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, got.ID)

	// updating the older record keeps its place
	older.RemoteID = "r1"
	require.NoError(t, s.CreateOrUpdate(ctx, older))
	got, err = s.GetByPath(ctx, older.FullPath)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, got.ID)
}

func TestSQLite_ListOrderedByPath(t *testing.T) {
	s := newMemoryStore(t)
	ctx := context.Background()

	for _, i := range []int{3, 1, 2} {
		require.NoError(t, s.CreateOrUpdate(ctx, newRecord(i)))
	}

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, r := range all {
		assert.Equal(t, newRecord(i+1).FullPath, r.FullPath)
	}
}

func TestSQLite_UpsertBatch_AllOrNothing(t *testing.T) {
	s := newMemoryStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertBatch(ctx, []*models.Record{newRecord(1), newRecord(2)}))

	// a short key violates the schema and must roll back the whole batch
	bad := newRecord(4)
	bad.Key = []byte{1, 2, 3}
	upd := newRecord(1)
	upd.RemoteID = "should-not-stick"
	err := s.UpsertBatch(ctx, []*models.Record{upd, newRecord(3), bad})
	require.Error(t, err)

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	got, err := s.Get(ctx, upd.ID)
	require.NoError(t, err)
	assert.Empty(t, got.RemoteID)

	assert.NoError(t, s.UpsertBatch(ctx, nil))
}

func TestSQLite_DeleteAll(t *testing.T) {
	s := newMemoryStore(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.NoError(t, s.CreateOrUpdate(ctx, newRecord(i)))
	}
	require.NoError(t, s.DeleteAll(ctx))

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestOpenSQLite_FilePersistsAcrossOpens(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sub", "keeper.db")

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.CreateOrUpdate(ctx, newRecord(9)))
	require.NoError(t, s.Close())

	// migrations run again on reopen and must be a no-op
	s, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, newRecord(9).ID)
	require.NoError(t, err)
	assert.Equal(t, newRecord(9), got)
}
