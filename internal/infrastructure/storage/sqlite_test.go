package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemorySQLite(t *testing.T, snapshots int) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:", snapshots, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreEmpty(t *testing.T) {
	s := newMemorySQLite(t, 0)

	blob, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "{}", string(blob))

	snaps, err := s.Snapshots(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestSQLiteStoreLastWriteWins(t *testing.T) {
	s := newMemorySQLite(t, 0)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, []byte(`{"n":1}`)))
	require.NoError(t, s.Save(ctx, []byte(`{"n":2}`)))

	blob, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"n":2}`, string(blob))

	snaps, err := s.Snapshots(ctx)
	require.NoError(t, err)
	assert.Empty(t, snaps, "history disabled")
}

func TestSQLiteStoreSnapshotsBounded(t *testing.T) {
	s := newMemorySQLite(t, 3)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.NoError(t, s.Save(ctx, []byte(fmt.Sprintf(`{"n":%d}`, i))))
	}

	snaps, err := s.Snapshots(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	assert.Greater(t, snaps[0].ID, snaps[1].ID, "newest first")

	newest, err := s.ReadSnapshot(ctx, snaps[0].ID)
	require.NoError(t, err)
	assert.Equal(t, `{"n":5}`, string(newest))

	oldest, err := s.ReadSnapshot(ctx, snaps[2].ID)
	require.NoError(t, err)
	assert.Equal(t, `{"n":3}`, string(oldest))
	assert.Equal(t, len(`{"n":3}`), snaps[2].Size)
}

func TestSQLiteStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path, 1, nil)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, []byte(`{"kept":true}`)))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path, 1, nil)
	require.NoError(t, err)
	defer s.Close()

	blob, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"kept":true}`, string(blob))
}
