package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "history", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreSaveAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.Save(ctx, "hello world", "Hello, world.")
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	require.False(t, first.CreatedAt.IsZero())

	second, err := s.Save(ctx, "second take", "")
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	records, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	// Most recent first.
	require.Equal(t, "second take", records[0].Text)
	require.Equal(t, "hello world", records[1].Text)
	require.Equal(t, "Hello, world.", records[1].FormattedText)
}

func TestStoreRecentLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.Save(ctx, "take", "")
		require.NoError(t, err)
	}

	records, err := s.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, records, 3)
}

func TestStoreDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec, err := s.Save(ctx, "ephemeral", "")
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, rec.ID))

	records, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestStoreReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Save(ctx, "persisted", "")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	records, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "persisted", records[0].Text)
}
