package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordAndWords(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	require.NoError(t, s.Record(ctx, "/proj", "history", "build", "test"))
	require.NoError(t, s.Record(ctx, "/other", "history", "deploy"))
	require.NoError(t, s.Record(ctx, "/proj", "history", "build"))

	words, err := s.Words(ctx, "/proj", "history", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"build", "test"}, words)

	words, err = s.Words(ctx, "/proj", "history", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"build"}, words)

	words, err = s.Words(ctx, "/nowhere", "history", 10)
	require.NoError(t, err)
	assert.Empty(t, words)
}

func TestRecordRejectsEmptyWords(t *testing.T) {
	s := openStore(t)
	err := s.Record(context.Background(), "/proj", "history", "ok", "  ")
	assert.ErrorIs(t, err, ErrEmptyWord)

	words, err := s.Words(context.Background(), "/proj", "history", 10)
	require.NoError(t, err)
	assert.Empty(t, words)
}

func TestWordsFiltersByCategory(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	require.NoError(t, s.Record(ctx, "/proj", "history", "build"))
	require.NoError(t, s.Record(ctx, "/proj", "target", "release"))

	words, err := s.Words(ctx, "/proj", "target", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"release"}, words)

	words, err = s.Words(ctx, "/proj", "history", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"build"}, words)
}

func TestRevision(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	rev, err := s.Revision(ctx, "/proj", "history")
	require.NoError(t, err)
	assert.Equal(t, Revision{}, rev)

	require.NoError(t, s.Record(ctx, "/proj", "history", "build", "test"))
	recorded, err := s.Revision(ctx, "/proj", "history")
	require.NoError(t, err)
	assert.Equal(t, int64(2), recorded.Count)
	assert.NotZero(t, recorded.LastID)

	t.Run("other categories and directories do not count", func(t *testing.T) {
		require.NoError(t, s.Record(ctx, "/proj", "target", "release"))
		require.NoError(t, s.Record(ctx, "/other", "history", "deploy"))
		rev, err := s.Revision(ctx, "/proj", "history")
		require.NoError(t, err)
		assert.Equal(t, recorded, rev)
	})

	t.Run("delete changes the revision", func(t *testing.T) {
		entries, err := s.Recent(ctx, 10)
		require.NoError(t, err)
		require.NoError(t, s.DeleteEntry(ctx, entries[0].ID))

		rev, err := s.Revision(ctx, "/proj", "history")
		require.NoError(t, err)
		assert.Equal(t, int64(1), rev.Count)
		assert.NotEqual(t, recorded, rev)
	})

	t.Run("recording after a delete raises the last id", func(t *testing.T) {
		require.NoError(t, s.Record(ctx, "/proj", "history", "lint"))
		rev, err := s.Revision(ctx, "/proj", "history")
		require.NoError(t, err)
		assert.Equal(t, int64(2), rev.Count)
		assert.Greater(t, rev.LastID, recorded.LastID)
	})

	t.Run("reset empties the revision", func(t *testing.T) {
		require.NoError(t, s.Reset(ctx))
		rev, err := s.Revision(ctx, "/proj", "history")
		require.NoError(t, err)
		assert.Equal(t, Revision{}, rev)
	})
}

func TestRecentDeleteAndReset(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	require.NoError(t, s.Record(ctx, "/a", "history", "one", "two", "three"))

	entries, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "two", entries[0].Word)
	assert.Equal(t, "three", entries[1].Word)

	require.NoError(t, s.DeleteEntry(ctx, entries[1].ID))
	assert.Error(t, s.DeleteEntry(ctx, entries[1].ID))

	require.NoError(t, s.Reset(ctx))
	entries, err = s.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReopenKeepsEntries(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Record(ctx, "/a", "history", "kept"))
	require.NoError(t, s.Close())

	s, err = Open(path, nil)
	require.NoError(t, err)
	defer s.Close()
	words, err := s.Words(ctx, "/a", "history", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"kept"}, words)
}
