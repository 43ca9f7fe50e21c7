package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kshepherd/vibin-go/internal/db"
	"github.com/kshepherd/vibin-go/internal/model"
)

func newTestDB(t *testing.T) *db.DBPair {
	t.Helper()
	pair, err := db.Init(filepath.Join(t.TempDir(), "vibin-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { pair.Close() })
	return pair
}

func TestPlaylistsCreateAndGet(t *testing.T) {
	repo := NewPlaylistsRepository(newTestDB(t))

	created, err := repo.Create("Morning Jazz", []model.MediaId{"track-1", "track-2"})
	require.NoError(t, err)
	require.Equal(t, "Morning Jazz", created.Name)
	require.Equal(t, []model.MediaId{"track-1", "track-2"}, created.EntryIds)

	fetched, err := repo.GetByID(created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, fetched.ID)
}

func TestPlaylistsUpdateEntriesBumpsUpdatedAt(t *testing.T) {
	repo := NewPlaylistsRepository(newTestDB(t))

	created, err := repo.Create("Focus", []model.MediaId{"track-1"})
	require.NoError(t, err)

	updated, err := repo.UpdateEntries(created.ID, []model.MediaId{"track-1", "track-2", "track-3"})
	require.NoError(t, err)
	require.Len(t, updated.EntryIds, 3)
	require.False(t, updated.Updated.Before(created.Updated))
}

func TestPlaylistsDeleteReturnsNoRowsWhenMissing(t *testing.T) {
	repo := NewPlaylistsRepository(newTestDB(t))
	err := repo.Delete("does-not-exist")
	require.Error(t, err)
}

func TestPlaylistsListOrdersByUpdatedDesc(t *testing.T) {
	repo := NewPlaylistsRepository(newTestDB(t))

	_, err := repo.Create("First", nil)
	require.NoError(t, err)
	second, err := repo.Create("Second", nil)
	require.NoError(t, err)

	// Force a distinct, later updated_at without depending on wall-clock
	// resolution between the two inserts above.
	later, err := repo.UpdateEntries(second.ID, []model.MediaId{"track-x"})
	require.NoError(t, err)

	playlists, err := repo.List()
	require.NoError(t, err)
	require.Len(t, playlists, 2)
	require.Equal(t, later.ID, playlists[0].ID)
}
