package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kshepherd/vibin-go/internal/model"
)

func TestFavoritesAddIsIdempotent(t *testing.T) {
	repo := NewFavoritesRepository(newTestDB(t))

	first, err := repo.Add(model.FavoriteAlbum, "album-1")
	require.NoError(t, err)

	second, err := repo.Add(model.FavoriteAlbum, "album-1")
	require.NoError(t, err)

	require.Equal(t, first.WhenFavorited, second.WhenFavorited)

	favorites, err := repo.List(model.FavoriteAlbum)
	require.NoError(t, err)
	require.Len(t, favorites, 1)
}

func TestFavoritesAddDistinguishesKind(t *testing.T) {
	repo := NewFavoritesRepository(newTestDB(t))

	_, err := repo.Add(model.FavoriteAlbum, "shared-id")
	require.NoError(t, err)
	_, err = repo.Add(model.FavoriteTrack, "shared-id")
	require.NoError(t, err)

	albums, err := repo.List(model.FavoriteAlbum)
	require.NoError(t, err)
	require.Len(t, albums, 1)

	tracks, err := repo.List(model.FavoriteTrack)
	require.NoError(t, err)
	require.Len(t, tracks, 1)
}

func TestFavoritesRemove(t *testing.T) {
	repo := NewFavoritesRepository(newTestDB(t))

	_, err := repo.Add(model.FavoriteTrack, "track-1")
	require.NoError(t, err)

	require.NoError(t, repo.Remove(model.FavoriteTrack, "track-1"))

	tracks, err := repo.List(model.FavoriteTrack)
	require.NoError(t, err)
	require.Empty(t, tracks)
}

func TestFavoritesRemoveMissingIsNoOp(t *testing.T) {
	repo := NewFavoritesRepository(newTestDB(t))
	require.NoError(t, repo.Remove(model.FavoriteTrack, "never-added"))
}
