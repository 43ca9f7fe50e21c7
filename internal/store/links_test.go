package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLinksGetMissReturnsNil(t *testing.T) {
	repo := NewLinksRepository(newTestDB(t))

	entry, err := repo.Get("Pink Floyd", "The Wall")
	require.NoError(t, err)
	require.Nil(t, entry)
}

func TestLinksPutThenGet(t *testing.T) {
	repo := NewLinksRepository(newTestDB(t))

	require.NoError(t, repo.Put("Pink Floyd", "The Wall", "https://discogs.example/the-wall", ""))

	entry, err := repo.Get("Pink Floyd", "The Wall")
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.Equal(t, "https://discogs.example/the-wall", entry.DiscogsURL)
	require.Empty(t, entry.GeniusURL)
}

func TestLinksPutOverwritesPriorEntry(t *testing.T) {
	repo := NewLinksRepository(newTestDB(t))

	require.NoError(t, repo.Put("Artist", "Album", "https://discogs.example/old", ""))
	require.NoError(t, repo.Put("Artist", "Album", "https://discogs.example/new", "https://genius.example/new"))

	entry, err := repo.Get("Artist", "Album")
	require.NoError(t, err)
	require.Equal(t, "https://discogs.example/new", entry.DiscogsURL)
	require.Equal(t, "https://genius.example/new", entry.GeniusURL)
}
