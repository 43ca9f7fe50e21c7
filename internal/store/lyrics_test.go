package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLyricsGetMissReturnsNil(t *testing.T) {
	repo := NewLyricsRepository(newTestDB(t))

	entry, err := repo.Get("Radiohead", "Weird Fishes")
	require.NoError(t, err)
	require.Nil(t, entry)
}

func TestLyricsPutThenGet(t *testing.T) {
	repo := NewLyricsRepository(newTestDB(t))

	lyrics := "In the deepest ocean..."
	require.NoError(t, repo.Put("Radiohead", "Weird Fishes", &lyrics))

	entry, err := repo.Get("Radiohead", "Weird Fishes")
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.NotNil(t, entry.Lyrics)
	require.Equal(t, lyrics, *entry.Lyrics)
}

func TestLyricsPutCachesConfirmedMiss(t *testing.T) {
	repo := NewLyricsRepository(newTestDB(t))

	require.NoError(t, repo.Put("Unknown Artist", "Unknown Title", nil))

	entry, err := repo.Get("Unknown Artist", "Unknown Title")
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.Nil(t, entry.Lyrics)
}

func TestLyricsPutOverwritesPriorEntry(t *testing.T) {
	repo := NewLyricsRepository(newTestDB(t))

	first := "first version"
	require.NoError(t, repo.Put("Artist", "Title", &first))

	second := "second version"
	require.NoError(t, repo.Put("Artist", "Title", &second))

	entry, err := repo.Get("Artist", "Title")
	require.NoError(t, err)
	require.Equal(t, second, *entry.Lyrics)
}
