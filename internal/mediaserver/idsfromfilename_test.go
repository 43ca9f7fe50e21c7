package mediaserver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kshepherd/vibin-go/internal/model"
)

func TestIdsFromFilenameClassifiesTokens(t *testing.T) {
	a := &AssetAdapter{
		albums: map[model.MediaId]model.Album{"d-12345": {ID: "d-12345"}},
		tracks: map[model.MediaId]model.Track{"co12A345": {ID: "co12A345", AlbumId: "d-12345"}},
	}

	ids := a.IdsFromFilename("waveform-d-12345-co12A345.json")
	require.Equal(t, model.MediaId("d-12345"), ids.AlbumId)
	require.Equal(t, model.MediaId("co12A345"), ids.TrackId)
}

func TestIdsFromFilenameBackfillsAlbumFromTrack(t *testing.T) {
	a := &AssetAdapter{
		albums: map[model.MediaId]model.Album{},
		tracks: map[model.MediaId]model.Track{"co12A345": {ID: "co12A345", AlbumId: "d-99999"}},
	}

	ids := a.IdsFromFilename("lyrics-co12A345.txt")
	require.Equal(t, model.MediaId("co12A345"), ids.TrackId)
	require.Equal(t, model.MediaId("d-99999"), ids.AlbumId)
}

func TestIdsFromFilenameEmptyWhenNoCacheLoaded(t *testing.T) {
	a := &AssetAdapter{}
	ids := a.IdsFromFilename("d-12345.json")
	require.Equal(t, model.MediaId(""), ids.AlbumId)
	require.Equal(t, model.MediaId(""), ids.TrackId)
}

func TestIdsFromFilenameClassifiesArtist(t *testing.T) {
	a := &AssetAdapter{
		artists: map[model.MediaId]model.Artist{"r-54321": {ID: "r-54321"}},
	}

	ids := a.IdsFromFilename("artwork-r-54321.jpg")
	require.Equal(t, model.MediaId("r-54321"), ids.ArtistId)
	require.Equal(t, model.MediaId(""), ids.AlbumId)
	require.Equal(t, model.MediaId(""), ids.TrackId)
}
