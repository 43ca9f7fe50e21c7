package external

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestDiscogsClient(t *testing.T, handler http.HandlerFunc) *DiscogsClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewDiscogsClient("vibin-go-test/1.0", "test-token")
	require.NotNil(t, client)
	client.searchURL = server.URL
	client.pageBase = "https://www.discogs.com"
	return client
}

func TestNewDiscogsClientReturnsNilWithoutToken(t *testing.T) {
	require.Nil(t, NewDiscogsClient("ua", ""))
}

func TestDiscogsLinksResolvesArtistAndAlbum(t *testing.T) {
	client := newTestDiscogsClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("type") {
		case "artist":
			w.Write([]byte(`{"results":[{"title":"Radiohead","uri":"/artist/1"}]}`))
		case "master":
			w.Write([]byte(`{"results":[{"title":"OK Computer","uri":"/master/2"}]}`))
		}
	})

	links, err := client.Links(context.Background(), "Radiohead", "OK Computer", "", LinkTypeAll)
	require.NoError(t, err)
	require.Len(t, links, 2)
	require.Equal(t, "https://www.discogs.com/artist/1", links[0].URL)
	require.Equal(t, "https://www.discogs.com/master/2", links[1].URL)
}

func TestDiscogsLinksIgnoresTrackOnlyRequest(t *testing.T) {
	client := newTestDiscogsClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("discogs should never be queried for a track-only request")
	})

	links, err := client.Links(context.Background(), "", "", "Karma Police", LinkTypeTrack)
	require.NoError(t, err)
	require.Empty(t, links)
}

func TestDiscogsLinksOmitsNoResultsMatch(t *testing.T) {
	client := newTestDiscogsClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[]}`))
	})

	links, err := client.Links(context.Background(), "Unknown Artist", "", "", LinkTypeArtist)
	require.NoError(t, err)
	require.Empty(t, links)
}
